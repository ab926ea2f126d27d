package recipe

import "hashrecipe/internal/locale"

// Builtin returns the bundled bilingual corpus.
func Builtin() *SnapshotCatalog {
	c, err := NewCatalog(map[locale.Locale][]Recipe{
		locale.English: builtinEN,
		locale.Chinese: builtinZH,
	})
	if err != nil {
		panic("recipe: builtin corpus is invalid: " + err.Error())
	}
	return c
}

const (
	imgAvocadoToast = "https://images.unsplash.com/photo-1525351484163-7529414395d8?auto=format&fit=crop&q=80&w=800"
	imgRamen        = "https://images.unsplash.com/photo-1569718212165-3a8278d5f624?auto=format&fit=crop&q=80&w=800"
	imgSalmonBowl   = "https://images.unsplash.com/photo-1467003909585-2f8a7270028d?auto=format&fit=crop&q=80&w=800"
	imgPizza        = "https://images.unsplash.com/photo-1574071318508-1cdbab80d002?auto=format&fit=crop&q=80&w=800"
	imgSmoothieBowl = "https://images.unsplash.com/photo-1626078436418-d426372d80d2?auto=format&fit=crop&q=80&w=800"
	imgTacos        = "https://images.unsplash.com/photo-1551504734-5ee1c4a1479b?auto=format&fit=crop&q=80&w=800"
)

var builtinEN = []Recipe{
	{
		ID:           "1",
		Title:        "Avocado Toast with Poached Egg",
		Calories:     320,
		TimeMinutes:  15,
		Ingredients:  []string{"Sourdough Bread", "Ripe Avocado", "Large Egg", "Chili Flakes", "Lemon Juice"},
		Instructions: []string{"Toast the bread.", "Mash avocado with lemon juice.", "Poach the egg for 4 minutes.", "Assemble and season."},
		ImageURL:     imgAvocadoToast,
		Fingerprint:  "10110011010101101000101101010100",
		Tags:         []string{"Breakfast", "Healthy"},
	},
	{
		ID:           "2",
		Title:        "Spicy Miso Ramen",
		Calories:     550,
		TimeMinutes:  45,
		Ingredients:  []string{"Ramen Noodles", "Miso Paste", "Chili Oil", "Pork Belly", "Green Onions", "Soft Boiled Egg"},
		Instructions: []string{"Prepare broth with miso.", "Cook noodles separately.", "Sear pork belly.", "Assemble bowl and top with oil."},
		ImageURL:     imgRamen,
		Fingerprint:  "00101011011101101001101100010101",
		Tags:         []string{"Japanese", "Spicy"},
	},
	{
		ID:           "3",
		Title:        "Grilled Salmon Bowl",
		Calories:     480,
		TimeMinutes:  25,
		Ingredients:  []string{"Salmon Fillet", "Quinoa", "Cucumber", "Edamame", "Sesame Dressing"},
		Instructions: []string{"Grill salmon skin-side down.", "Cook quinoa.", "Slice vegetables.", "Serve with dressing."},
		ImageURL:     imgSalmonBowl,
		Fingerprint:  "11110011010100001000101111110100",
		Tags:         []string{"Lunch", "High Protein"},
	},
	{
		ID:           "4",
		Title:        "Classic Margherita Pizza",
		Calories:     700,
		TimeMinutes:  60,
		Ingredients:  []string{"Pizza Dough", "San Marzano Tomatoes", "Fresh Mozzarella", "Basil", "Olive Oil"},
		Instructions: []string{"Stretch dough.", "Spread crushed tomatoes.", "Add cheese.", "Bake at max temp for 8 mins."},
		ImageURL:     imgPizza,
		Fingerprint:  "01010011010101101011101101010100",
		Tags:         []string{"Italian", "Vegetarian"},
	},
	{
		ID:           "5",
		Title:        "Berry Smoothie Bowl",
		Calories:     280,
		TimeMinutes:  10,
		Ingredients:  []string{"Frozen Berries", "Banana", "Almond Milk", "Granola", "Chia Seeds"},
		Instructions: []string{"Blend frozen fruits with milk.", "Pour into bowl.", "Top with granola and seeds."},
		ImageURL:     imgSmoothieBowl,
		Fingerprint:  "11000011010111101000100001010111",
		Tags:         []string{"Breakfast", "Vegan"},
	},
	{
		ID:           "6",
		Title:        "Beef Tacos",
		Calories:     450,
		TimeMinutes:  30,
		Ingredients:  []string{"Corn Tortillas", "Ground Beef", "Lime", "Cilantro", "Onion", "Salsa"},
		Instructions: []string{"Season and cook beef.", "Warm tortillas.", "Chop onions and cilantro.", "Serve with lime."},
		ImageURL:     imgTacos,
		Fingerprint:  "10110111010101101111101101010000",
		Tags:         []string{"Mexican", "Dinner"},
	},
}

var builtinZH = []Recipe{
	{
		ID:           "1",
		Title:        "牛油果水波蛋吐司",
		Calories:     320,
		TimeMinutes:  15,
		Ingredients:  []string{"酸面包", "熟牛油果", "大号鸡蛋", "辣椒片", "柠檬汁"},
		Instructions: []string{"烤面包。", "将牛油果与柠檬汁捣碎。", "煮水波蛋4分钟。", "组装并调味。"},
		ImageURL:     imgAvocadoToast,
		Fingerprint:  "10110011010101101000101101010100",
		Tags:         []string{"早餐", "健康"},
	},
	{
		ID:           "2",
		Title:        "辣味味噌拉面",
		Calories:     550,
		TimeMinutes:  45,
		Ingredients:  []string{"拉面", "味噌酱", "辣椒油", "五花肉", "葱", "溏心蛋"},
		Instructions: []string{"用味噌准备肉汤。", "分开煮面条。", "煎五花肉。", "组装碗并淋上油。"},
		ImageURL:     imgRamen,
		Fingerprint:  "00101011011101101001101100010101",
		Tags:         []string{"日式", "辣味"},
	},
	{
		ID:           "3",
		Title:        "烤三文鱼盖饭",
		Calories:     480,
		TimeMinutes:  25,
		Ingredients:  []string{"三文鱼柳", "藜麦", "黄瓜", "毛豆", "芝麻酱"},
		Instructions: []string{"三文鱼皮朝下烤。", "煮藜麦。", "切蔬菜。", "淋上酱汁上桌。"},
		ImageURL:     imgSalmonBowl,
		Fingerprint:  "11110011010100001000101111110100",
		Tags:         []string{"午餐", "高蛋白"},
	},
	{
		ID:           "4",
		Title:        "经典玛格丽特披萨",
		Calories:     700,
		TimeMinutes:  60,
		Ingredients:  []string{"披萨面团", "圣马扎诺番茄", "新鲜马苏里拉奶酪", "罗勒", "橄榄油"},
		Instructions: []string{"拉伸面团。", "涂抹碎番茄。", "加入奶酪。", "最高温烘烤8分钟。"},
		ImageURL:     imgPizza,
		Fingerprint:  "01010011010101101011101101010100",
		Tags:         []string{"意式", "素食"},
	},
	{
		ID:           "5",
		Title:        "莓果果昔碗",
		Calories:     280,
		TimeMinutes:  10,
		Ingredients:  []string{"冷冻莓果", "香蕉", "杏仁奶", "格兰诺拉麦片", "奇亚籽"},
		Instructions: []string{"将冷冻水果与牛奶混合。", "倒入碗中。", "撒上麦片和种子。"},
		ImageURL:     imgSmoothieBowl,
		Fingerprint:  "11000011010111101000100001010111",
		Tags:         []string{"早餐", "纯素"},
	},
	{
		ID:           "6",
		Title:        "牛肉塔可",
		Calories:     450,
		TimeMinutes:  30,
		Ingredients:  []string{"玉米饼", "牛肉末", "青柠", "香菜", "洋葱", "莎莎酱"},
		Instructions: []string{"调味并烹饪牛肉。", "加热玉米饼。", "切洋葱和香菜。", "配青柠上桌。"},
		ImageURL:     imgTacos,
		Fingerprint:  "10110111010101101111101101010000",
		Tags:         []string{"墨西哥", "晚餐"},
	},
}
