package locale

// Messages holds the strings the core renders on its own.
type Messages struct {
	HistoryHeaders   []string
	ImagePlaceholder string
	Success          string
}

var messages = map[Locale]Messages{
	English: {
		HistoryHeaders:   []string{"ID", "Timestamp", "Query Input", "Modality", "Algorithm", "Results", "Status"},
		ImagePlaceholder: "Uploaded Image",
		Success:          "Success",
	},
	Chinese: {
		HistoryHeaders:   []string{"编号", "时间戳", "搜索内容", "模态", "算法", "结果数", "状态"},
		ImagePlaceholder: "上传图片",
		Success:          "成功",
	},
}

// MessagesFor returns the message table for l. It panics for unsupported locales.
func MessagesFor(l Locale) Messages {
	MustValid(l)
	m := messages[l]
	m.HistoryHeaders = append([]string(nil), m.HistoryHeaders...)
	return m
}
