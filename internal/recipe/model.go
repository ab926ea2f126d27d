// Package recipe holds the localized, read-only recipe corpus.
package recipe

// Recipe is a single record of the corpus. ID is stable across locales;
// every other text field is localized. Records are shared reference data
// and must not be mutated by callers.
type Recipe struct {
	ID           string   `json:"id" db:"id"`
	Title        string   `json:"title" db:"title"`
	Calories     int      `json:"calories" db:"calories"`
	TimeMinutes  int      `json:"time_minutes" db:"time_minutes"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	ImageURL     string   `json:"image_url" db:"image_url"`
	Fingerprint  string   `json:"fingerprint" db:"fingerprint"`
	Tags         []string `json:"tags"`
}

// Step is one numbered instruction.
type Step struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Steps returns the instructions numbered from 1.
func (r Recipe) Steps() []Step {
	out := make([]Step, len(r.Instructions))
	for i, text := range r.Instructions {
		out[i] = Step{Number: i + 1, Text: text}
	}
	return out
}
