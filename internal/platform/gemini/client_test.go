package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCaption(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		want     string
		wantFood bool
	}{
		{"keywords", "ramen, miso, spicy", "ramen, miso, spicy", true},
		{"markdown", "```\nramen, miso\n```", "ramen, miso", true},
		{"not food", "NO a red car on road", "", false},
		{"bare no", "No.", "", false},
		{"noodles are food", "noodles, broth", "noodles, broth", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, food := ParseCaption(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantFood, food)
		})
	}
}

func TestPrompt(t *testing.T) {
	assert.Contains(t, Prompt("zh"), "Simplified Chinese")
	assert.Contains(t, Prompt("en"), "English")
}

func TestImageFormat(t *testing.T) {
	assert.Equal(t, "jpeg", imageFormat("dish.JPG"))
	assert.Equal(t, "png", imageFormat("dish.png"))
	assert.Equal(t, "png", imageFormat(""))
}
