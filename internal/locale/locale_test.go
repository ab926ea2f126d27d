package locale

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Locale
	}{
		{"en", English},
		{"zh", Chinese},
		{"en-US", English},
		{"en-GB", English},
		{"zh-CN", Chinese},
		{"zh-Hans", Chinese},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse_Unsupported(t *testing.T) {
	for _, in := range []string{"", "not a tag!!", "xx-YY-ZZ-QQ-1234567890"} {
		_, err := Parse(in)
		assert.True(t, errors.Is(err, ErrUnsupported), "input %q", in)
	}
}

func TestMustValidPanics(t *testing.T) {
	assert.Panics(t, func() { MustValid(Locale("fr")) })
	assert.NotPanics(t, func() { MustValid(Chinese) })
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2023, 10, 24, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, "10/24/2023, 2:05:09 PM", FormatTime(English, ts))
	assert.Equal(t, "2023/10/24 14:05:09", FormatTime(Chinese, ts))
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "3", FormatCount(English, 3))
	assert.Equal(t, "1,234", FormatCount(English, 1234))
}

func TestMessagesFor(t *testing.T) {
	en := MessagesFor(English)
	zh := MessagesFor(Chinese)
	assert.Len(t, en.HistoryHeaders, 7)
	assert.Len(t, zh.HistoryHeaders, 7)
	assert.Equal(t, "Uploaded Image", en.ImagePlaceholder)
	assert.Equal(t, "上传图片", zh.ImagePlaceholder)

	// Callers get their own header slice.
	en.HistoryHeaders[0] = "changed"
	assert.Equal(t, "ID", MessagesFor(English).HistoryHeaders[0])
}
