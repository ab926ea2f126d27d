// Package locale defines the display locales the retrieval core understands
// and the small set of localized strings the core itself has to produce
// (history export headers, the image query placeholder).
package locale

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrUnsupported is returned when a tag cannot be mapped to a supported locale.
var ErrUnsupported = errors.New("unsupported locale")

// Locale selects a corpus snapshot and a message table.
type Locale string

const (
	English Locale = "en"
	Chinese Locale = "zh"
)

// Default is the locale a new session starts in.
const Default = English

var supported = []Locale{English, Chinese}

// tags is index-aligned with supported.
var tags = []language.Tag{language.AmericanEnglish, language.SimplifiedChinese}

var matcher = language.NewMatcher(tags)

// Supported returns every supported locale in declaration order.
func Supported() []Locale {
	out := make([]Locale, len(supported))
	copy(out, supported)
	return out
}

// Valid reports whether l is a supported locale.
func (l Locale) Valid() bool {
	for _, s := range supported {
		if s == l {
			return true
		}
	}
	return false
}

// String returns the locale code.
func (l Locale) String() string { return string(l) }

// Tag returns the BCP-47 tag used for formatting.
func (l Locale) Tag() language.Tag {
	for i, s := range supported {
		if s == l {
			return tags[i]
		}
	}
	return language.Und
}

// MustValid panics when l is not supported. Unsupported locales reaching the
// core are programming errors, not runtime conditions.
func MustValid(l Locale) {
	if !l.Valid() {
		panic(fmt.Sprintf("locale: unsupported locale %q", string(l)))
	}
}

// Parse maps a BCP-47 tag such as "zh-CN" or "en-GB" onto a supported locale.
func Parse(s string) (Locale, error) {
	if l := Locale(s); l.Valid() {
		return l, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, s)
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, s)
	}
	return supported[idx], nil
}

// FormatTime renders t the way the locale's UI shows timestamps.
func FormatTime(l Locale, t time.Time) string {
	switch l {
	case Chinese:
		return t.Format("2006/1/2 15:04:05")
	default:
		return t.Format("1/2/2006, 3:04:05 PM")
	}
}

// FormatCount renders an integer with the locale's digit grouping.
func FormatCount(l Locale, n int) string {
	return message.NewPrinter(l.Tag()).Sprintf("%d", n)
}
