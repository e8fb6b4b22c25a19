// Package lang validates the language hints passed to the transcription
// service and the clip planner.
package lang

import (
	"fmt"
	"strings"
)

// names maps the ISO 639-1 codes accepted by the transcription service to
// their English names. Not exhaustive; codes missing here are rejected.
var names = map[string]string{
	"af": "Afrikaans", "ar": "Arabic", "bg": "Bulgarian", "bn": "Bengali",
	"ca": "Catalan", "cs": "Czech", "da": "Danish", "de": "German",
	"el": "Greek", "en": "English", "es": "Spanish", "et": "Estonian",
	"fa": "Persian", "fi": "Finnish", "fr": "French", "gu": "Gujarati",
	"he": "Hebrew", "hi": "Hindi", "hr": "Croatian", "hu": "Hungarian",
	"id": "Indonesian", "it": "Italian", "ja": "Japanese", "kn": "Kannada",
	"ko": "Korean", "lt": "Lithuanian", "lv": "Latvian", "mk": "Macedonian",
	"ml": "Malayalam", "mr": "Marathi", "ms": "Malay", "nl": "Dutch",
	"no": "Norwegian", "pa": "Punjabi", "pl": "Polish", "pt": "Portuguese",
	"ro": "Romanian", "ru": "Russian", "sk": "Slovak", "sl": "Slovenian",
	"sr": "Serbian", "sv": "Swedish", "sw": "Swahili", "ta": "Tamil",
	"te": "Telugu", "th": "Thai", "tl": "Tagalog", "tr": "Turkish",
	"uk": "Ukrainian", "ur": "Urdu", "vi": "Vietnamese", "zh": "Chinese",
}

// Language is a normalized language tag such as "en" or "pt-br".
// The zero value means auto-detect.
type Language string

// Parse normalizes s and checks its base code is supported.
// An empty string parses to the zero Language.
func Parse(s string) (Language, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	l := Language(strings.ToLower(strings.ReplaceAll(s, "_", "-")))
	if _, ok := names[l.BaseCode()]; !ok {
		return "", fmt.Errorf("invalid language code %q (use ISO 639-1 codes like 'en', 'fr', 'pt-BR'): %w",
			s, ErrInvalid)
	}
	return l, nil
}

// IsZero reports whether the language is unset (auto-detect).
func (l Language) IsZero() bool { return l == "" }

// BaseCode returns the primary subtag: "pt-br" becomes "pt".
// The transcription API accepts only base codes.
func (l Language) BaseCode() string {
	base, _, _ := strings.Cut(string(l), "-")
	return base
}

// DisplayName returns the English name of the base language, or the tag
// itself when unknown.
func (l Language) DisplayName() string {
	if name, ok := names[l.BaseCode()]; ok {
		return name
	}
	return string(l)
}

// String returns the normalized tag.
func (l Language) String() string { return string(l) }
