package language

import (
	"fmt"
	"strings"
)

// Lang is a two-letter language code handled by the phrasebook.
type Lang string

const (
	Arabic  Lang = "ar"
	English Lang = "en"
	// Auto asks the caller to detect the source language from the text.
	Auto Lang = "auto"
)

// Supported lists the translatable languages in display order.
var Supported = []Lang{Arabic, English}

// Name returns the English display name of the language.
func (l Lang) Name() string {
	switch l {
	case Arabic:
		return "Arabic"
	case English:
		return "English"
	default:
		return strings.ToUpper(string(l))
	}
}

// Native returns the language name written in that language.
func (l Lang) Native() string {
	switch l {
	case Arabic:
		return "العربية"
	case English:
		return "English"
	default:
		return ""
	}
}

func (l Lang) Valid() bool {
	return l == Arabic || l == English
}

// Other returns the opposite side of the ar/en pair.
func (l Lang) Other() Lang {
	if l == Arabic {
		return English
	}
	return Arabic
}

// Parse resolves a user supplied tag ("AR", "en-US", "ar_EG", "auto") to a Lang.
func Parse(raw string) (Lang, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == string(Auto) {
		return Auto, nil
	}
	code := NormalizeCode(trimmed)
	switch Lang(code) {
	case Arabic, English:
		return Lang(code), nil
	case "":
		return "", fmt.Errorf("language is required")
	default:
		return "", fmt.Errorf("unsupported language %q (supported: ar, en)", raw)
	}
}

// NormalizeTag normalizes a language tag to lowercase and "-" separators.
// Returns an empty string when the value is blank or contains invalid characters.
func NormalizeTag(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}

	trimmed = strings.ReplaceAll(trimmed, "_", "-")
	parts := strings.Split(trimmed, "-")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !isAlphaLowerOrDigit(part) {
			return ""
		}
		normalized = append(normalized, part)
	}

	if len(normalized) == 0 || !isAlphaLower(normalized[0]) {
		return ""
	}
	return strings.Join(normalized, "-")
}

// NormalizeCode returns the primary language subtag (for example, "en" from "en-US").
func NormalizeCode(raw string) string {
	tag := NormalizeTag(raw)
	if tag == "" {
		return ""
	}
	if dash := strings.IndexByte(tag, '-'); dash >= 0 {
		return tag[:dash]
	}
	return tag
}

func isAlphaLower(value string) bool {
	for _, r := range value {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// Region subtags such as "419" are numeric.
func isAlphaLowerOrDigit(value string) bool {
	for _, r := range value {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
