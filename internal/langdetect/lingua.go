package langdetect

import (
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"

	"horse.fit/lisan/internal/language"
)

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectArEn decides whether text is Arabic or English. Short inputs that the
// statistical detector cannot classify fall back to a script count.
func DetectArEn(text string) language.Lang {
	arabicLetters, otherLetters := 0, 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.Is(unicode.Arabic, r) {
			arabicLetters++
		} else {
			otherLetters++
		}
	}
	if arabicLetters == 0 && otherLetters == 0 {
		return ""
	}

	if arabicLetters+otherLetters >= 6 {
		if detected, exists := getDetector().DetectLanguageOf(text); exists {
			switch detected {
			case lingua.Arabic:
				return language.Arabic
			case lingua.English:
				return language.English
			}
		}
	}

	if arabicLetters >= otherLetters {
		return language.Arabic
	}
	return language.English
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.Arabic, lingua.English).
			Build()
	})
	return detector
}
