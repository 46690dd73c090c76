package translation

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"horse.fit/lisan/internal/language"
)

// Fingerprint is the cache key of a (provider, language pair, text) tuple.
// Text is compared lowercased and trimmed.
func Fingerprint(provider string, source, target language.Lang, text string) string {
	sum := sha256.New()
	for _, part := range []string{
		normalizeProviderName(provider),
		string(source),
		string(target),
		normalizeText(text),
	} {
		sum.Write([]byte(part))
		sum.Write([]byte{0})
	}
	return hex.EncodeToString(sum.Sum(nil))
}

func normalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func normalizeProviderName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
