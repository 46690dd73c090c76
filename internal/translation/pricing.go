package translation

import (
	"unicode/utf8"

	"horse.fit/lisan/internal/config"
)

// tokensPerChar is the rough chars-to-tokens ratio used for token priced providers.
const tokensPerChar = 0.25

// EstimateCost returns the estimated spend of translating text with provider.
// Free providers and providers without pricing cost 0.
func EstimateCost(provider config.ProviderConfig, text string) float64 {
	switch provider.ID {
	case config.ProviderDictionary, config.ProviderLibre, config.ProviderMyMemory:
		return 0
	}
	pricing := provider.Pricing
	if pricing == nil {
		return 0
	}

	chars := float64(utf8.RuneCountInString(text))
	if pricing.InputPer1K > 0 || pricing.OutputPer1K > 0 {
		tokens := chars * tokensPerChar
		return tokens/1000*pricing.InputPer1K + tokens/1000*pricing.OutputPer1K
	}
	if pricing.Per1MChars > 0 {
		return chars / 1_000_000 * pricing.Per1MChars
	}
	return 0
}
