package langdetect

import (
	"testing"

	"horse.fit/lisan/internal/language"
)

func TestDetectArEnScriptFallback(t *testing.T) {
	t.Parallel()

	if got := DetectArEn("مرحبا"); got != language.Arabic {
		t.Fatalf("expected short Arabic word to resolve to ar, got %q", got)
	}
	if got := DetectArEn("hi"); got != language.English {
		t.Fatalf("expected short Latin word to resolve to en, got %q", got)
	}
	if got := DetectArEn("  123 !? "); got != "" {
		t.Fatalf("expected no letters to resolve to empty, got %q", got)
	}
}

func TestDetectArEnSentences(t *testing.T) {
	t.Parallel()

	if got := DetectArEn("Where is the nearest restaurant please"); got != language.English {
		t.Fatalf("expected English sentence to resolve to en, got %q", got)
	}
	if got := DetectArEn("أين أقرب مطعم من فضلك"); got != language.Arabic {
		t.Fatalf("expected Arabic sentence to resolve to ar, got %q", got)
	}
}
