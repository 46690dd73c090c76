package translation

import (
	"context"
	"maps"
	"strings"

	"horse.fit/lisan/internal/language"
)

// Provider translates text between Arabic and English.
type Provider interface {
	Name() string
	Translate(ctx context.Context, req Request) (*Result, error)
}

// HistoryProvider can translate with prior conversation turns as context.
type HistoryProvider interface {
	Provider
	TranslateWithHistory(ctx context.Context, req Request, history []Message) (*Result, error)
}

// Request describes one translation request.
type Request struct {
	Text       string
	SourceLang language.Lang
	TargetLang language.Lang
}

// Validate trims the text and rejects same-language or empty requests.
func (r Request) Validate() (Request, error) {
	r.Text = strings.TrimSpace(r.Text)
	if r.Text == "" {
		return r, invalidRequest("text is required")
	}
	if !r.SourceLang.Valid() {
		return r, invalidRequest("unsupported source language %q", r.SourceLang)
	}
	if !r.TargetLang.Valid() {
		return r, invalidRequest("unsupported target language %q", r.TargetLang)
	}
	if r.SourceLang == r.TargetLang {
		return r, invalidRequest("source and target language must differ")
	}
	return r, nil
}

// Result is the normalized output of one successful provider call.
type Result struct {
	Translation   string         `json:"translation"`
	Provider      string         `json:"provider"`
	Confidence    float64        `json:"confidence"`
	Pronunciation string         `json:"pronunciation,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Clone returns a copy that shares no mutable state with r.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Metadata != nil {
		clone.Metadata = maps.Clone(r.Metadata)
	}
	return &clone
}

// Message is one prior conversation turn for context-aware translation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BatchItem is one entry of a batch translation. Exactly one of Result and Error is set.
type BatchItem struct {
	Text   string  `json:"text"`
	Result *Result `json:"result"`
	Error  *string `json:"error"`
	Err    error   `json:"-"`
}

func clampConfidence(value float64) float64 {
	switch {
	case value < 0:
		return 0
	case value > 1:
		return 1
	default:
		return value
	}
}
