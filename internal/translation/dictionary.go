package translation

import (
	"context"
	"fmt"

	"horse.fit/lisan/internal/config"
	"horse.fit/lisan/internal/phrasebook"
)

// Dictionary serves exact matches from the local phrase table.
type Dictionary struct {
	book *phrasebook.Book
}

func NewDictionary(book *phrasebook.Book) *Dictionary {
	return &Dictionary{book: book}
}

func (d *Dictionary) Name() string {
	return config.ProviderDictionary
}

func (d *Dictionary) Translate(_ context.Context, req Request) (*Result, error) {
	if d == nil || d.book == nil {
		return nil, fmt.Errorf("%w: phrase table is not loaded", ErrNotFound)
	}

	translation, entry, ok := d.book.Lookup(req.Text, req.SourceLang, req.TargetLang)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, req.Text)
	}

	metadata := map[string]any{"source": "local"}
	if entry.Category != "" {
		metadata["category"] = entry.Category
	}
	return &Result{
		Translation:   translation,
		Provider:      config.ProviderDictionary,
		Confidence:    1.0,
		Pronunciation: entry.Pronunciation,
		Metadata:      metadata,
	}, nil
}
