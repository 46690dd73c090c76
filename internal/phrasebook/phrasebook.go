package phrasebook

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"horse.fit/lisan/internal/language"
)

//go:embed phrases.json
var phrasesJSON []byte

// Entry is one phrase. Arabic keys carry an English rendering, English keys an Arabic one.
type Entry struct {
	Key           string `json:"key"`
	English       string `json:"en,omitempty"`
	Arabic        string `json:"ar,omitempty"`
	Pronunciation string `json:"pron,omitempty"`
	Category      string `json:"category,omitempty"`
}

// Book is an immutable lookup table over phrase entries.
type Book struct {
	entries map[string]Entry
}

var (
	defaultOnce sync.Once
	defaultBook *Book
	defaultErr  error
)

// Default returns the embedded phrase table.
func Default() (*Book, error) {
	defaultOnce.Do(func() {
		defaultBook, defaultErr = Parse(phrasesJSON)
	})
	return defaultBook, defaultErr
}

func Parse(raw []byte) (*Book, error) {
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode phrases: %w", err)
	}
	return New(entries), nil
}

func New(entries []Entry) *Book {
	book := &Book{entries: make(map[string]Entry, len(entries))}
	for _, entry := range entries {
		key := Normalize(entry.Key)
		if key == "" {
			continue
		}
		entry.Key = key
		book.entries[key] = entry
	}
	return book
}

// Normalize lowercases and trims a lookup key.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Lookup finds text for the requested direction. Only ar->en and en->ar are served.
func (b *Book) Lookup(text string, source, target language.Lang) (translation string, entry Entry, ok bool) {
	if b == nil {
		return "", Entry{}, false
	}
	entry, exists := b.entries[Normalize(text)]
	if !exists {
		return "", Entry{}, false
	}

	switch {
	case source == language.Arabic && target == language.English && entry.English != "":
		return entry.English, entry, true
	case source == language.English && target == language.Arabic && entry.Arabic != "":
		return entry.Arabic, entry, true
	default:
		return "", Entry{}, false
	}
}

func (b *Book) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// Categories lists the distinct non-empty categories, sorted.
func (b *Book) Categories() []string {
	if b == nil {
		return nil
	}
	seen := map[string]struct{}{}
	for _, entry := range b.entries {
		if entry.Category != "" {
			seen[entry.Category] = struct{}{}
		}
	}
	categories := make([]string, 0, len(seen))
	for category := range seen {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}
