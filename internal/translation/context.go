package translation

import (
	"context"
	"strings"

	"horse.fit/lisan/internal/language"
)

// TranslateWithContext sends prior turns plus the new text to the context
// provider. It falls back to SmartTranslate when context-aware translation is
// off or the context provider is not ready. The cache, the rate limiter and
// the usage ledger are not consulted on this path.
func (o *Orchestrator) TranslateWithContext(ctx context.Context, text string, source, target language.Lang, history []Message) (*Result, error) {
	req, err := Request{Text: text, SourceLang: source, TargetLang: target}.Validate()
	if err != nil {
		return nil, err
	}

	if !o.contextAware {
		return o.smartTranslate(ctx, req)
	}
	provider, err := o.registry.Provider(o.contextProvider)
	if err != nil {
		o.logger.Debug().Err(err).Str("provider", o.contextProvider).Msg("context provider not ready; using fallback chain")
		return o.smartTranslate(ctx, req)
	}
	historyProvider, ok := provider.(HistoryProvider)
	if !ok {
		o.logger.Warn().Str("provider", o.contextProvider).Msg("context provider does not accept history; using fallback chain")
		return o.smartTranslate(ctx, req)
	}

	turns := sanitizeHistory(history)
	result, err := o.callProvider(ctx, o.contextProvider, func(callCtx context.Context) (*Result, error) {
		return historyProvider.TranslateWithHistory(callCtx, req, turns)
	})
	if err != nil {
		return nil, err
	}
	if result.Metadata == nil {
		result.Metadata = map[string]any{}
	}
	result.Metadata["context"] = "aware"
	result.Metadata["history_turns"] = len(turns)
	return result, nil
}

// sanitizeHistory keeps user and assistant turns with content.
func sanitizeHistory(history []Message) []Message {
	turns := make([]Message, 0, len(history))
	for _, message := range history {
		role := strings.ToLower(strings.TrimSpace(message.Role))
		content := strings.TrimSpace(message.Content)
		if content == "" || (role != "user" && role != "assistant") {
			continue
		}
		turns = append(turns, Message{Role: role, Content: content})
	}
	return turns
}
