package translation

import (
	"context"

	"golang.org/x/sync/errgroup"

	"horse.fit/lisan/internal/language"
)

// BatchTranslate runs SmartTranslate for every text and returns one item per
// input, in input order. A failed item never aborts the batch.
func (o *Orchestrator) BatchTranslate(ctx context.Context, texts []string, source, target language.Lang) []BatchItem {
	items := make([]BatchItem, len(texts))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.batchConcurrency)

	for idx, text := range texts {
		group.Go(func() error {
			result, err := o.SmartTranslate(groupCtx, text, source, target)
			items[idx] = newBatchItem(text, result, err)
			return nil
		})
	}
	_ = group.Wait()

	return items
}

func newBatchItem(text string, result *Result, err error) BatchItem {
	if err != nil {
		message := err.Error()
		return BatchItem{Text: text, Error: &message, Err: err}
	}
	return BatchItem{Text: text, Result: result}
}
