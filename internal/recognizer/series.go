package recognizer

import (
	"context"
	"log"
)

// Series runs recognizers in order and returns the first confident,
// non-None intent.
type Series struct {
	recognizers []Recognizer
	threshold   float64
}

// NewSeries returns a Series. Intents scoring below threshold are skipped.
func NewSeries(threshold float64, recognizers ...Recognizer) *Series {
	return &Series{recognizers: recognizers, threshold: threshold}
}

// Recognize returns the first intent that is not None and scores at least
// the threshold. A failing recognizer is logged and skipped; the error is
// returned only if every recognizer failed.
func (s *Series) Recognize(ctx context.Context, text string) (Intent, error) {
	var lastErr error
	failed := 0
	for _, r := range s.recognizers {
		intent, err := r.Recognize(ctx, text)
		if err != nil {
			log.Printf("recognizer: series: %v", err)
			lastErr = err
			failed++
			continue
		}
		if intent.Kind != KindNone && intent.Score >= s.threshold {
			return intent, nil
		}
	}
	if failed > 0 && failed == len(s.recognizers) {
		return None, lastErr
	}
	return None, nil
}
