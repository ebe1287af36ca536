package service

import (
	"context"
	"time"

	"github.com/spec-kit/urbispulse/internal/domain"
)

// Classifier is the downstream processing step a commit waits on before the record is created.
type Classifier interface {
	Classify(ctx context.Context, draft domain.Draft) error
}

// DelayClassifier simulates classification latency. It returns early with the
// context's error when the caller gives up.
type DelayClassifier struct {
	Delay time.Duration
}

// Classify waits for the configured delay.
func (c DelayClassifier) Classify(ctx context.Context, _ domain.Draft) error {
	if c.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
