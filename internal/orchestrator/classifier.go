// Package orchestrator routes inbound email to the right handling
// domain. Classification sits behind an interface so the model provider
// stays a deployment decision.
package orchestrator

import (
	"context"

	"github.com/paravault/paravault/internal/aicache"
)

// Intent is the handling domain an inbound message routes to
type Intent string

const (
	IntentTaskRequest Intent = "task_request"
	IntentQuestion    Intent = "question"
	IntentUnknown     Intent = "unknown"
)

// IntentClassifier decides which domain should handle an inbound message
type IntentClassifier interface {
	Classify(ctx context.Context, text string) (Intent, error)
}

// NoopClassifier routes everything to the unknown intent. It stands in
// until a model provider is configured.
type NoopClassifier struct{}

// NewNoopClassifier creates a classifier that always returns IntentUnknown
func NewNoopClassifier() *NoopClassifier {
	return &NoopClassifier{}
}

// Classify implements IntentClassifier
func (n *NoopClassifier) Classify(ctx context.Context, text string) (Intent, error) {
	return IntentUnknown, nil
}

// CachingClassifier wraps another classifier with an LRU cache so
// repeated texts skip the provider call.
type CachingClassifier struct {
	inner IntentClassifier
	cache *aicache.Cache
}

// NewCachingClassifier wraps inner with a cache of the given capacity
func NewCachingClassifier(inner IntentClassifier, maxEntries int) *CachingClassifier {
	return &CachingClassifier{
		inner: inner,
		cache: aicache.New(maxEntries),
	}
}

// Classify implements IntentClassifier
func (c *CachingClassifier) Classify(ctx context.Context, text string) (Intent, error) {
	if cached, ok := c.cache.Get(text); ok {
		return Intent(cached), nil
	}

	intent, err := c.inner.Classify(ctx, text)
	if err != nil {
		return IntentUnknown, err
	}

	c.cache.Set(text, string(intent))
	return intent, nil
}
