package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClassifier struct {
	calls  int
	result Intent
}

func (c *countingClassifier) Classify(ctx context.Context, text string) (Intent, error) {
	c.calls++
	return c.result, nil
}

func TestNoopClassifierReturnsUnknown(t *testing.T) {
	intent, err := NewNoopClassifier().Classify(context.Background(), "please draft an NDA")
	require.NoError(t, err)
	assert.Equal(t, IntentUnknown, intent)
}

func TestCachingClassifierCallsInnerOncePerText(t *testing.T) {
	inner := &countingClassifier{result: IntentTaskRequest}
	c := NewCachingClassifier(inner, 10)

	for i := 0; i < 5; i++ {
		intent, err := c.Classify(context.Background(), "please draft an NDA")
		require.NoError(t, err)
		assert.Equal(t, IntentTaskRequest, intent)
	}
	assert.Equal(t, 1, inner.calls)

	_, err := c.Classify(context.Background(), "different text")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}
