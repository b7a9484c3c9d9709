package aicache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetMissThenHit(t *testing.T) {
	c := New(10)

	_, ok := c.Get("draft a contract")
	assert.False(t, ok)

	c.Set("draft a contract", "task_management")
	got, ok := c.Get("draft a contract")
	assert.True(t, ok)
	assert.Equal(t, "task_management", got)
}

func TestCapacityIsBounded(t *testing.T) {
	c := New(3)

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("key-%d", i), "v")
	}
	assert.Equal(t, 3, c.Len())

	// Only the three newest keys survive.
	_, ok := c.Get("key-0")
	assert.False(t, ok)
	_, ok = c.Get("key-9")
	assert.True(t, ok)
}

func TestRecentlyUsedEntrySurvivesEviction(t *testing.T) {
	c := New(2)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	_, ok := c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestSetExistingKeyUpdatesValue(t *testing.T) {
	c := New(2)

	c.Set("a", "1")
	c.Set("a", "2")

	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "2", got)
	assert.Equal(t, 1, c.Len())
}
