package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet(t *testing.T) {
	c := New(time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set(PrefixMargin+"ham-sandwich", 42)
	value, ok := c.Get(PrefixMargin + "ham-sandwich")
	require.True(t, ok)
	assert.Equal(t, 42, value)
}

func TestInvalidatePrefix(t *testing.T) {
	c := New(time.Minute)
	c.Set(PrefixMargin+"a", 1)
	c.Set(PrefixMargin+"b", 2)
	c.Set(PrefixDashboard+"report", 3)

	dropped := c.InvalidatePrefix(PrefixMargin)
	assert.Equal(t, 2, dropped)

	_, ok := c.Get(PrefixMargin + "a")
	assert.False(t, ok)
	_, ok = c.Get(PrefixDashboard + "report")
	assert.True(t, ok)
}

func TestInvalidateComputed(t *testing.T) {
	c := New(time.Minute)
	c.Set(PrefixMargin+"a", 1)
	c.Set(PrefixDashboard+"report", 2)
	c.Set("other:key", 3)

	dropped := c.InvalidateComputed()
	assert.Equal(t, 2, dropped)

	// unrelated namespaces survive
	_, ok := c.Get("other:key")
	assert.True(t, ok)
}

func TestExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.Set("k", 1)
	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestFlush(t *testing.T) {
	c := New(time.Minute)
	c.Set("k", 1)
	c.Flush()
	_, ok := c.Get("k")
	assert.False(t, ok)
}
