package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheSetGet(t *testing.T) {
	c := New(time.Minute)

	_, ok := c.Get("eth-usd")
	assert.False(t, ok)

	c.Set("eth-usd", "3120.55")
	got, ok := c.Get("eth-usd")
	assert.True(t, ok)
	assert.Equal(t, "3120.55", got)

	c.Delete("eth-usd")
	_, ok = c.Get("eth-usd")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.Set("code", "493021")

	time.Sleep(25 * time.Millisecond)
	_, ok := c.Get("code")
	assert.False(t, ok)
}
