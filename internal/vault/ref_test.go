package vault

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	path, key, ok, err := ParseRef("vault:secret/splitlink/forms#token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "secret/splitlink/forms", path)
	assert.Equal(t, "token", key)

	_, _, ok, err = ParseRef("plain-value")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, ok, err = ParseRef("vault:secret/no-key")
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestSplitMount(t *testing.T) {
	m, rel := splitMount("secret/splitlink/db")
	assert.Equal(t, "secret", m)
	assert.Equal(t, "splitlink/db", rel)

	m, rel = splitMount("secret")
	assert.Equal(t, "secret", m)
	assert.Empty(t, rel)
}

func TestResolve_PlainValuePassesThrough(t *testing.T) {
	var c Client // api unused for plain values
	got, err := c.Resolve(context.Background(), "literal", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "literal", got)
}

func TestGetKV_ServesCachedValue(t *testing.T) {
	c := &Client{cache: map[string]cached{
		"secret/app#pw": {val: "cached", exp: time.Now().Add(time.Minute)},
	}}
	got, err := c.Resolve(context.Background(), "vault:secret/app#pw", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "cached", got)
}
