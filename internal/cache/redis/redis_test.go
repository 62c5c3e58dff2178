package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "lease:bot:btc", leaseKey("bot:btc"))
	assert.Equal(t, "btc:position:BTC", positionKey("btc", "BTC"))
	assert.Equal(t, "stream:orders", StreamFor("ch:orders"))
	assert.Equal(t, "stream:custom", StreamFor("custom"))
}

func TestHasPattern(t *testing.T) {
	assert.True(t, hasPattern("ch:*"))
	assert.True(t, hasPattern("ch:order?"))
	assert.False(t, hasPattern("ch:orders"))
}

func TestOptions(t *testing.T) {
	t.Run("address fields", func(t *testing.T) {
		opts, err := Options(ClientConfig{Addr: "cache:6379", Password: "pw", DB: 2, PoolSize: 7, TLSEnabled: true})
		require.NoError(t, err)
		assert.Equal(t, "cache:6379", opts.Addr)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, 7, opts.PoolSize)
		assert.NotNil(t, opts.TLSConfig)
	})
	t.Run("url wins", func(t *testing.T) {
		opts, err := Options(ClientConfig{URL: "redis://:secret@redis.internal:6380/3", Addr: "ignored:1"})
		require.NoError(t, err)
		assert.Equal(t, "redis.internal:6380", opts.Addr)
		assert.Equal(t, "secret", opts.Password)
		assert.Equal(t, 3, opts.DB)
	})
	t.Run("bad url", func(t *testing.T) {
		_, err := Options(ClientConfig{URL: "http://nope"})
		assert.Error(t, err)
	})
}

func TestXAddArgsTrimsApproximately(t *testing.T) {
	args := xaddArgs("stream:orders", []byte(`{}`))
	assert.Equal(t, "stream:orders", args.Stream)
	assert.Equal(t, streamMaxLen, args.MaxLen)
	assert.True(t, args.Approx)
}
