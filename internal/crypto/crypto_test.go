package crypto

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func testAction(t *testing.T) domain.OrderAction {
	t.Helper()
	intent, err := domain.NewTradeIntent("BTC", domain.OrderSideBuy, decimal.RequireFromString("0.001"), decimal.NewFromInt(50000))
	require.NoError(t, err)
	return domain.NewOrderAction(intent)
}

func TestSignActionRecoversSignerAddress(t *testing.T) {
	s, err := NewSigner("0x"+testKey, 0)
	require.NoError(t, err)

	action := testAction(t)
	signed, err := s.SignAction(action, 1700000000000, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1700000000000), signed.Nonce)
	assert.Contains(t, []uint8{27, 28}, signed.Signature.V)

	sig, err := hex.DecodeString(signed.Hex[2:])
	require.NoError(t, err)
	require.Len(t, sig, 65)
	sig[64] -= 27

	digest, err := s.Digest(action, signed.Nonce, false)
	require.NoError(t, err)
	pub, err := ethcrypto.SigToPub(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), ethcrypto.PubkeyToAddress(*pub))
}

func TestSignActionDependsOnNonceAndNetwork(t *testing.T) {
	s, err := NewSigner(testKey, DefaultChainID)
	require.NoError(t, err)
	action := testAction(t)

	a, err := s.SignAction(action, 1, false)
	require.NoError(t, err)
	b, err := s.SignAction(action, 2, false)
	require.NoError(t, err)
	c, err := s.SignAction(action, 1, true)
	require.NoError(t, err)

	assert.NotEqual(t, a.Hex, b.Hex)
	assert.NotEqual(t, a.Hex, c.Hex)
}

func TestNewSignerRejectsBadKey(t *testing.T) {
	_, err := NewSigner("not-hex", DefaultChainID)
	assert.Error(t, err)
}

func TestNonceSourceStrictlyIncreasing(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	n := &NonceSource{now: func() time.Time { return fixed }}

	first := n.Next()
	second := n.Next()
	third := n.Next()
	assert.Equal(t, uint64(1700000000000), first)
	assert.Equal(t, first+1, second)
	assert.Equal(t, second+1, third)

	n.now = func() time.Time { return fixed.Add(time.Second) }
	assert.Equal(t, uint64(1700000001000), n.Next())
}

func TestKeystoreRoundTrip(t *testing.T) {
	blob, err := EncryptKey("0x"+testKey, "hunter2")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, testKey, got)

	_, err = DecryptKey(blob, "wrong")
	assert.Error(t, err)
}

func TestLoadKey(t *testing.T) {
	blob, err := EncryptKey(testKey, "pw")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	testCases := []struct {
		desc    string
		src     KeySource
		want    string
		wantErr error
	}{
		{desc: "raw key wins", src: KeySource{RawPrivateKey: "0x" + testKey, EncryptedKeyPath: "/nope"}, want: testKey},
		{desc: "encrypted file", src: KeySource{EncryptedKeyPath: path, KeyPassword: "pw"}, want: testKey},
		{desc: "nothing configured", src: KeySource{}, wantErr: ErrNoKey},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := LoadKey(tc.src)
			if tc.wantErr != nil {
				assert.True(t, errors.Is(err, tc.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err = LoadKey(KeySource{RawPrivateKey: "abcd"})
	assert.Error(t, err)
}

func TestRequestAuthHeaders(t *testing.T) {
	assert.Empty(t, RequestAuth{}.Headers("POST", "/exchange", nil))

	keyOnly := RequestAuth{Key: "k-123"}.HeadersAt("POST", "/exchange", []byte("{}"), 1)
	assert.Equal(t, map[string]string{HeaderAPIKey: "k-123"}, keyOnly)

	auth := RequestAuth{Key: "k-123", Secret: "s3cr3t"}
	h1 := auth.HeadersAt("POST", "/exchange", []byte(`{"a":1}`), 1700000000000)
	h2 := auth.HeadersAt("POST", "/exchange", []byte(`{"a":2}`), 1700000000000)
	assert.Equal(t, "1700000000000", h1[HeaderTimestamp])
	assert.Len(t, h1[HeaderSignature], 64)
	assert.NotEqual(t, h1[HeaderSignature], h2[HeaderSignature])
	assert.NotContains(t, auth.String(), "s3cr3t")
}
