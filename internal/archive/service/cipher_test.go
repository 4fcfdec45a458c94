package service

import (
	"bytes"
	"testing"

	"github.com/smallbiznis/flyroom/internal/archive/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealerRoundTrip(t *testing.T) {
	s, err := newSealer(bytes.Repeat([]byte{7}, keySize))
	require.NoError(t, err)

	plain := []byte(`{"metadata":{"schema_version":"008"},"data":{}}`)
	a, err := s.seal(plain)
	require.NoError(t, err)
	b, err := s.seal(plain)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "nonce must differ per seal")
	assert.NotContains(t, string(a), "schema_version")

	got, err := s.open(a)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestSealerRejectsTampering(t *testing.T) {
	s, err := newSealer(bytes.Repeat([]byte{1}, keySize))
	require.NoError(t, err)
	sealed, err := s.seal([]byte("payload"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = s.open(sealed)
	assert.ErrorIs(t, err, domain.ErrDecrypt)

	_, err = s.open([]byte("short"))
	assert.ErrorIs(t, err, domain.ErrDecrypt)
}

func TestSealerKeyLength(t *testing.T) {
	_, err := newSealer(make([]byte, 16))
	assert.ErrorIs(t, err, domain.ErrEncryptionKeyInvalid)
}
