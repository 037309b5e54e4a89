package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	sealed, err := Encrypt(`{"api_key":"lin_api_123"}`, "test-secret")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "lin_api_123")

	plain, err := Decrypt(sealed, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, `{"api_key":"lin_api_123"}`, plain)
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	a, err := Encrypt("same", "k")
	require.NoError(t, err)
	b, err := Encrypt("same", "k")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptWrongKey(t *testing.T) {
	sealed, err := Encrypt("token", "right")
	require.NoError(t, err)

	_, err = Decrypt(sealed, "wrong")
	assert.Error(t, err)
}

func TestDecryptMalformed(t *testing.T) {
	_, err := Decrypt("not base64!!", "k")
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = Decrypt("c2hvcnQ=", "k")
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = Encrypt("x", "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}
