package crypto_test

import (
	"bytes"
	"encoding/base64"
	"testing"

	"legacynote/internal/crypto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, crypto.KeySize)
}

func TestCipher_RoundTrip(t *testing.T) {
	c, err := crypto.NewCipher(testKey(0x42))
	require.NoError(t, err)

	plaintexts := []string{
		"",
		"hello",
		"multi\nline\ncontent with unicode: héllo wörld 你好",
		string(bytes.Repeat([]byte("x"), 100_000)),
	}

	for _, plaintext := range plaintexts {
		encrypted, err := c.Encrypt(plaintext)
		require.NoError(t, err)

		decrypted, err := c.Decrypt(encrypted)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestCipher_RandomNonce(t *testing.T) {
	c, err := crypto.NewCipher(testKey(0x42))
	require.NoError(t, err)

	first, err := c.Encrypt("same input")
	require.NoError(t, err)
	second, err := c.Encrypt("same input")
	require.NoError(t, err)

	// Output is not deterministic, but both decrypt to the same value.
	assert.NotEqual(t, first, second)
}

func TestCipher_WrongKey(t *testing.T) {
	c1, err := crypto.NewCipher(testKey(0x01))
	require.NoError(t, err)
	c2, err := crypto.NewCipher(testKey(0x02))
	require.NoError(t, err)

	encrypted, err := c1.Encrypt("secret")
	require.NoError(t, err)

	_, err = c2.Decrypt(encrypted)
	assert.ErrorIs(t, err, crypto.ErrDecryption)
}

func TestCipher_MalformedCiphertext(t *testing.T) {
	c, err := crypto.NewCipher(testKey(0x42))
	require.NoError(t, err)

	cases := map[string]string{
		"not base64":      "!!!not-base64!!!",
		"too short":       base64.StdEncoding.EncodeToString([]byte("abc")),
		"corrupted":       mustCorrupt(t, c),
		"empty plaintext": base64.StdEncoding.EncodeToString(nil),
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decrypt(input)
			assert.ErrorIs(t, err, crypto.ErrDecryption)
		})
	}
}

func TestNewCipher_BadKeySize(t *testing.T) {
	_, err := crypto.NewCipher([]byte("short"))
	assert.Error(t, err)
}

func TestNewCipherFromBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(testKey(0x07))

	c, err := crypto.NewCipherFromBase64(encoded)
	require.NoError(t, err)

	encrypted, err := c.Encrypt("configured key")
	require.NoError(t, err)
	decrypted, err := c.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "configured key", decrypted)

	_, err = crypto.NewCipherFromBase64("%%%")
	assert.Error(t, err)
}

func mustCorrupt(t *testing.T, c *crypto.Cipher) string {
	t.Helper()

	encrypted, err := c.Encrypt("payload")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encrypted)
	require.NoError(t, err)

	raw[len(raw)-1] ^= 0xFF
	return base64.StdEncoding.EncodeToString(raw)
}
