package sharing_test

import (
	"encoding/hex"
	"testing"

	"legacynote/internal/sharing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_NewKey(t *testing.T) {
	g := sharing.NewGenerator("https://legacynote.app")

	key, err := g.NewKey()
	require.NoError(t, err)

	// 16 random bytes, hex encoded.
	raw, err := hex.DecodeString(key)
	require.NoError(t, err)
	assert.Len(t, raw, 16)
}

func TestGenerator_NewKey_Unique(t *testing.T) {
	g := sharing.NewGenerator("https://legacynote.app")

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := g.NewKey()
		require.NoError(t, err)
		assert.False(t, seen[key], "generated a duplicate access key")
		seen[key] = true
	}
}

func TestGenerator_URL(t *testing.T) {
	g := sharing.NewGenerator("https://legacynote.app")
	assert.Equal(t, "https://legacynote.app/shared/42/abc123", g.URL(42, "abc123"))
}

func TestGenerator_URL_TrimsTrailingSlash(t *testing.T) {
	g := sharing.NewGenerator("https://legacynote.app/")
	assert.Equal(t, "https://legacynote.app/shared/7/k", g.URL(7, "k"))
}
