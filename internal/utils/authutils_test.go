package utils_test

import (
	"testing"
	"time"

	"legacynote/internal/domain/entity"
	"legacynote/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initSigner(t *testing.T) {
	t.Helper()
	require.NoError(t, utils.InitTokenSigner("0123456789abcdef0123456789abcdef"))
}

func TestTokenRoundTrip(t *testing.T) {
	initSigner(t)

	user := &entity.User{ID: 42, Email: "ada@example.com"}
	token, err := utils.IssueToken(user, time.Hour)
	require.NoError(t, err)

	data, err := utils.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), data.Sub)
	assert.Equal(t, "ada@example.com", data.Email)
}

func TestValidateToken_BearerPrefix(t *testing.T) {
	initSigner(t)

	user := &entity.User{ID: 7, Email: "bo@example.com"}
	token, err := utils.IssueToken(user, time.Hour)
	require.NoError(t, err)

	data, err := utils.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), data.Sub)
}

func TestValidateToken_Tampered(t *testing.T) {
	initSigner(t)

	user := &entity.User{ID: 42, Email: "ada@example.com"}
	token, err := utils.IssueToken(user, time.Hour)
	require.NoError(t, err)

	_, err = utils.ValidateToken(token + "x")
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	initSigner(t)

	user := &entity.User{ID: 42, Email: "ada@example.com"}
	token, err := utils.IssueToken(user, -time.Minute)
	require.NoError(t, err)

	_, err = utils.ValidateToken(token)
	assert.Error(t, err)
}

func TestInitTokenSigner_RejectsShortSecret(t *testing.T) {
	assert.Error(t, utils.InitTokenSigner("short"))
}

func TestFormatEpoch(t *testing.T) {
	millis := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, "2026-03-15T10:00:00Z", utils.FormatEpoch(millis))
}
