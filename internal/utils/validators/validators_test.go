package validators_test

import (
	"testing"

	"legacynote/internal/utils/validators"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidate(t *testing.T) *validator.Validate {
	t.Helper()

	validate := validator.New()
	require.NoError(t, validate.RegisterValidation("hasupper", validators.HasUpper))
	require.NoError(t, validate.RegisterValidation("haslower", validators.HasLower))
	require.NoError(t, validate.RegisterValidation("hasdigit", validators.HasDigit))
	require.NoError(t, validate.RegisterValidation("hasspecial", validators.HasSpecial))
	require.NoError(t, validate.RegisterValidation("nodupes", validators.NoDupes))
	return validate
}

type passwordHolder struct {
	Password string `validate:"hasupper,haslower,hasdigit,hasspecial"`
}

func TestPasswordValidators(t *testing.T) {
	validate := newValidate(t)

	assert.NoError(t, validate.Struct(&passwordHolder{Password: "Aa1!aaaa"}))
	assert.Error(t, validate.Struct(&passwordHolder{Password: "aa1!aaaa"}), "missing uppercase")
	assert.Error(t, validate.Struct(&passwordHolder{Password: "AA1!AAAA"}), "missing lowercase")
	assert.Error(t, validate.Struct(&passwordHolder{Password: "Aab!aaaa"}), "missing digit")
	assert.Error(t, validate.Struct(&passwordHolder{Password: "Aa1aaaaa"}), "missing special")
}

type recipientHolder struct {
	Emails []string `validate:"nodupes"`
}

func TestNoDupes(t *testing.T) {
	validate := newValidate(t)

	assert.NoError(t, validate.Struct(&recipientHolder{Emails: []string{"a@x.com", "b@x.com"}}))
	assert.Error(t, validate.Struct(&recipientHolder{Emails: []string{"a@x.com", "a@x.com"}}))
}
