package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  Jane.Doe@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@example.com", got)

	_, err = NormalizeEmail("")
	assert.ErrorIs(t, err, ErrEmailEmpty)

	for _, in := range []string{"not-an-email", "Jane <jane@example.com>", "a@b@c"} {
		_, err = NormalizeEmail(in)
		assert.ErrorIs(t, err, ErrEmailInvalid, in)
	}
}

func TestPasswordValidator(t *testing.T) {
	assert.ErrorIs(t, PasswordValidator(""), ErrPasswordEmpty)
	assert.ErrorIs(t, PasswordValidator("12345"), ErrPasswordTooShort)
	assert.NoError(t, PasswordValidator("123456"))
}

func TestLinkValidator(t *testing.T) {
	assert.NoError(t, LinkValidator("https://cdn.example.com/f/abc"))
	assert.ErrorIs(t, LinkValidator(""), ErrLinkEmpty)
	assert.ErrorIs(t, LinkValidator("/relative/path"), ErrLinkInvalid)
	assert.ErrorIs(t, LinkValidator("ftp://example.com/x"), ErrLinkInvalid)
}
