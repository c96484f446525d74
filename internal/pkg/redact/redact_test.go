package redact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		in   string
		want string
	}{
		{"foobar@example.com", "fo***@example.com"},
		{"ab@ex.com", "***@ex.com"},
		{"user@", "us***@"},
		{"no-at", "***"},
		{"a@b@c", "***"},
		{"жёлудь@пример.рф", "жё***@пример.рф"},
	}

	for _, tc := range tcs {
		require.Equal(t, tc.want, Email(tc.in), tc.in)
	}
}

func TestToken_StableFingerprintWithoutSecret(t *testing.T) {
	t.Parallel()

	const tok = "eyJhbGciOiJIUzI1NiJ9.secret-part"

	fp := Token(tok)
	require.True(t, strings.HasPrefix(fp, "tok:"))
	require.Len(t, fp, len("tok:")+8)
	require.NotContains(t, fp, "secret")
	require.Equal(t, fp, Token(tok))
	require.NotEqual(t, fp, Token(tok+"x"))
}

func TestToken_Empty(t *testing.T) {
	t.Parallel()
	require.Equal(t, "<none>", Token(""))
}
