package secret

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	box, err := NewBox("passphrase")
	require.NoError(t, err)

	token, err := box.Seal([]byte(`{"api_key":"sk-123"}`))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v1:"))
	assert.NotContains(t, token, "sk-123")

	plain, err := box.Open(token)
	require.NoError(t, err)
	assert.Equal(t, `{"api_key":"sk-123"}`, string(plain))
}

func TestOpenWithWrongKey(t *testing.T) {
	a, err := NewBox("one")
	require.NoError(t, err)
	b, err := NewBox("two")
	require.NoError(t, err)

	token, err := a.Seal([]byte("secret"))
	require.NoError(t, err)

	_, err = b.Open(token)
	assert.True(t, errors.Is(err, ErrSealed))

	_, err = a.Open("plaintext")
	assert.True(t, errors.Is(err, ErrSealed))
}

func TestNewBoxRequiresKey(t *testing.T) {
	_, err := NewBox("  ")
	assert.Error(t, err)
}
