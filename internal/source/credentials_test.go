package source

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSearchConsoleCredentials(t *testing.T) {
	creds, err := DecodeCredentials(TypeSearchConsole, map[string]string{
		"access_token": "ya29.token",
		"property_url": "sc-domain:example.com",
	})
	require.NoError(t, err)

	gsc, ok := creds.(SearchConsoleCredentials)
	require.True(t, ok)
	assert.Equal(t, "ya29.token", gsc.AccessToken)
	assert.Equal(t, TypeSearchConsole, creds.SourceType())
	assert.Equal(t, "sc-domain:example.com", creds.Fields()["property_url"])
}

func TestDecodeCredentialsMissingField(t *testing.T) {
	_, err := DecodeCredentials(TypeSearchConsole, map[string]string{"property_url": "https://example.com/"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "access_token", cfgErr.Field)
	assert.Equal(t, "is required", cfgErr.Reason)
}

func TestDecodeCredentialsBadProperty(t *testing.T) {
	_, err := DecodeCredentials(TypeSearchConsole, map[string]string{
		"access_token": "tok",
		"property_url": "example.com",
	})
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "property_url", cfgErr.Field)
}

func TestDecodeLLMCredentials(t *testing.T) {
	creds, err := DecodeCredentials(TypeGemini, map[string]string{"api_key": " key "})
	require.NoError(t, err)
	assert.Equal(t, TypeGemini, creds.SourceType())
	assert.Equal(t, map[string]string{"api_key": "key"}, creds.Fields())

	_, err = DecodeCredentials(TypeOpenAI, map[string]string{"api_key": "k", "webhook_url": "not a url"})
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "webhook_url", cfgErr.Field)
}

func TestDecodeCredentialsUnsupported(t *testing.T) {
	_, err := DecodeCredentials(TypeCustom, map[string]string{"api_key": "k"})
	assert.True(t, errors.Is(err, ErrUnsupportedSource))

	_, err = DecodeCredentials(Type("yahoo"), nil)
	assert.True(t, errors.Is(err, ErrUnsupportedSource))
}
