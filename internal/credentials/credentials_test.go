package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorgate/internal/config"
)

func TestStoreGet(t *testing.T) {
	store := NewStore(config.UpstreamConfig{
		BaseURL:  "https://vendors.test/api",
		Username: "admin",
		Password: "secret",
	})

	cred, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "https://vendors.test/api", cred.BaseURL)
	assert.Equal(t, "Basic YWRtaW46c2VjcmV0", cred.BasicAuth())
}

func TestStoreMissingCredentials(t *testing.T) {
	for _, tc := range []config.UpstreamConfig{
		{},
		{Username: "admin"},
		{Password: "secret"},
	} {
		_, err := NewStore(tc).Get()
		assert.ErrorIs(t, err, ErrNotConfigured)
	}
}

func TestStoreDefaultBaseURL(t *testing.T) {
	assert.Equal(t, config.DefaultUpstreamBaseURL, NewStore(config.UpstreamConfig{}).BaseURL())
}
