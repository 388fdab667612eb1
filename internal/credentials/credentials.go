// Package credentials exposes the upstream marketplace credentials configured
// for this process.
package credentials

import (
	"encoding/base64"
	"errors"

	"vendorgate/internal/config"
)

// ErrNotConfigured is returned when the upstream username or password is missing.
// It is a deployment error and is never retried.
var ErrNotConfigured = errors.New("API credentials not configured")

type Credential struct {
	BaseURL  string
	Username string
	Password string
}

// BasicAuth returns the Authorization header value for c.
func (c Credential) BasicAuth() string {
	return BasicAuth(c.Username, c.Password)
}

// BasicAuth encodes username:password as an HTTP Basic credential.
func BasicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// Store is read-only for the life of the process.
type Store struct {
	cred Credential
}

func NewStore(cfg config.UpstreamConfig) *Store {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultUpstreamBaseURL
	}
	return &Store{cred: Credential{
		BaseURL:  baseURL,
		Username: cfg.Username,
		Password: cfg.Password,
	}}
}

// Get returns the credential or ErrNotConfigured.
func (s *Store) Get() (Credential, error) {
	if s.cred.Username == "" || s.cred.Password == "" {
		return Credential{}, ErrNotConfigured
	}
	return s.cred, nil
}

// BaseURL is available even when credentials are missing.
func (s *Store) BaseURL() string {
	return s.cred.BaseURL
}
