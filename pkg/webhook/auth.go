package webhook

import (
	"encoding/base64"
	"fmt"
	"net/http"
)

// AuthType selects how a webhook request is authenticated.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBearer AuthType = "bearer"
	AuthBasic  AuthType = "basic"
	AuthAPIKey AuthType = "api_key"
)

// DefaultAPIKeyHeader is used by api_key auth when no header name is configured.
const DefaultAPIKeyHeader = "X-API-Key"

// Credentials carries the values referenced by the configured AuthType.
// Token doubles as the API key value for api_key auth.
type Credentials struct {
	Token      string `json:"token,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	HeaderName string `json:"header_name,omitempty"`
}

// Authenticator produces the headers for one auth scheme.
// The set of implementations is closed to this package.
type Authenticator interface {
	Headers() map[string]string
	authenticator()
}

type NoAuth struct{}

func (NoAuth) Headers() map[string]string { return map[string]string{} }

func (NoAuth) authenticator() {}

type BearerAuth struct{ Token string }

func (a BearerAuth) Headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + a.Token}
}

func (BearerAuth) authenticator() {}

type BasicAuth struct{ Username, Password string }

func (a BasicAuth) Headers() map[string]string {
	raw := a.Username + ":" + a.Password
	return map[string]string{"Authorization": "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))}
}

func (BasicAuth) authenticator() {}

type APIKeyAuth struct{ Header, Key string }

func (a APIKeyAuth) Headers() map[string]string {
	h := a.Header
	if h == "" {
		h = DefaultAPIKeyHeader
	}
	return map[string]string{http.CanonicalHeaderKey(h): a.Key}
}

func (APIKeyAuth) authenticator() {}

// NewAuthenticator maps an auth type and its credentials to an Authenticator.
// An empty type means none.
func NewAuthenticator(t AuthType, c Credentials) (Authenticator, error) {
	switch t {
	case "", AuthNone:
		return NoAuth{}, nil
	case AuthBearer:
		if c.Token == "" {
			return nil, fmt.Errorf("%w: bearer token", ErrMissingCredential)
		}
		return BearerAuth{Token: c.Token}, nil
	case AuthBasic:
		if c.Username == "" {
			return nil, fmt.Errorf("%w: basic auth username", ErrMissingCredential)
		}
		return BasicAuth{Username: c.Username, Password: c.Password}, nil
	case AuthAPIKey:
		if c.Token == "" {
			return nil, fmt.Errorf("%w: api key", ErrMissingCredential)
		}
		return APIKeyAuth{Header: c.HeaderName, Key: c.Token}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAuthType, t)
	}
}

// BuildAuthHeaders returns the auth headers for t. On error the returned map
// is empty, never nil, so callers may still deliver unauthenticated.
func BuildAuthHeaders(t AuthType, c Credentials) (map[string]string, error) {
	a, err := NewAuthenticator(t, c)
	if err != nil {
		return map[string]string{}, err
	}
	return a.Headers(), nil
}

// MergeHeaders combines custom headers with auth headers.
// Keys are canonicalized and auth headers win on conflict.
func MergeHeaders(custom, auth map[string]string) map[string]string {
	out := make(map[string]string, len(custom)+len(auth))
	for k, v := range custom {
		out[http.CanonicalHeaderKey(k)] = v
	}
	for k, v := range auth {
		out[http.CanonicalHeaderKey(k)] = v
	}
	return out
}
