package nestorapi

import (
	"os"
	"strings"
)

const (
	// DefaultTokenEnv is the variable EnvToken reads when no name is given.
	DefaultTokenEnv = "NESTOR_AUTH_TOKEN"
	legacyTokenEnv  = "__NESTOR_AUTH_TOKEN"
)

// TokenSource supplies the Authorization value for each request.
type TokenSource interface {
	Token() (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() (string, error)

func (f TokenFunc) Token() (string, error) { return f() }

// StaticToken always returns the same token.
type StaticToken string

func (t StaticToken) Token() (string, error) {
	if strings.TrimSpace(string(t)) == "" {
		return "", ErrMissingToken
	}
	return string(t), nil
}

// EnvToken reads the token from the environment on every call, so a rotated
// token is picked up without rebuilding the client.
type EnvToken string

func (e EnvToken) Token() (string, error) {
	name := string(e)
	if name == "" {
		name = DefaultTokenEnv
	}
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v, nil
	}
	if name == DefaultTokenEnv {
		if v := strings.TrimSpace(os.Getenv(legacyTokenEnv)); v != "" {
			return v, nil
		}
	}
	return "", ErrMissingToken
}
