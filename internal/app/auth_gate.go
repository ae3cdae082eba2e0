package app

import (
	"errors"
	"strings"

	"github.com/yourusername/video-dl-api/internal/domain"
)

const bearerPrefix = "Bearer "

// ErrNoTokens is returned when the gate is built without any accepted token
var ErrNoTokens = errors.New("no auth tokens configured")

// AuthGate checks Authorization headers against a fixed token set
type AuthGate struct {
	tokens map[string]struct{}
}

// NewAuthGate creates a gate accepting tokens. Blank entries are ignored.
func NewAuthGate(tokens []string) (*AuthGate, error) {
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if token = strings.TrimSpace(token); token != "" {
			set[token] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil, ErrNoTokens
	}
	return &AuthGate{tokens: set}, nil
}

// Authorize accepts exactly "Bearer <token>" with a known token
func (g *AuthGate) Authorize(header string) error {
	if !strings.HasPrefix(header, bearerPrefix) {
		return unauthorized("missing bearer scheme")
	}

	token := header[len(bearerPrefix):]
	if token == "" || strings.ContainsAny(token, " \t\r\n") {
		return unauthorized("malformed bearer token")
	}

	if _, ok := g.tokens[token]; !ok {
		return unauthorized("unknown token")
	}
	return nil
}

// TokenCount returns how many distinct tokens are accepted
func (g *AuthGate) TokenCount() int {
	return len(g.tokens)
}

func unauthorized(reason string) error {
	return domain.NewMediaError(domain.KindUnauthorized, reason, nil)
}
