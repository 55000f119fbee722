package tokens

import (
	"context"
	"strings"

	"github.com/rickgao/livewatch/internal/metrics"
)

// Resolver returns a bearer token for an account, or "" when it has none.
type Resolver interface {
	Token(ctx context.Context, accountID string) (string, error)
}

// Static serves tokens from a fixed map. It is safe for concurrent use.
type Static struct {
	tokens map[string]string
}

// NewStatic copies tokens, skipping blank entries.
func NewStatic(tokens map[string]string) *Static {
	m := make(map[string]string, len(tokens))
	for id, tok := range tokens {
		if strings.TrimSpace(tok) == "" {
			continue
		}
		m[id] = tok
	}
	return &Static{tokens: m}
}

// Len returns the number of accounts with a token.
func (s *Static) Len() int {
	return len(s.tokens)
}

// Token implements Resolver.
func (s *Static) Token(ctx context.Context, accountID string) (string, error) {
	tok, ok := s.tokens[accountID]
	if !ok {
		metrics.TokenLookupsTotal.WithLabelValues("static", "miss").Inc()
		return "", nil
	}
	metrics.TokenLookupsTotal.WithLabelValues("static", "hit").Inc()
	return tok, nil
}
