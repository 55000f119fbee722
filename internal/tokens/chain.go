package tokens

import (
	"context"
	"errors"
	"strings"
)

// Chain asks each resolver in order and returns the first non-empty token.
// Errors are skipped over; they are returned only when no resolver produced
// a token.
type Chain []Resolver

// Token implements Resolver.
func (c Chain) Token(ctx context.Context, accountID string) (string, error) {
	var errs []error
	for _, r := range c {
		if r == nil {
			continue
		}
		tok, err := r.Token(ctx, accountID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if strings.TrimSpace(tok) != "" {
			return tok, nil
		}
	}
	return "", errors.Join(errs...)
}
