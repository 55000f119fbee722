package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/sync/singleflight"

	"github.com/rickgao/livewatch/internal/metrics"
)

// Schema creates the token table if it does not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS account_tokens (
	account_id   TEXT PRIMARY KEY,
	access_token TEXT NOT NULL,
	expires_at   TIMESTAMPTZ,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const selectToken = `
SELECT access_token
FROM account_tokens
WHERE account_id = $1
  AND (expires_at IS NULL OR expires_at > now())`

const upsertToken = `
INSERT INTO account_tokens (account_id, access_token, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (account_id)
DO UPDATE SET access_token = EXCLUDED.access_token, expires_at = NULL, updated_at = now()`

// lookupTimeout bounds a shared token query. The query outlives any single
// caller's context because other callers may be waiting on it.
const lookupTimeout = 5 * time.Second

// Querier is the subset of pgxpool.Pool used by Store.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store reads account tokens from Postgres. Concurrent lookups for the same
// account share one query.
type Store struct {
	db    Querier
	group singleflight.Group
}

// NewStore creates a token store on db.
func NewStore(db Querier) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the token table.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create account_tokens: %w", err)
	}
	return nil
}

// Put stores a token for an account, replacing any previous one.
func (s *Store) Put(ctx context.Context, accountID, token string) error {
	if _, err := s.db.Exec(ctx, upsertToken, accountID, token); err != nil {
		return fmt.Errorf("upsert token for %s: %w", accountID, err)
	}
	return nil
}

// Token implements Resolver. Missing and expired tokens are reported as "".
// A caller whose ctx ends stops waiting without failing the others.
func (s *Store) Token(ctx context.Context, accountID string) (string, error) {
	ch := s.group.DoChan(accountID, func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()

		var token string
		err := s.db.QueryRow(qctx, selectToken, accountID).Scan(&token)
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("query token for %s: %w", accountID, err)
		}
		return token, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		metrics.TokenLookupsTotal.WithLabelValues("store", "error").Inc()
		return "", ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		metrics.TokenLookupsTotal.WithLabelValues("store", "error").Inc()
		return "", res.Err
	}

	token := res.Val.(string)
	if token == "" {
		metrics.TokenLookupsTotal.WithLabelValues("store", "miss").Inc()
	} else {
		metrics.TokenLookupsTotal.WithLabelValues("store", "hit").Inc()
	}
	return token, nil
}
