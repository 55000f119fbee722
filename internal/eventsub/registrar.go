package eventsub

import (
	"context"
	"log/slog"
	"strings"

	"github.com/rickgao/livewatch/internal/metrics"
)

// CredentialMode is the credential a subscription is registered with.
type CredentialMode string

const (
	// CredentialAccount uses the account's own bearer token.
	CredentialAccount CredentialMode = "account"
	// CredentialApplication uses the application credential.
	CredentialApplication CredentialMode = "application"
)

// TokenResolver returns a bearer token for an account. An empty token with a
// nil error means the account has no credential of its own.
type TokenResolver interface {
	Token(ctx context.Context, accountID string) (string, error)
}

// TokenResolverFunc adapts a function to TokenResolver.
type TokenResolverFunc func(ctx context.Context, accountID string) (string, error)

// Token calls f(ctx, accountID).
func (f TokenResolverFunc) Token(ctx context.Context, accountID string) (string, error) {
	return f(ctx, accountID)
}

// SubscriptionRequest is one subscription to create on a session.
type SubscriptionRequest struct {
	SessionID string
	Type      string
	Version   string
	AccountID string
	Mode      CredentialMode

	// Credential is the normalized account token. Empty in application mode.
	Credential string
}

// Condition returns the subscription condition for the request.
func (r SubscriptionRequest) Condition() map[string]string {
	return map[string]string{"broadcaster_user_id": r.AccountID}
}

// Subscriber creates subscriptions on the server.
type Subscriber interface {
	CreateSubscription(ctx context.Context, req SubscriptionRequest) error
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(ctx context.Context, req SubscriptionRequest) error

// CreateSubscription calls f(ctx, req).
func (f SubscriberFunc) CreateSubscription(ctx context.Context, req SubscriptionRequest) error {
	return f(ctx, req)
}

// NormalizeToken strips an "oauth:" or "Bearer " scheme prefix and
// surrounding whitespace.
func NormalizeToken(token string) string {
	token = strings.TrimSpace(token)
	for _, prefix := range []string{"oauth:", "bearer "} {
		if len(token) >= len(prefix) && strings.EqualFold(token[:len(prefix)], prefix) {
			token = strings.TrimSpace(token[len(prefix):])
			break
		}
	}
	return token
}

// BatchResult summarizes one subscription batch.
type BatchResult struct {
	Attempted int
	Succeeded int
	Failed    int
}

// registrar registers stream.online subscriptions for a session.
type registrar struct {
	subscriber Subscriber
	resolver   TokenResolver // nil means application credential only
	limit      int
	logger     *slog.Logger
}

// capAccounts keeps the first limit ids in order.
func capAccounts(ids []string, limit int) (kept []string, dropped int) {
	if len(ids) <= limit {
		return ids, 0
	}
	return ids[:limit], len(ids) - limit
}

// register subscribes each account, in order, up to the limit. Failures of
// individual registrations are logged and do not stop the batch. The only
// error returned is the context's.
func (r *registrar) register(ctx context.Context, sessionID string, accountIDs []string) (BatchResult, error) {
	var result BatchResult

	ids, _ := capAccounts(accountIDs, r.limit)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		req := r.request(ctx, sessionID, id)
		result.Attempted++

		if err := r.subscriber.CreateSubscription(ctx, req); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			result.Failed++
			metrics.SubscriptionsTotal.WithLabelValues(string(req.Mode), "failed").Inc()
			r.logger.Warn("subscription failed",
				"account_id", id,
				"mode", req.Mode,
				"error", err,
			)
			continue
		}

		result.Succeeded++
		metrics.SubscriptionsTotal.WithLabelValues(string(req.Mode), "created").Inc()
		r.logger.Debug("subscribed", "account_id", id, "mode", req.Mode)
	}

	return result, nil
}

// request builds the subscription for one account with the best credential.
func (r *registrar) request(ctx context.Context, sessionID, accountID string) SubscriptionRequest {
	req := SubscriptionRequest{
		SessionID: sessionID,
		Type:      SubscriptionTypeStreamOnline,
		Version:   SubscriptionVersionStreamOnline,
		AccountID: accountID,
		Mode:      CredentialApplication,
	}

	if r.resolver == nil {
		return req
	}

	token, err := r.resolver.Token(ctx, accountID)
	if err != nil {
		r.logger.Warn("token lookup failed, using application credential",
			"account_id", accountID,
			"error", err,
		)
		return req
	}

	if token = NormalizeToken(token); token != "" {
		req.Mode = CredentialAccount
		req.Credential = token
	}
	return req
}
