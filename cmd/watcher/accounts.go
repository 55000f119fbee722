package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/rickgao/livewatch/internal/api"
	"github.com/rickgao/livewatch/internal/config"
	"github.com/rickgao/livewatch/internal/tokens"
)

// userLookup resolves logins to users.
type userLookup interface {
	GetUsers(ctx context.Context, logins []string) ([]api.User, error)
}

// resolveAccounts turns the configured accounts into an ordered, de-duplicated
// id list and the static tokens keyed by id. Login-only accounts are looked
// up through users; logins that do not resolve are skipped.
func resolveAccounts(ctx context.Context, accts []config.AccountConfig, users userLookup, logger *slog.Logger) ([]string, *tokens.Static, error) {
	var logins []string
	for _, a := range accts {
		if a.ID == "" && a.Login != "" {
			logins = append(logins, strings.ToLower(a.Login))
		}
	}

	byLogin := make(map[string]string, len(logins))
	if len(logins) > 0 {
		found, err := users.GetUsers(ctx, logins)
		if err != nil {
			return nil, nil, err
		}
		for _, u := range found {
			byLogin[strings.ToLower(u.Login)] = u.ID
		}
	}

	var (
		ids    []string
		seen   = make(map[string]bool, len(accts))
		tokMap = make(map[string]string)
	)
	for _, a := range accts {
		id := a.ID
		if id == "" {
			id = byLogin[strings.ToLower(a.Login)]
			if id == "" {
				logger.Warn("unknown login, account skipped", "login", a.Login)
				continue
			}
		}

		if a.Token != "" {
			tokMap[id] = a.Token
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	return ids, tokens.NewStatic(tokMap), nil
}
