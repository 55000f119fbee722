package api

import (
	"context"
	"fmt"
	"net/url"
)

// maxUsersPerRequest is the Helix limit on login/id parameters per call.
const maxUsersPerRequest = 100

// GetUsers looks up users by login. Unknown logins are absent from the
// result.
func (c *Client) GetUsers(ctx context.Context, logins []string) ([]User, error) {
	var users []User

	for start := 0; start < len(logins); start += maxUsersPerRequest {
		end := min(start+maxUsersPerRequest, len(logins))

		query := url.Values{}
		for _, login := range logins[start:end] {
			query.Add("login", login)
		}

		var resp UsersResponse
		if err := c.get(ctx, "/users", query, &resp); err != nil {
			return nil, fmt.Errorf("get users: %w", err)
		}
		users = append(users, resp.Data...)
	}

	return users, nil
}
