// Package api provides a Twitch Helix REST client for the calls the watcher
// needs: creating EventSub subscriptions on a WebSocket session and
// resolving logins to user ids.
//
// Every request carries the Client-Id header and a bearer token: the
// application token by default, or a per-account user token where the
// endpoint requires one.
package api
