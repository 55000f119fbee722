// Package tokens provides per-account bearer token sources.
//
// Static serves tokens from configuration, Store reads them from the
// account_tokens table, and Chain asks several sources in order. All of
// them return "" with a nil error when an account has no token.
package tokens
