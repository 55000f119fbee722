// Package database provides connection pool management for PostgreSQL.
//
// The watcher keeps one optional pool for the account token store.
package database
