// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - EventSub connection attempts, outcomes and reconnects
//   - Handshake latency and current connection state
//   - Subscription registrations by credential mode and result
//   - Inbound frames by message type and notification dispatch results
//   - Token resolver lookups
package metrics
