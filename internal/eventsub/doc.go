// Package eventsub implements a long-lived EventSub WebSocket listener that
// reports when tracked accounts go live.
//
// One connection attempt runs:
//
//	dial -> session_welcome -> subscribe (unless continuing a server reconnect) -> receive loop
//
// and ends with an Outcome. Listener.Run loops over attempts: a reconnect
// outcome dials the server-supplied URL straight away and keeps the existing
// subscriptions; anything else waits the retry delay, returns to the default
// endpoint and subscribes again.
package eventsub
