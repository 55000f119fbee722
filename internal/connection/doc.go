// Package connection implements the WebSocket transport used by the EventSub listener.
//
// A Client:
//   - Dials one WebSocket endpoint (gorilla/websocket)
//   - Answers server pings with pongs
//   - Delivers every text frame, in arrival order, on Messages()
//   - Closes Messages() when the read loop ends; Err() reports why
//
// The client never writes data frames: EventSub servers drop connections
// that send them.
package connection
