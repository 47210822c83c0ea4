package ws

import "github.com/google/uuid"

// newConnID tags one websocket connection in logs and ws_events.
func newConnID() string {
	return "ws-" + uuid.NewString()
}
