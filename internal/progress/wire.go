// wire.go adapts hub observers onto a websocket transport.
package progress

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// writeTimeout bounds a single frame write so one dead peer cannot hold the
// forwarder indefinitely.
const writeTimeout = 10 * time.Second

// WireMessage is the JSON shape sent to socket subscribers.
type WireMessage struct {
	Type      string         `json:"type"`
	RunID     string         `json:"run_id"`
	Stage     string         `json:"stage"`
	Progress  int            `json:"progress"`
	Message   string         `json:"message"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// ToWire converts an event into its socket wire shape.
func ToWire(event Event) WireMessage {
	return WireMessage{
		Type:      "progress",
		RunID:     event.RunID,
		Stage:     event.Stage,
		Progress:  event.Progress,
		Message:   event.Message,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Data:      event.Data,
	}
}

// Forward pumps a connected observer's events onto a websocket connection as
// JSON frames until the context ends, the hub closes the channel, or a write
// fails. The observer is disconnected from the hub on return, which drops all
// of its subscriptions.
func Forward(ctx context.Context, hub *Hub, observerID string, events <-chan Event, conn *websocket.Conn) error {
	defer hub.Disconnect(observerID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ToWire(event)); err != nil {
				return err
			}
		}
	}
}
