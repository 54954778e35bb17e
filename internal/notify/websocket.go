package notify

import (
	"context"

	"github.com/fd1az/crosschain-arb/internal/wsconn"
)

// WebSocketSink publishes events over a WebSocket connection so dashboards
// can stream the engine's activity live. Delivery is best effort: events
// emitted while the connection is down are not replayed.
type WebSocketSink struct {
	client *wsconn.Client
}

var _ Sink = (*WebSocketSink)(nil)

// NewWebSocketSink creates a sink on top of an already-configured client.
// The caller owns the client lifecycle (Connect and Close).
func NewWebSocketSink(client *wsconn.Client) *WebSocketSink {
	return &WebSocketSink{client: client}
}

// Name implements Sink.
func (s *WebSocketSink) Name() string { return "websocket" }

// Notify implements Sink.
func (s *WebSocketSink) Notify(ctx context.Context, ev Event) error {
	return s.client.SendJSON(ctx, ev)
}
