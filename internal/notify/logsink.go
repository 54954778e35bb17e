package notify

import (
	"context"

	"github.com/fd1az/crosschain-arb/internal/logger"
)

// LogSink writes every event to the structured log. It is the sink of last
// resort: always configured, never fails.
type LogSink struct {
	logger logger.LoggerInterface
}

var _ Sink = (*LogSink)(nil)

// NewLogSink creates a log sink.
func NewLogSink(log logger.LoggerInterface) *LogSink {
	return &LogSink{logger: log}
}

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// Notify implements Sink.
func (s *LogSink) Notify(ctx context.Context, ev Event) error {
	s.logger.Info(ctx, "engine event",
		"kind", ev.Kind,
		"timestamp", ev.Timestamp,
		"payload", ev.Payload)
	return nil
}
