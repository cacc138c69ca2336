package sessionkit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AuditEvent is a structured audit record emitted by the Manager. Emission is
// fire-and-forget: sinks must never block the calling operation for long and
// must never fail it.
type AuditEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	SubjectID string            `json:"subject_id,omitempty"`
	TenantID  string            `json:"tenant_id,omitempty"`
	Token     string            `json:"token,omitempty"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Success   bool              `json:"success"`
	Reason    string            `json:"reason,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives [AuditEvent] values from the audit dispatcher. In
// production this is typically an adapter into the observability pipeline; in
// development a local log sink is sufficient.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// ZerologSink forwards audit events as structured log lines on the given
// logger at Info level.
type ZerologSink struct {
	logger zerolog.Logger
}

func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return &ZerologSink{logger: logger}
}

func (s *ZerologSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil {
		return
	}

	evt := s.logger.Info().
		Str("audit_id", event.ID).
		Str("event_type", event.EventType).
		Bool("success", event.Success).
		Time("timestamp", event.Timestamp)
	if event.SubjectID != "" {
		evt = evt.Str("subject_id", event.SubjectID)
	}
	if event.TenantID != "" {
		evt = evt.Str("tenant_id", event.TenantID)
	}
	if event.Token != "" {
		evt = evt.Str("token", event.Token)
	}
	if event.IP != "" {
		evt = evt.Str("ip", event.IP)
	}
	if event.Reason != "" {
		evt = evt.Str("reason", event.Reason)
	}
	for k, v := range event.Metadata {
		evt = evt.Str("meta_"+k, v)
	}
	evt.Msg("audit")
}
