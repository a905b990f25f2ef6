package log

import (
	"context"
	"log/slog"
)

// SlogAdapter mirrors protocol events onto an slog.Logger at debug level.
// Handy during development to watch the wire in the console without
// opening trace files.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps the given slog.Logger as a protocol event sink.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated))
	case event.Message != nil:
		m := event.Message
		attrs = append(attrs,
			slog.String("kind", m.Kind),
			slog.String("command", m.Command))
		if m.MessageID != "" {
			attrs = append(attrs, slog.String("msg_id", m.MessageID))
		}
		if m.Success != nil {
			attrs = append(attrs, slog.Bool("success", *m.Success))
		}
		if m.ProcessingTime != nil {
			attrs = append(attrs, slog.Duration("processing_time", *m.ProcessingTime))
		}
	case event.StateChange != nil:
		s := event.StateChange
		attrs = append(attrs,
			slog.String("entity", s.Entity.String()),
			slog.String("old_state", s.OldState),
			slog.String("new_state", s.NewState))
		if s.Reason != "" {
			attrs = append(attrs, slog.String("reason", s.Reason))
		}
	case event.ControlMsg != nil:
		attrs = append(attrs, slog.String("ctrl_type", event.ControlMsg.Type.String()))
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context))
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
