package log

// Logger receives protocol trace events from the transport layer.
// Implementations must be safe for concurrent use; Log is called from the
// connection's read and write paths and should not block for long.
type Logger interface {
	Log(event Event)
}

// NoopLogger drops every event. The zero value is ready to use; passing it
// (or a nil Logger) to the transport disables tracing.
type NoopLogger struct{}

func (NoopLogger) Log(Event) {}

// MultiLogger fans each event out to several loggers, typically a FileLogger
// for capture alongside a SlogAdapter for console output.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger builds a fan-out over the given loggers.
func NewMultiLogger(sinks ...Logger) *MultiLogger {
	return &MultiLogger{sinks: sinks}
}

func (m *MultiLogger) Log(event Event) {
	for _, s := range m.sinks {
		s.Log(event)
	}
}

var (
	_ Logger = NoopLogger{}
	_ Logger = (*MultiLogger)(nil)
)
