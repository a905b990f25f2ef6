// Package log captures the bridge's protocol traffic as a structured event
// trace, separate from operational slog output. Every layer contributes:
// the transport records raw fragments and control frames (FrameEvent,
// ControlMsgEvent), the wire layer records decoded envelopes
// (MessageEvent), and the service layer records state transitions and
// errors (StateChangeEvent, ErrorEventData).
//
// The trace sink is any Logger. NewSlogAdapter mirrors events to the
// console for development, NewFileLogger writes the compact CBOR trace
// format (conventionally *.cborlog) that the genie-log tool analyzes, and
// NewMultiLogger combines sinks:
//
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// Reader streams events back out of a trace file, optionally narrowed by
// a Filter (connection, direction, layer, category, command, time range).
package log
