package bridge

import (
	"context"
	"log/slog"
	"time"

	"github.com/game-genie/genie-go/pkg/connection"
	"github.com/game-genie/genie-go/pkg/dispatch"
	"github.com/game-genie/genie-go/pkg/interaction"
	"github.com/game-genie/genie-go/pkg/log"
	"github.com/game-genie/genie-go/pkg/transport"
	"github.com/game-genie/genie-go/pkg/wire"
)

// Config configures a bridge.
type Config struct {
	// Endpoint is the agent server address (host:port).
	Endpoint string

	// Transport is the connection configuration.
	Transport transport.Config

	// MaxInFlight bounds concurrently running handlers.
	MaxInFlight int64

	// AutoReconnect retries lost connections with backoff.
	AutoReconnect bool

	// DrainTimeout bounds the shutdown drain (default: 10s).
	DrainTimeout time.Duration

	// Logger for operational logging. Nil uses slog.Default.
	Logger *slog.Logger

	// ProtocolLogger receives wire-level trace events. Nil disables capture.
	ProtocolLogger log.Logger
}

// Bridge is one editor-side endpoint of the agent connection.
type Bridge struct {
	config Config

	conn       *transport.Conn
	dispatcher *dispatch.Dispatcher
	correlator *interaction.Correlator
	manager    *connection.Manager

	logger *slog.Logger
}

// New creates a bridge. Handlers are registered on Dispatcher before
// connecting.
func New(config Config) *Bridge {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = 10 * time.Second
	}
	config.Transport.ProtocolLogger = config.ProtocolLogger

	b := &Bridge{
		config: config,
		logger: config.Logger,
	}

	b.conn = transport.NewConn(config.Transport, b)
	b.dispatcher = dispatch.New(config.MaxInFlight, config.Logger)
	b.correlator = interaction.NewCorrelator(b.conn)

	b.manager = connection.NewManager(func(ctx context.Context) error {
		return b.conn.Connect(ctx, b.config.Endpoint)
	})
	b.manager.SetAutoReconnect(config.AutoReconnect)
	if config.AutoReconnect {
		b.manager.StartReconnectLoop()
	}

	return b
}

// Dispatcher returns the handler table for registration.
func (b *Bridge) Dispatcher() *dispatch.Dispatcher {
	return b.dispatcher
}

// Connect establishes the connection and sends the handshake.
func (b *Bridge) Connect(ctx context.Context) error {
	return b.manager.Connect(ctx)
}

// Disconnect closes the connection deliberately; no retry follows.
func (b *Bridge) Disconnect() error {
	b.manager.Disconnect()
	return b.conn.Close()
}

// State returns the connection state.
func (b *Bridge) State() transport.ConnectionState {
	return b.conn.State()
}

// IsConnected reports whether the connection is established.
func (b *Bridge) IsConnected() bool {
	return b.conn.IsConnected()
}

// LastError returns the text of the most recent connection failure.
func (b *Bridge) LastError() string {
	if err := b.conn.LastError(); err != "" {
		return err
	}
	return b.manager.LastError()
}

// Call sends a command to the agent server and waits for its response.
func (b *Bridge) Call(ctx context.Context, cmd *wire.Command) (*wire.Response, error) {
	return b.correlator.Call(ctx, cmd)
}

// Shutdown drains in-flight handlers, fails pending calls and closes the
// connection.
func (b *Bridge) Shutdown(ctx context.Context) error {
	drainCtx, cancel := context.WithTimeout(ctx, b.config.DrainTimeout)
	defer cancel()

	drainErr := b.dispatcher.Drain(drainCtx)
	b.correlator.Close()
	b.manager.Close()
	closeErr := b.conn.Close()

	if drainErr != nil {
		return drainErr
	}
	return closeErr
}

// OnMessage routes one inbound envelope. Implements transport.Handler.
func (b *Bridge) OnMessage(msg *wire.Message) {
	switch msg.Kind {
	case wire.KindCommand:
		go b.serveCommand(msg.Command)
	case wire.KindResponse:
		b.correlator.HandleResponse(msg.Response)
	case wire.KindHandshake:
		// The server echoes handshakes back on some versions.
		b.logger.Debug("handshake echo ignored", "client", msg.Handshake.Client)
	}
}

// serveCommand runs one command as a tracked dispatcher task and sends
// the response back.
func (b *Bridge) serveCommand(cmd *wire.Command) {
	resp := b.dispatcher.Dispatch(context.Background(), cmd)
	if resp == nil {
		return
	}

	if !b.conn.IsConnected() {
		// The connection closed while the handler ran; the result is
		// discarded, not retried.
		b.logger.Debug("response discarded, connection closed",
			"command", resp.Command, "message_id", resp.MessageID)
		return
	}

	data, err := wire.EncodeResponse(resp)
	if err != nil {
		b.logger.Error("response encoding failed", "command", resp.Command, "error", err)
		return
	}
	if err := b.conn.Send(data); err != nil {
		b.logger.Debug("response send failed, connection closed",
			"command", resp.Command, "error", err)
	}
}

// OnStateChange tracks connection transitions. Implements transport.Handler.
func (b *Bridge) OnStateChange(oldState, newState transport.ConnectionState) {
	b.logger.Info("connection state changed",
		"from", oldState.String(), "to", newState.String())

	if oldState == transport.StateConnected && newState == transport.StateDisconnected {
		b.manager.NotifyConnectionLost(b.conn.LastError())
	}
}

// OnError surfaces connection errors. Implements transport.Handler.
func (b *Bridge) OnError(err error) {
	b.logger.Warn("connection error", "error", err)
}
