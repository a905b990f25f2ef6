package interaction

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/game-genie/genie-go/pkg/wire"
)

// Correlator errors.
var (
	ErrCallTimeout        = errors.New("call timed out")
	ErrCorrelatorClosed   = errors.New("correlator is closed")
	ErrDuplicateMessageID = errors.New("duplicate in-flight message_id")
)

// DefaultCallTimeout bounds a single call when the caller's context
// carries no deadline of its own.
const DefaultCallTimeout = 30 * time.Second

// Sender is the interface for sending encoded messages over a connection.
type Sender interface {
	Send(data []byte) error
}

// Correlator matches responses to the commands that caused them.
type Correlator struct {
	mu sync.RWMutex

	sender  Sender
	timeout time.Duration

	// Pending calls awaiting responses, keyed by message_id
	pending   map[string]chan *wire.Response
	pendingMu sync.Mutex

	// Responses that matched no pending call
	unmatched atomic.Uint64

	closed bool
}

// NewCorrelator creates a correlator that sends through the given sender.
func NewCorrelator(sender Sender) *Correlator {
	return &Correlator{
		sender:  sender,
		timeout: DefaultCallTimeout,
		pending: make(map[string]chan *wire.Response),
	}
}

// SetTimeout sets the default call timeout.
func (c *Correlator) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// PendingCalls returns the number of calls currently awaiting a response.
func (c *Correlator) PendingCalls() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return len(c.pending)
}

// UnmatchedResponses returns the number of responses dropped because no
// pending call carried their message_id.
func (c *Correlator) UnmatchedResponses() uint64 {
	return c.unmatched.Load()
}

// Call sends a command and waits for the response carrying the same
// message_id. A command without a message_id is sent fire-and-forget and
// returns (nil, nil) immediately after the write succeeds.
//
// A second call while the same message_id is still in flight is rejected
// with ErrDuplicateMessageID; reusing an identifier would make the two
// responses indistinguishable.
func (c *Correlator) Call(ctx context.Context, cmd *wire.Command) (*wire.Response, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, ErrCorrelatorClosed
	}
	timeout := c.timeout
	c.mu.RUnlock()

	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	data, err := wire.EncodeCommand(cmd)
	if err != nil {
		return nil, err
	}

	msgID := cmd.MessageID()
	if msgID == "" {
		// Fire-and-forget.
		return nil, c.sender.Send(data)
	}

	respCh := make(chan *wire.Response, 1)

	c.pendingMu.Lock()
	if _, exists := c.pending[msgID]; exists {
		c.pendingMu.Unlock()
		return nil, ErrDuplicateMessageID
	}
	c.pending[msgID] = respCh
	c.pendingMu.Unlock()

	defer func() {
		// Only remove this call's own entry. After HandleResponse has
		// already deleted it, the identifier may belong to a successor call.
		c.pendingMu.Lock()
		if ch, ok := c.pending[msgID]; ok && ch == respCh {
			delete(c.pending, msgID)
		}
		c.pendingMu.Unlock()
	}()

	if err := c.sender.Send(data); err != nil {
		return nil, err
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case resp, ok := <-respCh:
		if !ok {
			return nil, ErrCorrelatorClosed
		}
		return resp, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrCallTimeout
		}
		return nil, ctx.Err()
	}
}

// HandleResponse resolves the pending call matching the response's
// message_id. Responses with no matching call are counted and dropped.
func (c *Correlator) HandleResponse(resp *wire.Response) {
	if resp == nil {
		return
	}

	c.pendingMu.Lock()
	respCh, ok := c.pending[resp.MessageID]
	if ok {
		delete(c.pending, resp.MessageID)
	}
	c.pendingMu.Unlock()

	if !ok {
		c.unmatched.Add(1)
		return
	}

	respCh <- resp
}

// Close fails all pending calls and rejects future ones.
func (c *Correlator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.pendingMu.Lock()
	for _, ch := range c.pending {
		close(ch)
	}
	c.pending = make(map[string]chan *wire.Response)
	c.pendingMu.Unlock()

	return nil
}
