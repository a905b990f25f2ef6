package transport

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Health check constants.
const (
	// DefaultProbeInterval is the default interval between liveness probes.
	DefaultProbeInterval = 5 * time.Second

	// DefaultProbeTimeout is the default timeout waiting for a probe reply.
	DefaultProbeTimeout = 3 * time.Second

	// DefaultMaxMissedProbes is the default number of missed replies before
	// the connection is considered lost.
	DefaultMaxMissedProbes = 2
)

// HealthCheckConfig configures the polled liveness monitor.
type HealthCheckConfig struct {
	// ProbeInterval is the interval between probes.
	ProbeInterval time.Duration

	// ProbeTimeout is the timeout waiting for a probe reply.
	ProbeTimeout time.Duration

	// MaxMissedProbes is the number of missed replies before the
	// connection is declared lost.
	MaxMissedProbes int

	// Disabled turns the health check off entirely.
	Disabled bool
}

// DefaultHealthCheckConfig returns the default health check configuration.
func DefaultHealthCheckConfig() HealthCheckConfig {
	return HealthCheckConfig{
		ProbeInterval:   DefaultProbeInterval,
		ProbeTimeout:    DefaultProbeTimeout,
		MaxMissedProbes: DefaultMaxMissedProbes,
	}
}

// DetectionDelay calculates the maximum time to detect connection loss.
func (c HealthCheckConfig) DetectionDelay() time.Duration {
	return c.ProbeInterval*time.Duration(c.MaxMissedProbes) + c.ProbeTimeout
}

// HealthCheck polls connection liveness. It periodically sends a probe
// through the transport and declares the connection lost when replies stop
// arriving, catching sockets that silently dropped to a non-open state
// while the connected flag is still set.
type HealthCheck struct {
	config HealthCheckConfig

	// Callbacks
	sendProbe func(seq string) error
	onLost    func()

	// State
	sequence     atomic.Uint64
	missedProbes int
	lastProbe    time.Time
	lastReply    time.Time
	pendingSeq   string
	hasPending   bool

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	replyCh chan string
}

// NewHealthCheck creates a health check monitor.
// sendProbe sends one liveness probe carrying an opaque sequence token;
// onLost is invoked once the configured number of replies has been missed.
func NewHealthCheck(config HealthCheckConfig, sendProbe func(seq string) error, onLost func()) *HealthCheck {
	if config.ProbeInterval == 0 {
		config.ProbeInterval = DefaultProbeInterval
	}
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = DefaultProbeTimeout
	}
	if config.MaxMissedProbes == 0 {
		config.MaxMissedProbes = DefaultMaxMissedProbes
	}

	return &HealthCheck{
		config:    config,
		sendProbe: sendProbe,
		onLost:    onLost,
		stopCh:    make(chan struct{}),
		replyCh:   make(chan string, 1),
	}
}

// Start begins the polling loop.
func (hc *HealthCheck) Start(ctx context.Context) {
	if hc.config.Disabled {
		return
	}

	hc.mu.Lock()
	if hc.running {
		hc.mu.Unlock()
		return
	}
	hc.running = true
	hc.stopCh = make(chan struct{})
	hc.mu.Unlock()

	go hc.loop(ctx)
}

// Stop stops the polling loop.
func (hc *HealthCheck) Stop() {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	if !hc.running {
		return
	}

	hc.running = false
	close(hc.stopCh)
}

// ReplyReceived should be called when a probe reply arrives.
func (hc *HealthCheck) ReplyReceived(seq string) {
	select {
	case hc.replyCh <- seq:
	default:
		// Channel full, drop (shouldn't happen in practice)
	}
}

// IsRunning returns true if the monitor is active.
func (hc *HealthCheck) IsRunning() bool {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return hc.running
}

// Stats returns current health check statistics.
func (hc *HealthCheck) Stats() HealthStats {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return HealthStats{
		LastProbeTime: hc.lastProbe,
		LastReplyTime: hc.lastReply,
		MissedProbes:  hc.missedProbes,
	}
}

// HealthStats contains health check statistics.
type HealthStats struct {
	LastProbeTime time.Time
	LastReplyTime time.Time
	MissedProbes  int
}

// loop is the polling loop.
func (hc *HealthCheck) loop(ctx context.Context) {
	ticker := time.NewTicker(hc.config.ProbeInterval)
	defer ticker.Stop()

	hc.probe()

	for {
		select {
		case <-ctx.Done():
			return
		case <-hc.stopCh:
			return
		case <-ticker.C:
			if hc.handleTick() {
				return
			}
		case seq := <-hc.replyCh:
			hc.handleReply(seq)
		}
	}
}

// probe sends one liveness probe and records the time.
// A probe that cannot even be written counts as an immediate miss: the
// socket has dropped to a non-open state.
func (hc *HealthCheck) probe() {
	seq := strconv.FormatUint(hc.sequence.Add(1), 10)

	hc.mu.Lock()
	hc.lastProbe = time.Now()
	hc.pendingSeq = seq
	hc.hasPending = true
	hc.mu.Unlock()

	if err := hc.sendProbe(seq); err != nil {
		hc.mu.Lock()
		hc.hasPending = false
		hc.missedProbes++
		hc.mu.Unlock()
	}
}

// handleTick evaluates the pending probe and sends the next one.
// Returns true when the connection has been declared lost.
func (hc *HealthCheck) handleTick() bool {
	hc.mu.Lock()

	if hc.hasPending && time.Since(hc.lastProbe) >= hc.config.ProbeTimeout {
		hc.missedProbes++
		hc.hasPending = false
	}

	if hc.missedProbes >= hc.config.MaxMissedProbes {
		hc.mu.Unlock()
		if hc.onLost != nil {
			hc.onLost()
		}
		return true
	}

	hc.mu.Unlock()

	hc.probe()
	return false
}

// handleReply processes a probe reply.
func (hc *HealthCheck) handleReply(seq string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.lastReply = time.Now()

	if hc.hasPending && seq == hc.pendingSeq {
		hc.hasPending = false
		hc.missedProbes = 0
	}
	// Replies with a stale sequence are ignored (delayed from a previous probe).
}
