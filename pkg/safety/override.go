package safety

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Override errors.
var (
	ErrEmptyUser = errors.New("override requires a confirming user")
)

// Override records one user-confirmed approval of a rejected snippet.
type Override struct {
	Digest     string    `json:"digest"`
	User       string    `json:"user"`
	Reason     string    `json:"reason"`
	ApprovedAt time.Time `json:"approved_at"`
}

// OverrideLog records explicit approvals of snippets the gate rejected.
// Approvals are keyed by the snippet's digest: editing the snippet in any
// way invalidates the approval.
type OverrideLog struct {
	mu        sync.RWMutex
	overrides map[string]Override
	logger    *slog.Logger
}

// NewOverrideLog creates an empty override log.
func NewOverrideLog(logger *slog.Logger) *OverrideLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &OverrideLog{
		overrides: make(map[string]Override),
		logger:    logger,
	}
}

// Digest returns the hex digest identifying a snippet.
func Digest(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Approve records that the named user confirmed execution of the snippet
// despite the gate's warning. The approval is logged.
func (l *OverrideLog) Approve(source, user, reason string) (Override, error) {
	if user == "" {
		return Override{}, ErrEmptyUser
	}

	o := Override{
		Digest:     Digest(source),
		User:       user,
		Reason:     reason,
		ApprovedAt: time.Now(),
	}

	l.mu.Lock()
	l.overrides[o.Digest] = o
	l.mu.Unlock()

	l.logger.Warn("safety gate override recorded",
		"digest", o.Digest,
		"user", user,
		"reason", reason,
	)

	return o, nil
}

// IsApproved reports whether the exact snippet has a recorded override.
func (l *OverrideLog) IsApproved(source string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.overrides[Digest(source)]
	return ok
}

// Revoke removes the override for a snippet.
func (l *OverrideLog) Revoke(source string) {
	l.mu.Lock()
	delete(l.overrides, Digest(source))
	l.mu.Unlock()
}

// Restore installs previously recorded overrides, typically loaded from
// persisted state. Existing entries with the same digest are kept.
func (l *OverrideLog) Restore(overrides []Override) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, o := range overrides {
		if o.Digest == "" {
			continue
		}
		if _, ok := l.overrides[o.Digest]; ok {
			continue
		}
		l.overrides[o.Digest] = o
	}
}

// Overrides returns a snapshot of all recorded overrides.
func (l *OverrideLog) Overrides() []Override {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Override, 0, len(l.overrides))
	for _, o := range l.overrides {
		out = append(out, o)
	}
	return out
}
