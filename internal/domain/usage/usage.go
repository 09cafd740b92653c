// Package usage tracks the rolling per-user free-tier allowance that gates
// pipeline entry. An active paid subscription bypasses the ledger entirely.
package usage

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Entry is one user's ledger state.
type Entry struct {
	UserID      string    `json:"user_id"`
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
}

// Status is the outcome of an eligibility check.
type Status struct {
	Eligible         bool `json:"eligible"`
	Subscribed       bool `json:"subscribed"`
	RemainingUses    int  `json:"remaining_uses"`
	DaysLeftInWindow int  `json:"days_left_in_window"`
}

// Store persists ledger entries. Update must serialize mutations per user so
// concurrent requests from the same user cannot lose increments.
type Store interface {
	Get(ctx context.Context, userID string) (*Entry, bool, error)
	Update(ctx context.Context, userID string, fn func(e *Entry) error) error
}

// Billing is the out-of-process subscription status lookup.
type Billing interface {
	IsActive(ctx context.Context, userID string) (bool, error)
}

// Ledger enforces the free-tier allowance within a fixed-length window.
type Ledger struct {
	store      Store
	billing    Billing
	allowance  int
	windowDays int
	log        zerolog.Logger

	now func() time.Time
}

// NewLedger creates a usage ledger.
func NewLedger(store Store, billing Billing, allowance, windowDays int, log zerolog.Logger) *Ledger {
	return &Ledger{
		store:      store,
		billing:    billing,
		allowance:  allowance,
		windowDays: windowDays,
		log:        log.With().Str("component", "usage-ledger").Logger(),
		now:        time.Now,
	}
}

// CheckEligibility reports whether a user may run another analysis. A billing
// outage is treated as not subscribed so the free tier still applies.
func (l *Ledger) CheckEligibility(ctx context.Context, userID string) (*Status, error) {
	active, err := l.billing.IsActive(ctx, userID)
	if err != nil {
		l.log.Warn().Err(err).Str("user_id", userID).Msg("billing lookup failed, treating as free tier")
	} else if active {
		return &Status{Eligible: true, Subscribed: true}, nil
	}

	var status *Status
	err = l.store.Update(ctx, userID, func(e *Entry) error {
		l.resetIfElapsed(e)
		status = l.statusFor(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// Increment consumes one free-tier use. Subscribed users are not charged.
func (l *Ledger) Increment(ctx context.Context, userID string) error {
	active, err := l.billing.IsActive(ctx, userID)
	if err == nil && active {
		return nil
	}

	return l.store.Update(ctx, userID, func(e *Entry) error {
		l.resetIfElapsed(e)
		e.Count++
		l.log.Debug().Str("user_id", userID).Int("count", e.Count).Msg("free-tier use recorded")
		return nil
	})
}

// resetIfElapsed restarts the window once it has elapsed. Count and window
// start swap together; a reset never leaves a stale count paired with a
// fresh window start.
func (l *Ledger) resetIfElapsed(e *Entry) {
	now := l.now()
	if e.WindowStart.IsZero() {
		e.WindowStart = now
		e.Count = 0
		return
	}
	if now.Sub(e.WindowStart) >= l.windowDuration() {
		e.WindowStart = now
		e.Count = 0
	}
}

func (l *Ledger) statusFor(e *Entry) *Status {
	remaining := l.allowance - e.Count
	if remaining < 0 {
		remaining = 0
	}

	elapsed := l.now().Sub(e.WindowStart)
	daysLeft := l.windowDays - int(elapsed.Hours()/24)
	if daysLeft < 0 {
		daysLeft = 0
	}

	return &Status{
		Eligible:         remaining > 0,
		RemainingUses:    remaining,
		DaysLeftInWindow: daysLeft,
	}
}

func (l *Ledger) windowDuration() time.Duration {
	return time.Duration(l.windowDays) * 24 * time.Hour
}
