// Package throttle provides the shared throttled client protecting every call
// to a metered external provider. It enforces a rolling daily quota per
// provider bucket and a minimum inter-request spacing. Quota exhaustion fails
// fast before any network cost; interval violations sleep the calling task
// instead, since quota is precious and wall-clock latency is cheap.
package throttle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"leafwise-server/internal/infrastructure/metrics"
)

// ErrQuotaExceeded is returned before issuing a call when the bucket's daily
// quota is exhausted.
var ErrQuotaExceeded = errors.New("daily provider quota exceeded")

// Config defines one provider bucket's limits.
type Config struct {
	DailyQuota  int
	MinInterval time.Duration
}

// Client meters calls against one provider quota bucket. Safe for concurrent
// use; admission, counting and slot assignment are mutex-serialized.
type Client struct {
	bucket string
	cfg    Config
	log    zerolog.Logger

	mu       sync.Mutex
	day      string // local calendar day the counter belongs to
	count    int    // successful calls today, monotonic within a day
	inflight int    // admitted calls not yet finished
	nextSlot time.Time

	now func() time.Time
}

// New creates a throttled client for the named provider bucket.
func New(bucket string, cfg Config, log zerolog.Logger) *Client {
	return &Client{
		bucket: bucket,
		cfg:    cfg,
		log:    log.With().Str("component", "throttle").Str("bucket", bucket).Logger(),
		now:    time.Now,
	}
}

// Do executes fn if the daily quota allows it, sleeping first when the
// minimum inter-request interval has not yet elapsed. The sleep blocks only
// the calling task. A successful fn advances the day's counter.
func (c *Client) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	slot, err := c.admit()
	if err != nil {
		metrics.QuotaRejections.WithLabelValues(c.bucket).Inc()
		c.log.Warn().Int("count", c.Count()).Msg("provider call refused by daily quota")
		return err
	}

	if wait := slot.Sub(c.now()); wait > 0 {
		c.log.Debug().Dur("wait", wait).Msg("throttling provider call")
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			c.release(false)
			return ctx.Err()
		case <-timer.C:
		}
	}

	callErr := fn(ctx)
	c.release(callErr == nil)
	return callErr
}

// Count returns the number of successful calls in the current day.
func (c *Client) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollover()
	return c.count
}

// admit reserves a call slot, returning when the call may be issued.
func (c *Client) admit() (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rollover()

	if c.cfg.DailyQuota > 0 && c.count+c.inflight >= c.cfg.DailyQuota {
		return time.Time{}, ErrQuotaExceeded
	}
	c.inflight++

	now := c.now()
	slot := c.nextSlot
	if slot.Before(now) {
		slot = now
	}
	c.nextSlot = slot.Add(c.cfg.MinInterval)
	return slot, nil
}

// release finishes an admitted call; only successes consume quota.
func (c *Client) release(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rollover()
	if c.inflight > 0 {
		c.inflight--
	}
	if success {
		c.count++
	}
}

// rollover resets the counter exactly at local-calendar-day boundaries.
// Caller must hold c.mu.
func (c *Client) rollover() {
	today := c.now().Format("2006-01-02")
	if c.day != today {
		if c.day != "" {
			c.log.Info().Str("day", c.day).Int("count", c.count).Msg("quota window rolled over")
		}
		c.day = today
		c.count = 0
	}
}
