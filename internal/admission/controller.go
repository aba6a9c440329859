package admission

import (
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Reason classifies why a turn request was refused.
type Reason string

const (
	ReasonServicePaused   Reason = "service_paused"
	ReasonUnauthorized    Reason = "unauthorized"
	ReasonSessionCooldown Reason = "rate_limited_session"
	ReasonIPWindow        Reason = "rate_limited_ip"
	ReasonDailyCap        Reason = "rate_limited_daily_cap"
)

// DefaultWindow is the trailing interval covered by the per-IP limit.
const DefaultWindow = 10 * time.Minute

// Rejection explains a refused turn request with enough detail for the
// boundary layer to render a message.
type Rejection struct {
	Reason     Reason
	RetryAfter time.Duration
	CapTokens  int64
	UsedTokens int64
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case ReasonSessionCooldown, ReasonIPWindow:
		return fmt.Sprintf("admission rejected (%s): retry after %s", r.Reason, r.RetryAfter.Round(time.Millisecond))
	case ReasonDailyCap:
		return fmt.Sprintf("admission rejected (%s): %d of %d daily tokens used", r.Reason, r.UsedTokens, r.CapTokens)
	default:
		return fmt.Sprintf("admission rejected (%s)", r.Reason)
	}
}

// Config holds the admission policy values.
type Config struct {
	Paused        bool
	AccessCode    string
	MinInterval   time.Duration
	MaxPerWindow  int
	DailyTokenCap int64
	Window        time.Duration
}

// CheckRequest is the boundary data evaluated for one incoming turn.
type CheckRequest struct {
	SessionID  string
	ClientIP   string
	AccessCode string
}

// Controller gates incoming turns. All of its state, including the
// usage counters consumed by the daily-cap check, lives behind one
// mutex so the budget check and the budget update cannot race.
type Controller struct {
	mu       sync.Mutex
	cfg      Config
	now      func() time.Time
	lastCall map[string]time.Time
	ipHits   map[string][]time.Time
	usage    usageCounters
}

func New(cfg Config) *Controller {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Controller{
		cfg:      cfg,
		now:      time.Now,
		lastCall: make(map[string]time.Time),
		ipHits:   make(map[string][]time.Time),
	}
}

// SetPaused flips the kill switch at runtime.
func (c *Controller) SetPaused(paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Paused = paused
}

// Check evaluates the gate for one request. Checks run in a fixed
// order; the first failing check determines the rejection reason.
// Nothing is recorded unless every check passes, and a paused service
// rejects without touching any counters.
func (c *Controller) Check(req CheckRequest) (string, *Rejection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.Paused {
		return "", &Rejection{Reason: ReasonServicePaused}
	}

	if c.cfg.AccessCode != "" {
		if subtle.ConstantTimeCompare([]byte(req.AccessCode), []byte(c.cfg.AccessCode)) != 1 {
			return "", &Rejection{Reason: ReasonUnauthorized}
		}
	}

	now := c.now()

	if req.SessionID != "" && c.cfg.MinInterval > 0 {
		if last, ok := c.lastCall[req.SessionID]; ok {
			if elapsed := now.Sub(last); elapsed < c.cfg.MinInterval {
				return "", &Rejection{
					Reason:     ReasonSessionCooldown,
					RetryAfter: c.cfg.MinInterval - elapsed,
				}
			}
		}
	}

	hits := pruneWindow(c.ipHits[req.ClientIP], now.Add(-c.cfg.Window))
	c.ipHits[req.ClientIP] = hits
	if c.cfg.MaxPerWindow > 0 && len(hits) >= c.cfg.MaxPerWindow {
		return "", &Rejection{
			Reason:     ReasonIPWindow,
			RetryAfter: hits[0].Add(c.cfg.Window).Sub(now),
		}
	}

	c.rollDayLocked(now)
	if c.cfg.DailyTokenCap > 0 {
		used := c.usage.tokensIn + c.usage.tokensOut
		if used >= c.cfg.DailyTokenCap {
			return "", &Rejection{
				Reason:     ReasonDailyCap,
				CapTokens:  c.cfg.DailyTokenCap,
				UsedTokens: used,
			}
		}
	}

	if req.SessionID != "" {
		c.lastCall[req.SessionID] = now
	}
	c.ipHits[req.ClientIP] = append(c.ipHits[req.ClientIP], now)
	c.usage.requests++

	return uuid.NewString(), nil
}

func pruneWindow(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}
