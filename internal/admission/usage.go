package admission

import "time"

const dayLayout = "2006-01-02"

type usageCounters struct {
	day       string
	tokensIn  int64
	tokensOut int64
	requests  int64
}

// UsageSnapshot is a read-only projection of the day's accounting.
type UsageSnapshot struct {
	Day       string `json:"day"`
	TokensIn  int64  `json:"tokensIn"`
	TokensOut int64  `json:"tokensOut"`
	Requests  int64  `json:"requests"`
	DailyCap  int64  `json:"dailyCap"`
}

// RecordTokens adds real or estimated token costs to the day's totals,
// under the same mutex the admission checks use.
func (c *Controller) RecordTokens(promptTokens, completionTokens int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollDayLocked(c.now())
	c.usage.tokensIn += int64(promptTokens)
	c.usage.tokensOut += int64(completionTokens)
}

// Snapshot returns the current counters without side effects beyond the
// lazy day rollover.
func (c *Controller) Snapshot() UsageSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollDayLocked(c.now())
	return UsageSnapshot{
		Day:       c.usage.day,
		TokensIn:  c.usage.tokensIn,
		TokensOut: c.usage.tokensOut,
		Requests:  c.usage.requests,
		DailyCap:  c.cfg.DailyTokenCap,
	}
}

// rollDayLocked resets the counters when the calendar day has changed
// since the last observation. There is no background timer; every
// accessor calls this first under the mutex, so a rollover observed by
// one request is visible to all subsequent ones.
func (c *Controller) rollDayLocked(now time.Time) {
	day := now.UTC().Format(dayLayout)
	if c.usage.day == day {
		return
	}
	c.usage = usageCounters{day: day}
}

// EstimateTokens approximates the cost of a completion when the
// provider reports no usage: len(text)/4 tokens, split evenly between
// input and output. An approximation, not exact accounting.
func EstimateTokens(text string) (promptTokens, completionTokens int) {
	total := len(text) / 4
	half := total / 2
	return half, total - half
}
