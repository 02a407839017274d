package ai

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"umbra/config"
)

// Limiter enforces a provider quota: requests and tokens per minute through token
// buckets, requests per day through a counter that resets at local midnight.
type Limiter struct {
	requests *rate.Limiter
	tokens   *rate.Limiter
	rpd      int

	mu   sync.Mutex
	day  string
	used int
	now  func() time.Time
}

func NewLimiter(q config.Quota) *Limiter {
	return &Limiter{
		requests: perMinute(q.RPM),
		tokens:   perMinute(q.TPM),
		rpd:      q.RPD,
		now:      time.Now,
	}
}

func perMinute(n int) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(float64(n)/60.0), n)
}

// Wait blocks until one request carrying the given token estimate fits the quota.
func (l *Limiter) Wait(ctx context.Context, tokens int) error {
	if l == nil {
		return nil
	}
	if err := l.takeDaily(); err != nil {
		return err
	}
	if err := l.requests.Wait(ctx); err != nil {
		return err
	}
	if l.tokens.Limit() == rate.Inf {
		return nil
	}
	// a single oversized prompt is allowed through once the bucket is full
	if b := l.tokens.Burst(); tokens > b {
		tokens = b
	}
	if tokens < 1 {
		tokens = 1
	}
	return l.tokens.WaitN(ctx, tokens)
}

func (l *Limiter) takeDaily() error {
	if l.rpd <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if day := l.now().Format("2006-01-02"); day != l.day {
		l.day = day
		l.used = 0
	}
	if l.used >= l.rpd {
		return ErrDailyQuota
	}
	l.used++
	return nil
}

// RemainingToday reports the unused daily requests, -1 when unlimited.
func (l *Limiter) RemainingToday() int {
	if l == nil || l.rpd <= 0 {
		return -1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.now().Format("2006-01-02") != l.day {
		return l.rpd
	}
	return l.rpd - l.used
}

// EstimateTokens approximates the token count of s at four characters per token.
func EstimateTokens(s string) int {
	n := len(s) / 4
	if n < 1 {
		n = 1
	}
	return n
}
