package fetch

import (
	"crypto/rand"
	"math"
	"math/big"
	"time"

	"github.com/crawlscope/crawlscope/internal/analyzer"
)

// ExponentialRetryPolicy bounds retries with jittered exponential backoff.
type ExponentialRetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewExponentialRetryPolicy builds a policy; zero values fall back to
// 3 attempts, 250ms base, 5s cap.
func NewExponentialRetryPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) *ExponentialRetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = 250 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}
	return &ExponentialRetryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
	}
}

// MaxAttempts returns the attempt bound.
func (p *ExponentialRetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// Retryable reports whether the result represents a transient condition:
// a timeout, a connection-level failure, or a 5xx status. 4xx and malformed
// input are terminal.
func (p *ExponentialRetryPolicy) Retryable(res analyzer.FetchResult) bool {
	switch res.Error {
	case analyzer.ErrKindNetworkTimeout, analyzer.ErrKindNetworkError:
		return true
	case analyzer.ErrKindHTTPError:
		return res.StatusCode >= 500
	default:
		return false
	}
}

// Backoff returns the wait before attempt n+1 (0-indexed). The deterministic
// half doubles per attempt, so successive delays are strictly increasing
// until the cap, even at maximum jitter.
func (p *ExponentialRetryPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	jitter := p.randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

func (p *ExponentialRetryPolicy) randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
