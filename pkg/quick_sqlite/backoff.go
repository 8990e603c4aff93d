package quick_sqlite

import (
	"fmt"
	"time"
)

const (
	BackoffFixed  = "fixed"
	BackoffLinear = "linear"
)

// BackoffPolicy returns how long to wait after a failed reconnection
// attempt. attempt starts at 1.
type BackoffPolicy interface {
	Delay(attempt int) time.Duration
}

// FixedBackoff waits the same interval after every attempt.
type FixedBackoff struct {
	Interval time.Duration
}

func (b FixedBackoff) Delay(int) time.Duration {
	return b.Interval
}

// LinearBackoff waits attempt * Step.
type LinearBackoff struct {
	Step time.Duration
}

func (b LinearBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * b.Step
}

// BackoffConfig selects a BackoffPolicy.
type BackoffConfig struct {
	// Kind is BackoffFixed (default) or BackoffLinear.
	Kind string
	// Interval is the fixed delay or the linear step. Zero picks
	// reconnectLimit seconds for fixed and one second for linear.
	Interval time.Duration
}

// Policy builds the policy for a connection allowed reconnectLimit attempts.
func (c BackoffConfig) Policy(reconnectLimit int) (BackoffPolicy, error) {
	if c.Interval < 0 {
		return nil, fmt.Errorf("backoff interval must not be negative, got %s", c.Interval)
	}

	switch c.Kind {
	case "", BackoffFixed:
		interval := c.Interval
		if interval == 0 {
			interval = time.Duration(reconnectLimit) * time.Second
		}
		return FixedBackoff{Interval: interval}, nil
	case BackoffLinear:
		step := c.Interval
		if step == 0 {
			step = time.Second
		}
		return LinearBackoff{Step: step}, nil
	default:
		return nil, fmt.Errorf("unknown backoff kind %q", c.Kind)
	}
}
