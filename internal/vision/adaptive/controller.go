// Package adaptive implements the hysteresis state machine that lowers the
// effective sampling frequency while the queue is shedding frames and
// restores it once the backpressure ratio has recovered and a cooldown has
// elapsed.
package adaptive

import (
	"time"

	"github.com/podium-data/delivery.report/internal/timeutil"
)

// Mode is the controller's hysteresis state.
type Mode int

const (
	// ModeNormal samples at the configured base rate.
	ModeNormal Mode = iota
	// ModeAdaptive samples at half the base rate while overloaded.
	ModeAdaptive
)

// String returns the mode name for logs and reports.
func (m Mode) String() string {
	if m == ModeAdaptive {
		return "adaptive"
	}
	return "normal"
}

// Controller adjusts the effective sampling rate from the backpressure
// ratio. Evaluate is called by the drain loop only when it is about to
// process a dequeued frame, so a starved loop freezes in its current mode.
//
// Not safe for concurrent use; the drain loop is the only caller.
type Controller struct {
	baseRate          float64
	overloadThreshold float64
	recoveryThreshold float64
	cooldown          time.Duration
	clock             timeutil.Clock

	mode            Mode
	enteredAdaptive time.Time
}

// Config holds the controller parameters.
type Config struct {
	// BaseRate is the configured sampling frequency in Hz.
	BaseRate float64
	// OverloadThreshold is the backpressure ratio above which the controller
	// enters adaptive mode.
	OverloadThreshold float64
	// RecoveryThreshold is the ratio below which recovery becomes possible.
	RecoveryThreshold float64
	// Cooldown is the minimum time spent in adaptive mode before recovery.
	Cooldown time.Duration
	// Clock supplies time for the cooldown. Defaults to the real clock.
	Clock timeutil.Clock
}

// New creates a controller in normal mode.
func New(cfg Config) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Controller{
		baseRate:          cfg.BaseRate,
		overloadThreshold: cfg.OverloadThreshold,
		recoveryThreshold: cfg.RecoveryThreshold,
		cooldown:          cfg.Cooldown,
		clock:             cfg.Clock,
	}
}

// Evaluate re-runs the hysteresis transition for the given backpressure
// ratio and returns the effective sampling rate: the base rate in normal
// mode, half of it in adaptive mode.
//
// Normal→Adaptive fires when ratio exceeds the overload threshold.
// Adaptive→Normal fires only when ratio has fallen below the recovery
// threshold AND the cooldown has elapsed since entering adaptive mode. The
// gap between the two thresholds is what prevents mode oscillation.
func (c *Controller) Evaluate(ratio float64) float64 {
	switch c.mode {
	case ModeNormal:
		if ratio > c.overloadThreshold {
			c.mode = ModeAdaptive
			c.enteredAdaptive = c.clock.Now()
		}
	case ModeAdaptive:
		if ratio < c.recoveryThreshold && c.clock.Since(c.enteredAdaptive) >= c.cooldown {
			c.mode = ModeNormal
		}
	}
	return c.EffectiveRate()
}

// EffectiveRate returns the sampling rate for the current mode without
// re-evaluating the transition.
func (c *Controller) EffectiveRate() float64 {
	if c.mode == ModeAdaptive {
		return c.baseRate / 2
	}
	return c.baseRate
}

// Mode returns the current hysteresis state.
func (c *Controller) Mode() Mode {
	return c.mode
}
