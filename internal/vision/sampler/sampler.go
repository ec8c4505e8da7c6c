// Package sampler decides which frame timestamps are forwarded for analysis
// at a configured frequency.
package sampler

// RateSampler admits timestamps at most once per 1/rate seconds. The first
// call after construction or Reset always samples. Rate changes take effect
// on the next ShouldSample call.
//
// Not safe for concurrent use; the drain loop is the only caller.
type RateSampler struct {
	rate        float64
	lastSampled float64
	sampled     bool
}

// New creates a sampler admitting timestamps at the given frequency (Hz).
func New(rate float64) *RateSampler {
	return &RateSampler{rate: rate}
}

// ShouldSample reports whether the frame at timestamp t (seconds) should be
// analyzed. Returns true on the very first call, then true whenever at least
// 1/rate seconds have elapsed since the last sampled timestamp. The sampled
// baseline only advances on true.
func (s *RateSampler) ShouldSample(t float64) bool {
	if !s.sampled {
		s.sampled = true
		s.lastSampled = t
		return true
	}
	if s.rate <= 0 {
		return false
	}
	if t-s.lastSampled >= 1.0/s.rate {
		s.lastSampled = t
		return true
	}
	return false
}

// Reset clears the ever-sampled flag so the next call samples unconditionally.
func (s *RateSampler) Reset() {
	s.sampled = false
	s.lastSampled = 0
}

// SetRate changes the sampling frequency (Hz), effective on the next call.
func (s *RateSampler) SetRate(rate float64) {
	s.rate = rate
}

// Rate returns the current sampling frequency (Hz).
func (s *RateSampler) Rate() float64 {
	return s.rate
}
