package dice

import (
	"fmt"
	"sync"
)

// Sequence is a Source that replays a fixed list of samples, wrapping around
// when exhausted. It exists so reward outcomes can be asserted exactly.
type Sequence struct {
	mu      sync.Mutex
	samples []float64
	next    int
	draws   int
}

// NewSequence builds a Sequence over samples.
//
// Precondition: samples is non-empty and every sample is in [0, 1).
// Postcondition: Returns an error describing the first invalid sample.
func NewSequence(samples ...float64) (*Sequence, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("dice: sequence needs at least one sample")
	}
	for i, s := range samples {
		if s < 0 || s >= 1 {
			return nil, fmt.Errorf("dice: sample[%d] = %v is outside [0, 1)", i, s)
		}
	}
	return &Sequence{samples: append([]float64(nil), samples...)}, nil
}

// MustSequence is NewSequence that panics on invalid input. Test helper.
func MustSequence(samples ...float64) *Sequence {
	s, err := NewSequence(samples...)
	if err != nil {
		panic(err)
	}
	return s
}

// Float64 returns the next sample.
func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.samples[s.next]
	s.next = (s.next + 1) % len(s.samples)
	s.draws++
	return v
}

// Draws returns how many samples have been consumed.
func (s *Sequence) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draws
}
