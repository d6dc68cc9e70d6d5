// Package signal exposes classifier probabilities to the control loop on the
// bar stream's time axis. Alignment is computed once up front so models
// trained on a subset range can drive a backtest over the full series
// without per-bar index arithmetic.
package signal

import (
	"errors"
	"fmt"
	"time"

	"stratsim/internal/bar"
)

var (
	// ErrMisaligned is returned when a probability series cannot be mapped
	// onto the bar stream's time axis. The loop cannot proceed with
	// misaligned signals.
	ErrMisaligned = errors.New("signal series misaligned with bar stream")
	errLengths    = errors.New("timestamps and probabilities differ in length")
	errEmpty      = errors.New("empty signal series")
	errUnaligned  = errors.New("series not aligned, call Align first")
)

// Provider is the external classifier surface. Given a feature vector for a
// bar it returns the predicted class and the class probability vector; the
// core only reads the probability at the configured minority class index.
type Provider interface {
	Predict(features []float64) (class int, probs []float64, err error)
}

// Series holds one classifier's per-bar probabilities on its own timestamp
// axis, plus the bar-stream offset of its first entry once aligned.
type Series struct {
	times   []time.Time
	probs   []float64
	start   int
	aligned bool
}

// NewSeries builds an unaligned series. Timestamps must be ascending and
// match the probabilities in length.
func NewSeries(times []time.Time, probs []float64) (*Series, error) {
	if len(times) != len(probs) {
		return nil, fmt.Errorf("%w: %d vs %d", errLengths, len(times), len(probs))
	}
	if len(times) == 0 {
		return nil, errEmpty
	}
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			return nil, fmt.Errorf("%w: timestamp %v not after %v", ErrMisaligned, times[i], times[i-1])
		}
	}
	return &Series{times: times, probs: probs}, nil
}

// FromProvider materialises a series by running the classifier over
// pre-built feature vectors, reading the minority class probability.
func FromProvider(p Provider, times []time.Time, features [][]float64, minorityIndex int) (*Series, error) {
	if len(times) != len(features) {
		return nil, fmt.Errorf("%w: %d vs %d", errLengths, len(times), len(features))
	}
	probs := make([]float64, len(features))
	for i := range features {
		_, pv, err := p.Predict(features[i])
		if err != nil {
			return nil, fmt.Errorf("predicting bar %d: %w", i, err)
		}
		if minorityIndex < 0 || minorityIndex >= len(pv) {
			return nil, fmt.Errorf("minority class index %d outside probability vector of %d", minorityIndex, len(pv))
		}
		probs[i] = pv[minorityIndex]
	}
	return NewSeries(times, probs)
}

// Align maps the series onto the bar stream, locating the stream offset of
// the first probability and verifying the series tracks the stream in
// lock-step from there
func (s *Series) Align(bars *bar.Stream) error {
	start := -1
	for i := 0; i < bars.Len(); i++ {
		b, err := bars.At(i)
		if err != nil {
			return err
		}
		if b.Time.Equal(s.times[0]) {
			start = i
			break
		}
	}
	if start < 0 {
		return fmt.Errorf("%w: first signal at %v not present in stream", ErrMisaligned, s.times[0])
	}
	if start+len(s.times) > bars.Len() {
		return fmt.Errorf("%w: %d signals from offset %d overrun %d bars", ErrMisaligned, len(s.times), start, bars.Len())
	}
	for i := range s.times {
		b, err := bars.At(start + i)
		if err != nil {
			return err
		}
		if !b.Time.Equal(s.times[i]) {
			return fmt.Errorf("%w: signal %v vs bar %v at offset %d", ErrMisaligned, s.times[i], b.Time, start+i)
		}
	}
	s.start = start
	s.aligned = true
	return nil
}

// At returns the probability for the given bar-stream offset. The second
// return is false outside the series' covered range.
func (s *Series) At(barOffset int) (float64, bool) {
	if !s.aligned {
		return 0, false
	}
	i := barOffset - s.start
	if i < 0 || i >= len(s.probs) {
		return 0, false
	}
	return s.probs[i], true
}

// Start returns the first covered bar-stream offset
func (s *Series) Start() (int, error) {
	if !s.aligned {
		return 0, errUnaligned
	}
	return s.start, nil
}

// End returns one past the last covered bar-stream offset
func (s *Series) End() (int, error) {
	if !s.aligned {
		return 0, errUnaligned
	}
	return s.start + len(s.probs), nil
}
