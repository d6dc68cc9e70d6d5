package bar

import (
	"errors"
	"fmt"
	"sort"
)

var (
	errNoData        = errors.New("no bars loaded")
	errOffsetOutside = errors.New("offset outside stream range")
	errBadSegment    = errors.New("invalid segment count")
)

// Stream is a forward cursor over an ordered arena of immutable bars.
// Range views share the same backing arena, only the index bounds differ.
type Stream struct {
	bars   []Bar
	offset int
}

// NewStream sorts the bars by timestamp and returns a stream positioned
// before the first bar
func NewStream(bars []Bar) (*Stream, error) {
	if len(bars) == 0 {
		return nil, errNoData
	}
	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})
	return &Stream{bars: sorted}, nil
}

// Next returns the next bar and advances the cursor
func (s *Stream) Next() (Bar, bool) {
	if s.offset >= len(s.bars) {
		return Bar{}, false
	}
	b := s.bars[s.offset]
	s.offset++
	return b, true
}

// Latest returns the bar the cursor last passed
func (s *Stream) Latest() (Bar, error) {
	if s.offset == 0 {
		return Bar{}, errOffsetOutside
	}
	return s.bars[s.offset-1], nil
}

// Offset returns the number of bars consumed so far
func (s *Stream) Offset() int {
	return s.offset
}

// Len returns the total number of bars
func (s *Stream) Len() int {
	return len(s.bars)
}

// At returns the bar at index i without moving the cursor
func (s *Stream) At(i int) (Bar, error) {
	if i < 0 || i >= len(s.bars) {
		return Bar{}, fmt.Errorf("%w: %d of %d", errOffsetOutside, i, len(s.bars))
	}
	return s.bars[i], nil
}

// Reset rewinds the cursor to the start
func (s *Stream) Reset() {
	s.offset = 0
}

// First returns the earliest bar
func (s *Stream) First() Bar {
	return s.bars[0]
}

// Last returns the latest bar
func (s *Stream) Last() Bar {
	return s.bars[len(s.bars)-1]
}

// Segment is a contiguous half-open index range [From, To) of the stream
type Segment struct {
	From int
	To   int
}

// Segments splits the stream into n near-equal contiguous index ranges,
// used as rebalancing periods. The remainder bars go to the final segment.
func (s *Stream) Segments(n int) ([]Segment, error) {
	if n <= 0 || n > len(s.bars) {
		return nil, fmt.Errorf("%w: %d segments over %d bars", errBadSegment, n, len(s.bars))
	}
	size := len(s.bars) / n
	out := make([]Segment, 0, n)
	for i := 0; i < n; i++ {
		seg := Segment{From: i * size, To: (i + 1) * size}
		if i == n-1 {
			seg.To = len(s.bars)
		}
		out = append(out, seg)
	}
	return out, nil
}
