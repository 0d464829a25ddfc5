package editor

import (
	"encoding/json"
	"fmt"
	"math"
)

// Range is a [Start, End) interval in seconds.
type Range struct {
	Start float64
	End   float64
}

// UnmarshalJSON accepts the [start, end] pair form sent by clients.
func (r *Range) UnmarshalJSON(b []byte) error {
	var pair []float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("range must have exactly two numbers, got %d", len(pair))
	}
	r.Start, r.End = pair[0], pair[1]
	return nil
}

// MarshalJSON emits the [start, end] pair form.
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Start, r.End})
}

// ParseRanges decodes a JSON array of [start, end] pairs.
func ParseRanges(raw string) ([]Range, error) {
	var rs []Range
	if err := json.Unmarshal([]byte(raw), &rs); err != nil {
		return nil, fmt.Errorf("%w: ranges must be a JSON array of [start, end] pairs", ErrInvalidInput)
	}
	return rs, nil
}

// ClampRanges bounds every range to [0, duration] and drops those left empty.
// A duration of 0 means unknown, in which case only the lower bound applies.
func ClampRanges(ranges []Range, duration float64) []Range {
	out := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if math.IsNaN(r.Start) || math.IsNaN(r.End) {
			continue
		}
		start := math.Max(r.Start, 0)
		end := r.End
		if duration > 0 {
			end = math.Min(end, duration)
			start = math.Min(start, duration)
		}
		if end <= start {
			continue
		}
		out = append(out, Range{Start: start, End: end})
	}
	return out
}
