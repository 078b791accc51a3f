package schedule

import (
	"fmt"
	"sort"

	"github.com/jwalitptl/scheduling-api/pkg/errors"
)

// Interval is a half-open [Start, End) range of clinic-local minutes
// since midnight. This is the canonical persisted form: the grid is
// only ever a projection of a set of intervals.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewInterval validates start < end and range bounds.
func NewInterval(start, end TimeOfDay) (Interval, error) {
	iv := Interval{Start: start.Minutes(), End: end.Minutes()}
	if iv.End == 0 && end.Hour == 24 {
		iv.End = DayMinutes
	}
	if iv.Start >= iv.End {
		return Interval{}, errors.NewValidation(
			fmt.Sprintf("interval start %s must be before end %s", start, end))
	}
	if iv.Start < 0 || iv.End > DayMinutes {
		return Interval{}, errors.NewValidation("interval outside of day bounds")
	}
	return iv, nil
}

func (iv Interval) Duration() int {
	return iv.End - iv.Start
}

func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

func (iv Interval) Contains(minute int) bool {
	return minute >= iv.Start && minute < iv.End
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s-%s", MinutesToTime(iv.Start), MinutesToTime(iv.End))
}

// GridToIntervals scans a column top to bottom and emits the minimal
// ordered set of non-overlapping intervals covering its available
// cells: an interval opens at the first available cell after a gap,
// closes at the first unavailable cell after a run, and a still-open
// run flushes at the bottom with the last slot boundary as its end.
// Adjacent available cells always merge into one interval.
func GridToIntervals(column []CellState) []Interval {
	var out []Interval
	open := -1
	for c := 0; c < len(column) && c < CellsPerDay; c++ {
		if column[c] == CellAvailable {
			if open < 0 {
				open = c
			}
			continue
		}
		if open >= 0 {
			out = append(out, Interval{Start: open * CellMinutes, End: c * CellMinutes})
			open = -1
		}
	}
	if open >= 0 {
		out = append(out, Interval{Start: open * CellMinutes, End: CellsPerDay * CellMinutes})
	}
	return out
}

// IntervalsToGrid projects intervals onto a fresh column. Zero-length
// intervals after quantization are dropped, so the round trip through
// GridToIntervals is exact for quantized input.
func IntervalsToGrid(intervals []Interval) []CellState {
	column := make([]CellState, CellsPerDay)
	for _, iv := range intervals {
		start := quantizeDown(iv.Start)
		end := quantizeDown(iv.End)
		if end > DayMinutes {
			end = DayMinutes
		}
		if start >= end {
			continue
		}
		for c := start / CellMinutes; c < end/CellMinutes; c++ {
			column[c] = CellAvailable
		}
	}
	return column
}

// Normalize sorts, drops empty intervals, and merges overlapping or
// adjacent ones into the minimal equivalent set.
func Normalize(intervals []Interval) []Interval {
	var in []Interval
	for _, iv := range intervals {
		if iv.Start < iv.End {
			in = append(in, iv)
		}
	}
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool { return in[i].Start < in[j].Start })

	out := []Interval{in[0]}
	for _, iv := range in[1:] {
		last := &out[len(out)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Union returns the normalized union of two interval sets.
func Union(a, b []Interval) []Interval {
	merged := make([]Interval, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	return Normalize(merged)
}

// Subtract removes every range in b from a. Both inputs are normalized
// first; the result stays minimal and ordered.
func Subtract(a, b []Interval) []Interval {
	a = Normalize(a)
	b = Normalize(b)
	if len(a) == 0 || len(b) == 0 {
		return a
	}

	var out []Interval
	for _, iv := range a {
		remaining := []Interval{iv}
		for _, cut := range b {
			var next []Interval
			for _, r := range remaining {
				if !r.Overlaps(cut) {
					next = append(next, r)
					continue
				}
				if cut.Start > r.Start {
					next = append(next, Interval{Start: r.Start, End: cut.Start})
				}
				if cut.End < r.End {
					next = append(next, Interval{Start: cut.End, End: r.End})
				}
			}
			remaining = next
		}
		out = append(out, remaining...)
	}
	return Normalize(out)
}
