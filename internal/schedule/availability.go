package schedule

import (
	"time"

	"github.com/google/uuid"
)

// ExceptionBlock is one date-bound override: either carving
// unavailability out of the recurring schedule or granting one-off
// extra availability. Blocks are individually addressable rows on the
// backend, never merged server-side.
type ExceptionBlock struct {
	ID        uuid.UUID
	Interval  Interval
	Available bool
	Note      string
}

// AvailabilityStore is an in-memory snapshot of one provider's
// recurring weekly rules and date exceptions for a single clinic. It
// answers point queries and produces the open set for a date; it never
// performs I/O.
type AvailabilityStore struct {
	rules      [DaysPerWeek][]Interval
	exceptions map[string][]ExceptionBlock
}

func NewAvailabilityStore() *AvailabilityStore {
	return &AvailabilityStore{
		exceptions: make(map[string][]ExceptionBlock),
	}
}

func dateKey(date time.Time) string {
	return date.Format("2006-01-02")
}

// AddRule registers a recurring weekly window. Overlapping rules for
// the same weekday are tolerated and treated as a union.
func (s *AvailabilityStore) AddRule(wd time.Weekday, iv Interval) {
	col := WeekdayColumn(wd)
	s.rules[col] = append(s.rules[col], iv)
}

// AddException registers a date-bound override block.
func (s *AvailabilityStore) AddException(date time.Time, block ExceptionBlock) {
	key := dateKey(date)
	s.exceptions[key] = append(s.exceptions[key], block)
}

// RulesFor returns the normalized recurring windows for a weekday.
func (s *AvailabilityStore) RulesFor(wd time.Weekday) []Interval {
	return Normalize(s.rules[WeekdayColumn(wd)])
}

// ExceptionsOn returns the override blocks recorded for a date.
func (s *AvailabilityStore) ExceptionsOn(date time.Time) []ExceptionBlock {
	return s.exceptions[dateKey(date)]
}

// IsRegularlyAvailable reports whether some recurring rule for the
// date's weekday covers the given time, ignoring exceptions.
func (s *AvailabilityStore) IsRegularlyAvailable(date time.Time, t TimeOfDay) bool {
	m := t.Minutes()
	for _, iv := range s.rules[WeekdayColumn(date.Weekday())] {
		if iv.Contains(m) {
			return true
		}
	}
	return false
}

// EffectiveAvailability applies exception precedence cell by cell: an
// unavailable exception always removes availability, an available one
// always grants it, and where no exception touches the time the
// recurring rule stands.
func (s *AvailabilityStore) EffectiveAvailability(date time.Time, t TimeOfDay) bool {
	m := t.Minutes()
	for _, block := range s.exceptions[dateKey(date)] {
		if !block.Available && block.Interval.Contains(m) {
			return false
		}
	}
	for _, block := range s.exceptions[dateKey(date)] {
		if block.Available && block.Interval.Contains(m) {
			return true
		}
	}
	return s.IsRegularlyAvailable(date, t)
}

// OpenSet computes the nominal availability for a date as interval set
// algebra: union of recurring windows, minus unavailable exceptions,
// plus available exceptions. Equivalent to EffectiveAvailability
// evaluated per cell.
func (s *AvailabilityStore) OpenSet(date time.Time) []Interval {
	open := Normalize(s.rules[WeekdayColumn(date.Weekday())])

	var removed, granted []Interval
	for _, block := range s.exceptions[dateKey(date)] {
		if block.Available {
			granted = append(granted, block.Interval)
		} else {
			removed = append(removed, block.Interval)
		}
	}

	open = Subtract(open, removed)
	// An unavailable exception beats an overlapping available one, so
	// grants are trimmed before the final union.
	granted = Subtract(granted, removed)
	return Union(open, granted)
}

// WeekGrid projects the recurring schedule and one week of exceptions
// onto a tri-state grid for the exception editor. Column 0 is weekStart.
func (s *AvailabilityStore) WeekGrid(weekStart time.Time) *TimeGrid {
	g := NewTimeGrid()
	for day := 0; day < DaysPerWeek; day++ {
		date := weekStart.AddDate(0, 0, day)
		for _, iv := range s.rules[WeekdayColumn(date.Weekday())] {
			g.ProjectInterval(day, iv, CellAvailable)
		}
		// Unavailable blocks are drawn last so they win the cell.
		for _, block := range s.ExceptionsOn(date) {
			if block.Available {
				g.ProjectException(day, block.Interval, true)
			}
		}
		for _, block := range s.ExceptionsOn(date) {
			if !block.Available {
				g.ProjectException(day, block.Interval, false)
			}
		}
	}
	return g
}

// WeeklyGrid projects only the recurring schedule, for the weekly
// editor. Columns are weekdays, Sunday first.
func (s *AvailabilityStore) WeeklyGrid() *TimeGrid {
	g := NewTimeGrid()
	for col := 0; col < DaysPerWeek; col++ {
		for _, iv := range s.rules[col] {
			g.ProjectInterval(col, iv, CellAvailable)
		}
	}
	return g
}
