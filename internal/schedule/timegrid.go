package schedule

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwalitptl/scheduling-api/pkg/errors"
)

// Grid geometry. One column per weekday, one row per 15-minute cell.
const (
	CellMinutes = 15
	CellsPerDay = 24 * 60 / CellMinutes
	DaysPerWeek = 7
	DayMinutes  = 24 * 60
)

// CellState distinguishes the weekly editor (available / none) from the
// exception editor, which additionally shows exception-unavailable cells.
type CellState uint8

const (
	CellNone CellState = iota
	CellAvailable
	CellBlocked
)

// TimeOfDay is a clinic-local wall-clock time. All schedule data is
// quantized to 15-minute boundaries before it reaches the grid.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24-hour clock).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, errors.NewValidation(fmt.Sprintf("invalid time %q, expected HH:MM", s))
	}
	if t.Hour < 0 || t.Hour > 24 || t.Minute < 0 || t.Minute > 59 || (t.Hour == 24 && t.Minute != 0) {
		return TimeOfDay{}, errors.NewValidation(fmt.Sprintf("time %q out of range", s))
	}
	return t, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// MarshalJSON renders the time as "HH:MM" on the wire.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", t.String())), nil
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Minutes returns the offset from midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// MinutesToTime is the inverse of Minutes.
func MinutesToTime(m int) TimeOfDay {
	return TimeOfDay{Hour: m / 60, Minute: m % 60}
}

// quantizeDown floors a minute offset to the cell boundary. Aligned
// inputs pass through unchanged; unaligned ones are truncated.
func quantizeDown(m int) int {
	if m < 0 {
		return 0
	}
	if m > DayMinutes {
		m = DayMinutes
	}
	return m - m%CellMinutes
}

// TimeGrid is the ephemeral editing surface: one week of 15-minute
// cells. It is rebuilt from persisted intervals on every fetch and
// discarded after a successful commit.
type TimeGrid struct {
	cells [DaysPerWeek][CellsPerDay]CellState
}

func NewTimeGrid() *TimeGrid {
	return &TimeGrid{}
}

func (g *TimeGrid) Cell(day, cell int) CellState {
	if day < 0 || day >= DaysPerWeek || cell < 0 || cell >= CellsPerDay {
		return CellNone
	}
	return g.cells[day][cell]
}

func (g *TimeGrid) SetCell(day, cell int, s CellState) {
	if day < 0 || day >= DaysPerWeek || cell < 0 || cell >= CellsPerDay {
		return
	}
	g.cells[day][cell] = s
}

// Column returns a copy of one day's cells.
func (g *TimeGrid) Column(day int) []CellState {
	col := make([]CellState, CellsPerDay)
	if day >= 0 && day < DaysPerWeek {
		copy(col, g.cells[day][:])
	}
	return col
}

// ProjectInterval marks every cell that falls fully or partially inside
// [iv.Start, iv.End). An interval ending exactly at midnight covers the
// final 23:45 cell and nothing past it.
func (g *TimeGrid) ProjectInterval(day int, iv Interval, s CellState) {
	if day < 0 || day >= DaysPerWeek {
		return
	}
	start := quantizeDown(iv.Start) / CellMinutes
	end := iv.End
	if end > DayMinutes {
		end = DayMinutes
	}
	// A partially covered trailing cell still counts as occupied.
	last := (end + CellMinutes - 1) / CellMinutes
	for c := start; c < last && c < CellsPerDay; c++ {
		g.cells[day][c] = s
	}
}

// ProjectException draws an exception block. Unavailable blocks take
// priority over any availability already drawn in the same cells.
func (g *TimeGrid) ProjectException(day int, iv Interval, available bool) {
	if available {
		start := quantizeDown(iv.Start) / CellMinutes
		end := iv.End
		if end > DayMinutes {
			end = DayMinutes
		}
		last := (end + CellMinutes - 1) / CellMinutes
		for c := start; c < last && c < CellsPerDay; c++ {
			if g.cells[day][c] != CellBlocked {
				g.cells[day][c] = CellAvailable
			}
		}
		return
	}
	g.ProjectInterval(day, iv, CellBlocked)
}

// WeekdayColumn maps a Go weekday to a grid column (Sunday = 0).
func WeekdayColumn(wd time.Weekday) int {
	return int(wd)
}
