package schedule

import (
	"time"

	"github.com/google/uuid"
)

// SessionState tracks the paint gesture: Idle -> Painting -> Idle.
type SessionState uint8

const (
	StateIdle SessionState = iota
	StatePainting
)

// PersistedInterval is an interval as the backend knows it, carrying
// the row identity needed to delete it.
type PersistedInterval struct {
	ID       uuid.UUID
	Interval Interval
}

// CommitPlan is the minimal set of backend operations that turns the
// persisted interval set into the pending grid's interval set. Deletes
// must be issued before creates: the backend has no transaction, and
// interleaving would momentarily present overlapping old and new rows.
type CommitPlan struct {
	Deletes []PlannedDelete
	Creates []PlannedCreate
}

type PlannedDelete struct {
	Column   int
	ID       uuid.UUID
	Interval Interval
}

type PlannedCreate struct {
	Column   int
	Interval Interval
}

func (p CommitPlan) Empty() bool {
	return len(p.Deletes) == 0 && len(p.Creates) == 0
}

// EditSession owns the pending grid during a paint session. It
// accumulates cell edits, and on Plan() diffs the pending grid against
// the last-known persisted intervals. Persistence itself is the
// caller's job; the session performs no I/O.
//
// For the exception editor, weekStart anchors columns to calendar
// dates and edits on past dates are silently ignored. The weekly
// editor passes a zero weekStart; its columns are weekdays with no
// date semantics.
type EditSession struct {
	grid      *TimeGrid
	baseline  [DaysPerWeek][]PersistedInterval
	weekStart time.Time
	today     time.Time
	state     SessionState
	target    CellState
}

// NewEditSession starts a session over a snapshot of the persisted
// intervals. The grid is rebuilt from the snapshot so the session
// starts clean.
func NewEditSession(persisted map[int][]PersistedInterval, weekStart, today time.Time) *EditSession {
	s := &EditSession{
		grid:      NewTimeGrid(),
		weekStart: weekStart,
		today:     today,
	}
	for col := 0; col < DaysPerWeek; col++ {
		s.baseline[col] = persisted[col]
		for _, p := range persisted[col] {
			s.grid.ProjectInterval(col, p.Interval, CellAvailable)
		}
	}
	return s
}

func (s *EditSession) State() SessionState {
	return s.state
}

func (s *EditSession) Grid() *TimeGrid {
	return s.grid
}

// columnEditable reports whether edits to a column are allowed. Only
// date-anchored sessions reject columns: past dates are read-only.
func (s *EditSession) columnEditable(col int) bool {
	if col < 0 || col >= DaysPerWeek {
		return false
	}
	if s.weekStart.IsZero() {
		return true
	}
	date := s.weekStart.AddDate(0, 0, col)
	return !truncateDay(date).Before(truncateDay(s.today))
}

// BeginPaint starts a gesture on a cell. The toggle target is the
// negation of the cell's value at this moment and stays fixed for the
// whole gesture: dragging paints every touched cell to this one value.
func (s *EditSession) BeginPaint(col, cell int) {
	if s.state != StateIdle || !s.columnEditable(col) {
		return
	}
	if s.grid.Cell(col, cell) == CellAvailable {
		s.target = CellNone
	} else {
		s.target = CellAvailable
	}
	s.state = StatePainting
	s.grid.SetCell(col, cell, s.target)
}

// ContinuePaint paints a cell touched mid-gesture to the fixed target.
// Cells outside the touched path are never modified.
func (s *EditSession) ContinuePaint(col, cell int) {
	if s.state != StatePainting || !s.columnEditable(col) {
		return
	}
	s.grid.SetCell(col, cell, s.target)
}

// SetColumnIntervals replaces a column of the pending grid with the
// projection of the given intervals, as when a client submits a whole
// edited schedule at once instead of streaming paint events. Ignored
// mid-gesture and on read-only past-date columns.
func (s *EditSession) SetColumnIntervals(col int, intervals []Interval) {
	if s.state != StateIdle || !s.columnEditable(col) {
		return
	}
	column := IntervalsToGrid(intervals)
	for cell, state := range column {
		s.grid.SetCell(col, cell, state)
	}
}

// EndPaint closes the gesture without persisting anything; saving is a
// separate explicit action.
func (s *EditSession) EndPaint() {
	s.state = StateIdle
}

// Discard drops all pending edits and rebuilds the grid from the
// persisted snapshot.
func (s *EditSession) Discard() {
	s.state = StateIdle
	s.grid = NewTimeGrid()
	for col := 0; col < DaysPerWeek; col++ {
		for _, p := range s.baseline[col] {
			s.grid.ProjectInterval(col, p.Interval, CellAvailable)
		}
	}
}

// Plan encodes every column of the pending grid to its minimal
// interval set and diffs it against the persisted baseline. Intervals
// present in both sets are left alone; removed ones become deletes,
// added ones become creates.
func (s *EditSession) Plan() CommitPlan {
	var plan CommitPlan
	for col := 0; col < DaysPerWeek; col++ {
		want := GridToIntervals(s.grid.Column(col))

		wanted := make(map[Interval]bool, len(want))
		for _, iv := range want {
			wanted[iv] = true
		}
		kept := make(map[Interval]bool, len(s.baseline[col]))

		for _, p := range s.baseline[col] {
			if wanted[p.Interval] && !kept[p.Interval] {
				kept[p.Interval] = true
				continue
			}
			plan.Deletes = append(plan.Deletes, PlannedDelete{Column: col, ID: p.ID, Interval: p.Interval})
		}
		for _, iv := range want {
			if !kept[iv] {
				plan.Creates = append(plan.Creates, PlannedCreate{Column: col, Interval: iv})
			}
		}
	}
	return plan
}

// ColumnDate resolves a column to its calendar date. ok is false for
// weekly sessions, whose columns are weekdays rather than dates.
func (s *EditSession) ColumnDate(col int) (time.Time, bool) {
	if s.weekStart.IsZero() || col < 0 || col >= DaysPerWeek {
		return time.Time{}, false
	}
	return s.weekStart.AddDate(0, 0, col), true
}
