package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProjectIntervalMarksPartialCells(t *testing.T) {
	g := NewTimeGrid()
	// 09:00-09:20 touches two cells even though the second is partial.
	g.ProjectInterval(1, iv(540, 560), CellAvailable)

	assert.Equal(t, CellAvailable, g.Cell(1, 36))
	assert.Equal(t, CellAvailable, g.Cell(1, 37))
	assert.Equal(t, CellNone, g.Cell(1, 38))
}

func TestProjectIntervalMidnightClip(t *testing.T) {
	g := NewTimeGrid()
	g.ProjectInterval(0, iv(1380, 1440), CellAvailable)

	assert.Equal(t, CellAvailable, g.Cell(0, 95))
	// Nothing bleeds into the next column.
	for c := 0; c < CellsPerDay; c++ {
		assert.Equal(t, CellNone, g.Cell(1, c))
	}
}

func TestProjectExceptionBlockedWins(t *testing.T) {
	g := NewTimeGrid()
	g.ProjectInterval(2, iv(540, 1020), CellAvailable)
	g.ProjectException(2, iv(720, 780), false)
	// An available exception drawn over a blocked cell must not undo it.
	g.ProjectException(2, iv(720, 780), true)

	assert.Equal(t, CellBlocked, g.Cell(2, 48))
	assert.Equal(t, CellAvailable, g.Cell(2, 47))
}

func TestSetCellIgnoresOutOfRange(t *testing.T) {
	g := NewTimeGrid()
	g.SetCell(-1, 0, CellAvailable)
	g.SetCell(0, CellsPerDay, CellAvailable)
	g.SetCell(DaysPerWeek, 0, CellAvailable)

	for day := 0; day < DaysPerWeek; day++ {
		for c := 0; c < CellsPerDay; c++ {
			assert.Equal(t, CellNone, g.Cell(day, c))
		}
	}
}

func TestWeekdayColumn(t *testing.T) {
	assert.Equal(t, 0, WeekdayColumn(time.Sunday))
	assert.Equal(t, 1, WeekdayColumn(time.Monday))
	assert.Equal(t, 6, WeekdayColumn(time.Saturday))
}

func TestMinutesRoundTrip(t *testing.T) {
	for m := 0; m < DayMinutes; m += CellMinutes {
		assert.Equal(t, m, MinutesToTime(m).Minutes())
	}
}
