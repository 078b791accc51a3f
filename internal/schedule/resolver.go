package schedule

import (
	"time"
)

const slotMinutes = 60

// DisplaySlot is a concrete, bookable window derived from the free
// set. Slots are always exactly one hour and start on an hour
// boundary; they are generated fresh per request and never persisted.
type DisplaySlot struct {
	BlockStart TimeOfDay `json:"block_start"`
	BlockEnd   TimeOfDay `json:"block_end"`
	Start      TimeOfDay `json:"start"`
	End        TimeOfDay `json:"end"`
}

// ResolveSlots computes the bookable windows for one provider and
// date. It is a pure function over an already-fetched snapshot: the
// open set for the date, minus booked appointment intervals, cut into
// hour-aligned one-hour slots. Dates before today in the clinic's
// calendar never yield slots, and a nil store or zero date resolves to
// an empty list rather than an error.
//
// The first slot of a free interval starts at the next hour boundary
// at or after the interval start; rounding down instead would offer
// time that is not actually free. A trailing remainder shorter than a
// full hour is not emitted: only whole-hour appointments are bookable.
func ResolveSlots(store *AvailabilityStore, date time.Time, booked []Interval, today time.Time) []DisplaySlot {
	if store == nil || date.IsZero() {
		return []DisplaySlot{}
	}
	if truncateDay(date).Before(truncateDay(today)) {
		return []DisplaySlot{}
	}

	free := Subtract(store.OpenSet(date), booked)

	slots := make([]DisplaySlot, 0)
	for _, block := range free {
		start := block.Start
		if rem := start % slotMinutes; rem != 0 {
			start += slotMinutes - rem
		}
		for t := start; t+slotMinutes <= block.End; t += slotMinutes {
			slots = append(slots, DisplaySlot{
				BlockStart: MinutesToTime(block.Start),
				BlockEnd:   MinutesToTime(block.End),
				Start:      MinutesToTime(t),
				End:        MinutesToTime(t + slotMinutes),
			})
		}
	}
	return slots
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
