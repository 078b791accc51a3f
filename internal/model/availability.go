package model

import (
	"time"

	"github.com/google/uuid"
)

// WeeklyAvailabilityRule is one recurring weekly window for a
// (provider, clinic) pair. Minute offsets are clinic-local, quantized
// to 15 minutes. Rules are replaced wholesale on every schedule save,
// never patched.
type WeeklyAvailabilityRule struct {
	Base
	ProviderID  uuid.UUID `db:"provider_id" json:"provider_id"`
	ClinicID    uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Weekday     int       `db:"weekday" json:"weekday"` // 0=Sunday .. 6=Saturday
	StartMinute int       `db:"start_minute" json:"start_minute"`
	EndMinute   int       `db:"end_minute" json:"end_minute"`
}

// AvailabilityException is one date-bound deviation from the recurring
// schedule: unavailability carved out of a regular block, or one-off
// extra hours when IsAvailable is true. Rows are individually
// addressable and are created/deleted one at a time.
type AvailabilityException struct {
	Base
	ProviderID  uuid.UUID `db:"provider_id" json:"provider_id"`
	ClinicID    uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Date        time.Time `db:"date" json:"date"`
	StartMinute int       `db:"start_minute" json:"start_minute"`
	EndMinute   int       `db:"end_minute" json:"end_minute"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
	Note        *string   `db:"note" json:"note,omitempty"`
}

// ScheduleBlock is one window in a replace-schedule request.
type ScheduleBlock struct {
	Weekday int    `json:"weekday" validate:"min=0,max=6"`
	Start   string `json:"start" validate:"required"`
	End     string `json:"end" validate:"required"`
}

type ReplaceScheduleRequest struct {
	ClinicID string          `json:"clinic_id" validate:"required,uuid"`
	Blocks   []ScheduleBlock `json:"blocks" validate:"dive"`
}

// ExceptionBlockRequest is one override row in a replace-exceptions
// request. Dates outside the request's week window are rejected.
type ExceptionBlockRequest struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Start       string `json:"start" validate:"required"`
	End         string `json:"end" validate:"required"`
	IsAvailable bool   `json:"is_available"`
	Note        string `json:"note" validate:"max=500"`
}

type ReplaceExceptionsRequest struct {
	ClinicID  string                  `json:"clinic_id" validate:"required,uuid"`
	WeekStart string                  `json:"week_start" validate:"required,datetime=2006-01-02"`
	Blocks    []ExceptionBlockRequest `json:"blocks" validate:"dive"`
}

// WeeklySchedule is the read model for the schedule editor: the
// persisted rules plus their grid projection.
type WeeklySchedule struct {
	ProviderID uuid.UUID                 `json:"provider_id"`
	ClinicID   uuid.UUID                 `json:"clinic_id"`
	Rules      []*WeeklyAvailabilityRule `json:"rules"`
	Grid       [][]int                   `json:"grid"` // 7 columns x 96 cells
}

// WeekExceptions is the read model for the exception editor.
type WeekExceptions struct {
	ProviderID uuid.UUID                `json:"provider_id"`
	ClinicID   uuid.UUID                `json:"clinic_id"`
	WeekStart  string                   `json:"week_start"`
	Exceptions []*AvailabilityException `json:"exceptions"`
	Grid       [][]int                  `json:"grid"`
}
