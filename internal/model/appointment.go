package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// Appointment timestamps are stored in UTC; conversion to and from the
// clinic's local wall clock happens in the booking service, never in
// the schedule engine.
type Appointment struct {
	Base
	ClinicID     uuid.UUID         `db:"clinic_id" json:"clinic_id"`
	ProviderID   uuid.UUID         `db:"provider_id" json:"provider_id"`
	PatientName  string            `db:"patient_name" json:"patient_name"`
	PatientEmail string            `db:"patient_email" json:"patient_email"`
	StartTime    time.Time         `db:"start_time" json:"start_time"`
	EndTime      time.Time         `db:"end_time" json:"end_time"`
	Status       AppointmentStatus `db:"status" json:"status"`
	Notes        string            `db:"notes" json:"notes,omitempty"`
	CancelReason *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
}

type CreateAppointmentRequest struct {
	ClinicID     string `json:"clinic_id" validate:"required,uuid"`
	ProviderID   string `json:"provider_id" validate:"required,uuid"`
	PatientName  string `json:"patient_name" validate:"required,max=200"`
	PatientEmail string `json:"patient_email" validate:"required,email"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	Start        string `json:"start" validate:"required"`
	Notes        string `json:"notes" validate:"max=1000"`
}

type AppointmentFilters struct {
	ClinicID   uuid.UUID
	ProviderID uuid.UUID
	Status     AppointmentStatus
	StartDate  time.Time
	EndDate    time.Time
}
