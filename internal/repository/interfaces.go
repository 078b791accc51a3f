package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

// All repository interfaces in one file
type (
	// AvailabilityRepository persists recurring rules and date
	// exceptions. The backend offers no multi-row transaction: replace
	// flows are implemented by callers as individual deletes followed
	// by individual creates.
	AvailabilityRepository interface {
		ListRules(ctx context.Context, providerID, clinicID uuid.UUID) ([]*model.WeeklyAvailabilityRule, error)
		CreateRule(ctx context.Context, rule *model.WeeklyAvailabilityRule) error
		DeleteRule(ctx context.Context, id uuid.UUID) error

		ListExceptions(ctx context.Context, providerID, clinicID uuid.UUID, from, to time.Time) ([]*model.AvailabilityException, error)
		CreateException(ctx context.Context, exc *model.AvailabilityException) error
		DeleteException(ctx context.Context, id uuid.UUID) error
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		ListForProviderRange(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]*model.Appointment, error)
		CheckConflicts(ctx context.Context, providerID uuid.UUID, startTime, endTime time.Time, excludeID *uuid.UUID) (bool, error)
	}

	// ExceptionPurger is the retention worker's view of exception
	// storage. Past-date exception rows never affect slot resolution
	// and are deleted in bulk after a retention window.
	ExceptionPurger interface {
		DeleteExceptionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	ClinicRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
	}

	ProviderRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Provider, error)
	}
)
