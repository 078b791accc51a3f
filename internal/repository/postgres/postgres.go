package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/scheduling-api/internal/repository"
)

type availabilityRepository struct {
	db *sqlx.DB
}

type appointmentRepository struct {
	db *sqlx.DB
}

type clinicRepository struct {
	db *sqlx.DB
}

type providerRepository struct {
	db *sqlx.DB
}

func NewAvailabilityRepository(db *sqlx.DB) repository.AvailabilityRepository {
	return &availabilityRepository{db: db}
}

func NewExceptionPurger(db *sqlx.DB) repository.ExceptionPurger {
	return &availabilityRepository{db: db}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func NewClinicRepository(db *sqlx.DB) repository.ClinicRepository {
	return &clinicRepository{db: db}
}

func NewProviderRepository(db *sqlx.DB) repository.ProviderRepository {
	return &providerRepository{db: db}
}
