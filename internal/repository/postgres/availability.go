package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

func (r *availabilityRepository) ListRules(ctx context.Context, providerID, clinicID uuid.UUID) ([]*model.WeeklyAvailabilityRule, error) {
	query := `
		SELECT id, provider_id, clinic_id, weekday, start_minute, end_minute,
			   created_at, updated_at
		FROM availability_rules
		WHERE provider_id = $1 AND clinic_id = $2
		ORDER BY weekday, start_minute
	`
	var rules []*model.WeeklyAvailabilityRule
	err := r.db.SelectContext(ctx, &rules, query, providerID, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability rules: %w", err)
	}
	return rules, nil
}

func (r *availabilityRepository) CreateRule(ctx context.Context, rule *model.WeeklyAvailabilityRule) error {
	query := `
		INSERT INTO availability_rules (
			id, provider_id, clinic_id, weekday, start_minute, end_minute,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		rule.ID,
		rule.ProviderID,
		rule.ClinicID,
		rule.Weekday,
		rule.StartMinute,
		rule.EndMinute,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create availability rule: %w", err)
	}
	return nil
}

func (r *availabilityRepository) DeleteRule(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM availability_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete availability rule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("availability rule not found")
	}
	return nil
}

func (r *availabilityRepository) ListExceptions(ctx context.Context, providerID, clinicID uuid.UUID, from, to time.Time) ([]*model.AvailabilityException, error) {
	query := `
		SELECT id, provider_id, clinic_id, date, start_minute, end_minute,
			   is_available, note, created_at, updated_at
		FROM availability_exceptions
		WHERE provider_id = $1 AND clinic_id = $2
		AND date >= $3 AND date < $4
		ORDER BY date, start_minute
	`
	var exceptions []*model.AvailabilityException
	err := r.db.SelectContext(ctx, &exceptions, query, providerID, clinicID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability exceptions: %w", err)
	}
	return exceptions, nil
}

func (r *availabilityRepository) CreateException(ctx context.Context, exc *model.AvailabilityException) error {
	query := `
		INSERT INTO availability_exceptions (
			id, provider_id, clinic_id, date, start_minute, end_minute,
			is_available, note, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if exc.ID == uuid.Nil {
		exc.ID = uuid.New()
	}
	exc.CreatedAt = time.Now()
	exc.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		exc.ID,
		exc.ProviderID,
		exc.ClinicID,
		exc.Date,
		exc.StartMinute,
		exc.EndMinute,
		exc.IsAvailable,
		exc.Note,
		exc.CreatedAt,
		exc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create availability exception: %w", err)
	}
	return nil
}

func (r *availabilityRepository) DeleteExceptionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM availability_exceptions WHERE date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge availability exceptions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

func (r *availabilityRepository) DeleteException(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM availability_exceptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete availability exception: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("availability exception not found")
	}
	return nil
}
