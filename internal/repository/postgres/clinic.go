package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/scheduling-api/internal/model"
)

func (r *clinicRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	query := `
		SELECT id, name, address, phone, timezone, status, created_at, updated_at
		FROM clinics
		WHERE id = $1
	`
	var clinic model.Clinic
	err := r.db.GetContext(ctx, &clinic, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}
	return &clinic, nil
}

func (r *providerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	query := `
		SELECT id, clinic_id, first_name, last_name, email, specialty, status,
			   created_at, updated_at
		FROM providers
		WHERE id = $1
	`
	var provider model.Provider
	err := r.db.GetContext(ctx, &provider, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return &provider, nil
}
