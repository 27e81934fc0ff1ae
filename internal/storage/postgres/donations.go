package postgres

import (
	"context"
	"fmt"

	"github.com/sevasetu/backoffice/internal/models"
)

// CreateDonation inserts a donation record.
func (s *Store) CreateDonation(ctx context.Context, d models.Donation) (models.Donation, error) {
	const query = `
	INSERT INTO donations (devotee_name, amount, purpose, recorded_by)
	VALUES ($1, $2, $3, $4)
	RETURNING id, devotee_name, amount, purpose, recorded_by, created_at;
	`
	row := s.pool.QueryRow(ctx, query, d.DevoteeName, d.Amount, d.Purpose, d.RecordedBy)
	var out models.Donation
	if err := row.Scan(&out.ID, &out.DevoteeName, &out.Amount, &out.Purpose, &out.RecordedBy, &out.CreatedAt); err != nil {
		return models.Donation{}, fmt.Errorf("insert donation: %w", err)
	}
	return out, nil
}

// ListDonations returns the most recent donations, newest first.
func (s *Store) ListDonations(ctx context.Context, limit int) ([]models.Donation, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const query = `
	SELECT id, devotee_name, amount, purpose, recorded_by, created_at
	FROM donations ORDER BY created_at DESC LIMIT $1;
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	var out []models.Donation
	for rows.Next() {
		var d models.Donation
		if err := rows.Scan(&d.ID, &d.DevoteeName, &d.Amount, &d.Purpose, &d.RecordedBy, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
