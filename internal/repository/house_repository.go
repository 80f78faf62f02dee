package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/care-ops-api/internal/models"
)

// HouseRepository resolves residential sites.
type HouseRepository struct {
	db *sqlx.DB
}

// NewHouseRepository constructs the repository.
func NewHouseRepository(db *sqlx.DB) *HouseRepository {
	return &HouseRepository{db: db}
}

// FindByID returns the house or sql.ErrNoRows.
func (r *HouseRepository) FindByID(ctx context.Context, id string) (*models.House, error) {
	var house models.House
	if err := r.db.GetContext(ctx, &house, `SELECT id, name, created_at FROM houses WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get house: %w", err)
	}
	return &house, nil
}
