package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/care-ops-api/internal/models"
)

// ViolationCategoryRepository reads the seeded violation catalog.
type ViolationCategoryRepository struct {
	db *sqlx.DB
}

// NewViolationCategoryRepository constructs the repository.
func NewViolationCategoryRepository(db *sqlx.DB) *ViolationCategoryRepository {
	return &ViolationCategoryRepository{db: db}
}

// List returns every category ordered by severity then name.
func (r *ViolationCategoryRepository) List(ctx context.Context) ([]models.ViolationCategory, error) {
	const query = `SELECT id, category_name, severity_level, default_points, description
FROM violation_categories
ORDER BY CASE severity_level
	WHEN 'MINOR' THEN 1 WHEN 'MODERATE' THEN 2 WHEN 'SERIOUS' THEN 3
	WHEN 'CRITICAL' THEN 4 ELSE 5 END, category_name ASC`
	categories := []models.ViolationCategory{}
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list violation categories: %w", err)
	}
	return categories, nil
}

// FindByID returns the category or sql.ErrNoRows.
func (r *ViolationCategoryRepository) FindByID(ctx context.Context, id string) (*models.ViolationCategory, error) {
	const query = `SELECT id, category_name, severity_level, default_points, description FROM violation_categories WHERE id = $1`
	var category models.ViolationCategory
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get violation category: %w", err)
	}
	return &category, nil
}
