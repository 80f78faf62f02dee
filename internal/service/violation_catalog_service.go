package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/care-ops-api/internal/models"
	appErrors "github.com/noah-isme/care-ops-api/pkg/errors"
)

// Single categories and the full listing live in separate key spaces so no
// category id can collide with the listing.
const (
	catalogCachePrefix  = "violation_categories:"
	catalogCacheIDKey   = catalogCachePrefix + "id:"
	catalogCacheListKey = catalogCachePrefix + "list"
)

type violationCategoryReader interface {
	FindByID(ctx context.Context, id string) (*models.ViolationCategory, error)
	List(ctx context.Context) ([]models.ViolationCategory, error)
}

// ViolationCatalogService resolves violation categories with a read-through cache.
type ViolationCatalogService struct {
	repo   violationCategoryReader
	cache  *CacheService
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

// NewViolationCatalogService constructs the catalog. cache may be nil.
func NewViolationCatalogService(repo violationCategoryReader, cache *CacheService, ttl time.Duration, logger *zap.Logger) *ViolationCatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViolationCatalogService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Get returns the category or NotFound.
func (s *ViolationCatalogService) Get(ctx context.Context, id string) (*models.ViolationCategory, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "violationCategoryId is required")
	}
	key := catalogCacheIDKey + id
	// waiters share this call, so one caller's cancellation must not fail the rest
	ctx = context.WithoutCancel(ctx)
	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		var cached models.ViolationCategory
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return &cached, nil
		}
		category, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "violation category not found")
			}
			return nil, appErrors.Internal(err, "failed to load violation category")
		}
		if err := s.checkCategory(*category); err != nil {
			return nil, err
		}
		_ = s.cache.Set(ctx, key, category, s.ttl)
		return category, nil
	})
	if err != nil {
		return nil, err
	}
	// singleflight shares the pointer between callers
	category := *result.(*models.ViolationCategory)
	return &category, nil
}

// List returns the full catalog.
func (s *ViolationCatalogService) List(ctx context.Context) ([]models.ViolationCategory, error) {
	ctx = context.WithoutCancel(ctx)
	result, err, _ := s.group.Do(catalogCacheListKey, func() (interface{}, error) {
		var cached []models.ViolationCategory
		if hit, _ := s.cache.Get(ctx, catalogCacheListKey, &cached); hit {
			return cached, nil
		}
		categories, err := s.repo.List(ctx)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to list violation categories")
		}
		valid := make([]models.ViolationCategory, 0, len(categories))
		for _, category := range categories {
			if err := s.checkCategory(category); err != nil {
				continue
			}
			valid = append(valid, category)
		}
		_ = s.cache.Set(ctx, catalogCacheListKey, valid, s.ttl)
		return valid, nil
	})
	if err != nil {
		return nil, err
	}
	shared := result.([]models.ViolationCategory)
	return append([]models.ViolationCategory(nil), shared...), nil
}

// Invalidate drops every cached category, used after migrations reseed the catalog.
func (s *ViolationCatalogService) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx, catalogCachePrefix+"*")
}

func (s *ViolationCatalogService) checkCategory(category models.ViolationCategory) error {
	if err := category.Validate(); err != nil {
		s.logger.Error("invalid violation category reference data", zap.String("category_id", category.ID), zap.Error(err))
		return appErrors.Internal(err, "violation category is misconfigured")
	}
	return nil
}
