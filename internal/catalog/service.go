package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/svrddd/tgbotNEW/internal/domain"
)

const cacheFillTimeout = time.Second

// Store is the catalog contract the workflow engine consumes.
type Store interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	Products(ctx context.Context, categoryID int64) ([]domain.Product, error)
	Product(ctx context.Context, id int64) (*domain.Product, error)
}

// Service fronts the sqlite repository with a cache. Concurrent misses for
// the same key collapse into one repository read via singleflight.
type Service struct {
	repo   RepoInterface
	cache  Cache
	logger *zap.Logger
	sfg    singleflight.Group
}

func NewService(repo RepoInterface, cache Cache, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	v, err, _ := s.sfg.Do(categoriesKey(), func() (interface{}, error) {
		categories, err := s.cache.GetCategories(ctx)
		if err == nil {
			return categories, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("categories cache get failed", zap.Error(err))
		}

		categories, err = s.repo.ListCategories(ctx)
		if err != nil {
			return nil, err
		}

		go s.fill(func(ctx context.Context) error {
			return s.cache.SetCategories(ctx, categories)
		})

		return categories, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Category), nil
}

func (s *Service) Products(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	v, err, _ := s.sfg.Do(productsKey(categoryID), func() (interface{}, error) {
		products, err := s.cache.GetProducts(ctx, categoryID)
		if err == nil {
			return products, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("products cache get failed",
				zap.Int64("category_id", categoryID), zap.Error(err))
		}

		products, err = s.repo.ListProducts(ctx, categoryID)
		if err != nil {
			return nil, err
		}

		go s.fill(func(ctx context.Context) error {
			return s.cache.SetProducts(ctx, categoryID, products)
		})

		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

func (s *Service) Product(ctx context.Context, id int64) (*domain.Product, error) {
	v, err, _ := s.sfg.Do(productKey(id), func() (interface{}, error) {
		product, err := s.cache.GetProduct(ctx, id)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("product cache get failed", zap.Int64("id", id), zap.Error(err))
		}

		product, err = s.repo.GetProduct(ctx, id)
		if err != nil {
			// absence is not cached; stale references are rare enough
			return nil, err
		}

		go s.fill(func(ctx context.Context) error {
			return s.cache.SetProduct(ctx, product)
		})

		return product, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Product), nil
}

// fill writes to the cache off the request path; a failed fill only costs
// the next reader a repository round trip.
func (s *Service) fill(set func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheFillTimeout)
	defer cancel()
	if err := set(ctx); err != nil {
		s.logger.Warn(fmt.Sprintf("cache set failed: %v", err))
	}
}
