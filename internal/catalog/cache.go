package catalog

import (
	"context"
	"errors"

	"github.com/svrddd/tgbotNEW/internal/domain"
)

// Cache keeps hot catalog reads out of sqlite. The catalog is read-mostly,
// so entries just expire by TTL; there is no explicit invalidation path.
type Cache interface {
	GetCategories(ctx context.Context) ([]domain.Category, error)
	SetCategories(ctx context.Context, categories []domain.Category) error
	GetProducts(ctx context.Context, categoryID int64) ([]domain.Product, error)
	SetProducts(ctx context.Context, categoryID int64, products []domain.Product) error
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	SetProduct(ctx context.Context, product *domain.Product) error
}

var ErrCacheMiss = errors.New("cache miss")
