package suppliers

import (
	"context"
	"errors"
	"fmt"

	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Resolver walks the supplier resolution chain for a product: product →
// preferred supplier contact → optional linked remote tenant. A nil result
// with nil error means the item has no resolvable supplier and belongs in the
// splitter's unknown bucket.
type Resolver interface {
	ResolveForProduct(ctx context.Context, tenantID, productID uuid.UUID) (*models.SupplierContact, error)
}

type productLoader interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error)
}

type resolver struct {
	products productLoader
	repo     Repository
}

// NewResolver builds the default chain resolver.
func NewResolver(products productLoader, repo Repository) (Resolver, error) {
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if repo == nil {
		return nil, fmt.Errorf("supplier repository required")
	}
	return &resolver{products: products, repo: repo}, nil
}

func (r *resolver) ResolveForProduct(ctx context.Context, tenantID, productID uuid.UUID) (*models.SupplierContact, error) {
	product, err := r.products.FindByID(ctx, tenantID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if product.SupplierID == nil {
		return nil, nil
	}

	contact, err := r.repo.FindByID(ctx, tenantID, *product.SupplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return contact, nil
}
