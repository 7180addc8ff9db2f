// Package inventory guards all stock mutation. Stock is the only resource
// shared between concurrent orders, so every decrement goes through the
// catalog's atomic conditional update rather than read-then-write.
package inventory

import (
	"context"

	"go-storefront/apperr"
	"go-storefront/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Catalog is the product store surface the guard depends on.
// DecrementStock must be a single atomic check-and-decrement: it fails with
// an insufficient-stock error instead of ever driving stock negative, and
// with a not-found error for missing or inactive products.
type Catalog interface {
	GetProduct(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
}

// Availability is the result of a stock check. An insufficient quantity is
// a result, not an error, so callers can report the precise shortfall.
type Availability struct {
	Product      models.Product
	Available    bool
	CurrentStock int
}

// Guard validates and mutates stock through the catalog.
type Guard struct {
	catalog Catalog
}

func NewGuard(catalog Catalog) *Guard {
	return &Guard{catalog: catalog}
}

// CheckAvailability verifies that qty units of the product can be supplied.
// Missing or inactive products fail with a not-found error.
func (g *Guard) CheckAvailability(ctx context.Context, id primitive.ObjectID, qty int) (Availability, error) {
	if qty <= 0 {
		return Availability{}, apperr.Validationf("quantity must be positive, got %d", qty)
	}
	product, err := g.catalog.GetProduct(ctx, id)
	if err != nil {
		return Availability{}, err
	}
	if !product.IsActive {
		return Availability{}, apperr.NotFoundf("product %s is no longer available", product.Name)
	}
	return Availability{
		Product:      product,
		Available:    product.Stock >= qty,
		CurrentStock: product.Stock,
	}, nil
}

// Reserve atomically decrements stock by qty. It fails with an
// insufficient-stock error when the decrement would drive stock below zero.
func (g *Guard) Reserve(ctx context.Context, id primitive.ObjectID, qty int) error {
	if qty <= 0 {
		return apperr.Validationf("quantity must be positive, got %d", qty)
	}
	return g.catalog.DecrementStock(ctx, id, qty)
}

// Release atomically returns qty units to stock. Used when an order is
// cancelled or a checkout is rolled back; there is no upper bound check.
func (g *Guard) Release(ctx context.Context, id primitive.ObjectID, qty int) error {
	if qty <= 0 {
		return apperr.Validationf("quantity must be positive, got %d", qty)
	}
	return g.catalog.IncrementStock(ctx, id, qty)
}
