package store

import (
	"context"
	"errors"
	"time"

	"go-storefront/apperr"
	"go-storefront/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProductStore persists products. It implements inventory.Catalog: stock
// mutation is done with single-document conditional updates so concurrent
// orders can never drive stock negative.
type ProductStore struct {
	coll *mongo.Collection
}

// NewProductStore creates a new ProductStore
func NewProductStore(db *mongo.Database) *ProductStore {
	return &ProductStore{coll: db.Collection("products")}
}

// EnsureIndexes creates the unique SKU index.
func (s *ProductStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sku", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Create inserts a new product. A duplicate SKU fails with a conflict error.
func (s *ProductStore) Create(ctx context.Context, p models.Product) (models.Product, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	result, err := s.coll.InsertOne(ctx, p)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Product{}, apperr.Conflictf("product with SKU %q already exists", p.SKU)
		}
		return models.Product{}, err
	}
	p.ID = result.InsertedID.(primitive.ObjectID)
	return p, nil
}

// GetProduct retrieves a product by id.
func (s *ProductStore) GetProduct(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	var p models.Product
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Product{}, apperr.NotFoundf("product %s not found", id.Hex())
		}
		return models.Product{}, err
	}
	return p, nil
}

// Update replaces the mutable fields of a product.
func (s *ProductStore) Update(ctx context.Context, p models.Product) error {
	update := bson.M{"$set": bson.M{
		"sku":         p.SKU,
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
		"stock":       p.Stock,
		"is_active":   p.IsActive,
		"updated_at":  time.Now().UTC(),
	}}
	result, err := s.coll.UpdateOne(ctx, bson.M{"_id": p.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflictf("product with SKU %q already exists", p.SKU)
		}
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.NotFoundf("product %s not found", p.ID.Hex())
	}
	return nil
}

// Deactivate soft-deletes a product. Orders keep their snapshots, so the
// catalog never hard-deletes.
func (s *ProductStore) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	result, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"is_active":  false,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.NotFoundf("product %s not found", id.Hex())
	}
	return nil
}

// ListProductsOptions filters and paginates a product listing.
type ListProductsOptions struct {
	ActiveOnly bool
	Page       int
	PageSize   int
}

// List returns products, newest first.
func (s *ProductStore) List(ctx context.Context, opts ListProductsOptions) ([]models.Product, error) {
	filter := bson.M{}
	if opts.ActiveOnly {
		filter["is_active"] = true
	}

	skip, limit := pageBounds(opts.Page, opts.PageSize)
	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := s.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// DecrementStock atomically reserves qty units. The filter carries the
// stock bound and the active flag, so check and decrement are one
// single-document operation.
func (s *ProductStore) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	filter := bson.M{
		"_id":       id,
		"is_active": true,
		"stock":     bson.M{"$gte": qty},
	}
	update := bson.M{
		"$inc": bson.M{"stock": -qty},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	result, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.ModifiedCount == 1 {
		return nil
	}

	// No match: distinguish a missing/inactive product from a shortfall.
	var p models.Product
	err = s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFoundf("product %s not found", id.Hex())
		}
		return err
	}
	if !p.IsActive {
		return apperr.NotFoundf("product %s is no longer available", p.Name)
	}
	return apperr.InsufficientStock(id.Hex(), p.Name, qty, p.Stock)
}

// IncrementStock atomically returns qty units to stock.
func (s *ProductStore) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	result, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"stock": qty},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.NotFoundf("product %s not found", id.Hex())
	}
	return nil
}

// pageBounds converts 1-based page/pageSize into skip/limit with defaults.
func pageBounds(page, pageSize int) (skip, limit int64) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return int64(page-1) * int64(pageSize), int64(pageSize)
}
