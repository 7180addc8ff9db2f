package store

import (
	"context"
	"errors"
	"time"

	"go-storefront/apperr"
	"go-storefront/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartStore persists carts, one per user.
type CartStore struct {
	coll *mongo.Collection
}

// NewCartStore creates a new CartStore
func NewCartStore(db *mongo.Database) *CartStore {
	return &CartStore{coll: db.Collection("carts")}
}

// EnsureIndexes creates the unique per-user cart index.
func (s *CartStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// GetByUser retrieves the user's cart.
func (s *CartStore) GetByUser(ctx context.Context, userID primitive.ObjectID) (models.Cart, error) {
	var cart models.Cart
	err := s.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Cart{}, apperr.NotFoundf("cart for user %s not found", userID.Hex())
		}
		return models.Cart{}, err
	}
	return cart, nil
}

// GetOrCreate retrieves the user's cart, lazily creating an empty one on
// first access. The upsert keeps concurrent first accesses down to a
// single cart document.
func (s *CartStore) GetOrCreate(ctx context.Context, userID primitive.ObjectID) (models.Cart, error) {
	update := bson.M{"$setOnInsert": bson.M{
		"user_id":      userID,
		"items":        []models.CartItem{},
		"total_items":  0,
		"total_amount": decimal.Zero,
		"updated_at":   time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var cart models.Cart
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"user_id": userID}, update, opts).Decode(&cart)
	if err != nil {
		return models.Cart{}, err
	}
	return cart, nil
}

// Save writes the whole cart document. Each mutation round-trips through
// the aggregate, so the write always carries freshly recomputed totals.
func (s *CartStore) Save(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now().UTC()
	opts := options.Replace().SetUpsert(true)
	result, err := s.coll.ReplaceOne(ctx, bson.M{"user_id": cart.UserID}, cart, opts)
	if err != nil {
		return err
	}
	if result.UpsertedID != nil {
		if id, ok := result.UpsertedID.(primitive.ObjectID); ok {
			cart.ID = id
		}
	}
	return nil
}
