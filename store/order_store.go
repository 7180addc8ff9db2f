package store

import (
	"context"
	"errors"
	"time"

	"go-storefront/apperr"
	"go-storefront/checkout"
	"go-storefront/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderStore persists orders. Orders are never hard-deleted once placed;
// Delete exists only for the checkout saga's compensation step.
type OrderStore struct {
	coll *mongo.Collection
}

// NewOrderStore creates a new OrderStore
func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{coll: db.Collection("orders")}
}

// EnsureIndexes creates the unique order-number index and the per-user
// listing index.
func (s *OrderStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "order_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	return err
}

// Create inserts a new order. Invalid orders (zero items, inconsistent
// totals) are rejected before the write.
func (s *OrderStore) Create(ctx context.Context, order models.Order) (models.Order, error) {
	if err := order.Validate(); err != nil {
		return models.Order{}, err
	}
	result, err := s.coll.InsertOne(ctx, order)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Order{}, apperr.Conflictf("order number %s already exists", order.OrderNumber)
		}
		return models.Order{}, err
	}
	order.ID = result.InsertedID.(primitive.ObjectID)
	return order, nil
}

// GetByID retrieves an order by id.
func (s *OrderStore) GetByID(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	var order models.Order
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Order{}, apperr.NotFoundf("order %s not found", id.Hex())
		}
		return models.Order{}, err
	}
	return order, nil
}

// GetByOrderNumber retrieves an order by its order number.
func (s *OrderStore) GetByOrderNumber(ctx context.Context, orderNumber string) (models.Order, error) {
	var order models.Order
	err := s.coll.FindOne(ctx, bson.M{"order_number": orderNumber}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Order{}, apperr.NotFoundf("order %s not found", orderNumber)
		}
		return models.Order{}, err
	}
	return order, nil
}

// Update replaces the whole order document unconditionally. Status
// transitions must go through UpdateIfStatus instead.
func (s *OrderStore) Update(ctx context.Context, order models.Order) error {
	order.UpdatedAt = time.Now().UTC()
	result, err := s.coll.ReplaceOne(ctx, bson.M{"_id": order.ID}, order)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.NotFoundf("order %s not found", order.ID.Hex())
	}
	return nil
}

// UpdateIfStatus replaces the order document only while its stored status
// still equals from. The status precondition in the filter plays the same
// role as the stock filter in DecrementStock: of two racing transitions,
// exactly one matches and the other fails without writing.
func (s *OrderStore) UpdateIfStatus(ctx context.Context, order models.Order, from models.OrderStatus) error {
	order.UpdatedAt = time.Now().UTC()
	result, err := s.coll.ReplaceOne(ctx, bson.M{"_id": order.ID, "status": from}, order)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		current, err := s.GetByID(ctx, order.ID)
		if err != nil {
			return err
		}
		return apperr.InvalidTransitionf("order %s cannot move from %s to %s", order.OrderNumber, current.Status, order.Status)
	}
	return nil
}

// Delete removes an order document. Only the checkout saga uses this, to
// erase a pending order whose stock reservation failed.
func (s *OrderStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return apperr.NotFoundf("order %s not found", id.Hex())
	}
	return nil
}

// List returns orders, newest first.
func (s *OrderStore) List(ctx context.Context, opts checkout.ListOptions) ([]models.Order, error) {
	filter := bson.M{}
	if opts.UserID != nil {
		filter["user_id"] = *opts.UserID
	}
	if opts.Status != nil {
		filter["status"] = *opts.Status
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

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
