// Package checkout coordinates the cart, inventory guard, pricing engine
// and order aggregate to execute order placement and cancellation. The
// store offers no multi-document transactions, so placement is a
// compensating-action sequence: validate, snapshot, persist pending order,
// reserve stock per line, and on any reservation failure release what was
// already reserved and erase the order.
package checkout

import (
	"context"
	"log/slog"
	"time"

	"go-storefront/apperr"
	"go-storefront/inventory"
	"go-storefront/models"
	"go-storefront/pricing"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

const (
	// maxConcurrentLookups bounds the fan-out of live product validation.
	maxConcurrentLookups = 8
	// deliveryEstimateDays is the fixed delivery estimate offset.
	deliveryEstimateDays = 7
)

// PricePolicy decides which price an order charges: the live catalog price
// at commit time, or the snapshot taken when the item entered the cart.
type PricePolicy string

const (
	PriceLive     PricePolicy = "live"
	PriceSnapshot PricePolicy = "snapshot"
)

// CartStore is the cart persistence surface the orchestrator depends on.
type CartStore interface {
	GetByUser(ctx context.Context, userID primitive.ObjectID) (models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
}

// OrderStore is the order persistence surface the orchestrator depends on.
// UpdateIfStatus must apply the replacement only while the stored status
// still equals from, failing with an invalid-transition error otherwise, so
// racing transitions have exactly one winner.
type OrderStore interface {
	Create(ctx context.Context, order models.Order) (models.Order, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Order, error)
	Update(ctx context.Context, order models.Order) error
	UpdateIfStatus(ctx context.Context, order models.Order, from models.OrderStatus) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, opts ListOptions) ([]models.Order, error)
}

// ListOptions filters and paginates an order listing.
type ListOptions struct {
	UserID   *primitive.ObjectID
	Status   *models.OrderStatus
	Page     int
	PageSize int
}

// Service is the checkout orchestrator.
type Service struct {
	carts  CartStore
	orders OrderStore
	guard  *inventory.Guard
	pricer *pricing.Engine
	policy PricePolicy
	now    func() time.Time
}

// NewService creates a checkout service. An empty policy defaults to
// charging the live catalog price.
func NewService(carts CartStore, orders OrderStore, guard *inventory.Guard, pricer *pricing.Engine, policy PricePolicy) *Service {
	if policy == "" {
		policy = PriceLive
	}
	return &Service{
		carts:  carts,
		orders: orders,
		guard:  guard,
		pricer: pricer,
		policy: policy,
		now:    time.Now,
	}
}

// PlaceOrderInput is what the customer supplies at checkout.
type PlaceOrderInput struct {
	Address       models.Address
	PaymentMethod models.PaymentMethod
	Notes         string
}

// PlaceOrder turns the principal's cart into an order. The whole operation
// fails, with no partial effects, if any cart line references a missing or
// inactive product or requests more than the available stock.
func (s *Service) PlaceOrder(ctx context.Context, principal models.Principal, in PlaceOrderInput) (*models.Order, error) {
	if err := in.Address.Validate(); err != nil {
		return nil, err
	}
	if !in.PaymentMethod.Valid() {
		return nil, apperr.Validationf("unsupported payment method %q", in.PaymentMethod)
	}

	cart, err := s.carts.GetByUser(ctx, principal.ID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, apperr.Validationf("cart is empty")
	}

	items, err := s.buildOrderItems(ctx, cart.Items)
	if err != nil {
		return nil, err
	}

	lines := make([]pricing.Line, len(items))
	for i, item := range items {
		lines[i] = pricing.Line{UnitPrice: item.Price, Quantity: item.Quantity}
	}
	totals := s.pricer.Quote(lines)

	now := s.now().UTC()
	order := models.Order{
		OrderNumber:       models.NewOrderNumber(now),
		UserID:            principal.ID,
		Items:             items,
		Subtotal:          totals.Subtotal,
		Tax:               totals.Tax,
		Shipping:          totals.Shipping,
		Total:             totals.Total,
		PaymentMethod:     in.PaymentMethod,
		PaymentStatus:     models.PaymentStatusPending,
		Status:            models.OrderStatusPending,
		Address:           in.Address,
		Notes:             in.Notes,
		EstimatedDelivery: now.AddDate(0, 0, deliveryEstimateDays),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	created, err := s.orders.Create(ctx, order)
	if err != nil {
		return nil, err
	}

	for i, item := range created.Items {
		if err := s.guard.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
			s.rollback(ctx, created, i)
			return nil, err
		}
	}

	cart.Clear()
	if err := s.carts.Save(ctx, &cart); err != nil {
		// The order and its reservations are committed; the stale cart
		// will be re-validated on its next checkout.
		slog.Error("failed to clear cart after checkout",
			"order_number", created.OrderNumber, "user_id", principal.ID.Hex(), "error", err)
	}

	return &created, nil
}

// buildOrderItems re-fetches every cart line's live product and snapshots
// it into an order item. Validation failures name the offending product.
func (s *Service) buildOrderItems(ctx context.Context, cartItems []models.CartItem) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, len(cartItems))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i := range cartItems {
		i := i
		g.Go(func() error {
			item := cartItems[i]
			av, err := s.guard.CheckAvailability(gctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if !av.Available {
				return apperr.InsufficientStock(av.Product.ID.Hex(), av.Product.Name, item.Quantity, av.CurrentStock)
			}

			price := av.Product.Price
			if s.policy == PriceSnapshot {
				price = item.Price
			}
			items[i] = models.OrderItem{
				ProductID: item.ProductID,
				Name:      av.Product.Name,
				Price:     price,
				Quantity:  item.Quantity,
				Subtotal:  price.Mul(decimal.NewFromInt(int64(item.Quantity))),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// rollback compensates a failed placement: releases the first `reserved`
// lines in reverse order and erases the pending order so no phantom order
// without inventory backing survives.
func (s *Service) rollback(ctx context.Context, order models.Order, reserved int) {
	for i := reserved - 1; i >= 0; i-- {
		item := order.Items[i]
		if err := s.guard.Release(ctx, item.ProductID, item.Quantity); err != nil {
			slog.Error("failed to release reserved stock during rollback",
				"order_number", order.OrderNumber, "product_id", item.ProductID.Hex(), "error", err)
		}
	}
	if err := s.orders.Delete(ctx, order.ID); err != nil {
		slog.Error("failed to delete order during rollback",
			"order_number", order.OrderNumber, "error", err)
	}
}

// CancelOrder reverses a placement. The transition to cancelled is claimed
// first, with the order's observed status as precondition, so of two racing
// cancellations only one wins and releases the reserved stock; the loser
// fails with an invalid-transition error and must not touch stock.
func (s *Service) CancelOrder(ctx context.Context, principal models.Principal, orderID primitive.ObjectID, reason string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireOwnerOrAdmin(principal, order.UserID); err != nil {
		return nil, err
	}
	if !order.CanBeCancelled() {
		return nil, apperr.InvalidTransitionf("order %s cannot be cancelled from status %s", order.OrderNumber, order.Status)
	}

	prev := order.Status
	if err := order.Cancel(reason, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.orders.UpdateIfStatus(ctx, order, prev); err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		if err := s.guard.Release(ctx, item.ProductID, item.Quantity); err != nil {
			slog.Error("failed to release stock for cancelled order",
				"order_number", order.OrderNumber, "product_id", item.ProductID.Hex(), "error", err)
		}
	}
	return &order, nil
}

// GetOrder retrieves one order, enforcing ownership.
func (s *Service) GetOrder(ctx context.Context, principal models.Principal, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireOwnerOrAdmin(principal, order.UserID); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders lists the principal's orders. Admins may list any user's
// orders, or all orders.
func (s *Service) ListOrders(ctx context.Context, principal models.Principal, opts ListOptions) ([]models.Order, error) {
	if !principal.IsAdmin() {
		opts.UserID = &principal.ID
	}
	return s.orders.List(ctx, opts)
}

// UpdateStatus advances an order along its lifecycle. Admin only. The write
// carries the observed status as precondition, so concurrent updates cannot
// silently overwrite each other. Moving to cancelled through this path
// restores stock exactly like CancelOrder.
func (s *Service) UpdateStatus(ctx context.Context, principal models.Principal, orderID primitive.ObjectID, next models.OrderStatus) (*models.Order, error) {
	if !principal.IsAdmin() {
		return nil, apperr.Authorizationf("only admins may update order status")
	}
	if next == models.OrderStatusCancelled {
		return s.CancelOrder(ctx, principal, orderID, "cancelled by administrator")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	prev := order.Status
	if err := order.TransitionTo(next, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.orders.UpdateIfStatus(ctx, order, prev); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdatePaymentStatus sets an order's payment status. Admin only.
func (s *Service) UpdatePaymentStatus(ctx context.Context, principal models.Principal, orderID primitive.ObjectID, status models.PaymentStatus) (*models.Order, error) {
	if !principal.IsAdmin() {
		return nil, apperr.Authorizationf("only admins may update payment status")
	}
	if !status.Valid() {
		return nil, apperr.Validationf("unknown payment status %q", status)
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.PaymentStatus = status
	order.UpdatedAt = s.now().UTC()
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}
	return &order, nil
}

// requireOwnerOrAdmin is the single capability check for order access:
// the actor must own the resource or be an admin.
func requireOwnerOrAdmin(principal models.Principal, ownerID primitive.ObjectID) error {
	if principal.IsAdmin() || principal.ID == ownerID {
		return nil
	}
	return apperr.Authorizationf("order belongs to another user")
}
