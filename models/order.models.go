package models

import (
	"fmt"
	"strings"
	"time"

	"go-storefront/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// orderTransitions is the legal status graph. delivered and cancelled are
// terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderItem is an immutable snapshot of a product at order-placement time.
// It is never updated, even if the underlying product later changes.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Name      string             `bson:"name" json:"name"`
	Price     decimal.Decimal    `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Subtotal  decimal.Decimal    `bson:"subtotal" json:"subtotal"`
}

// Order represents a user's order
type Order struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OrderNumber       string             `bson:"order_number" json:"order_number"`
	UserID            primitive.ObjectID `bson:"user_id" json:"user_id"`
	Items             []OrderItem        `bson:"items" json:"items"`
	Subtotal          decimal.Decimal    `bson:"subtotal" json:"subtotal"`
	Tax               decimal.Decimal    `bson:"tax" json:"tax"`
	Shipping          decimal.Decimal    `bson:"shipping" json:"shipping"`
	Total             decimal.Decimal    `bson:"total" json:"total"`
	PaymentMethod     PaymentMethod      `bson:"payment_method" json:"payment_method"`
	PaymentStatus     PaymentStatus      `bson:"payment_status" json:"payment_status"`
	Status            OrderStatus        `bson:"status" json:"status"`
	Address           Address            `bson:"address" json:"address"`
	Notes             string             `bson:"notes,omitempty" json:"notes,omitempty"`
	EstimatedDelivery time.Time          `bson:"estimated_delivery" json:"estimated_delivery"`
	DeliveredAt       *time.Time         `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	CancelledAt       *time.Time         `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	CancelReason      string             `bson:"cancel_reason,omitempty" json:"cancel_reason,omitempty"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updated_at"`
}

// NewOrderNumber generates a unique order number. Assigned exactly once at
// creation.
func NewOrderNumber(t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:10]
	return fmt.Sprintf("ORD-%s-%s", t.Format("20060102"), suffix)
}

// Validate checks the invariants an order must satisfy before it may be
// persisted: at least one item and internally consistent totals.
func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return apperr.Validationf("order must contain at least one item")
	}
	if !o.Total.Equal(o.Subtotal.Add(o.Tax).Add(o.Shipping)) {
		return apperr.Validationf("order total %s does not equal subtotal + tax + shipping", o.Total)
	}
	return nil
}

// TransitionTo moves the order to next, failing if the move is not in the
// status graph. Delivery completes payment and stamps the delivery time.
func (o *Order) TransitionTo(next OrderStatus, at time.Time) error {
	if !next.Valid() {
		return apperr.Validationf("unknown order status %q", next)
	}
	if !o.Status.CanTransitionTo(next) {
		return apperr.InvalidTransitionf("order %s cannot move from %s to %s", o.OrderNumber, o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = at
	switch next {
	case OrderStatusDelivered:
		o.PaymentStatus = PaymentStatusCompleted
		delivered := at
		o.DeliveredAt = &delivered
	case OrderStatusCancelled:
		cancelled := at
		o.CancelledAt = &cancelled
	}
	return nil
}

// Cancel transitions the order to cancelled and records the reason.
func (o *Order) Cancel(reason string, at time.Time) error {
	if err := o.TransitionTo(OrderStatusCancelled, at); err != nil {
		return err
	}
	o.CancelReason = reason
	return nil
}

// CanBeCancelled reports whether cancellation is still possible. Orders are
// cancellable until they enter processing.
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

// IsCompleted reports whether the order reached its terminal success state.
func (o *Order) IsCompleted() bool {
	return o.Status == OrderStatusDelivered
}
