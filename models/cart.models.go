package models

import (
	"time"

	"go-storefront/apperr"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxCartItems bounds the number of distinct products in one cart.
const MaxCartItems = 50

// CartItem represents an item in the cart. Price is a snapshot taken when
// the item was added (and refreshed on re-add); the charged price at
// checkout is decided by the orchestrator's price policy.
type CartItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Name      string             `bson:"name" json:"name"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Price     decimal.Decimal    `bson:"price" json:"price"`
}

// Cart represents a user's shopping cart. TotalItems and TotalAmount are
// derived fields; every mutating method recomputes them before returning,
// so a caller can never observe the aggregate with stale totals.
type Cart struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Items       []CartItem         `bson:"items" json:"items"`
	TotalItems  int                `bson:"total_items" json:"total_items"`
	TotalAmount decimal.Decimal    `bson:"total_amount" json:"total_amount"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// AddItem adds qty units of product to the cart. If the product is already
// present the quantities are added and the price snapshot is refreshed to
// the product's current price.
func (c *Cart) AddItem(product Product, qty int) error {
	if qty <= 0 {
		return apperr.Validationf("quantity must be positive, got %d", qty)
	}
	for i := range c.Items {
		if c.Items[i].ProductID == product.ID {
			c.Items[i].Quantity += qty
			c.Items[i].Name = product.Name
			c.Items[i].Price = product.Price
			c.recalculateTotals()
			return nil
		}
	}
	if len(c.Items) >= MaxCartItems {
		return apperr.Validationf("cart cannot hold more than %d distinct products", MaxCartItems)
	}
	c.Items = append(c.Items, CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		Quantity:  qty,
		Price:     product.Price,
	})
	c.recalculateTotals()
	return nil
}

// UpdateItemQuantity replaces the quantity of an existing item. A quantity
// of zero or less removes the item.
func (c *Cart) UpdateItemQuantity(productID primitive.ObjectID, qty int) error {
	if qty <= 0 {
		if !c.RemoveItem(productID) {
			return apperr.NotFoundf("product %s is not in the cart", productID.Hex())
		}
		return nil
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = qty
			c.recalculateTotals()
			return nil
		}
	}
	return apperr.NotFoundf("product %s is not in the cart", productID.Hex())
}

// RemoveItem removes the item for productID, reporting whether it existed.
func (c *Cart) RemoveItem(productID primitive.ObjectID) bool {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.recalculateTotals()
			return true
		}
	}
	return false
}

// Clear empties the cart and zeroes its totals.
func (c *Cart) Clear() {
	c.Items = nil
	c.recalculateTotals()
}

// Item returns the cart item for productID, if present.
func (c *Cart) Item(productID primitive.ObjectID) (*CartItem, bool) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i], true
		}
	}
	return nil, false
}

func (c *Cart) recalculateTotals() {
	items := 0
	amount := decimal.Zero
	for _, it := range c.Items {
		items += it.Quantity
		amount = amount.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	c.TotalItems = items
	c.TotalAmount = amount
}
