package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go-storefront/apperr"
	"go-storefront/middleware"
	"go-storefront/store"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartController handles cart-related requests
type CartController struct {
	Carts    *store.CartStore
	Products *store.ProductStore
}

// NewCartController creates a new CartController
func NewCartController(carts *store.CartStore, products *store.ProductStore) *CartController {
	return &CartController{Carts: carts, Products: products}
}

// GetCart retrieves the user's cart, creating an empty one on first access
func (cc *CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	cart, err := cc.Carts.GetOrCreate(ctx, principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// AddToCart adds a product to the user's cart. Re-adding a product
// increases its quantity and refreshes the price snapshot.
func (cc *CartController) AddToCart(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var input struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.Validationf("invalid request body"))
		return
	}
	productID, err := primitive.ObjectIDFromHex(input.ProductID)
	if err != nil {
		writeError(w, apperr.Validationf("invalid product ID"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	product, err := cc.Products.GetProduct(ctx, productID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !product.IsActive {
		writeError(w, apperr.NotFoundf("product %s is no longer available", product.Name))
		return
	}

	cart, err := cc.Carts.GetOrCreate(ctx, principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := cart.AddItem(product, input.Quantity); err != nil {
		writeError(w, err)
		return
	}
	if err := cc.Carts.Save(ctx, &cart); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// UpdateCartItem replaces the quantity of a cart line; zero or less
// removes it.
func (cc *CartController) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	productID, err := primitive.ObjectIDFromHex(mux.Vars(r)["product_id"])
	if err != nil {
		writeError(w, apperr.Validationf("invalid product ID"))
		return
	}

	var input struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.Validationf("invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	cart, err := cc.Carts.GetByUser(ctx, principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := cart.UpdateItemQuantity(productID, input.Quantity); err != nil {
		writeError(w, err)
		return
	}
	if err := cc.Carts.Save(ctx, &cart); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// RemoveFromCart removes a product from the user's cart
func (cc *CartController) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	productID, err := primitive.ObjectIDFromHex(mux.Vars(r)["product_id"])
	if err != nil {
		writeError(w, apperr.Validationf("invalid product ID"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	cart, err := cc.Carts.GetByUser(ctx, principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !cart.RemoveItem(productID) {
		writeError(w, apperr.NotFoundf("product %s is not in the cart", productID.Hex()))
		return
	}
	if err := cc.Carts.Save(ctx, &cart); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// ClearCart empties the user's cart
func (cc *CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	cart, err := cc.Carts.GetOrCreate(ctx, principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	cart.Clear()
	if err := cc.Carts.Save(ctx, &cart); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cart)
}
