// controllers/order.go
package controllers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"go-storefront/apperr"
	"go-storefront/checkout"
	"go-storefront/middleware"
	"go-storefront/models"
	"go-storefront/store"
	"go-storefront/utils"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderController handles order-related requests
type OrderController struct {
	Checkout *checkout.Service
	Users    *store.UserStore
	Email    *utils.EmailService
}

// NewOrderController creates a new OrderController
func NewOrderController(checkoutSvc *checkout.Service, users *store.UserStore, email *utils.EmailService) *OrderController {
	return &OrderController{
		Checkout: checkoutSvc,
		Users:    users,
		Email:    email,
	}
}

// CreateOrder places an order from the user's cart
func (oc *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var input struct {
		Address       models.Address `json:"address"`
		PaymentMethod string         `json:"payment_method"`
		Notes         string         `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.Validationf("invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	order, err := oc.Checkout.PlaceOrder(ctx, principal, checkout.PlaceOrderInput{
		Address:       input.Address,
		PaymentMethod: models.PaymentMethod(input.PaymentMethod),
		Notes:         input.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	oc.notify(*order, (*utils.EmailService).SendOrderConfirmationEmail)

	writeJSON(w, http.StatusCreated, order)
}

// GetOrders retrieves orders for the authenticated user. Admins may filter
// by any user and by status.
func (oc *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	opts := checkout.ListOptions{
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 20),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.OrderStatus(raw)
		if !status.Valid() {
			writeError(w, apperr.Validationf("unknown order status %q", raw))
			return
		}
		opts.Status = &status
	}
	if raw := r.URL.Query().Get("user_id"); raw != "" && principal.IsAdmin() {
		userID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			writeError(w, apperr.Validationf("invalid user ID"))
			return
		}
		opts.UserID = &userID
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	orders, err := oc.Checkout.ListOrders(ctx, principal, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetOrderByID retrieves one order; the requester must own it or be admin
func (oc *OrderController) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orderID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apperr.Validationf("invalid order ID"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	order, err := oc.Checkout.GetOrder(ctx, principal, orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// CancelOrder cancels an order and restores its stock
func (oc *OrderController) CancelOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orderID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apperr.Validationf("invalid order ID"))
		return
	}

	var input struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		// The reason is optional; an empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&input)
	}
	if input.Reason == "" {
		input.Reason = "cancelled by customer"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	order, err := oc.Checkout.CancelOrder(ctx, principal, orderID, input.Reason)
	if err != nil {
		writeError(w, err)
		return
	}

	oc.notify(*order, (*utils.EmailService).SendOrderCancellationEmail)

	writeJSON(w, http.StatusOK, order)
}

// UpdateOrderStatus advances the order lifecycle (Admin only)
func (oc *OrderController) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orderID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apperr.Validationf("invalid order ID"))
		return
	}

	var input struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.Validationf("invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	order, err := oc.Checkout.UpdateStatus(ctx, principal, orderID, models.OrderStatus(input.Status))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateOrderPaymentStatus allows admin to update payment status
func (oc *OrderController) UpdateOrderPaymentStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orderID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apperr.Validationf("invalid order ID"))
		return
	}

	var input struct {
		PaymentStatus string `json:"payment_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperr.Validationf("invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	order, err := oc.Checkout.UpdatePaymentStatus(ctx, principal, orderID, models.PaymentStatus(input.PaymentStatus))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// notify emails the order's owner in the background. Best effort: failures
// are logged, never surfaced to the request.
func (oc *OrderController) notify(order models.Order, send func(*utils.EmailService, string, models.Order) error) {
	if oc.Email == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		user, err := oc.Users.GetByID(ctx, order.UserID)
		if err != nil {
			slog.Warn("failed to look up user for order email", "order_number", order.OrderNumber, "error", err)
			return
		}
		if err := send(oc.Email, user.Email, order); err != nil {
			slog.Warn("failed to send order email", "order_number", order.OrderNumber, "error", err)
		}
	}()
}
