package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-storefront/apperr"
	"go-storefront/inventory"
	"go-storefront/models"
	"go-storefront/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memCatalog is an in-memory inventory.Catalog whose decrement is atomic
// under the mutex, mirroring the Mongo store's conditional update. A
// product id in failReserve makes DecrementStock fail with a stock error
// regardless of stock, to force mid-saga reservation failures.
type memCatalog struct {
	mu          sync.Mutex
	products    map[primitive.ObjectID]*models.Product
	failReserve map[primitive.ObjectID]bool
}

func newMemCatalog(products ...models.Product) *memCatalog {
	c := &memCatalog{
		products:    make(map[primitive.ObjectID]*models.Product),
		failReserve: make(map[primitive.ObjectID]bool),
	}
	for _, p := range products {
		p := p
		c.products[p.ID] = &p
	}
	return c
}

func (c *memCatalog) GetProduct(_ context.Context, id primitive.ObjectID) (models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return models.Product{}, apperr.NotFoundf("product %s not found", id.Hex())
	}
	return *p, nil
}

func (c *memCatalog) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return apperr.NotFoundf("product %s not found", id.Hex())
	}
	if c.failReserve[id] {
		return apperr.InsufficientStock(id.Hex(), p.Name, qty, 0)
	}
	if !p.IsActive {
		return apperr.NotFoundf("product %s is no longer available", p.Name)
	}
	if p.Stock < qty {
		return apperr.InsufficientStock(id.Hex(), p.Name, qty, p.Stock)
	}
	p.Stock -= qty
	return nil
}

func (c *memCatalog) IncrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return apperr.NotFoundf("product %s not found", id.Hex())
	}
	p.Stock += qty
	return nil
}

func (c *memCatalog) stock(id primitive.ObjectID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products[id].Stock
}

func (c *memCatalog) setPrice(id primitive.ObjectID, price string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[id].Price = decimal.RequireFromString(price)
}

type memCartStore struct {
	mu    sync.Mutex
	carts map[primitive.ObjectID]models.Cart
}

func newMemCartStore() *memCartStore {
	return &memCartStore{carts: make(map[primitive.ObjectID]models.Cart)}
}

func (s *memCartStore) GetByUser(_ context.Context, userID primitive.ObjectID) (models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[userID]
	if !ok {
		return models.Cart{}, apperr.NotFoundf("cart for user %s not found", userID.Hex())
	}
	return cart, nil
}

func (s *memCartStore) Save(_ context.Context, cart *models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[cart.UserID] = *cart
	return nil
}

type memOrderStore struct {
	mu     sync.Mutex
	orders map[primitive.ObjectID]models.Order
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: make(map[primitive.ObjectID]models.Order)}
}

func (s *memOrderStore) Create(_ context.Context, order models.Order) (models.Order, error) {
	if err := order.Validate(); err != nil {
		return models.Order{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order.ID = primitive.NewObjectID()
	s.orders[order.ID] = order
	return order, nil
}

func (s *memOrderStore) GetByID(_ context.Context, id primitive.ObjectID) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return models.Order{}, apperr.NotFoundf("order %s not found", id.Hex())
	}
	return order, nil
}

func (s *memOrderStore) Update(_ context.Context, order models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.ID]; !ok {
		return apperr.NotFoundf("order %s not found", order.ID.Hex())
	}
	s.orders[order.ID] = order
	return nil
}

func (s *memOrderStore) UpdateIfStatus(_ context.Context, order models.Order, from models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.orders[order.ID]
	if !ok {
		return apperr.NotFoundf("order %s not found", order.ID.Hex())
	}
	if current.Status != from {
		return apperr.InvalidTransitionf("order %s cannot move from %s to %s", order.OrderNumber, current.Status, order.Status)
	}
	s.orders[order.ID] = order
	return nil
}

func (s *memOrderStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return apperr.NotFoundf("order %s not found", id.Hex())
	}
	delete(s.orders, id)
	return nil
}

func (s *memOrderStore) List(_ context.Context, opts ListOptions) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var orders []models.Order
	for _, order := range s.orders {
		if opts.UserID != nil && order.UserID != *opts.UserID {
			continue
		}
		if opts.Status != nil && order.Status != *opts.Status {
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (s *memOrderStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

type testEnv struct {
	catalog   *memCatalog
	carts     *memCartStore
	orders    *memOrderStore
	pricer    *pricing.Engine
	service   *Service
	user      models.Principal
	keyboard  models.Product
	mouse     models.Product
	now       time.Time
	validAddr models.Address
}

func newTestEnv(t *testing.T, policy PricePolicy) *testEnv {
	t.Helper()

	keyboard := models.Product{
		ID:       primitive.NewObjectID(),
		Name:     "Keyboard",
		Price:    decimal.RequireFromString("10"),
		Stock:    10,
		IsActive: true,
	}
	mouse := models.Product{
		ID:       primitive.NewObjectID(),
		Name:     "Mouse",
		Price:    decimal.RequireFromString("5"),
		Stock:    5,
		IsActive: true,
	}

	env := &testEnv{
		catalog:  newMemCatalog(keyboard, mouse),
		carts:    newMemCartStore(),
		orders:   newMemOrderStore(),
		user:     models.Principal{ID: primitive.NewObjectID(), Role: models.RoleUser},
		keyboard: keyboard,
		mouse:    mouse,
		now:      time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
		validAddr: models.Address{
			Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62704",
		},
	}

	env.pricer = pricing.NewEngine(pricing.Config{
		TaxRate:               decimal.RequireFromString("0.08"),
		FreeShippingThreshold: decimal.RequireFromString("50"),
		ShippingFee:           decimal.RequireFromString("10"),
	})
	env.service = NewService(env.carts, env.orders, inventory.NewGuard(env.catalog), env.pricer, policy)
	env.service.now = func() time.Time { return env.now }
	return env
}

// fillCart puts 2 keyboards and 1 mouse into the user's cart.
func (env *testEnv) fillCart(t *testing.T) {
	t.Helper()
	cart := models.Cart{UserID: env.user.ID}
	require.NoError(t, cart.AddItem(env.keyboard, 2))
	require.NoError(t, cart.AddItem(env.mouse, 1))
	require.NoError(t, env.carts.Save(context.Background(), &cart))
}

func (env *testEnv) placeInput() PlaceOrderInput {
	return PlaceOrderInput{
		Address:       env.validAddr,
		PaymentMethod: models.PaymentMethodCard,
	}
}

func TestPlaceOrderHappyPath(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, PriceLive)
	env.fillCart(t)

	order, err := env.service.PlaceOrder(ctx, env.user, env.placeInput())
	require.NoError(t, err)

	// Priced totals: $25 subtotal, 8% tax, flat shipping below threshold.
	require.True(t, order.Subtotal.Equal(decimal.RequireFromString("25")))
	require.True(t, order.Tax.Equal(decimal.RequireFromString("2")))
	require.True(t, order.Shipping.Equal(decimal.RequireFromString("10")))
	require.True(t, order.Total.Equal(decimal.RequireFromString("37")))

	require.Equal(t, models.OrderStatusPending, order.Status)
	require.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	require.NotEmpty(t, order.OrderNumber)
	require.Equal(t, env.now.AddDate(0, 0, 7), order.EstimatedDelivery)
	require.Len(t, order.Items, 2)

	// Inventory was decremented.
	require.Equal(t, 8, env.catalog.stock(env.keyboard.ID))
	require.Equal(t, 4, env.catalog.stock(env.mouse.ID))

	// Cart was cleared, not deleted.
	cart, err := env.carts.GetByUser(ctx, env.user.ID)
	require.NoError(t, err)
	require.Empty(t, cart.Items)
	require.Equal(t, 0, cart.TotalItems)
	require.True(t, cart.TotalAmount.IsZero())

	// The order is readable by its owner.
	stored, err := env.service.GetOrder(ctx, env.user, order.ID)
	require.NoError(t, err)
	require.Equal(t, order.OrderNumber, stored.OrderNumber)
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, PriceLive)

	scarce := models.Product{
		ID:       primitive.NewObjectID(),
		Name:     "Scarce",
		Price:    decimal.RequireFromString("20"),
		Stock:    3,
		IsActive: true,
	}
	env.catalog.products[scarce.ID] = &scarce

	cart := models.Cart{UserID: env.user.ID}
	require.NoError(t, cart.AddItem(scarce, 5))
	require.NoError(t, env.carts.Save(ctx, &cart))

	_, err := env.service.PlaceOrder(ctx, env.user, env.placeInput())
	require.True(t, apperr.IsKind(err, apperr.KindStock))
	appErr, _ := apperr.AsError(err)
	require.Equal(t, 3, appErr.Available)

	require.Equal(t, 0, env.orders.count(), "no order may be created")
	require.Equal(t, 3, env.catalog.stock(scarce.ID), "stock must be untouched")

	stored, err := env.carts.GetByUser(ctx, env.user.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1, "cart must survive a failed checkout")
}

func TestPlaceOrderInactiveProduct(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, PriceLive)
	env.fillCart(t)

	env.catalog.products[env.mouse.ID].IsActive = false

	_, err := env.service.PlaceOrder(ctx, env.user, env.placeInput())
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
	require.Equal(t, 0, env.orders.count())
	require.Equal(t, 10, env.catalog.stock(env.keyboard.ID))
}

func TestPlaceOrderValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("empty cart", func(t *testing.T) {
		env := newTestEnv(t, PriceLive)
		cart := models.Cart{UserID: env.user.ID}
		require.NoError(t, env.carts.Save(ctx, &cart))
		_, err := env.service.PlaceOrder(ctx, env.user, env.placeInput())
		require.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("no cart", func(t *testing.T) {
		env := newTestEnv(t, PriceLive)
		_, err := env.service.PlaceOrder(ctx, env.user, env.placeInput())
		require.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("incomplete address", func(t *testing.T) {
		env := newTestEnv(t, PriceLive)
		env.fillCart(t)
		input := env.placeInput()
		input.Address.City = ""
		_, err := env.service.PlaceOrder(ctx, env.user, input)
		require.True(t, apperr.IsKind(err, apperr.KindValidation))
		require.Equal(t, 0, env.orders.count())
	})

	t.Run("unsupported payment method", func(t *testing.T) {
		env := newTestEnv(t, PriceLive)
		env.fillCart(t)
		input := env.placeInput()
		input.PaymentMethod = "barter"
		_, err := env.service.PlaceOrder(ctx, env.user, input)
		require.True(t, apperr.IsKind(err, apperr.KindValidation))
	})
}

func TestPlaceOrderReservationFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, PriceLive)
	env.fillCart(t)

	// The mouse passes validation but its reservation fails, after the
	// keyboard was already reserved.
	env.catalog.failReserve[env.mouse.ID] = true

	_, err := env.service.PlaceOrder(ctx, env.user, env.placeInput())
	require.True(t, apperr.IsKind(err, apperr.KindStock))

	require.Equal(t, 10, env.catalog.stock(env.keyboard.ID), "reserved stock must be released")
	require.Equal(t, 5, env.catalog.stock(env.mouse.ID))
	require.Equal(t, 0, env.orders.count(), "the pending order must be erased")

	cart, err := env.carts.GetByUser(ctx, env.user.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2, "cart must survive the rollback")
}

func TestPlaceOrderPricePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("live price charges current catalog price", func(t *testing.T) {
		env := newTestEnv(t, PriceLive)
		env.fillCart(t)
		env.catalog.setPrice(env.keyboard.ID, "12")

		order, err := env.service.PlaceOrder(ctx, env.user, env.placeInput())
		require.NoError(t, err)
		require.True(t, order.Items[0].Price.Equal(decimal.RequireFromString("12")))
		require.True(t, order.Subtotal.Equal(decimal.RequireFromString("29")))
	})

	t.Run("snapshot price charges cart price", func(t *testing.T) {
		env := newTestEnv(t, PriceSnapshot)
		env.fillCart(t)
		env.catalog.setPrice(env.keyboard.ID, "12")

		order, err := env.service.PlaceOrder(ctx, env.user, env.placeInput())
		require.NoError(t, err)
		require.True(t, order.Items[0].Price.Equal(decimal.RequireFromString("10")))
		require.True(t, order.Subtotal.Equal(decimal.RequireFromString("25")))
	})
}

func TestPlaceOrderSnapshotsDecoupledFromCatalog(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, PriceLive)
	env.fillCart(t)

	order, err := env.service.PlaceOrder(ctx, env.user, env.placeInput())
	require.NoError(t, err)

	// Later catalog changes must not affect the persisted order.
	env.catalog.setPrice(env.keyboard.ID, "999")
	env.catalog.products[env.keyboard.ID].Name = "Renamed"

	stored, err := env.service.GetOrder(ctx, env.user, order.ID)
	require.NoError(t, err)
	require.Equal(t, "Keyboard", stored.Items[0].Name)
	require.True(t, stored.Items[0].Price.Equal(decimal.RequireFromString("10")))
}

func TestConcurrentCheckoutLastUnit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, PriceLive)

	lastUnit := models.Product{
		ID:       primitive.NewObjectID(),
		Name:     "Last One",
		Price:    decimal.RequireFromString("40"),
		Stock:    1,
		IsActive: true,
	}
	env.catalog.products[lastUnit.ID] = &lastUnit

	users := []models.Principal{
		{ID: primitive.NewObjectID(), Role: models.RoleUser},
		{ID: primitive.NewObjectID(), Role: models.RoleUser},
	}
	for _, u := range users {
		cart := models.Cart{UserID: u.ID}
		require.NoError(t, cart.AddItem(lastUnit, 1))
		require.NoError(t, env.carts.Save(ctx, &cart))
	}

	errs := make([]error, len(users))
	var wg sync.WaitGroup
	for i, u := range users {
		i, u := i, u
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.service.PlaceOrder(ctx, u, env.placeInput())
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.True(t, apperr.IsKind(err, apperr.KindStock), "unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded, "exactly one checkout must win the last unit")
	require.Equal(t, 0, env.catalog.stock(lastUnit.ID))
	require.Equal(t, 1, env.orders.count())
}

// rendezvousOrderStore holds every GetByID caller at a barrier until all
// expected callers have read, so racing transitions act on the same
// observed order state.
type rendezvousOrderStore struct {
	*memOrderStore
	gate sync.WaitGroup
}

func (s *rendezvousOrderStore) GetByID(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	order, err := s.memOrderStore.GetByID(ctx, id)
	s.gate.Done()
	s.gate.Wait()
	return order, err
}

func TestConcurrentCancelReleasesStockOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, PriceLive)
	env.fillCart(t)

	order, err := env.service.PlaceOrder(ctx, env.user, env.placeInput())
	require.NoError(t, err)
	require.Equal(t, 8, env.catalog.stock(env.keyboard.ID))

	gated := &rendezvousOrderStore{memOrderStore: env.orders}
	gated.gate.Add(2)
	svc := NewService(env.carts, gated, inventory.NewGuard(env.catalog), env.pricer, PriceLive)
	svc.now = func() time.Time { return env.now }

	// The owner and an admin cancel at the same time; both read the order
	// as pending before either writes.
	admin := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	actors := []models.Principal{env.user, admin}
	errs := make([]error, len(actors))
	var wg sync.WaitGroup
	for i, p := range actors {
		i, p := i, p
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.CancelOrder(ctx, p, order.ID, "double submit")
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.True(t, apperr.IsKind(err, apperr.KindInvalidTransition), "unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded, "exactly one cancellation may claim the order")
	require.Equal(t, 10, env.catalog.stock(env.keyboard.ID), "stock must be restored exactly once")
	require.Equal(t, 5, env.catalog.stock(env.mouse.ID))

	stored, err := env.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusCancelled, stored.Status)
}

func TestConcurrentStatusUpdateSingleWinner(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, PriceLive)
	env.fillCart(t)

	order, err := env.service.PlaceOrder(ctx, env.user, env.placeInput())
	require.NoError(t, err)

	gated := &rendezvousOrderStore{memOrderStore: env.orders}
	gated.gate.Add(2)
	svc := NewService(env.carts, gated, inventory.NewGuard(env.catalog), env.pricer, PriceLive)
	svc.now = func() time.Time { return env.now }

	admin := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.UpdateStatus(ctx, admin, order.ID, models.OrderStatusConfirmed)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.True(t, apperr.IsKind(err, apperr.KindInvalidTransition), "unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded, "exactly one update may apply the transition")

	stored, err := env.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusConfirmed, stored.Status)
}

func TestCancelOrderRestoresStock(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, PriceLive)
	env.fillCart(t)

	order, err := env.service.PlaceOrder(ctx, env.user, env.placeInput())
	require.NoError(t, err)
	require.Equal(t, 8, env.catalog.stock(env.keyboard.ID))

	cancelled, err := env.service.CancelOrder(ctx, env.user, order.ID, "changed my mind")
	require.NoError(t, err)

	require.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	require.Equal(t, "changed my mind", cancelled.CancelReason)
	require.NotNil(t, cancelled.CancelledAt)
	require.Equal(t, 10, env.catalog.stock(env.keyboard.ID), "cancellation must restore stock")
	require.Equal(t, 5, env.catalog.stock(env.mouse.ID))
}

func TestCancelOrderShippedFails(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, PriceLive)
	env.fillCart(t)

	order, err := env.service.PlaceOrder(ctx, env.user, env.placeInput())
	require.NoError(t, err)

	admin := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	for _, next := range []models.OrderStatus{
		models.OrderStatusConfirmed, models.OrderStatusProcessing, models.OrderStatusShipped,
	} {
		_, err = env.service.UpdateStatus(ctx, admin, order.ID, next)
		require.NoError(t, err)
	}

	_, err = env.service.CancelOrder(ctx, env.user, order.ID, "too late")
	require.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))
	require.Equal(t, 8, env.catalog.stock(env.keyboard.ID), "stock must be unchanged")
}

func TestCancelOrderAuthorization(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, PriceLive)
	env.fillCart(t)

	order, err := env.service.PlaceOrder(ctx, env.user, env.placeInput())
	require.NoError(t, err)

	stranger := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleUser}
	_, err = env.service.CancelOrder(ctx, stranger, order.ID, "not mine")
	require.True(t, apperr.IsKind(err, apperr.KindAuthorization))

	admin := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	_, err = env.service.CancelOrder(ctx, admin, order.ID, "fraud review")
	require.NoError(t, err)
}

func TestGetOrderAuthorization(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, PriceLive)
	env.fillCart(t)

	order, err := env.service.PlaceOrder(ctx, env.user, env.placeInput())
	require.NoError(t, err)

	stranger := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleUser}
	_, err = env.service.GetOrder(ctx, stranger, order.ID)
	require.True(t, apperr.IsKind(err, apperr.KindAuthorization))

	admin := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	_, err = env.service.GetOrder(ctx, admin, order.ID)
	require.NoError(t, err)
}

func TestListOrdersScopedToOwner(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, PriceLive)
	env.fillCart(t)

	_, err := env.service.PlaceOrder(ctx, env.user, env.placeInput())
	require.NoError(t, err)

	other := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleUser}
	cart := models.Cart{UserID: other.ID}
	require.NoError(t, cart.AddItem(env.keyboard, 1))
	require.NoError(t, env.carts.Save(ctx, &cart))
	_, err = env.service.PlaceOrder(ctx, other, env.placeInput())
	require.NoError(t, err)

	mine, err := env.service.ListOrders(ctx, env.user, ListOptions{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, env.user.ID, mine[0].UserID)

	admin := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	all, err := env.service.ListOrders(ctx, admin, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, PriceLive)
	env.fillCart(t)

	order, err := env.service.PlaceOrder(ctx, env.user, env.placeInput())
	require.NoError(t, err)

	t.Run("non-admin -> authorization error", func(t *testing.T) {
		_, err := env.service.UpdateStatus(ctx, env.user, order.ID, models.OrderStatusConfirmed)
		require.True(t, apperr.IsKind(err, apperr.KindAuthorization))
	})

	admin := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleAdmin}

	t.Run("illegal jump -> invalid transition", func(t *testing.T) {
		_, err := env.service.UpdateStatus(ctx, admin, order.ID, models.OrderStatusDelivered)
		require.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))
	})

	t.Run("full lifecycle", func(t *testing.T) {
		for _, next := range []models.OrderStatus{
			models.OrderStatusConfirmed, models.OrderStatusProcessing,
			models.OrderStatusShipped, models.OrderStatusDelivered,
		} {
			updated, err := env.service.UpdateStatus(ctx, admin, order.ID, next)
			require.NoError(t, err)
			require.Equal(t, next, updated.Status)
		}
		delivered, err := env.service.GetOrder(ctx, admin, order.ID)
		require.NoError(t, err)
		require.Equal(t, models.PaymentStatusCompleted, delivered.PaymentStatus)
		require.NotNil(t, delivered.DeliveredAt)
	})
}

func TestUpdateStatusCancelReleasesStock(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, PriceLive)
	env.fillCart(t)

	order, err := env.service.PlaceOrder(ctx, env.user, env.placeInput())
	require.NoError(t, err)
	require.Equal(t, 8, env.catalog.stock(env.keyboard.ID))

	admin := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	cancelled, err := env.service.UpdateStatus(ctx, admin, order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)

	require.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	require.Equal(t, 10, env.catalog.stock(env.keyboard.ID))
}

func TestUpdatePaymentStatus(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, PriceLive)
	env.fillCart(t)

	order, err := env.service.PlaceOrder(ctx, env.user, env.placeInput())
	require.NoError(t, err)

	admin := models.Principal{ID: primitive.NewObjectID(), Role: models.RoleAdmin}

	t.Run("non-admin -> authorization error", func(t *testing.T) {
		_, err := env.service.UpdatePaymentStatus(ctx, env.user, order.ID, models.PaymentStatusCompleted)
		require.True(t, apperr.IsKind(err, apperr.KindAuthorization))
	})

	t.Run("unknown status -> validation error", func(t *testing.T) {
		_, err := env.service.UpdatePaymentStatus(ctx, admin, order.ID, "wired")
		require.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("admin sets status", func(t *testing.T) {
		updated, err := env.service.UpdatePaymentStatus(ctx, admin, order.ID, models.PaymentStatusCompleted)
		require.NoError(t, err)
		require.Equal(t, models.PaymentStatusCompleted, updated.PaymentStatus)
	})
}
