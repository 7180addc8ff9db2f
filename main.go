// main.go
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"go-storefront/checkout"
	"go-storefront/config"
	"go-storefront/controllers"
	"go-storefront/inventory"
	"go-storefront/middleware"
	"go-storefront/pricing"
	"go-storefront/routes"
	"go-storefront/store"
	"go-storefront/utils"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Proceeding with environment variables.")
	}

	cfg := config.FromEnv()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	utils.JwtKey = []byte(cfg.JWTSecret)

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Connect to MongoDB
	client := utils.ConnectDB(cfg.MongoURI)
	defer func() {
		if err := client.Disconnect(context.TODO()); err != nil {
			log.Fatal(err)
		}
	}()
	db := client.Database(cfg.DBName, options.Database().SetRegistry(store.Registry()))

	// Initialize stores
	userStore := store.NewUserStore(db)
	productStore := store.NewProductStore(db)
	cartStore := store.NewCartStore(db)
	orderStore := store.NewOrderStore(db)
	for _, ensure := range []func(context.Context) error{
		userStore.EnsureIndexes,
		productStore.EnsureIndexes,
		cartStore.EnsureIndexes,
		orderStore.EnsureIndexes,
	} {
		if err := ensure(context.Background()); err != nil {
			log.Fatal(err)
		}
	}

	// Initialize the core services
	guard := inventory.NewGuard(productStore)
	pricer := pricing.NewEngine(cfg.Pricing)
	checkoutService := checkout.NewService(cartStore, orderStore, guard, pricer, checkout.PricePolicy(cfg.PricePolicy))

	// Initialize EmailService (no-op without an API token)
	emailService := utils.NewEmailService(cfg.PostmarkToken, cfg.EmailSender)
	if emailService == nil {
		slog.Warn("POSTMARK_API_TOKEN not set, order emails disabled")
	}

	// Initialize controllers
	userController := controllers.NewUserController(userStore)
	productController := controllers.NewProductController(productStore)
	cartController := controllers.NewCartController(cartStore, productStore)
	orderController := controllers.NewOrderController(checkoutService, userStore, emailService)

	// Set up the router
	router := mux.NewRouter()
	metrics := middleware.NewMetrics()
	router.Use(metrics.Middleware)
	router.Handle("/metrics", metrics.Handler()).Methods("GET")
	routes.RegisterRoutes(router, userController, productController, cartController, orderController)

	// Start the server
	fmt.Printf("Server is running on port %s\n", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, router))
}
