// Package config centralises environment configuration. Values are read
// once at startup and passed explicitly to the components that need them;
// nothing else in the repository reads the environment.
package config

import (
	"log"
	"os"

	"go-storefront/pricing"

	"github.com/shopspring/decimal"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port          string
	MongoURI      string
	DBName        string
	JWTSecret     string
	PostmarkToken string
	EmailSender   string
	PricePolicy   string // "live" or "snapshot"
	Pricing       pricing.Config
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() Config {
	return Config{
		Port:          getenv("PORT", "8000"),
		MongoURI:      getenv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:        getenv("DB_NAME", "storefront"),
		JWTSecret:     getenv("JWT_SECRET", ""),
		PostmarkToken: os.Getenv("POSTMARK_API_TOKEN"),
		EmailSender:   os.Getenv("EMAIL_SENDER"),
		PricePolicy:   getenv("PRICE_POLICY", "live"),
		Pricing: pricing.Config{
			TaxRate:               decimalEnv("TAX_RATE", "0.08"),
			FreeShippingThreshold: decimalEnv("FREE_SHIPPING_THRESHOLD", "50"),
			ShippingFee:           decimalEnv("SHIPPING_FEE", "10"),
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func decimalEnv(key, fallback string) decimal.Decimal {
	raw := getenv(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		log.Fatalf("invalid decimal value %q for %s: %v", raw, key, err)
	}
	return d
}
