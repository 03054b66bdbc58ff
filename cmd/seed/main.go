package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/vendexhq/commerce-engine/internal/auth"
	"github.com/vendexhq/commerce-engine/internal/config"
	"github.com/vendexhq/commerce-engine/internal/store"
	"github.com/vendexhq/commerce-engine/pkg/models"
)

// seed loads a small demo catalog and can mint an admin token for
// bootstrapping ops access.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	adminSubject := flag.String("admin-token", "", "print an admin bearer token for the given subject and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if *adminSubject != "" {
		if cfg.JWTSecret == "" {
			logger.Fatal("JWT_SECRET is required to mint tokens")
		}
		manager := auth.NewManager(cfg.JWTSecret, logger)
		token, err := manager.GenerateToken(*adminSubject, auth.RoleAdmin, 72*time.Hour)
		if err != nil {
			logger.WithError(err).Fatal("Failed to generate token")
		}
		fmt.Println(token)
		return
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.WithError(err).Fatal("Database is not reachable")
	}
	if err := store.CreateTables(db); err != nil {
		logger.WithError(err).Fatal("Failed to create tables")
	}

	productStore := store.NewPostgresProductStore(db, logger)

	ctx := context.Background()
	for _, p := range demoProducts() {
		product := p
		if err := productStore.UpsertBySKU(ctx, &product); err != nil {
			logger.WithError(err).WithField("sku", product.SKU).Fatal("Failed to seed product")
		}
	}

	logger.WithField("count", len(demoProducts())).Info("Demo catalog seeded")
}

func demoProducts() []models.Product {
	return []models.Product{
		{
			ID: 1, SKU: "VDX-LAMP-001",
			Title:       "Modern Dimmable LED Desk Lamp with USB Port",
			Description: "Architect-style desk lamp with touch control and three color modes.",
			Price:       34.99, Cost: 11.20,
			Image:        "https://images.unsplash.com/photo-1534073828943-f801091a7d58?auto=format&fit=crop&w=800&q=80",
			Brand:        models.DefaultBrand,
			Category:     "Home & Garden > Lighting > Lamps",
			Condition:    models.DefaultCondition,
			Availability: models.DefaultAvailability,
		},
		{
			ID: 2, SKU: "VDX-GROOM-001",
			Title:       "Professional Low Noise Pet Grooming Kit",
			Description: "Cordless clippers with stainless steel blades and four guard combs.",
			Price:       42.50, Cost: 15.80,
			Image:        "https://images.unsplash.com/photo-1516734212186-a967f81ad0d7?auto=format&fit=crop&w=800&q=80",
			Brand:        models.DefaultBrand,
			Category:     "Animals & Pet Supplies > Pet Supplies > Grooming",
			Condition:    models.DefaultCondition,
			Availability: models.DefaultAvailability,
		},
		{
			ID: 3, SKU: "VDX-SOLAR-001",
			Title:       "Waterproof Motion Sensor Solar Outdoor Light",
			Description: "IP65 dusk-to-dawn security light with wide-angle coverage.",
			Price:       27.99, Cost: 8.40,
			Image:        "https://images.unsplash.com/photo-1509742614949-a29bc09e992d?auto=format&fit=crop&w=800&q=80",
			Brand:        models.DefaultBrand,
			Category:     "Home & Garden > Lighting > Outdoor Lighting",
			Condition:    models.DefaultCondition,
			Availability: models.DefaultAvailability,
		},
		{
			ID: 4, SKU: "VDX-FAN-001",
			Title:       "Mini USB Rechargeable Portable Handheld Fan",
			Description: "Pocket-sized three-speed fan with a 20 hour battery.",
			Price:       15.99, Cost: 4.30,
			Image:        "https://images.unsplash.com/photo-1618941716939-553df5c6c27e?auto=format&fit=crop&w=800&q=80",
			Brand:        models.DefaultBrand,
			Category:     "Home & Garden > Household Appliances > Climate Control Appliances > Fans",
			Condition:    models.DefaultCondition,
			Availability: models.DefaultAvailability,
		},
	}
}
