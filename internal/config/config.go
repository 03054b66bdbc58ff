package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the binaries read from the environment. A
// .env file in the working directory is loaded first when present.
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"commerce"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"commerce"`
	DBName     string `env:"DB_NAME" envDefault:"commerce"`

	// KafkaBrokers empty disables event publishing entirely.
	KafkaBrokers string `env:"KAFKA_BROKERS"`

	CheckoutAPIURL string `env:"CHECKOUT_API_URL" envDefault:"https://api.stripe.com"`
	CheckoutAPIKey string `env:"CHECKOUT_API_KEY"`

	JWTSecret string `env:"JWT_SECRET"`

	WatcherCommand string        `env:"WATCHER_CMD" envDefault:"python3 services/intelligence/watcher.py"`
	BrainCommand   string        `env:"BRAIN_CMD" envDefault:"python3 services/intelligence/brain.py"`
	StageTimeout   time.Duration `env:"SYNC_STAGE_TIMEOUT" envDefault:"15m"`

	FeedBaseURL string `env:"FEED_BASE_URL" envDefault:"https://shop.vendex.example"`
	Currency    string `env:"CURRENCY" envDefault:"USD"`
}

// Load reads the optional .env file and parses the environment.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// DSN builds the Postgres connection string the way the order store
// expects it.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}
