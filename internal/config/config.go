package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

const (
	DriverFirestore = "firestore"
	DriverMySQL     = "mysql"
)

type Config struct {
	Port       string `env:"PORT" envDefault:"8080"`
	AppEnv     string `env:"APP_ENV" envDefault:"production"`
	AppBaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`

	StoreDriver            string `env:"STORE_DRIVER" envDefault:"firestore"`
	DBUser                 string `env:"DB_USER"`
	DBPassword             string `env:"DB_PASSWORD"`
	DBHost                 string `env:"DB_HOST"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`

	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`
	CredentialsFile   string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	StorageBucket     string `env:"STORAGE_BUCKET"`

	GeminiAPIKey string        `env:"GEMINI_API_KEY"`
	GeminiModel  string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	AITimeout    time.Duration `env:"AI_TIMEOUT" envDefault:"25s"`

	TomTomAPIKey string        `env:"TOMTOM_API_KEY"`
	MapTimeout   time.Duration `env:"MAP_TIMEOUT" envDefault:"10s"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	StripeCurrency      string `env:"STRIPE_CURRENCY" envDefault:"inr"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	AllowDevAuth          bool    `env:"ALLOW_DEV_AUTH" envDefault:"false"`
	DefaultSearchRadiusKm float64 `env:"DEFAULT_SEARCH_RADIUS_KM" envDefault:"50"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.StripeCurrency = strings.ToLower(cfg.StripeCurrency)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

// Validate checks the settings each storage driver needs.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverFirestore:
		if c.FirebaseProjectID == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID is required for the firestore driver"))
		}
	case DriverMySQL:
		if c.DBUser == "" || c.DBName == "" {
			errs = append(errs, errors.New("DB_USER and DB_NAME are required for the mysql driver"))
		}
		if c.DBHost == "" && c.InstanceConnectionName == "" {
			errs = append(errs, errors.New("DB_HOST or INSTANCE_CONNECTION_NAME is required for the mysql driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.AllowDevAuth && !c.Development() {
		errs = append(errs, errors.New("ALLOW_DEV_AUTH is only allowed with APP_ENV=development"))
	}
	if c.DefaultSearchRadiusKm <= 0 {
		errs = append(errs, errors.New("DEFAULT_SEARCH_RADIUS_KM must be positive"))
	}
	return errors.Join(errs...)
}
