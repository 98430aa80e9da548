// Package config содержит логику чтения конфигурации сервиса бронирования.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса бронирования.
type Config struct {
	RunAddress   string `env:"RUN_ADDRESS"`
	DatabaseURI  string `env:"DATABASE_URI"`
	RedisAddress string `env:"REDIS_ADDRESS"`
	AMQPURL      string `env:"AMQP_URL"`
	AuthSecret   string `env:"AUTH_SECRET"`

	BcryptCost           int      `env:"BCRYPT_COST" envDefault:"10"`
	BookingHorizonMonths int      `env:"BOOKING_HORIZON_MONTHS" envDefault:"3"`
	MaxStayNights        int      `env:"MAX_STAY_NIGHTS" envDefault:"365"`
	CORSAllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	ReserveRateLimit     float64  `env:"RESERVE_RATE_LIMIT" envDefault:"5"`
	ReserveRateBurst     int      `env:"RESERVE_RATE_BURST" envDefault:"10"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envRedisAddress := cfg.RedisAddress
	envAMQPURL := cfg.AMQPURL
	envAuthSecret := cfg.AuthSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RedisAddress, "r", "", "redis address for distributed room locks")
	flag.StringVar(&cfg.AMQPURL, "q", "", "RabbitMQ URL for order events")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret for signing auth tokens")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envRedisAddress != "" {
		cfg.RedisAddress = envRedisAddress
	}
	if envAMQPURL != "" {
		cfg.AMQPURL = envAMQPURL
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.BookingHorizonMonths <= 0 {
		return nil, fmt.Errorf("booking horizon must be positive, got %d", cfg.BookingHorizonMonths)
	}
	if cfg.MaxStayNights <= 0 {
		return nil, fmt.Errorf("max stay nights must be positive, got %d", cfg.MaxStayNights)
	}

	return cfg, nil
}
