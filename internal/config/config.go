package config

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/checkout"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/repo"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/search"
	pkgconfig "github.com/CODEDESTROYER009/The-Green-Shop/pkg/config"
	"github.com/CODEDESTROYER009/The-Green-Shop/pkg/db"
)

type Config struct {
	pkgconfig.Config
}

// Load reads the storefront settings and exits when a required one is missing.
func Load() *Config {
	cfg := &Config{Config: pkgconfig.Load()}

	pkgconfig.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	pkgconfig.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")

	return cfg
}

func (c *Config) Checkout() checkout.Config {
	return checkout.Config{
		RetryAttempts:   c.CheckoutRetryAttempts,
		RetryInterval:   c.CheckoutRetryInterval,
		FinalizeTimeout: c.CheckoutFinalizeTimeout,
	}
}

func (c *Config) Search() search.Config {
	return search.Config{
		URL:      c.ESURL,
		User:     c.ESUser,
		Password: c.ESPassword,
		Index:    c.ESIndex,
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// InitDB opens the database and migrates the storefront tables.
func InitDB(ctx context.Context, dsn string) (*gorm.DB, error) {
	gdb, err := db.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(gdb); err != nil {
		_ = db.Close(gdb)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return gdb, nil
}
