// Package dbtest opens throwaway migrated databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/models"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/repo"
	"github.com/CODEDESTROYER009/The-Green-Shop/pkg/db"
)

// New returns a migrated sqlite database backed by a file in t.TempDir().
func New(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := db.Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "shop.db"))
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(gdb))

	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

// Product inserts a catalog product.
func Product(t testing.TB, gdb *gorm.DB, title, price, co2 string, points int, tags ...string) models.Product {
	t.Helper()

	p := models.Product{
		ID:           uuid.New(),
		Title:        title,
		Description:  title + " description",
		Price:        decimal.RequireFromString(price),
		Category:     "home",
		EcoTags:      tags,
		IsVerified:   true,
		CO2Saved:     decimal.RequireFromString(co2),
		PlasticSaved: decimal.RequireFromString("0.1"),
		WaterSaved:   decimal.RequireFromString("2"),
		GreenPoints:  points,
		Vendor:       "GreenCo",
	}
	require.NoError(t, gdb.Create(&p).Error)
	return p
}
