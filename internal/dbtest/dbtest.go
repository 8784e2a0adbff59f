// Package dbtest opens throwaway SQLite databases for service tests.
package dbtest

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/unicafe/cafeteria/internal/domain"
	"github.com/unicafe/cafeteria/pkg/common"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Epoch is the starting time of every test clock.
var Epoch = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// Env bundles a migrated database with the clock gorm timestamps follow.
type Env struct {
	DB    *gorm.DB
	Clock *common.FixedClock
}

// Open creates a migrated database in the test's temp dir. A single
// connection serialises writers the way SQLite needs.
func Open(t testing.TB) *Env {
	t.Helper()
	clock := common.NewFixedClock(Epoch)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		filepath.Join(t.TempDir(), "cafeteria.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: clock.Now,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(domain.Tables...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &Env{DB: db, Clock: clock}
}

// Product inserts a product with the given stock. Fixtures write stock
// directly; services never do.
func (e *Env) Product(t testing.TB, name, price string, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		MinStock: 1,
		Status:   domain.ProductActive,
	}
	if stock == 0 {
		p.Status = domain.ProductOutOfStock
	}
	if err := e.DB.Create(p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

// Reload re-reads a product.
func (e *Env) Reload(t testing.TB, id int64) *domain.Product {
	t.Helper()
	var p domain.Product
	if err := e.DB.First(&p, id).Error; err != nil {
		t.Fatalf("reload product %d: %v", id, err)
	}
	return &p
}

// Logs returns ledger entries of a product, oldest first.
func (e *Env) Logs(t testing.TB, productID int64) []domain.InventoryLog {
	t.Helper()
	var logs []domain.InventoryLog
	if err := e.DB.Where("product_id = ?", productID).Order("created_at ASC, id ASC").Find(&logs).Error; err != nil {
		t.Fatalf("load logs: %v", err)
	}
	return logs
}

// Count returns the row count of model matching the optional condition.
func (e *Env) Count(t testing.TB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := e.DB.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
