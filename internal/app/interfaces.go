package app

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/unicafe/cafeteria/config"
	"github.com/unicafe/cafeteria/internal/cart"
	"github.com/unicafe/cafeteria/internal/inventory"
	"github.com/unicafe/cafeteria/internal/order"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// ServiceProvider exposes the cafeteria services
type ServiceProvider interface {
	Ledger() *inventory.Ledger
	Catalog() *inventory.Catalog
	Carts() *cart.Resolver
	CartItems() *cart.ItemManager
	Orders() *order.Assembler
	Fulfillment() *order.StateMachine
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	ServiceProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
	SeedData()
	StartBackgroundJobs(ctx context.Context) error
	Jobs() []JobInfo
	// RunJob runs a background job immediately by name
	RunJob(name string) error
	Release()
}
