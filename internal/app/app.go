package app

import (
	"context"
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/unicafe/cafeteria/config"
	"github.com/unicafe/cafeteria/internal/cart"
	"github.com/unicafe/cafeteria/internal/domain"
	"github.com/unicafe/cafeteria/internal/inventory"
	"github.com/unicafe/cafeteria/internal/order"
	"github.com/unicafe/cafeteria/pkg/common"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron
	jobIDs    map[string]cron.EntryID
	pool      *ants.Pool
	bus       EventBus.Bus
	redis     *redis.Client
	clock     common.Clock

	ledger    *inventory.Ledger
	catalog   *inventory.Catalog
	resolver  *cart.Resolver
	items     *cart.ItemManager
	assembler *order.Assembler
	machine   *order.StateMachine
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ ServiceProvider   = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig, clock: common.SystemClock}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

// OverrideClock replaces the clock services read "now" from (used in tests).
// It must be called before Init or InitServices.
func (a *Application) OverrideClock(clock common.Clock) {
	a.clock = clock
}

func (a *Application) Init(cfg *config.AppConfig) error {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg)
	common.SetNodeID(cfg.System.NodeID)

	if a.gormDB == nil {
		if cfg.Database.Type == "" {
			cfg.Database.Type = "postgres"
		}
		a.gormDB, err = getDatabase(cfg.Database, cfg.GetDataDir())
		if err != nil {
			return err
		}
		zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)
	}

	if err := a.MigrateDB(false); err != nil {
		return errors.Wrap(err, "database migration failed")
	}
	return a.InitServices()
}

func initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	if cfg.System.Debug {
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		zapConfig.OutputPaths = []string{"stdout"}
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)
}

// InitServices builds the event bus, worker pool and domain services on top
// of the current database handle.
func (a *Application) InitServices() error {
	cfg := a.appConfig

	taxRate, err := decimal.NewFromString(cfg.Order.TaxRate)
	if err != nil {
		return errors.Wrapf(err, "invalid order tax rate %q", cfg.Order.TaxRate)
	}
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		loc = time.UTC
	}

	a.bus = EventBus.New()
	a.subscribeEvents()

	a.pool, err = ants.NewPool(4, ants.WithPanicHandler(func(p interface{}) {
		zap.S().Errorf("job panic: %v", p)
	}))
	if err != nil {
		return errors.Wrap(err, "create job pool")
	}

	var seq order.Sequencer = order.DBSequencer{}
	if cfg.Order.Sequence == "redis" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		seq = order.NewRedisSequencer(a.redis)
	}

	a.ledger = inventory.NewLedger(a.gormDB, a.clock)
	a.catalog = inventory.NewCatalog(a.gormDB, a.ledger)
	a.resolver = cart.NewResolver(a.gormDB, a.clock, cart.TTL{Guest: cfg.Cart.GuestTTL, User: cfg.Cart.UserTTL})
	a.items = cart.NewItemManager(a.gormDB, a.resolver)
	a.assembler = order.NewAssembler(a.gormDB, a.ledger, seq, a.clock, a.bus, order.Config{
		NumberPrefix: cfg.Order.NumberPrefix,
		TaxRate:      taxRate,
		Location:     loc,
	})
	a.machine = order.NewStateMachine(a.gormDB, a.ledger, a.clock, a.bus)
	return nil
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Bus() EventBus.Bus                { return a.bus }
func (a *Application) Ledger() *inventory.Ledger        { return a.ledger }
func (a *Application) Catalog() *inventory.Catalog      { return a.catalog }
func (a *Application) Carts() *cart.Resolver            { return a.resolver }
func (a *Application) CartItems() *cart.ItemManager     { return a.items }
func (a *Application) Orders() *order.Assembler         { return a.assembler }
func (a *Application) Fulfillment() *order.StateMachine { return a.machine }

// StartBackgroundJobs registers the cron jobs and starts the scheduler. The
// scheduler stops when ctx is done.
func (a *Application) StartBackgroundJobs(ctx context.Context) error {
	if err := a.initJob(); err != nil {
		return err
	}
	a.sched.Start()
	go func() {
		<-ctx.Done()
		<-a.sched.Stop().Done()
	}()
	return nil
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.pool != nil {
		_ = a.pool.ReleaseTimeout(10 * time.Second)
	}
	if a.bus != nil {
		a.bus.WaitAsync()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = zap.L().Sync()
}
