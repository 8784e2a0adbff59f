package config

import (
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// SysConfig system configuration
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	NodeID   int64  `yaml:"node_id"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig web server configuration
type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	JwtSecret     string `yaml:"jwt_secret"`
	SessionSecret string `yaml:"session_secret"`
}

// DBConfig database configuration, type is postgres or sqlite
type DBConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// CartConfig controls cart expiry and reaping.
type CartConfig struct {
	GuestTTL      time.Duration `yaml:"guest_ttl"`
	UserTTL       time.Duration `yaml:"user_ttl"`
	StaleMinutes  int           `yaml:"stale_minutes"`
	AbandonedDays int           `yaml:"abandoned_days"`
	ReapSchedule  string        `yaml:"reap_schedule"`
	PurgeSchedule string        `yaml:"purge_schedule"`
}

// OrderConfig controls order numbering and tax.
type OrderConfig struct {
	NumberPrefix string `yaml:"number_prefix"`
	TaxRate      string `yaml:"tax_rate"`
	Sequence     string `yaml:"sequence"` // db or redis
}

type InventoryConfig struct {
	LowStockSchedule string `yaml:"low_stock_schedule"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AppConfig struct {
	System    SysConfig       `yaml:"system"`
	Web       WebConfig       `yaml:"web"`
	Database  DBConfig        `yaml:"database"`
	Logger    LogConfig       `yaml:"logger"`
	Cart      CartConfig      `yaml:"cart"`
	Order     OrderConfig     `yaml:"order"`
	Inventory InventoryConfig `yaml:"inventory"`
	Redis     RedisConfig     `yaml:"redis"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

// DefaultAppConfig returns the built-in defaults.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "Cafeteria",
			Location: "America/Mexico_City",
			Workdir:  "/var/cafeteria",
			NodeID:   1,
		},
		Web: WebConfig{
			Host:          "0.0.0.0",
			Port:          8080,
			JwtSecret:     "cafeteria-dev-secret",
			SessionSecret: "cafeteria-session-secret",
		},
		Database: DBConfig{
			Type:     "postgres",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "cafeteria",
			User:     "postgres",
			Passwd:   "postgres",
			MaxConn:  100,
			IdleConn: 10,
		},
		Logger: LogConfig{
			Mode:     "development",
			Filename: "/var/cafeteria/cafeteria.log",
		},
		Cart: CartConfig{
			GuestTTL:      2 * time.Hour,
			UserTTL:       7 * 24 * time.Hour,
			StaleMinutes:  30,
			AbandonedDays: 30,
			ReapSchedule:  "@every 5m",
			PurgeSchedule: "@daily",
		},
		Order: OrderConfig{
			NumberPrefix: "ORD",
			TaxRate:      "0.16",
			Sequence:     "db",
		},
		Inventory: InventoryConfig{
			LowStockSchedule: "@hourly",
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
	}
}

// LoadConfig reads the yaml file when it exists, then applies environment overrides.
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	if cfile != "" {
		data, err := os.ReadFile(cfile)
		if err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "read config %s", cfile)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "parse config %s", cfile)
			}
		}
	}
	applyEnv(cfg, os.Getenv)
	return cfg, nil
}

func setEnvValue(getenv func(string) string, name string, apply func(v string)) {
	if v := strings.TrimSpace(getenv(name)); v != "" {
		apply(v)
	}
}

func applyEnv(cfg *AppConfig, getenv func(string) string) {
	setEnvValue(getenv, "CAFETERIA_SYSTEM_WORKER_DIR", func(v string) { cfg.System.Workdir = v })
	setEnvValue(getenv, "CAFETERIA_SYSTEM_LOCATION", func(v string) { cfg.System.Location = v })
	setEnvValue(getenv, "CAFETERIA_SYSTEM_NODE_ID", func(v string) { cfg.System.NodeID = cast.ToInt64(v) })
	setEnvValue(getenv, "CAFETERIA_SYSTEM_DEBUG", func(v string) { cfg.System.Debug = cast.ToBool(v) })

	setEnvValue(getenv, "CAFETERIA_WEB_HOST", func(v string) { cfg.Web.Host = v })
	setEnvValue(getenv, "CAFETERIA_WEB_PORT", func(v string) { cfg.Web.Port = cast.ToInt(v) })
	setEnvValue(getenv, "CAFETERIA_WEB_JWT_SECRET", func(v string) { cfg.Web.JwtSecret = v })
	setEnvValue(getenv, "CAFETERIA_WEB_SESSION_SECRET", func(v string) { cfg.Web.SessionSecret = v })

	setEnvValue(getenv, "CAFETERIA_DB_TYPE", func(v string) { cfg.Database.Type = v })
	setEnvValue(getenv, "CAFETERIA_DB_HOST", func(v string) { cfg.Database.Host = v })
	setEnvValue(getenv, "CAFETERIA_DB_PORT", func(v string) { cfg.Database.Port = cast.ToInt(v) })
	setEnvValue(getenv, "CAFETERIA_DB_NAME", func(v string) { cfg.Database.Name = v })
	setEnvValue(getenv, "CAFETERIA_DB_USER", func(v string) { cfg.Database.User = v })
	setEnvValue(getenv, "CAFETERIA_DB_PWD", func(v string) { cfg.Database.Passwd = v })
	setEnvValue(getenv, "CAFETERIA_DB_DEBUG", func(v string) { cfg.Database.Debug = cast.ToBool(v) })

	setEnvValue(getenv, "CAFETERIA_LOGGER_MODE", func(v string) { cfg.Logger.Mode = v })
	setEnvValue(getenv, "CAFETERIA_LOGGER_FILE_ENABLE", func(v string) { cfg.Logger.FileEnable = cast.ToBool(v) })

	setEnvValue(getenv, "CAFETERIA_CART_GUEST_TTL", func(v string) { cfg.Cart.GuestTTL = cast.ToDuration(v) })
	setEnvValue(getenv, "CAFETERIA_CART_USER_TTL", func(v string) { cfg.Cart.UserTTL = cast.ToDuration(v) })
	setEnvValue(getenv, "CAFETERIA_CART_STALE_MINUTES", func(v string) { cfg.Cart.StaleMinutes = cast.ToInt(v) })
	setEnvValue(getenv, "CAFETERIA_CART_ABANDONED_DAYS", func(v string) { cfg.Cart.AbandonedDays = cast.ToInt(v) })

	setEnvValue(getenv, "CAFETERIA_ORDER_PREFIX", func(v string) { cfg.Order.NumberPrefix = v })
	setEnvValue(getenv, "CAFETERIA_ORDER_TAX_RATE", func(v string) { cfg.Order.TaxRate = v })
	setEnvValue(getenv, "CAFETERIA_ORDER_SEQUENCE", func(v string) { cfg.Order.Sequence = v })

	setEnvValue(getenv, "CAFETERIA_REDIS_ADDR", func(v string) { cfg.Redis.Addr = v })
	setEnvValue(getenv, "CAFETERIA_REDIS_PASSWORD", func(v string) { cfg.Redis.Password = v })
	setEnvValue(getenv, "CAFETERIA_REDIS_DB", func(v string) { cfg.Redis.DB = cast.ToInt(v) })
}
