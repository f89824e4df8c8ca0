package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	DB           *Postgres     `yaml:"database"`
	RMQ          *RabbitMQ     `yaml:"rabbitmq"`
	Store        *Store        `yaml:"store"`
	Sync         *Sync         `yaml:"sync"`
	Canteen      *Canteen      `yaml:"canteen"`
	Notification *Notification `yaml:"notification"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST"`
	Port     string `yaml:"port" env:"POSTGRES_PORT"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	Database string `yaml:"database" env:"POSTGRES_DBNAME"`
	MaxConns int32  `yaml:"max_conns" env:"POSTGRES_MAX_CONNS"`
}

type RabbitMQ struct {
	User     string `yaml:"user" env:"RABBITMQ_USER"`
	Password string `yaml:"password" env:"RABBITMQ_PASSWORD"`
	Host     string `yaml:"host" env:"RABBITMQ_HOST"`
	Port     string `yaml:"port" env:"RABBITMQ_PORT_APP"`
	VHost    string `yaml:"vhost" env:"RABBITMQ_VHOST"`
}

// Store selects the order/menu store backend.
type Store struct {
	Driver     string `yaml:"driver" env:"STORE_DRIVER"`
	SQLitePath string `yaml:"sqlite_path" env:"STORE_SQLITE_PATH"`
}

type Sync struct {
	PollInterval time.Duration `yaml:"poll_interval" env:"SYNC_POLL_INTERVAL"`
}

type Canteen struct {
	Name          string  `yaml:"name" env:"CANTEEN_NAME"`
	TaxPercentage float64 `yaml:"tax_percentage" env:"CANTEEN_TAX_PERCENTAGE"`
	Timezone      string  `yaml:"timezone" env:"CANTEEN_TIMEZONE"`
	Tables        int     `yaml:"tables" env:"CANTEEN_TABLES"`
}

type Notification struct {
	DismissAfter time.Duration `yaml:"dismiss_after" env:"NOTIFICATION_DISMISS_AFTER"`
}

// Location resolves the canteen timezone used for day bucketing.
func (c *Canteen) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// IsConfigured reports whether a broker host was given at all.
func (r *RabbitMQ) IsConfigured() bool {
	return r != nil && r.Host != ""
}

// LoadConfig reads the yaml file at configPath (a missing file is allowed),
// then overlays environment variables and fills defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", configPath, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Defaults() *Config {
	return &Config{
		DB: &Postgres{
			Host:     "localhost",
			Port:     "5432",
			User:     "admin",
			Password: "admin",
			Database: "canteen_db",
			MaxConns: 10,
		},
		RMQ: &RabbitMQ{
			Port:  "5672",
			User:  "guest",
			VHost: "",
		},
		Store: &Store{
			Driver:     DriverPostgres,
			SQLitePath: "canteen.db",
		},
		Sync: &Sync{
			PollInterval: 10 * time.Second,
		},
		Canteen: &Canteen{
			Name:          "Campus Canteen",
			TaxPercentage: 5,
			Tables:        12,
		},
		Notification: &Notification{
			DismissAfter: 5 * time.Second,
		},
	}
}

// fillDefaults restores sections a yaml file set to null.
func (c *Config) fillDefaults() {
	d := Defaults()
	if c.DB == nil {
		c.DB = d.DB
	}
	if c.RMQ == nil {
		c.RMQ = d.RMQ
	}
	if c.Store == nil {
		c.Store = d.Store
	}
	if c.Sync == nil {
		c.Sync = d.Sync
	}
	if c.Canteen == nil {
		c.Canteen = d.Canteen
	}
	if c.Notification == nil {
		c.Notification = d.Notification
	}
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("store driver must be one of postgres, sqlite, memory: %q", c.Store.Driver)
	}
	if c.Sync.PollInterval <= 0 {
		return fmt.Errorf("sync poll interval must be positive: %s", c.Sync.PollInterval)
	}
	if c.Canteen.TaxPercentage < 0 {
		return fmt.Errorf("tax percentage cannot be negative: %v", c.Canteen.TaxPercentage)
	}
	if c.Canteen.Tables <= 0 {
		return fmt.Errorf("number of tables must be positive: %d", c.Canteen.Tables)
	}
	if c.Notification.DismissAfter <= 0 {
		return fmt.Errorf("notification dismiss interval must be positive: %s", c.Notification.DismissAfter)
	}
	return nil
}
