package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Booking    BookingConfig    `yaml:"booking"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Payment    PaymentConfig    `yaml:"payment"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Push       PushConfig       `yaml:"push"`
	AMQP       AMQPConfig       `yaml:"amqp"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	PublicBaseURL   string  `yaml:"public_base_url"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres | sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
	EnableExclusion        bool   `yaml:"enable_exclusion"`
}

// BookingConfig holds the reservation rules.
type BookingConfig struct {
	MinStayDays      int            `yaml:"min_stay_days"`
	MaxStayDays      int            `yaml:"max_stay_days"`
	AnticipationDays int            `yaml:"anticipation_days"`
	PatienceMinutes  int            `yaml:"patience_minutes"`
	Patience         time.Duration  `yaml:"-"`
	Timezone         string         `yaml:"timezone"`
	Location         *time.Location `yaml:"-"`
}

// CatalogConfig points at the room catalog file synced at startup.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// PaymentConfig selects and configures the checkout provider.
type PaymentConfig struct {
	Provider               string `yaml:"provider"` // mock | mercadopago | midtrans
	Currency               string `yaml:"currency"`
	MercadoPagoAccessToken string `yaml:"mercadopago_access_token"`
	MidtransServerKey      string `yaml:"midtrans_server_key"`
	MidtransProduction     bool   `yaml:"midtrans_production"`
}

// SchedulerConfig controls the deferred job runner and the completion sweeper.
type SchedulerConfig struct {
	PollIntervalSeconds int           `yaml:"poll_interval_seconds"`
	PollInterval        time.Duration `yaml:"-"`
	BatchSize           int           `yaml:"batch_size"`
	MaxAttempts         int           `yaml:"max_attempts"`
	RetryBackoffSeconds int           `yaml:"retry_backoff_seconds"`
	RetryBackoff        time.Duration `yaml:"-"`
	SweepSpec           string        `yaml:"sweep_spec"`
}

// WorkerPoolConfig holds the configuration for the worker pools.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// AMQPConfig holds the broker used to hand notification events to the mailer.
type AMQPConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets secrets and deployment specifics come from the environment.
func (cfg *Config) applyEnv() {
	overrides := map[string]*string{
		"DATABASE_DSN":             &cfg.Database.DSN,
		"DATABASE_DRIVER":          &cfg.Database.Driver,
		"PAYMENT_PROVIDER":         &cfg.Payment.Provider,
		"MERCADOPAGO_ACCESS_TOKEN": &cfg.Payment.MercadoPagoAccessToken,
		"MIDTRANS_SERVER_KEY":      &cfg.Payment.MidtransServerKey,
		"AMQP_URL":                 &cfg.AMQP.URL,
		"VAPID_PUBLIC_KEY":         &cfg.Push.PublicKey,
		"VAPID_PRIVATE_KEY":        &cfg.Push.PrivateKey,
		"PUBLIC_BASE_URL":          &cfg.Server.PublicBaseURL,
	}
	for key, dst := range overrides {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.PublicBaseURL == "" {
		cfg.Server.PublicBaseURL = "http://localhost:8080"
	}
	cfg.Server.PublicBaseURL = strings.TrimRight(cfg.Server.PublicBaseURL, "/")
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Booking.MinStayDays <= 0 {
		cfg.Booking.MinStayDays = 1
	}
	if cfg.Booking.MaxStayDays <= 0 {
		cfg.Booking.MaxStayDays = 30
	}
	if cfg.Booking.AnticipationDays <= 0 {
		// Twelve weeks ahead.
		cfg.Booking.AnticipationDays = 84
	}
	if cfg.Booking.PatienceMinutes <= 0 {
		cfg.Booking.PatienceMinutes = 30
	}
	cfg.Booking.Patience = time.Duration(cfg.Booking.PatienceMinutes) * time.Minute
	if cfg.Booking.Timezone == "" {
		cfg.Booking.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		return err
	}
	cfg.Booking.Location = loc

	if cfg.Payment.Provider == "" {
		log.Printf("payment.provider is not set; defaulting to mock")
		cfg.Payment.Provider = "mock"
	}
	if cfg.Payment.Currency == "" {
		cfg.Payment.Currency = "BRL"
	}

	if cfg.Scheduler.PollIntervalSeconds <= 0 {
		cfg.Scheduler.PollIntervalSeconds = 15
	}
	cfg.Scheduler.PollInterval = time.Duration(cfg.Scheduler.PollIntervalSeconds) * time.Second
	if cfg.Scheduler.BatchSize <= 0 {
		cfg.Scheduler.BatchSize = 50
	}
	if cfg.Scheduler.MaxAttempts <= 0 {
		cfg.Scheduler.MaxAttempts = 5
	}
	if cfg.Scheduler.RetryBackoffSeconds <= 0 {
		cfg.Scheduler.RetryBackoffSeconds = 60
	}
	cfg.Scheduler.RetryBackoff = time.Duration(cfg.Scheduler.RetryBackoffSeconds) * time.Second
	if cfg.Scheduler.SweepSpec == "" {
		cfg.Scheduler.SweepSpec = "@every 5m"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.AMQP.Queue == "" {
		cfg.AMQP.Queue = "hotel.notifications"
	}
	return nil
}
