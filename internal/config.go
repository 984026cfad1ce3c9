package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/haven/internal/alert"
	"github.com/starford/haven/internal/storage"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Alerts  AlertsConfig      `yaml:"alerts"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Alerts.Validate(); err != nil {
		return fmt.Errorf("alerts: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel    slog.Level    `yaml:"log_level"`
	HTTP        HTTPConfig    `yaml:"http"`
	SSEThrottle time.Duration `yaml:"sse_throttle"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.SSEThrottle, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig selects the slot backend that holds the collection snapshots.
type StorageConfig struct {
	Driver   string         `yaml:"driver"`
	FS       FSConfig       `yaml:"fs"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
	S3       S3Config       `yaml:"s3"`
	Breaker  BreakerConfig  `yaml:"breaker"`
	// Watch reloads a collection when its slot file is changed outside the
	// process. fs driver only.
	Watch bool `yaml:"watch"`
}

// Validate checks the driver and the section it needs.
func (c *StorageConfig) Validate() error {
	drivers := make([]interface{}, 0, len(storage.Drivers))
	for _, d := range storage.Drivers {
		drivers = append(drivers, string(d))
	}
	driver := storage.Driver(c.Driver)
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(drivers...)),
	); err != nil {
		return err
	}

	var err error
	switch driver {
	case storage.DriverFS:
		err = c.FS.Validate()
	case storage.DriverSQLite:
		err = c.SQLite.Validate()
	case storage.DriverPostgres:
		err = c.Postgres.Validate()
	case storage.DriverS3:
		err = c.S3.Validate()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", driver, err)
	}
	if c.Watch && driver != storage.DriverFS {
		return fmt.Errorf("watch is only supported with the %s driver", storage.DriverFS)
	}
	return nil
}

// Options converts the section into storage.Options.
func (c *StorageConfig) Options() storage.Options {
	return storage.Options{
		Driver:       storage.Driver(c.Driver),
		Dir:          c.FS.Dir,
		SQLitePath:   c.SQLite.Path,
		SQLiteEngine: storage.SQLiteEngine(c.SQLite.Engine),
		PostgresDSN:  c.Postgres.DSN,
		S3: storage.S3Config{
			Bucket:          c.S3.Bucket,
			Region:          c.S3.Region,
			Endpoint:        c.S3.Endpoint,
			Prefix:          c.S3.Prefix,
			PathStyle:       c.S3.PathStyle,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
		},
		Breaker: storage.BreakerConfig{
			MaxRequests:         c.Breaker.MaxRequests,
			Interval:            c.Breaker.Interval,
			Timeout:             c.Breaker.Timeout,
			ConsecutiveFailures: c.Breaker.ConsecutiveFailures,
		},
	}
}

// FSConfig holds the slot directory of the fs driver.
type FSConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the fs configuration.
func (c *FSConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path   string `yaml:"path"`
	Engine string `yaml:"engine"` // "cgo" (default) or "pure"
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Engine, validation.In(string(storage.EngineCGO), string(storage.EnginePure))),
	)
}

// PostgresConfig holds the connection string of the postgres driver.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// Validate validates the postgres configuration.
func (c *PostgresConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DSN, validation.Required),
	)
}

// S3Config holds the bucket settings of the s3 driver.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	Prefix          string `yaml:"prefix"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Validate validates the S3 configuration.
func (c *S3Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Bucket, validation.Required),
		validation.Field(&c.SecretAccessKey, validation.When(c.AccessKeyID != "", validation.Required)),
	)
}

// BreakerConfig tunes the circuit breaker in front of remote drivers.
type BreakerConfig struct {
	MaxRequests         uint32        `yaml:"max_requests"`
	Interval            time.Duration `yaml:"interval"`
	Timeout             time.Duration `yaml:"timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
}

// AlertsConfig configures the SOS dispatcher.
type AlertsConfig struct {
	Sender   string        `yaml:"sender"`
	Cooldown time.Duration `yaml:"cooldown"`
}

// Validate validates the alerts configuration.
func (c *AlertsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Cooldown, validation.Min(time.Duration(0))),
	)
}

// Dispatcher converts the section into alert.Config.
func (c *AlertsConfig) Dispatcher() alert.Config {
	return alert.Config{Sender: c.Sender, Cooldown: c.Cooldown}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	b := storage.DefaultBreakerConfig()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
			SSEThrottle: 2 * time.Second,
		},
		Storage: StorageConfig{
			Driver: string(storage.DriverFS),
			FS: FSConfig{
				Dir: "./data",
			},
			SQLite: SQLiteConfig{
				Path:   "./haven.db",
				Engine: string(storage.EngineCGO),
			},
			S3: S3Config{
				Region: "us-east-1",
				Prefix: "haven/",
			},
			Breaker: BreakerConfig{
				MaxRequests:         b.MaxRequests,
				Interval:            b.Interval,
				Timeout:             b.Timeout,
				ConsecutiveFailures: b.ConsecutiveFailures,
			},
		},
		Alerts: AlertsConfig{
			Sender:   "Your contact",
			Cooldown: 30 * time.Second,
		},
	}
}
