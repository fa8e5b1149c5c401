package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Fiscal   FiscalConfig
	Storage  StorageConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	// FinalizeTimeout bounds the whole finalization transaction, lock waits
	// included
	FinalizeTimeout time.Duration
	TrustedProxies  []string
}

// FiscalConfig holds the invoice series and the shop's fiscal identity
type FiscalConfig struct {
	Series       string  // default invoice series, e.g. "001"
	TaxRate      float64 // IVA percentage applied to repair invoices
	SellerTaxID  string
	SellerName   string
	SellerStreet string
	SellerPost   string
	SellerTown   string
	SellerRegion string
	// Signing certificate; when both paths are empty a self-signed demo
	// certificate is generated at startup
	CertPath string
	KeyPath  string
}

// StorageConfig holds fiscal artifact storage settings
type StorageConfig struct {
	Backend  string // "fs" or "s3"
	BasePath string // fs backend root directory
	S3Bucket string
	S3Region string
	// Static credentials for S3-compatible stores such as MinIO. When empty
	// the default AWS credential chain is used.
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with BIKESHOP_ prefix (e.g., BIKESHOP_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("BIKESHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			FinalizeTimeout: v.GetDuration("http.finalize_timeout"),
			TrustedProxies:  v.GetStringSlice("http.trusted_proxies"),
		},
		Fiscal: FiscalConfig{
			Series:       v.GetString("fiscal.series"),
			TaxRate:      v.GetFloat64("fiscal.tax_rate"),
			SellerTaxID:  v.GetString("fiscal.seller_tax_id"),
			SellerName:   v.GetString("fiscal.seller_name"),
			SellerStreet: v.GetString("fiscal.seller_street"),
			SellerPost:   v.GetString("fiscal.seller_post_code"),
			SellerTown:   v.GetString("fiscal.seller_town"),
			SellerRegion: v.GetString("fiscal.seller_province"),
			CertPath:     v.GetString("fiscal.cert_path"),
			KeyPath:      v.GetString("fiscal.key_path"),
		},
		Storage: StorageConfig{
			Backend:           v.GetString("storage.backend"),
			BasePath:          v.GetString("storage.base_path"),
			S3Bucket:          v.GetString("storage.s3_bucket"),
			S3Region:          v.GetString("storage.s3_region"),
			S3AccessKeyID:     v.GetString("storage.s3_access_key_id"),
			S3SecretAccessKey: v.GetString("storage.s3_secret_access_key"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "bikeshop-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "bikeshop"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.FinalizeTimeout == 0 {
		cfg.HTTP.FinalizeTimeout = 10 * time.Second
	}
	if cfg.Fiscal.Series == "" {
		cfg.Fiscal.Series = "001"
	}
	if cfg.Fiscal.TaxRate == 0 {
		cfg.Fiscal.TaxRate = 21
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "fs"
	}
	if cfg.Storage.BasePath == "" {
		cfg.Storage.BasePath = "./artifacts"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Fiscal.TaxRate < 0 || c.Fiscal.TaxRate > 100 {
		return fmt.Errorf("fiscal.tax_rate must be a percentage between 0 and 100, got %f", c.Fiscal.TaxRate)
	}
	if c.Storage.Backend != "fs" && c.Storage.Backend != "s3" {
		return fmt.Errorf("storage.backend must be \"fs\" or \"s3\", got %q", c.Storage.Backend)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Fiscal.SellerTaxID == "" {
			return fmt.Errorf("fiscal.seller_tax_id is required in production")
		}
		if c.Fiscal.CertPath == "" || c.Fiscal.KeyPath == "" {
			return fmt.Errorf("fiscal.cert_path and fiscal.key_path are required in production; self-signed certificates are for development only")
		}
		if c.Storage.Backend == "s3" && c.Storage.S3Bucket == "" {
			return fmt.Errorf("storage.s3_bucket is required when storage.backend is s3")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the redis host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
