package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/samirrijal/poigeo/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Geometry  GeometryConfig  `mapstructure:"geometry"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr   string `mapstructure:"addr"`
	Prefix string `mapstructure:"prefix"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// GeometryConfig describes where the geometry lives and which tables may be touched.
type GeometryConfig struct {
	Column                  string   `mapstructure:"column"`
	LngColumn               string   `mapstructure:"lng_column"`
	LatColumn               string   `mapstructure:"lat_column"`
	CategoryColumn          string   `mapstructure:"category_column"`
	SRID                    int      `mapstructure:"srid"`
	DefaultTable            string   `mapstructure:"default_table"`
	AllowedTables           []string `mapstructure:"allowed_tables"`
	OperationTimeoutSeconds int      `mapstructure:"operation_timeout_seconds"`
}

// Spec converts the configured column layout into a domain.GeometrySpec.
func (g GeometryConfig) Spec() domain.GeometrySpec {
	return domain.GeometrySpec{
		Column:         g.Column,
		LngColumn:      g.LngColumn,
		LatColumn:      g.LatColumn,
		CategoryColumn: g.CategoryColumn,
		SRID:           g.SRID,
	}
}

// OperationTimeout is the deadline for a single CLI or worker operation.
func (g GeometryConfig) OperationTimeout() time.Duration {
	return time.Duration(g.OperationTimeoutSeconds) * time.Second
}

type CacheConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	def := domain.DefaultGeometrySpec()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "poigeo")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "poigeo")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.prefix", "poigeo:")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "poigeo-geometry")
	v.SetDefault("geometry.column", def.Column)
	v.SetDefault("geometry.lng_column", def.LngColumn)
	v.SetDefault("geometry.lat_column", def.LatColumn)
	v.SetDefault("geometry.category_column", def.CategoryColumn)
	v.SetDefault("geometry.srid", def.SRID)
	v.SetDefault("geometry.default_table", "poi")
	v.SetDefault("geometry.allowed_tables", []string{})
	v.SetDefault("geometry.operation_timeout_seconds", 60)
	v.SetDefault("cache.ttl_seconds", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: POIGEO_DATABASE_HOST → database.host
	v.SetEnvPrefix("POIGEO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.Database.MaxConns < 0 {
		errs = append(errs, "database.max_conns must not be negative")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}
	if err := c.Geometry.Spec().Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("geometry: %v", err))
	}
	if c.Geometry.DefaultTable != "" {
		if _, err := domain.ParseTableRef(c.Geometry.DefaultTable); err != nil {
			errs = append(errs, fmt.Sprintf("geometry.default_table: %v", err))
		}
	}
	for _, t := range c.Geometry.AllowedTables {
		if _, err := domain.ParseTableRef(t); err != nil {
			errs = append(errs, fmt.Sprintf("geometry.allowed_tables: %v", err))
		}
	}
	if c.Geometry.OperationTimeoutSeconds <= 0 {
		errs = append(errs, "geometry.operation_timeout_seconds must be positive")
	}
	if c.Cache.TTLSeconds < 0 {
		errs = append(errs, "cache.ttl_seconds must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
