package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/session"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. CRM_DATABASE_PASSWORD
const EnvPrefix = "CRM"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	Session   SessionConfig
	Sections  SectionsConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// HTTPConfig holds HTTP server settings
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	CORSAllowOrigins []string
	MaxBodyBytes     int64
	LoginRateLimit   int           // login attempts per client and window
	LoginRateWindow  time.Duration
	SectionMountWait time.Duration // how long a section request waits for its first load
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
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds settings for verifying session tokens
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// SessionConfig holds bootstrap settings
type SessionConfig struct {
	CacheBackend string        // memory or redis
	StepTimeout  time.Duration // timeout of each bootstrap collaborator call
}

// SectionsConfig holds section loader settings
type SectionsConfig struct {
	CacheTTL    time.Duration
	LoadTimeout time.Duration
	RowLimit    int
	Escalate    []string // sections whose failures surface as a global error
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string // e.g. localhost:4317
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
	ProfilingEnabled  bool
	PyroscopeAddress  string // e.g. http://pyroscope:4040
}

// Load reads configuration. Priority, highest first:
// CRM_ environment variables, config.toml, built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			MaxBodyBytes:     v.GetInt64("http.max_body_bytes"),
			LoginRateLimit:   v.GetInt("http.login_rate_limit"),
			LoginRateWindow:  v.GetDuration("http.login_rate_window"),
			SectionMountWait: v.GetDuration("http.section_mount_wait"),
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
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:   v.GetString("jwt.secret"),
			Issuer:   v.GetString("jwt.issuer"),
			Audience: v.GetString("jwt.audience"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Session: SessionConfig{
			CacheBackend: v.GetString("session.cache_backend"),
			StepTimeout:  v.GetDuration("session.step_timeout"),
		},
		Sections: SectionsConfig{
			CacheTTL:    v.GetDuration("sections.cache_ttl"),
			LoadTimeout: v.GetDuration("sections.load_timeout"),
			RowLimit:    v.GetInt("sections.row_limit"),
			Escalate:    v.GetStringSlice("sections.escalate"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			PyroscopeAddress:  v.GetString("telemetry.pyroscope_address"),
		},
	}

	applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills empty fields
func applyDefaults(cfg *Config) {
	setDefault(&cfg.App.Name, "crm-backend")
	setDefault(&cfg.App.Env, "development")
	setDefault(&cfg.App.Port, "8080")

	setDefault(&cfg.HTTP.ReadTimeout, 15*time.Second)
	setDefault(&cfg.HTTP.WriteTimeout, 30*time.Second)
	setDefault(&cfg.HTTP.MaxBodyBytes, int64(1<<20))
	setDefault(&cfg.HTTP.LoginRateLimit, 10)
	setDefault(&cfg.HTTP.LoginRateWindow, time.Minute)
	setDefault(&cfg.HTTP.SectionMountWait, 2*time.Second)

	setDefault(&cfg.Database.Host, "localhost")
	setDefault(&cfg.Database.Port, 5432)
	setDefault(&cfg.Database.User, "postgres")
	setDefault(&cfg.Database.DBName, "crm")
	setDefault(&cfg.Database.SSLMode, "disable")
	setDefault(&cfg.Database.MaxOpenConns, 20)
	setDefault(&cfg.Database.MaxIdleConns, 5)
	setDefault(&cfg.Database.ConnMaxLifetime, time.Hour)

	setDefault(&cfg.Redis.Host, "localhost")
	setDefault(&cfg.Redis.Port, 6379)

	setDefault(&cfg.JWT.Issuer, "crm-auth")
	setDefault(&cfg.JWT.Audience, "authenticated")

	setDefault(&cfg.Log.Level, "info")
	setDefault(&cfg.Log.Format, "console")
	setDefault(&cfg.Log.Output, "stdout")

	setDefault(&cfg.Session.CacheBackend, "memory")
	setDefault(&cfg.Session.StepTimeout, 10*time.Second)

	setDefault(&cfg.Sections.CacheTTL, 5*time.Minute)
	setDefault(&cfg.Sections.LoadTimeout, 15*time.Second)
	setDefault(&cfg.Sections.RowLimit, 200)

	setDefault(&cfg.Telemetry.CollectorEndpoint, "localhost:4317")
	setDefault(&cfg.Telemetry.SamplingRatio, 1.0)
	setDefault(&cfg.Telemetry.ServiceName, "crm-backend")
	setDefault(&cfg.Telemetry.MetricsInterval, time.Minute)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Session.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("session.cache_backend must be memory or redis, got %q", c.Session.CacheBackend)
	}

	for _, name := range c.Sections.Escalate {
		if _, err := session.ParseSection(name); err != nil {
			return fmt.Errorf("sections.escalate: %w", err)
		}
	}
	if c.Sections.RowLimit < 0 {
		return fmt.Errorf("sections.row_limit cannot be negative")
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Telemetry.ProfilingEnabled && c.Telemetry.PyroscopeAddress == "" {
		return fmt.Errorf("telemetry.pyroscope_address is required when profiling is enabled")
	}

	if c.App.Env == "production" {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("http.cors_allow_origins cannot be '*' in production")
			}
		}
	}
	return nil
}

// EscalatedSections returns the parsed escalate list
func (s SectionsConfig) EscalatedSections() []session.SectionName {
	out := make([]session.SectionName, 0, len(s.Escalate))
	for _, name := range s.Escalate {
		if sec, err := session.ParseSection(name); err == nil {
			out = append(out, sec)
		}
	}
	return out
}

// DSN returns the database connection string with escaped credentials
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
