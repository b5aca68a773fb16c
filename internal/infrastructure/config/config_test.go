package config

import (
	"strings"
	"testing"
	"time"

	"github.com/crm/backend/internal/domain/session"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "crm-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "crm", cfg.Database.DBName)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, "memory", cfg.Session.CacheBackend)
	assert.Equal(t, 10*time.Second, cfg.Session.StepTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Sections.CacheTTL)
	assert.Equal(t, 200, cfg.Sections.RowLimit)
	assert.Empty(t, cfg.Sections.Escalate)
	assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
	assert.Equal(t, int64(1<<20), cfg.HTTP.MaxBodyBytes)
	assert.Equal(t, 10, cfg.HTTP.LoginRateLimit)
	assert.Equal(t, time.Minute, cfg.HTTP.LoginRateWindow)
	assert.Equal(t, 2*time.Second, cfg.HTTP.SectionMountWait)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CRM_APP_PORT", "9000")
	t.Setenv("CRM_DATABASE_HOST", "db.internal")
	t.Setenv("CRM_DATABASE_PORT", "5433")
	t.Setenv("CRM_SESSION_CACHE_BACKEND", "redis")
	t.Setenv("CRM_SECTIONS_CACHE_TTL", "30s")
	t.Setenv("CRM_SECTIONS_ESCALATE", "quotes users")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "redis", cfg.Session.CacheBackend)
	assert.Equal(t, 30*time.Second, cfg.Sections.CacheTTL)
	assert.Equal(t, []session.SectionName{session.SectionQuotes, session.SectionUsers}, cfg.Sections.EscalatedSections())
}

func TestLoad_FromTOML(t *testing.T) {
	v := viper.New()
	v.SetConfigType("toml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
[app]
name = "crm-test"

[sections]
load_timeout = "3s"
escalate = ["customers"]

[telemetry]
enabled = true
sampling_ratio = 0.25
`)))

	cfg, err := load(v)
	require.NoError(t, err)

	assert.Equal(t, "crm-test", cfg.App.Name)
	assert.Equal(t, 3*time.Second, cfg.Sections.LoadTimeout)
	assert.Equal(t, []string{"customers"}, cfg.Sections.Escalate)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 0.25, cfg.Telemetry.SamplingRatio)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"idle above open", func(c *Config) { c.Database.MaxIdleConns = 50 }, "max_idle_conns"},
		{"unknown cache backend", func(c *Config) { c.Session.CacheBackend = "memcached" }, "cache_backend"},
		{"unknown escalated section", func(c *Config) { c.Sections.Escalate = []string{"invoices"} }, "sections.escalate"},
		{"sampling above one", func(c *Config) { c.Telemetry.SamplingRatio = 1.5 }, "sampling_ratio"},
		{"profiling without address", func(c *Config) { c.Telemetry.ProfilingEnabled = true }, "pyroscope_address"},
		{"production short secret", func(c *Config) {
			c.App.Env = "production"
			c.JWT.Secret = "short"
		}, "jwt.secret"},
		{"production without db password", func(c *Config) {
			c.App.Env = "production"
			c.JWT.Secret = strings.Repeat("x", 32)
		}, "database.password"},
		{"production sslmode disable", func(c *Config) {
			c.App.Env = "production"
			c.JWT.Secret = strings.Repeat("x", 32)
			c.Database.Password = "secret"
		}, "sslmode"},
		{"production wildcard cors", func(c *Config) {
			c.App.Env = "production"
			c.JWT.Secret = strings.Repeat("x", 32)
			c.Database.Password = "secret"
			c.Database.SSLMode = "require"
			c.HTTP.CORSAllowOrigins = []string{"*"}
		}, "cors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDSN_EscapesCredentials(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "crm", Password: "p@ss/word", DBName: "crm", SSLMode: "require"}
	assert.Equal(t, "postgres://crm:p%40ss%2Fword@db:5432/crm?sslmode=require", d.DSN())
}
