package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string         `mapstructure:"env"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Tasks    TaskConfig     `mapstructure:"tasks"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	Params          string        `mapstructure:"params"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectRetries  int           `mapstructure:"connect_retries"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret         string `mapstructure:"jwt_secret"`
	JWTIssuer         string `mapstructure:"jwt_issuer"`
	JWTAudience       string `mapstructure:"jwt_audience"`
	BootstrapUsername string `mapstructure:"bootstrap_username"`
	BootstrapPassword string `mapstructure:"bootstrap_password"`
}

type TaskConfig struct {
	// RejectPenaltyRate is the share of a combo task's profit deducted on rejection.
	RejectPenaltyRate float64 `mapstructure:"reject_penalty_rate"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// envKeys maps config keys to the environment variables operators already use.
var envKeys = map[string]string{
	"env":                        "ENV",
	"server.port":                "PORT",
	"server.max_body_bytes":      "MAX_BODY_BYTES",
	"server.request_timeout":     "REQ_TIMEOUT",
	"server.allowed_origins":     "CORS_ALLOWED_ORIGINS",
	"server.trusted_proxies":     "TRUSTED_PROXIES",
	"database.driver":            "DB_DRIVER",
	"database.dsn":               "DB_DSN",
	"database.host":              "DB_HOST",
	"database.port":              "DB_PORT",
	"database.user":              "DB_USER",
	"database.password":          "DB_PASS",
	"database.name":              "DB_NAME",
	"database.params":            "DB_PARAMS",
	"database.max_open_conns":    "DB_MAX_OPEN_CONNS",
	"database.max_idle_conns":    "DB_MAX_IDLE_CONNS",
	"database.conn_max_lifetime": "DB_CONN_MAX_LIFETIME",
	"database.connect_retries":   "DB_CONNECT_RETRIES",
	"redis.addr":                 "REDIS_ADDR",
	"redis.password":             "REDIS_PASS",
	"redis.db":                   "REDIS_DB",
	"auth.jwt_secret":            "JWT_SECRET",
	"auth.jwt_issuer":            "JWT_ISS",
	"auth.jwt_audience":          "JWT_AUD",
	"auth.bootstrap_username":    "ADMIN_BOOTSTRAP_USERNAME",
	"auth.bootstrap_password":    "ADMIN_BOOTSTRAP_PASSWORD",
	"tasks.reject_penalty_rate":  "REJECT_PENALTY_RATE",
	"logging.level":              "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "production")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.request_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.user", "root")
	v.SetDefault("database.name", "tasks")
	v.SetDefault("database.params", "charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.connect_retries", 5)
	v.SetDefault("tasks.reject_penalty_rate", 1.0)
	v.SetDefault("logging.level", "info")
}

// Load reads .env (without overriding variables already set in the process)
// and builds the configuration from defaults and the environment.
func Load() (*Config, error) {
	if envMap, err := godotenv.Read(); err == nil {
		for k, val := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, val)
			}
		}
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Server.AllowedOrigins = splitList(strings.Join(cfg.Server.AllowedOrigins, ","))
	cfg.Server.TrustedProxies = splitList(strings.Join(cfg.Server.TrustedProxies, ","))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return errors.New("DB_DRIVER must be one of mysql, postgres, sqlite")
	}
	if c.Tasks.RejectPenaltyRate < 0 || c.Tasks.RejectPenaltyRate > 1 {
		return errors.New("REJECT_PENALTY_RATE must be between 0 and 1")
	}
	return nil
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
