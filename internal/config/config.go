package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/comitanigiacomo/kanso-tracker/internal/adapters/cache"
)

const envPrefix = "KANSO"

type Config struct {
	DB      DBConfig      `mapstructure:"db"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Server  ServerConfig  `mapstructure:"server"`
	Tracker TrackerConfig `mapstructure:"tracker"`
	Auth    AuthConfig    `mapstructure:"auth"`
}

type DBConfig struct {
	Driver   string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	Path     string `mapstructure:"path" validate:"required_if=Driver sqlite"`
	Host     string `mapstructure:"host" validate:"required_if=Driver postgres"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user" validate:"required_if=Driver postgres"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name" validate:"required_if=Driver postgres"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0,max=15"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" validate:"required,numeric"`
}

type TrackerConfig struct {
	RolloverHour  int           `mapstructure:"rollover_hour" validate:"min=0,max=23"`
	NoteDebounce  time.Duration `mapstructure:"note_debounce" validate:"gt=0"`
	RolloverCheck time.Duration `mapstructure:"rollover_check" validate:"gt=0"`
}

type AuthConfig struct {
	Secret   string        `mapstructure:"secret" validate:"omitempty,min=16"`
	Issuer   string        `mapstructure:"issuer" validate:"required"`
	TokenTTL time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.path", "kanso.db")
	v.SetDefault("db.host", "")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("server.port", "8080")

	v.SetDefault("tracker.rollover_hour", 5)
	v.SetDefault("tracker.note_debounce", 500*time.Millisecond)
	v.SetDefault("tracker.rollover_check", time.Minute)

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "kanso-tracker")
	v.SetDefault("auth.token_ttl", 720*time.Hour)
}

// Load reads .env when present, then the optional config file, then
// KANSO_* environment variables, e.g. KANSO_DB_DRIVER for db.driver.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DSN is the connection string handed to the database driver.
func (c DBConfig) DSN() string {
	if c.Driver == "postgres" {
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     c.Host + ":" + c.Port,
			Path:     c.Name,
			RawQuery: "sslmode=" + c.SSLMode,
		}
		return u.String()
	}
	return c.Path
}

func (c RedisConfig) Options() cache.Options {
	return cache.Options{
		Host:     c.Host,
		Port:     c.Port,
		Password: c.Password,
		DB:       c.DB,
	}
}
