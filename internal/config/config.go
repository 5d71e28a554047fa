// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port            int           `yaml:"port"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type S3Config struct {
	Endpoint        string `yaml:"endpoint"` // empty means AWS
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl"` // only for endpoints without a scheme
	UsePathStyle    bool   `yaml:"use_path_style"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type CodesConfig struct {
	Length       int     `yaml:"length"`
	Alphabet     string  `yaml:"alphabet"`
	BudgetFactor float64 `yaml:"budget_factor"` // max draws = budget_factor * count
	MaxBatch     int     `yaml:"max_batch"`
	PrintLocale  string  `yaml:"print_locale"` // en|ru, headings of the printable sheet
}

type ArchiveConfig struct {
	Mode             string        `yaml:"mode"` // buffered|streamed|presigned
	FetchConcurrency int           `yaml:"fetch_concurrency"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	LinksPrefix      string        `yaml:"links_prefix"`
	LinkTTL          time.Duration `yaml:"link_ttl"`
}

type RateLimitConfig struct {
	RedeemPerWindow int           `yaml:"redeem_per_window"` // 0 disables
	Window          time.Duration `yaml:"window"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	S3        S3Config        `yaml:"s3"`
	Auth      AuthConfig      `yaml:"auth"`
	Codes     CodesConfig     `yaml:"codes"`
	Archive   ArchiveConfig   `yaml:"archive"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Runtime RuntimeConfig `yaml:"-"`
}

const (
	ArchiveModeBuffered  = "buffered"
	ArchiveModeStreamed  = "streamed"
	ArchiveModePresigned = "presigned"
)

const DefaultAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// LoadConfig reads the YAML file at path, applies env overrides for secrets,
// fills defaults and validates the result.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse is LoadConfig without the file read.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setFromEnv(&cfg.Database.URL, "DATABASE_URL")
	setFromEnv(&cfg.S3.AccessKeyID, "S3_ACCESS_KEY_ID")
	setFromEnv(&cfg.S3.SecretAccessKey, "S3_SECRET_ACCESS_KEY")
	setFromEnv(&cfg.Auth.JWTSecret, "JWT_SECRET")
}

func setFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 2 * time.Minute
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.S3.Region == "" {
		cfg.S3.Region = "us-east-1"
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 30 * time.Minute
	}
	if cfg.Codes.Length <= 0 {
		cfg.Codes.Length = 8
	}
	if cfg.Codes.Alphabet == "" {
		cfg.Codes.Alphabet = DefaultAlphabet
	}
	if cfg.Codes.BudgetFactor <= 0 {
		cfg.Codes.BudgetFactor = 2
	}
	if cfg.Codes.MaxBatch <= 0 {
		cfg.Codes.MaxBatch = 1000
	}
	if cfg.Codes.PrintLocale == "" {
		cfg.Codes.PrintLocale = "en"
	}
	if cfg.Archive.Mode == "" {
		cfg.Archive.Mode = ArchiveModeStreamed
	}
	cfg.Archive.Mode = strings.ToLower(cfg.Archive.Mode)
	if cfg.Archive.FetchConcurrency <= 0 {
		cfg.Archive.FetchConcurrency = 8
	}
	if cfg.Archive.FetchTimeout <= 0 {
		cfg.Archive.FetchTimeout = 30 * time.Second
	}
	if cfg.Archive.LinksPrefix == "" {
		cfg.Archive.LinksPrefix = "archives"
	}
	if cfg.Archive.LinkTTL <= 0 {
		cfg.Archive.LinkTTL = 24 * time.Hour
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}
}

// Validate performs minimal checks on required settings.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.S3.Bucket == "" {
		return errors.New("s3.bucket is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.RateLimit.RedeemPerWindow > 0 && c.Redis.URL == "" {
		return errors.New("redis.url is required when rate_limit.redeem_per_window is set")
	}
	switch c.Archive.Mode {
	case ArchiveModeBuffered, ArchiveModeStreamed, ArchiveModePresigned:
	default:
		return fmt.Errorf("archive.mode %q is not one of buffered|streamed|presigned", c.Archive.Mode)
	}
	if c.Codes.BudgetFactor < 1 {
		return errors.New("codes.budget_factor must be at least 1")
	}
	if len(c.Codes.Alphabet) < 2 || len(c.Codes.Alphabet) > 256 {
		return errors.New("codes.alphabet must have between 2 and 256 characters")
	}
	if err := checkAlphabet(c.Codes.Alphabet); err != nil {
		return err
	}
	return nil
}

// checkAlphabet requires printable ASCII without repeats: the generator draws
// single bytes, uniformly over the alphabet.
func checkAlphabet(a string) error {
	var seen [128]bool
	for i := 0; i < len(a); i++ {
		b := a[i]
		if b <= ' ' || b > '~' {
			return fmt.Errorf("codes.alphabet must be printable ASCII, found byte %#x at %d", b, i)
		}
		if seen[b] {
			return fmt.Errorf("codes.alphabet repeats %q", b)
		}
		seen[b] = true
	}
	return nil
}
