//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalYAML = `
database:
  url: postgres://u:p@localhost:5432/svmedia
s3:
  bucket: photos
auth:
  jwt_secret: s3cret
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML), false)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.HTTP.Port != 8080 || cfg.HTTP.RequestTimeout != 2*time.Minute {
		t.Errorf("unexpected http defaults %+v", cfg.HTTP)
	}
	if cfg.Codes.Length != 8 || cfg.Codes.Alphabet != DefaultAlphabet || cfg.Codes.BudgetFactor != 2 || cfg.Codes.PrintLocale != "en" {
		t.Errorf("unexpected codes defaults %+v", cfg.Codes)
	}
	if cfg.Archive.Mode != ArchiveModeStreamed || cfg.Archive.FetchConcurrency != 8 || cfg.Archive.LinkTTL != 24*time.Hour {
		t.Errorf("unexpected archive defaults %+v", cfg.Archive)
	}
	if cfg.Archive.LinksPrefix != "archives" || cfg.S3.Region != "us-east-1" {
		t.Errorf("unexpected defaults: prefix=%s region=%s", cfg.Archive.LinksPrefix, cfg.S3.Region)
	}
}

func TestParse_ExplicitValues(t *testing.T) {
	y := minimalYAML + `
codes:
  budget_factor: 1.5
  length: 6
archive:
  mode: PRESIGNED
  fetch_timeout: 5s
rate_limit:
  redeem_per_window: 10
redis:
  url: redis://localhost:6379/0
`
	cfg, err := Parse([]byte(y), true)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Codes.BudgetFactor != 1.5 || cfg.Codes.Length != 6 {
		t.Errorf("unexpected codes %+v", cfg.Codes)
	}
	if cfg.Archive.Mode != ArchiveModePresigned || cfg.Archive.FetchTimeout != 5*time.Second {
		t.Errorf("unexpected archive %+v", cfg.Archive)
	}
	if !cfg.Runtime.Dev {
		t.Error("expected dev runtime flag")
	}
}

func TestParse_Validation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"missing database", "s3: {bucket: b}\nauth: {jwt_secret: x}", "database.url"},
		{"missing bucket", "database: {url: x}\nauth: {jwt_secret: x}", "s3.bucket"},
		{"missing secret", "database: {url: x}\ns3: {bucket: b}", "auth.jwt_secret"},
		{"unknown mode", minimalYAML + "archive: {mode: carrier-pigeon}", "archive.mode"},
		{"factor below one", minimalYAML + "codes: {budget_factor: 0.5}", "budget_factor"},
		{"tiny alphabet", minimalYAML + "codes: {alphabet: a}", "alphabet"},
		{"non-ascii alphabet", minimalYAML + "codes: {alphabet: \"абвгд\"}", "printable ASCII"},
		{"repeated alphabet", minimalYAML + "codes: {alphabet: abca}", "repeats"},
		{"limit without redis", minimalYAML + "rate_limit: {redeem_per_window: 5}", "redis.url"},
	}
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml), false)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("s3: {bucket: photos}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig(path, false)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Database.URL != "postgres://env/db" || cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("env overrides not applied: %+v %+v", cfg.Database, cfg.Auth)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), false); err == nil {
		t.Error("expected an error for a missing file")
	}
}
