package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/stackscope/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Analysis.PruneStale {
		t.Error("stale pruning should be off by default")
	}
}

func TestSourceConfig_RequiresARoot(t *testing.T) {
	cfg := SourceConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty source config should fail")
	}
	cfg.BackendRoot = "./api"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("backend-only source should pass: %v", err)
	}
}

func TestAnalysisConfig_Bounds(t *testing.T) {
	cfg := AnalysisConfig{Workers: -1, CacheSize: 10}
	if err := cfg.Validate(); err == nil {
		t.Error("negative workers should fail")
	}
	cfg = AnalysisConfig{CacheSize: 0}
	if err := cfg.Validate(); err == nil {
		t.Error("zero cache size should fail")
	}
	cfg = AnalysisConfig{CacheSize: 1, CacheTTL: -time.Second}
	if err := cfg.Validate(); err == nil {
		t.Error("negative cache ttl should fail")
	}
}

func TestLoadYAML_ExpandsEnv(t *testing.T) {
	t.Setenv("STACKSCOPE_TEST_TOKEN", "s3cret")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `app:
  log_level: debug
  http:
    port: 9090
source:
  ui_root: ./app
  backend_root: ./server
sqlite:
  path: ./graph.db
contracts:
  path: ./contracts.csv
analysis:
  workers: 4
  cache_size: 128
  cache_ttl: 90s
  prune_stale: true
  watch_debounce: 250ms
auth:
  mode: token
  token: ${STACKSCOPE_TEST_TOKEN}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
	if cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("log level = %s", cfg.App.LogLevel)
	}
	if cfg.Auth.Token != "s3cret" || !cfg.Auth.AuthEnabled() {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Analysis.CacheTTL != 90*time.Second || cfg.Analysis.WatchDebounce != 250*time.Millisecond {
		t.Errorf("durations = %v, %v", cfg.Analysis.CacheTTL, cfg.Analysis.WatchDebounce)
	}
	if !cfg.Analysis.PruneStale || cfg.Analysis.Workers != 4 {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if len(cfg.Source.SkipDirs) == 0 {
		t.Error("skip dirs default should survive a file without skip_dirs")
	}
}
