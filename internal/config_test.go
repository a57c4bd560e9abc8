package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/namespacer/pkg/config"
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
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token"}
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
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestHookConfig_DelayBounds(t *testing.T) {
	for _, d := range []time.Duration{-time.Millisecond, 11 * time.Second} {
		cfg := HookConfig{Delay: d}
		if err := cfg.Validate(); err == nil {
			t.Errorf("delay %s should fail validation", d)
		}
	}
}

func TestFullConfig_SettingsPathRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Settings.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch missing settings path")
	}
}

func TestLoadYAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("NS_TEST_VAULT", "/data/vault")
	yaml := "vault:\n  path: ${NS_TEST_VAULT}\nhook:\n  delay: 250ms\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Vault.Path != "/data/vault" {
		t.Errorf("vault path = %q", cfg.Vault.Path)
	}
	if cfg.Hook.Delay != 250*time.Millisecond {
		t.Errorf("hook delay = %s", cfg.Hook.Delay)
	}
	if cfg.App.HTTP.Port != 8090 {
		t.Errorf("default port lost: %d", cfg.App.HTTP.Port)
	}
}

func TestLoadOptional_MissingFileKeepsDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), cfg); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.Vault.Path != "./vault" {
		t.Errorf("vault path = %q", cfg.Vault.Path)
	}
}
