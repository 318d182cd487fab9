package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"proxysieve/internal/shared/types"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.CheckerConf.BatchSize != 100 || cfg.CheckerConf.HTTPTimeoutMs != 3000 {
		t.Errorf("unexpected defaults: %+v", cfg.CheckerConf)
	}
}

func TestLoadIni_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sieve.ini")
	content := `
[log]
level = debug

[source]
mode = remote
urls = https://a.example/socks5.txt, https://b.example/list.html
format = html

[checker]
batch_size = 25
ws_timeout_ms = 5000
ip_check = off
launch_rate = 12.5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	found, err := LoadIni(cfg, path)
	if err != nil || !found {
		t.Fatalf("LoadIni() = %v, %v", found, err)
	}

	if cfg.LogConf.Level != "debug" {
		t.Errorf("expected level debug, got %s", cfg.LogConf.Level)
	}
	wantURLs := []string{"https://a.example/socks5.txt", "https://b.example/list.html"}
	if !reflect.DeepEqual(cfg.SourceConf.URLs, wantURLs) {
		t.Errorf("expected urls %v, got %v", wantURLs, cfg.SourceConf.URLs)
	}
	if cfg.CheckerConf.BatchSize != 25 || cfg.CheckerConf.WSTimeoutMs != 5000 || cfg.CheckerConf.LaunchRate != 12.5 {
		t.Errorf("checker section not applied: %+v", cfg.CheckerConf)
	}
	// 文件中没有的键保留默认值
	if cfg.CheckerConf.HTTPTimeoutMs != 3000 || cfg.OutputConf.File != "public/found.txt" {
		t.Errorf("missing keys should keep defaults: %+v", cfg)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("loaded config should be valid: %v", err)
	}
}

func TestLoadIni_MissingFile(t *testing.T) {
	cfg := Default()
	found, err := LoadIni(cfg, filepath.Join(t.TempDir(), "none.ini"))
	if err != nil || found {
		t.Fatalf("expected (false, nil) for missing file, got (%v, %v)", found, err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SIEVE_BATCH_SIZE", "7")
	t.Setenv("SIEVE_HTTP_TIMEOUT_MS", "not-a-number")
	t.Setenv("SIEVE_OUTPUT_FILE", "/tmp/out.txt")
	t.Setenv("SIEVE_SOURCE_URLS", "https://x.example/a.txt, ,https://y.example/b.txt")

	cfg := Default()
	ApplyEnv(cfg)

	if cfg.CheckerConf.BatchSize != 7 {
		t.Errorf("expected batch size 7, got %d", cfg.CheckerConf.BatchSize)
	}
	if cfg.CheckerConf.HTTPTimeoutMs != 3000 {
		t.Errorf("invalid int env must be ignored, got %d", cfg.CheckerConf.HTTPTimeoutMs)
	}
	if cfg.OutputConf.File != "/tmp/out.txt" {
		t.Errorf("unexpected output file %s", cfg.OutputConf.File)
	}
	if cfg.SourceConf.Mode != types.SourceModeRemote || len(cfg.SourceConf.URLs) != 2 {
		t.Errorf("source urls env should switch to remote mode: %+v", cfg.SourceConf)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Config)
	}{
		{"zero batch", func(c *types.Config) { c.CheckerConf.BatchSize = 0 }},
		{"negative timeout", func(c *types.Config) { c.CheckerConf.WSTimeoutMs = -1 }},
		{"bad http target scheme", func(c *types.Config) { c.CheckerConf.HTTPTarget = "ftp://x" }},
		{"ws target without host", func(c *types.Config) { c.CheckerConf.WSTarget = "wss://" }},
		{"unknown ip_check", func(c *types.Config) { c.CheckerConf.IPCheck = "loose" }},
		{"unknown fingerprint", func(c *types.Config) { c.CheckerConf.TLSFingerprint = "firefox" }},
		{"negative launch rate", func(c *types.Config) { c.CheckerConf.LaunchRate = -1 }},
		{"remote without urls", func(c *types.Config) { c.SourceConf.Mode = types.SourceModeRemote }},
		{"unknown mode", func(c *types.Config) { c.SourceConf.Mode = "ftp" }},
		{"unknown format", func(c *types.Config) { c.SourceConf.Format = "xml" }},
		{"empty output", func(c *types.Config) { c.OutputConf.File = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
