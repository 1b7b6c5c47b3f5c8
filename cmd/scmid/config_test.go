package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/scmictl/internal/config"
	"github.com/danmuck/scmictl/internal/daemon"
	"github.com/danmuck/scmictl/internal/doorbell"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadServiceConfigDefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
name = "scmid.lab"
board = "boards/lab.toml"

[doorbell]
addr = "127.0.0.1:9999"
slot_size = 256
token = " bell "
read_timeout = "2s"

[admin]
addr = "127.0.0.1:9998"
cors_origins = ["http://lab", " "]
`)
	cfg, err := loadServiceConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Name != "scmid.lab" {
		t.Fatalf("unexpected name: %q", cfg.Name)
	}
	if cfg.BoardPath != filepath.Join(filepath.Dir(path), "boards/lab.toml") {
		t.Fatalf("expected board relative to config, got %q", cfg.BoardPath)
	}
	if cfg.DoorbellAddr != "127.0.0.1:9999" || cfg.Doorbell.SlotSize != 256 || cfg.DoorbellToken != "bell" {
		t.Fatalf("unexpected doorbell overrides: %+v", cfg)
	}
	if cfg.Doorbell.ReadTimeout != 2*time.Second {
		t.Fatalf("unexpected read timeout: %s", cfg.Doorbell.ReadTimeout)
	}
	if cfg.AdminAddr != "127.0.0.1:9998" || len(cfg.CORSOrigins) != 1 {
		t.Fatalf("unexpected admin overrides: %q %v", cfg.AdminAddr, cfg.CORSOrigins)
	}

	defaults := daemon.DefaultServiceConfig()
	if !cfg.AdminEnabled || cfg.AckPolls != defaults.AckPolls {
		t.Fatalf("expected untouched defaults, got admin=%v ack_polls=%d", cfg.AdminEnabled, cfg.AckPolls)
	}
	if cfg.Doorbell.WriteTimeout != defaults.Doorbell.WriteTimeout {
		t.Fatalf("expected default write timeout, got %s", cfg.Doorbell.WriteTimeout)
	}
}

func TestLoadServiceConfigRejectsProductionWithoutTLS(t *testing.T) {
	path := writeConfig(t, `
[doorbell]
security_mode = "production"
`)
	if _, err := loadServiceConfig(path); !errors.Is(err, doorbell.ErrTLSRequired) {
		t.Fatalf("expected tls required, got %v", err)
	}
}

func TestLoadServiceConfigProductionAgentIdentities(t *testing.T) {
	body := `
[doorbell]
security_mode = "production"
tls_enabled = true
tls_mutual = true
tls_cert_file = "certs/scmid.pem"
tls_key_file = "certs/scmid.key"
tls_ca_file = "certs/ca.pem"
`
	if _, err := loadServiceConfig(writeConfig(t, body)); !errors.Is(err, doorbell.ErrAgentIdentitiesRequired) {
		t.Fatalf("expected agent identities required, got %v", err)
	}

	cfg, err := loadServiceConfig(writeConfig(t, body+`
[doorbell.agents]
"linux" = 0
"pmic-agent" = 2
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ids := cfg.Doorbell.AgentIdentities
	if len(ids) != 2 || ids["linux"] != 0 || ids["pmic-agent"] != 2 {
		t.Fatalf("expected linux=0 pmic-agent=2, got %v", ids)
	}
}

func TestLoadServiceConfigRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
[doorbell]
read_timeout = "soon"
`)
	if _, err := loadServiceConfig(path); err == nil {
		t.Fatalf("expected duration parse error")
	}
}

func TestShippedConfigAndBoardLoad(t *testing.T) {
	cfg, err := loadServiceConfig("ex.config.toml")
	if err != nil {
		t.Fatalf("load ex.config.toml: %v", err)
	}
	b, err := config.LoadBoard(cfg.BoardPath)
	if err != nil {
		t.Fatalf("load board: %v", err)
	}
	if len(b.Agents) != 3 || b.Agents[2].Name != "pmic" {
		t.Fatalf("unexpected shipped board agents: %+v", b.Agents)
	}
	if _, err := daemon.NewService(cfg); err != nil {
		t.Fatalf("bring up shipped board: %v", err)
	}
}
