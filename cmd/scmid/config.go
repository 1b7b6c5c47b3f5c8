package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/scmictl/internal/daemon"
	"github.com/danmuck/scmictl/internal/doorbell"
)

// scmid config.toml key mapping to daemon runtime settings.
type fileConfig struct {
	Name     string         `toml:"name"`
	Board    string         `toml:"board"`
	AckPolls int            `toml:"ack_polls"`
	Doorbell doorbellConfig `toml:"doorbell"`
	Admin    adminConfig    `toml:"admin"`
}

type doorbellConfig struct {
	Addr         string            `toml:"addr"`
	SlotSize     int               `toml:"slot_size"`
	MaxPayload   uint32            `toml:"max_payload"`
	Token        string            `toml:"token"`
	ReadTimeout  string            `toml:"read_timeout"`
	SecurityMode string            `toml:"security_mode"`
	TLSEnabled   bool              `toml:"tls_enabled"`
	TLSMutual    bool              `toml:"tls_mutual"`
	TLSCertFile  string            `toml:"tls_cert_file"`
	TLSKeyFile   string            `toml:"tls_key_file"`
	TLSCAFile    string            `toml:"tls_ca_file"`
	Agents       map[string]uint32 `toml:"agents"`
}

type adminConfig struct {
	Enabled     bool     `toml:"enabled"`
	Addr        string   `toml:"addr"`
	Token       string   `toml:"token"`
	CORSOrigins []string `toml:"cors_origins"`
}

// scmid loader for TOML config with default overlay.
func loadServiceConfig(path string) (daemon.ServiceConfig, error) {
	cfg := daemon.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return daemon.ServiceConfig{}, fmt.Errorf("load scmid config: %w", err)
	}

	if meta.IsDefined("name") {
		if name := strings.TrimSpace(raw.Name); name != "" {
			cfg.Name = name
		}
	}
	if meta.IsDefined("board") {
		cfg.BoardPath = resolvePath(path, raw.Board)
	}
	if meta.IsDefined("ack_polls") {
		cfg.AckPolls = raw.AckPolls
	}

	if meta.IsDefined("doorbell", "addr") {
		cfg.DoorbellAddr = strings.TrimSpace(raw.Doorbell.Addr)
	}
	if meta.IsDefined("doorbell", "slot_size") {
		cfg.Doorbell.SlotSize = raw.Doorbell.SlotSize
	}
	if meta.IsDefined("doorbell", "max_payload") {
		cfg.Doorbell.Limits.MaxPayloadBytes = raw.Doorbell.MaxPayload
	}
	if meta.IsDefined("doorbell", "token") {
		cfg.DoorbellToken = strings.TrimSpace(raw.Doorbell.Token)
	}
	if meta.IsDefined("doorbell", "read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Doorbell.ReadTimeout))
		if err != nil {
			return daemon.ServiceConfig{}, fmt.Errorf("parse doorbell.read_timeout: %w", err)
		}
		cfg.Doorbell.ReadTimeout = d
	}
	if meta.IsDefined("doorbell", "security_mode") {
		cfg.Doorbell.SecurityMode = doorbell.SecurityMode(strings.TrimSpace(raw.Doorbell.SecurityMode))
	}
	if meta.IsDefined("doorbell", "tls_enabled") {
		cfg.Doorbell.TLS.Enabled = raw.Doorbell.TLSEnabled
	}
	if meta.IsDefined("doorbell", "tls_mutual") {
		cfg.Doorbell.TLS.Mutual = raw.Doorbell.TLSMutual
	}
	if meta.IsDefined("doorbell", "tls_cert_file") {
		cfg.Doorbell.TLS.CertFile = resolvePath(path, raw.Doorbell.TLSCertFile)
	}
	if meta.IsDefined("doorbell", "tls_key_file") {
		cfg.Doorbell.TLS.KeyFile = resolvePath(path, raw.Doorbell.TLSKeyFile)
	}
	if meta.IsDefined("doorbell", "tls_ca_file") {
		cfg.Doorbell.TLS.CAFile = resolvePath(path, raw.Doorbell.TLSCAFile)
	}
	if meta.IsDefined("doorbell", "agents") && len(raw.Doorbell.Agents) > 0 {
		cfg.Doorbell.AgentIdentities = make(map[string]uint32, len(raw.Doorbell.Agents))
		for cn, id := range raw.Doorbell.Agents {
			if cn = strings.TrimSpace(cn); cn != "" {
				cfg.Doorbell.AgentIdentities[cn] = id
			}
		}
	}

	if meta.IsDefined("admin", "enabled") {
		cfg.AdminEnabled = raw.Admin.Enabled
	}
	if meta.IsDefined("admin", "addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.Admin.Addr)
	}
	if meta.IsDefined("admin", "token") {
		cfg.AdminToken = strings.TrimSpace(raw.Admin.Token)
	}
	if meta.IsDefined("admin", "cors_origins") {
		cfg.CORSOrigins = normalizeOrigins(raw.Admin.CORSOrigins)
	}

	if err := cfg.Doorbell.ValidateServerTransport(); err != nil {
		return daemon.ServiceConfig{}, fmt.Errorf("load scmid config: %w", err)
	}
	if cfg.AdminEnabled && strings.TrimSpace(cfg.AdminAddr) == "" {
		return daemon.ServiceConfig{}, fmt.Errorf("load scmid config: admin.addr is required when admin is enabled")
	}
	return cfg, nil
}

// resolvePath makes relative paths relative to the config file.
func resolvePath(configPath, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		if v := strings.TrimSpace(origin); v != "" {
			out = append(out, v)
		}
	}
	return out
}
