// Package config loads the gateway's static settings and the set of MCP
// servers it supervises, from a JSON file overlaid with environment
// variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/google/go-containerregistry/pkg/name"

	"github.com/tinyland-inc/mcpgatewayd/pkg/logger"
)

// DefaultConfigPath is used when MCP_CONFIG_PATH is unset.
const DefaultConfigPath = "mcp_config.json"

// DockerConfig describes how a High risk server's command is wrapped in a
// container at spawn time.
type DockerConfig struct {
	Image   string   `json:"image"`
	Volumes []string `json:"volumes,omitempty"`
	Network string   `json:"network,omitempty"`
}

// ServerConfig is one entry of the mcpServers map: how to spawn a backend and
// how much it is trusted.
type ServerConfig struct {
	Command   string            `json:"command"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	RiskLevel RiskLevel         `json:"risk_level,omitempty"`
	Docker    *DockerConfig     `json:"docker,omitempty"`
}

// GatewayConfig holds process-level settings, loaded from MCPGW_* env vars.
type GatewayConfig struct {
	Host                   string `env:"MCPGW_HOST"                     envDefault:"127.0.0.1"`
	Port                   int    `env:"MCPGW_PORT"                     envDefault:"8090"`
	RequestTimeoutSeconds  int    `env:"MCPGW_REQUEST_TIMEOUT_SECONDS"  envDefault:"10"`
	ConfirmationTTLSeconds int    `env:"MCPGW_CONFIRMATION_TTL_SECONDS" envDefault:"600"`
	HandshakeTimeoutSeconds int   `env:"MCPGW_HANDSHAKE_TIMEOUT_SECONDS" envDefault:"30"`
	LogLevel               string `env:"MCPGW_LOG_LEVEL"                envDefault:"info"`
}

// Config is the gateway's full effective configuration: process-level
// settings plus the named set of MCP servers to supervise.
type Config struct {
	Gateway    GatewayConfig           `json:"-"`
	MCPServers map[string]ServerConfig `json:"mcpServers"`
}

// Load reads configPath (falling back to DefaultConfigPath or
// $MCP_CONFIG_PATH when configPath is empty), overlays the dynamic
// MCP_SERVER_<NAME>_* env var family, loads GatewayConfig from MCPGW_* env
// vars, and validates every server entry's admission invariants. A missing
// config file is not an error; the gateway starts with zero servers and
// servers may still be added solely via the dynamic env var family or later
// via the REST API.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = os.Getenv("MCP_CONFIG_PATH")
	}
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	cfg := &Config{MCPServers: map[string]ServerConfig{}}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	case os.IsNotExist(err):
		logger.InfoCF("config", "no config file found, starting with no servers", map[string]any{
			"path": configPath,
		})
	default:
		return nil, fmt.Errorf("read %s: %w", configPath, err)
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = map[string]ServerConfig{}
	}

	overlayDynamicEnv(cfg.MCPServers)

	var gw GatewayConfig
	if err := env.Parse(&gw); err != nil {
		return nil, fmt.Errorf("parse gateway env vars: %w", err)
	}
	cfg.Gateway = gw

	for serverName, sc := range cfg.MCPServers {
		validated, err := validateServer(serverName, sc)
		if err != nil {
			logger.WarnCF("config", "dropping server with invalid config", map[string]any{
				"server": serverName,
				"error":  err.Error(),
			})
			delete(cfg.MCPServers, serverName)
			continue
		}
		cfg.MCPServers[serverName] = validated
	}

	return cfg, nil
}

// validateServer enforces the admission invariants for a server loaded from
// the config file: a missing command is a hard error (the entry is
// dropped), but a High risk server with no valid docker.image is demoted to
// Medium with a warning rather than dropped outright, since a file is
// ambient configuration an operator may not be watching as closely as a
// live POST /servers call.
func validateServer(serverName string, sc ServerConfig) (ServerConfig, error) {
	if sc.Command == "" {
		return sc, fmt.Errorf("server %q: command is required", serverName)
	}

	if sc.RiskLevel == High && !hasValidDockerImage(sc) {
		logger.WarnCF("config", "demoting high risk server without a valid docker.image to medium", map[string]any{
			"server": serverName,
		})
		sc.RiskLevel = Medium
		sc.Docker = nil
	}

	return sc, nil
}

// ValidateAdmission enforces the same risk/docker invariant for a server
// submitted live (e.g. via POST /servers), where silently downgrading the
// caller's explicit request would be more surprising than rejecting it:
// a High risk server without a syntactically valid docker.image is an
// admission error, not a demotion.
func ValidateAdmission(sc ServerConfig) (ServerConfig, error) {
	if sc.Command == "" {
		return sc, fmt.Errorf("command is required")
	}

	if sc.RiskLevel == High && !hasValidDockerImage(sc) {
		return sc, fmt.Errorf("risk_level high requires a valid docker.image")
	}

	return sc, nil
}

// hasValidDockerImage reports whether sc carries a docker.image that is both
// present and a syntactically valid container image reference.
func hasValidDockerImage(sc ServerConfig) bool {
	if sc.Docker == nil || sc.Docker.Image == "" {
		return false
	}
	_, err := name.ParseReference(sc.Docker.Image)
	return err == nil
}
