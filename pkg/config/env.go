package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/tinyland-inc/mcpgatewayd/pkg/logger"
)

// overlayDynamicEnv scans the process environment for the
// MCP_SERVER_<NAME>_* family and merges each discovered server into servers,
// overriding any entry of the same name loaded from the config file. NAME is
// the server's registry key, uppercased; the suffixes recognized are
// COMMAND, ARGS (comma-separated), ENV (JSON object), RISK_LEVEL (integer
// 1/2/3), and DOCKER_CONFIG (JSON object matching DockerConfig). This family
// is necessarily handled by hand rather than via caarlos0/env: its prefix is
// determined at runtime by the server name, which struct tags cannot express.
func overlayDynamicEnv(servers map[string]ServerConfig) {
	type partial struct {
		command      *string
		args         *string
		env          *string
		riskLevel    *string
		dockerConfig *string
	}
	found := map[string]*partial{}

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		rest, ok := strings.CutPrefix(key, "MCP_SERVER_")
		if !ok {
			continue
		}

		name, suffix, ok := splitServerSuffix(rest)
		if !ok || name == "" {
			continue
		}
		name = strings.ToLower(name)

		p, exists := found[name]
		if !exists {
			p = &partial{}
			found[name] = p
		}
		switch suffix {
		case "COMMAND":
			p.command = &value
		case "ARGS":
			p.args = &value
		case "ENV":
			p.env = &value
		case "RISK_LEVEL":
			p.riskLevel = &value
		case "DOCKER_CONFIG":
			p.dockerConfig = &value
		}
	}

	for name, p := range found {
		sc := servers[name]
		if p.command != nil {
			sc.Command = *p.command
		}
		if p.args != nil {
			parts := strings.Split(*p.args, ",")
			args := make([]string, 0, len(parts))
			for _, a := range parts {
				args = append(args, strings.TrimSpace(a))
			}
			sc.Args = args
		}
		if p.env != nil {
			var envMap map[string]string
			if err := json.Unmarshal([]byte(*p.env), &envMap); err != nil {
				logger.WarnCF("config", "ignoring malformed MCP_SERVER_*_ENV", map[string]any{
					"server": name, "error": err.Error(),
				})
			} else {
				sc.Env = envMap
			}
		}
		if p.riskLevel != nil {
			n, convErr := strconv.Atoi(strings.TrimSpace(*p.riskLevel))
			var rl RiskLevel
			err := convErr
			if err == nil {
				rl, err = ParseRiskLevelInt(n)
			}
			if err != nil {
				logger.WarnCF("config", "ignoring malformed MCP_SERVER_*_RISK_LEVEL", map[string]any{
					"server": name, "error": err.Error(),
				})
			} else {
				sc.RiskLevel = rl
			}
		}
		if p.dockerConfig != nil {
			var dc DockerConfig
			if err := json.Unmarshal([]byte(*p.dockerConfig), &dc); err != nil {
				logger.WarnCF("config", "ignoring malformed MCP_SERVER_*_DOCKER_CONFIG", map[string]any{
					"server": name, "error": err.Error(),
				})
			} else {
				sc.Docker = &dc
			}
		}
		servers[name] = sc
	}
}

// splitServerSuffix splits "NAME_SUFFIX" into ("name", "SUFFIX") for every
// recognized suffix, longest first so a server named e.g. "docker_config"
// itself doesn't get mis-split.
func splitServerSuffix(rest string) (string, string, bool) {
	suffixes := []string{"DOCKER_CONFIG", "RISK_LEVEL", "COMMAND", "ARGS", "ENV"}
	for _, suffix := range suffixes {
		if name, ok := strings.CutSuffix(rest, "_"+suffix); ok {
			return name, suffix, true
		}
	}
	return "", "", false
}
