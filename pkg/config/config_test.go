package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "mcp_config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Empty(t, cfg.MCPServers)
}

func TestLoadParsesServers(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{
		"mcpServers": {
			"files": {"command": "npx", "args": ["-y", "@modelcontextprotocol/server-filesystem"]},
			"risky": {"command": "do-a-thing", "risk_level": "medium"}
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Contains(t, cfg.MCPServers, "files")
	assert.Equal(t, "npx", cfg.MCPServers["files"].Command)
	assert.Equal(t, Medium, cfg.MCPServers["risky"].RiskLevel)
}

func TestLoadDemotesHighRiskWithoutDockerImageToMedium(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{
		"mcpServers": {
			"dangerous": {"command": "rm", "risk_level": "high"}
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Contains(t, cfg.MCPServers, "dangerous")
	assert.Equal(t, Medium, cfg.MCPServers["dangerous"].RiskLevel)
}

func TestLoadDemotesHighRiskWithMalformedImageToMedium(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{
		"mcpServers": {
			"dangerous": {"command": "rm", "risk_level": "high", "docker": {"image": "not a valid image!!"}}
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Contains(t, cfg.MCPServers, "dangerous")
	assert.Equal(t, Medium, cfg.MCPServers["dangerous"].RiskLevel)
	assert.Nil(t, cfg.MCPServers["dangerous"].Docker)
}

func TestValidateAdmissionRejectsHighRiskWithoutDockerImage(t *testing.T) {
	_, err := ValidateAdmission(ServerConfig{Command: "rm", RiskLevel: High})
	assert.Error(t, err)
}

func TestValidateAdmissionAcceptsHighRiskWithValidImage(t *testing.T) {
	sc, err := ValidateAdmission(ServerConfig{
		Command:   "python3",
		RiskLevel: High,
		Docker:    &DockerConfig{Image: "python:3.12-slim"},
	})
	require.NoError(t, err)
	assert.Equal(t, High, sc.RiskLevel)
}

func TestLoadKeepsHighRiskWithValidImage(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{
		"mcpServers": {
			"sandboxed": {
				"command": "python3",
				"risk_level": "high",
				"docker": {"image": "python:3.12-slim"}
			}
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Contains(t, cfg.MCPServers, "sandboxed")
	assert.Equal(t, High, cfg.MCPServers["sandboxed"].RiskLevel)
}

func TestOverlayDynamicEnvAddsServer(t *testing.T) {
	t.Setenv("MCP_SERVER_ENVONLY_COMMAND", "echo")
	t.Setenv("MCP_SERVER_ENVONLY_ARGS", "hello, world")
	t.Setenv("MCP_SERVER_ENVONLY_RISK_LEVEL", "1")

	servers := map[string]ServerConfig{}
	overlayDynamicEnv(servers)

	require.Contains(t, servers, "envonly")
	sc := servers["envonly"]
	assert.Equal(t, "echo", sc.Command)
	assert.Equal(t, []string{"hello", "world"}, sc.Args)
	assert.Equal(t, Low, sc.RiskLevel)
}

func TestOverlayDynamicEnvRejectsStringRiskLevel(t *testing.T) {
	t.Setenv("MCP_SERVER_BADRISK_COMMAND", "echo")
	t.Setenv("MCP_SERVER_BADRISK_RISK_LEVEL", "low")

	servers := map[string]ServerConfig{}
	overlayDynamicEnv(servers)

	require.Contains(t, servers, "badrisk")
	assert.Equal(t, Unset, servers["badrisk"].RiskLevel)
}

func TestOverlayDynamicEnvOverridesFileEntry(t *testing.T) {
	t.Setenv("MCP_SERVER_FILES_COMMAND", "overridden-binary")

	servers := map[string]ServerConfig{
		"files": {Command: "npx", Args: []string{"-y", "server-filesystem"}},
	}
	overlayDynamicEnv(servers)

	assert.Equal(t, "overridden-binary", servers["files"].Command)
	assert.Equal(t, []string{"-y", "server-filesystem"}, servers["files"].Args)
}

func TestParseRiskLevelRejectsUnknown(t *testing.T) {
	_, err := ParseRiskLevel("critical")
	assert.Error(t, err)
}
