// Package riskgate enforces the three risk tiers a server config carries:
// Low (or unset) dispatches unmodified, Medium requires a human confirmation
// ticket before a tools/call reaches the backend, and High always runs
// inside a container and has its response annotated with the environment it
// ran in.
package riskgate

import (
	"fmt"
	"sort"

	"github.com/google/go-containerregistry/pkg/name"

	"github.com/tinyland-inc/mcpgatewayd/pkg/config"
)

// SpawnCommand rewrites sc's command/args into a `docker run` invocation
// when sc.RiskLevel is High, returning the original command unmodified
// otherwise. The returned originalCommand is always the unwrapped form, kept
// so operators can see what a High server is actually running underneath
// its container. docker.image is re-parsed here even though admission
// already validated it: a config loaded from a stale file between
// validation and spawn could have drifted, and handing a malformed
// reference straight to `docker run` would fail in a far less legible way.
func SpawnCommand(sc config.ServerConfig) (command string, args []string, originalCommand string, err error) {
	originalCommand = sc.Command
	if sc.RiskLevel != config.High || sc.Docker == nil {
		return sc.Command, sc.Args, originalCommand, nil
	}

	if _, err := name.ParseReference(sc.Docker.Image); err != nil {
		return "", nil, originalCommand, fmt.Errorf("spawn %s: invalid docker.image %q: %w", sc.Command, sc.Docker.Image, err)
	}

	dockerArgs := []string{"run", "--rm"}

	// Map iteration order is not insertion order; sort keys so the argv is
	// reproducible run to run, since ServerConfig.Env carries no ordering of
	// its own to preserve.
	keys := make([]string, 0, len(sc.Env))
	for k := range sc.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		dockerArgs = append(dockerArgs, "-e", k+"="+sc.Env[k])
	}

	for _, v := range sc.Docker.Volumes {
		dockerArgs = append(dockerArgs, "-v", v)
	}

	if sc.Docker.Network != "" {
		dockerArgs = append(dockerArgs, "--network", sc.Docker.Network)
	}

	dockerArgs = append(dockerArgs, sc.Docker.Image)

	// npm/npx-based MCP server images generally bake the package run command
	// into their own entrypoint already; only append the original command
	// when the image needs to be told what to run.
	if sc.Command != "npm" && sc.Command != "npx" {
		dockerArgs = append(dockerArgs, sc.Command)
	}
	dockerArgs = append(dockerArgs, sc.Args...)

	return "docker", dockerArgs, originalCommand, nil
}
