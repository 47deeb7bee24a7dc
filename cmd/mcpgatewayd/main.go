// Command mcpgatewayd multiplexes a set of locally-spawned MCP servers
// behind a single REST API, gating risky tool calls behind human
// confirmation or container isolation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/mcpgatewayd/cmd/mcpgatewayd/internal/confirmcli"
	"github.com/tinyland-inc/mcpgatewayd/cmd/mcpgatewayd/internal/serve"
)

func main() {
	root := &cobra.Command{
		Use:   "mcpgatewayd",
		Short: "MCP multiplexing gateway",
	}
	root.AddCommand(serve.Command())
	root.AddCommand(confirmcli.Command())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
