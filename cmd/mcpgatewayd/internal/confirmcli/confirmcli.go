// Package confirmcli implements the `mcpgatewayd confirm` interactive REPL:
// it polls the gateway's pending confirmations and lets an operator approve
// or reject each from the terminal.
package confirmcli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

// Command builds the `confirm` subcommand.
func Command() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Interactively approve or reject pending Medium risk tool calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(baseURL)
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://127.0.0.1:8090", "base URL of a running mcpgatewayd")
	return cmd
}

type ticket struct {
	ID        string    `json:"id"`
	ServerID  string    `json:"server_id"`
	ToolName  string    `json:"tool_name"`
	ExpiresAt time.Time `json:"expires_at"`
}

func run(baseURL string) error {
	rl, err := readline.New("confirm> ")
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	client := &http.Client{Timeout: 10 * time.Second}

	for {
		tickets, err := fetchPending(client, baseURL)
		if err != nil {
			fmt.Fprintf(rl.Stderr(), "error fetching confirmations: %v\n", err)
			return err
		}
		if len(tickets) == 0 {
			fmt.Fprintln(rl.Stdout(), "no pending confirmations")
			return nil
		}

		for _, t := range tickets {
			prompt := fmt.Sprintf("%s on %s (expires %s) — approve? [y/N] ",
				t.ToolName, t.ServerID, t.ExpiresAt.Format(time.Kitchen))
			rl.SetPrompt(prompt)
			line, err := rl.Readline()
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}

			approve := strings.EqualFold(strings.TrimSpace(line), "y")
			if err := resolve(client, baseURL, t.ID, approve); err != nil {
				fmt.Fprintf(rl.Stderr(), "error resolving %s: %v\n", t.ID, err)
				continue
			}
		}
	}
}

func fetchPending(client *http.Client, baseURL string) ([]ticket, error) {
	resp, err := client.Get(baseURL + "/confirmations/")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var tickets []ticket
	if err := json.NewDecoder(resp.Body).Decode(&tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func resolve(client *http.Client, baseURL, id string, approve bool) error {
	body, err := json.Marshal(map[string]bool{"approve": approve})
	if err != nil {
		return err
	}
	resp, err := client.Post(baseURL+"/confirmations/"+id, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
