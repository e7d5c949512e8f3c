package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gridhost/internal/cli/output"
)

var (
	statusHost   string
	statusPort   int
	statusOutput string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Check the daemon's health and readiness endpoints and report the
result.

Examples:
  # Check a locally running daemon
  gridhost status

  # Check a daemon on another port
  gridhost status --port 8000

  # Output as JSON
  gridhost status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusHost, "host", "127.0.0.1", "daemon host")
	statusCmd.Flags().IntVar(&statusPort, "port", 8080, "daemon service port")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "output format (table|json|yaml)")
}

// HostStatus is the status report shown by the status command.
type HostStatus struct {
	Running  bool   `json:"running" yaml:"running"`
	Ready    bool   `json:"ready" yaml:"ready"`
	Backends int    `json:"backends" yaml:"backends"`
	Sessions int    `json:"sessions" yaml:"sessions"`
	Message  string `json:"message" yaml:"message"`
}

// apiResponse mirrors the service layer response envelope.
type apiResponse struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
	Error  string         `json:"error"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	status := HostStatus{Message: "Daemon is not running"}
	client := &http.Client{Timeout: 2 * time.Second}
	base := fmt.Sprintf("http://%s:%d", statusHost, statusPort)

	if resp, err := client.Get(base + "/health"); err == nil {
		resp.Body.Close()
		status.Running = resp.StatusCode == http.StatusOK
	}

	if status.Running {
		status.Message = "Daemon is running"
		if resp, err := client.Get(base + "/health/ready"); err == nil {
			var ready apiResponse
			if err := json.NewDecoder(resp.Body).Decode(&ready); err == nil {
				status.Ready = resp.StatusCode == http.StatusOK
				if n, ok := ready.Data["backends"].(float64); ok {
					status.Backends = int(n)
				}
				if n, ok := ready.Data["sessions"].(float64); ok {
					status.Sessions = int(n)
				}
				if !status.Ready && ready.Error != "" {
					status.Message = fmt.Sprintf("Daemon is running but not ready: %s", ready.Error)
				}
			}
			resp.Body.Close()
		}
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		return printStatusTable(status)
	}
}

func printStatusTable(status HostStatus) error {
	state := "stopped"
	if status.Running && status.Ready {
		state = "running"
	} else if status.Running {
		state = "running (not ready)"
	}

	pairs := [][2]string{
		{"Status", state},
		{"Backends", fmt.Sprintf("%d", status.Backends)},
		{"Sessions", fmt.Sprintf("%d", status.Sessions)},
		{"Message", status.Message},
	}
	return output.SimpleTable(os.Stdout, pairs)
}
