package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	stopHost string
	stopPort int
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running daemon",
	Long: `Ask a running daemon to shut down gracefully through its service
layer. The command opens a short-lived session to authenticate the
shutdown request.

Examples:
  # Stop a locally running daemon
  gridhost stop

  # Stop a daemon on another port
  gridhost stop --port 8000`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopHost, "host", "127.0.0.1", "daemon host")
	stopCmd.Flags().IntVar(&stopPort, "port", 8080, "daemon service port")
}

func runStop(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	base := fmt.Sprintf("http://%s:%d", stopHost, stopPort)

	// Shutdown is an authenticated endpoint; open a session for the token.
	resp, err := client.Post(base+"/api/v1/sessions", "application/json", nil)
	if err != nil {
		return fmt.Errorf("daemon is not reachable at %s: %w", base, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("failed to open session: status %d", resp.StatusCode)
	}

	var opened apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&opened); err != nil {
		return fmt.Errorf("invalid session response: %w", err)
	}
	token, _ := opened.Data["token"].(string)
	if token == "" {
		return fmt.Errorf("session response carried no token")
	}

	req, err := http.NewRequest(http.MethodPost, base+"/api/v1/shutdown", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	shutdownResp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("shutdown request failed: %w", err)
	}
	defer shutdownResp.Body.Close()
	if shutdownResp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("shutdown rejected: status %d", shutdownResp.StatusCode)
	}

	fmt.Println("Shutdown initiated")
	return nil
}
