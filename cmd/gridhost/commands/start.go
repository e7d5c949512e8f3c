package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gridhost/internal/logger"
	"gridhost/pkg/api"
	"gridhost/pkg/backend"
	"gridhost/pkg/lifecycle"
	"gridhost/pkg/session"
	"gridhost/pkg/settings"
)

var startCmd = &cobra.Command{
	Use:   "start [--key [value] ...]",
	Short: "Start the grid host daemon",
	Long: `Start the grid host daemon in the foreground.

Arguments use the host's own flag grammar: every key starts with "--" and
takes the following token as its value. A flag immediately followed by
another flag carries the literal value "true". Unrecognized flags are
accepted and reported once startup completes.

Recognized flags:
  --settings_file <path>   settings document location (default: data/settings.yaml)
  --environment <mode>     dev, development, prod, or production
  --host <addr>            service layer bind host
  --port <port>            service layer bind port
  --asp_loglevel <level>   debug, info, warning, or error
  --user_id <name>         local user identity for sessions
  --lock_settings          do not persist the resolved settings

Examples:
  # Start with defaults
  gridhost start

  # Bind on all interfaces in development mode
  gridhost start --host 0.0.0.0 --port 8000 --environment dev

  # Try out flags without touching the settings file
  gridhost start --asp_loglevel debug --lock_settings`,
	// The daemon parses its own argument grammar.
	DisableFlagParsing: true,
	RunE:               runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			return cmd.Help()
		}
	}

	backends := backend.NewManager()
	sessions := session.NewManager(backends)

	co := lifecycle.New(lifecycle.Config{
		Args:       args,
		Subsystems: []lifecycle.Subsystem{backends, sessions},
		NewServer: func(set *settings.Settings, co *lifecycle.Coordinator) (lifecycle.Server, error) {
			return api.NewServer(set, sessions, backends, co.RequestShutdown), nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			logger.Info("Interrupt received, initiating shutdown")
			co.RequestShutdown()
		case <-co.Signal().Done():
		}
	}()

	return co.Run(ctx)
}
