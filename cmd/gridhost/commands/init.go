package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gridhost/pkg/settings"
)

var (
	initSettingsFile string
	initForce        bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default settings document",
	Long: `Write a settings document populated with defaults so it can be
edited before the first start. The daemon also creates the document on its
own during startup; init only exists to hand you the file up front.

Examples:
  # Create data/settings.yaml
  gridhost init

  # Create at a custom location
  gridhost init --settings-file /etc/gridhost/settings.yaml`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initSettingsFile, "settings-file", "", "settings document path (default: data/settings.yaml)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing settings document")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := initSettingsFile
	if path == "" {
		path = settings.DefaultPath
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("settings document already exists at %s (use --force to overwrite)", path)
	}

	set := settings.Default()
	set.Server.Environment = settings.EnvProduction
	set.Logging.Level = "warning"

	if err := settings.NewStore(path).Save(set); err != nil {
		return err
	}

	fmt.Printf("Settings document created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the document to customize the host")
	fmt.Println("  2. Start the daemon with: gridhost start")
	return nil
}
