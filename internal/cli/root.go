// Package cli implements the fabricsync command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the root command with the process streams.
func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	token       string
	baseURL     string
	environment string
	configPath  string
	settings    string
	settingsDB  string
	editor      string
	debug       bool
	logFormat   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	var a *app

	cmd := &cobra.Command{
		Use:           "fabricsync",
		Short:         "Synchronize Fabric item definitions with local folders",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			built, err := newApp(cmd.Context(), flags, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a = built
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a == nil {
				return nil
			}
			return a.Close()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.token, "token", os.Getenv("FABRIC_TOKEN"), "Fabric API bearer token (default $FABRIC_TOKEN)")
	pf.StringVar(&flags.baseURL, "base-url", "", "Fabric API base URL (default derived from the environment)")
	pf.StringVar(&flags.environment, "environment", "", "Fabric environment, e.g. PROD or MSIT")
	pf.StringVar(&flags.configPath, "config", "", "editor style settings file (.json, .jsonc, .yaml)")
	pf.StringVar(&flags.settings, "settings", "", "JSON file holding folder mappings")
	pf.StringVar(&flags.settingsDB, "settings-db", "", "SQLite database holding folder mappings (overrides --settings)")
	pf.StringVar(&flags.editor, "editor", "", "editor command used to open folders, e.g. code")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")
	pf.StringVar(&flags.logFormat, "log-format", "text", "log format: text|json")

	// Subcommands dispatch through the registry built in PersistentPreRunE.
	run := func(name string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if a == nil {
				return fmt.Errorf("%s: not initialized", name)
			}
			return a.registry.Execute(cmd.Context(), name, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "download <workspace-id> <item-id>",
			Short: "Download an item definition into its local folder",
			Args:  cobra.ExactArgs(2),
			RunE:  run(CommandDownload),
		},
		&cobra.Command{
			Use:   "change-folder <workspace-id> <item-id>",
			Short: "Move an item to a different local folder",
			Args:  cobra.ExactArgs(2),
			RunE:  run(CommandChangeFolder),
		},
		&cobra.Command{
			Use:   "open <workspace-id> <item-id>",
			Short: "Open the local folder of an item",
			Args:  cobra.ExactArgs(2),
			RunE:  run(CommandOpen),
		},
		&cobra.Command{
			Use:   "publish <workspace-id> <item-id>",
			Short: "Publish the local folder of an item to Fabric",
			Args:  cobra.ExactArgs(2),
			RunE:  run(CommandPublish),
		},
		&cobra.Command{
			Use:   "find [path]",
			Short: "Show the item mapped to a local folder",
			Args:  cobra.MaximumNArgs(1),
			RunE:  run(CommandFind),
		},
		&cobra.Command{
			Use:   "list <workspace-id>",
			Short: "List the items of a workspace",
			Args:  cobra.ExactArgs(1),
			RunE:  run(CommandList),
		},
		&cobra.Command{
			Use:   "create <workspace-id> <display-name> <type> [folder]",
			Short: "Create an item, optionally from a local folder",
			Args:  cobra.RangeArgs(3, 4),
			RunE:  run(CommandCreate),
		},
		&cobra.Command{
			Use:   "delete <workspace-id> <item-id>",
			Short: "Delete an item",
			Args:  cobra.ExactArgs(2),
			RunE:  run(CommandDelete),
		},
	)
	return cmd
}

func printError(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
}
