// thermopanel is the terminal front end of the smart thermostat panel.
//
// Usage:
//
//	thermopanel [global flags]              interactive session
//	thermopanel run <command>... [flags]    run panel commands and exit
//
// Global Flags:
//
//	--backend    Base URL of the panel backend (default: http://127.0.0.1:5000)
//	--timeout    Per-request timeout (default: 10s)
//	--no-color   Disable colored output
//	--log-level  Client log level (default: warn)
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/harveywai/thermopanel/pkg/client"
	"github.com/harveywai/thermopanel/pkg/logger"
	"github.com/harveywai/thermopanel/pkg/panel"
	"github.com/harveywai/thermopanel/pkg/security"
)

var (
	backendURL string
	timeout    time.Duration
	noColor    bool
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "thermopanel",
		Short: "Smart thermostat management panel",
		Long: `thermopanel drives the smart thermostat panel from the terminal.

Without a subcommand it starts an interactive session against the backend
given by --backend. Type "help" in the session for the list of commands.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := newShell(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			// alerts are rendered by the panel itself
			_ = sh.panel.Load(cmd.Context())
			return sh.run(cmd.Context(), cmd.InOrStdin())
		},
	}

	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "http://127.0.0.1:5000",
		"Base URL of the panel backend")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second,
		"Per-request timeout")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn",
		"Client log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <command>...",
		Short: "Run panel commands in order and exit",
		Long: `run executes each argument as one panel command, for example:

  thermopanel run "login user1 password123" "add" "list"

It stops at the first command that fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := newShell(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			for _, line := range args {
				if err := sh.exec(cmd.Context(), line); err != nil {
					if errors.Is(err, errQuit) {
						return nil
					}
					return fmt.Errorf("%s: %w", line, err)
				}
			}
			return nil
		},
	}
}

// newShell wires a panel to the backend, rendering to out.
func newShell(out io.Writer) (*shell, error) {
	c, err := client.New(backendURL, client.WithTimeout(timeout))
	if err != nil {
		return nil, err
	}

	log := logger.New(logLevel, os.Stderr, isatty.IsTerminal(os.Stderr.Fd()))
	p := panel.New(c, security.NewStore(security.Defaults()),
		panel.WithRenderer(panel.NewTerminalRenderer(out)),
		panel.WithLogger(log),
	)
	return newShellFor(p, out), nil
}
