package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	logFile    string
	debug      bool

	// stderr receives CLI logs; tests swap it out.
	stderr io.Writer
}

func (o *rootOptions) level() slog.Level {
	if o.debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// cliLogger logs to stderr. The TUI has its own file logger.
func (o *rootOptions) cliLogger() *slog.Logger {
	w := o.stderr
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: o.level()}))
}

// newRootCmd builds the command tree. Without a subcommand it runs the TUI.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "sheetnotes",
		Short: "Notes kept as rows of a spreadsheet",
		Long: `sheetnotes keeps notes in a spreadsheet, one note per row, and
edits them from a terminal UI, the command line, or an MCP client.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "TUI log file (default ~/.config/sheetnotes/sheetnotes.log)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newTUICmd(opts),
		newListCmd(opts),
		newAddCmd(opts),
		newEditCmd(opts),
		newRmCmd(opts),
		newMCPCmd(opts),
		newFakesheetCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal UI (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts)
		},
	}
}

// Execute runs the root command and exits 1 on error.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
