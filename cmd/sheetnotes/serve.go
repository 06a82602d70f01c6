package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/sheetnotes/internal/fakesheet"
	"github.com/marcus/sheetnotes/internal/mcpserver"
)

const shutdownTimeout = 5 * time.Second

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve note tools to an MCP client over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol; logs go to stderr.
			e, err := openEnv(opts, opts.cliLogger())
			if err != nil {
				return err
			}
			defer e.Close()

			s := mcpserver.NewServer(e.svc, effectiveVersion(Version))
			e.logger.Info("mcp: serving on stdio")
			return mcpserver.Serve(s)
		},
	}
}

func newFakesheetCmd(opts *rootOptions) *cobra.Command {
	var (
		addr  string
		fo    fakesheet.Options
		seedN int
	)
	cmd := &cobra.Command{
		Use:   "fakesheet",
		Short: "Run an in-memory sheet server for local development",
		Long: `Run an in-memory server that answers the four sheet endpoints.
Point the endpoint setting (or SHEETNOTES_ENDPOINT) at it to try the
app without a real spreadsheet. Rows are lost on exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.cliLogger()
			fo.Logger = logger
			sheet := fakesheet.New(fo)
			if seedN > 0 {
				sheet.SetRows(fakesheet.SampleRows(seedN, time.Now()))
			}

			srv := &http.Server{Addr: addr, Handler: sheet.Handler(), ReadHeaderTimeout: 10 * time.Second}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			fmt.Fprintf(cmd.OutOrStdout(), "fake sheet %q listening on http://%s\n", fo.SheetName, displayAddr(addr))

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "listen address")
	cmd.Flags().StringVar(&fo.SheetName, "sheet", "Sheet1", "sheet name")
	cmd.Flags().IntVar(&fo.SheetID, "sheet-id", 0, "numeric sheet id")
	cmd.Flags().StringVar(&fo.AccessToken, "token", "", "bearer token required for row overwrites")
	cmd.Flags().IntVar(&seedN, "seed", 0, "start with this many sample notes")
	return cmd
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
