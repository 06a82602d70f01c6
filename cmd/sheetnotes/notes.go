package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/marcus/sheetnotes/internal/notes"
	"github.com/marcus/sheetnotes/internal/rowstore"
	"github.com/marcus/sheetnotes/internal/ui"
)

const (
	commandTimeout = 30 * time.Second
	titleColumnMax = 40
)

// withService runs fn against a freshly opened service.
func withService(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, svc *notes.Service) error) error {
	e, err := openEnv(opts, opts.cliLogger())
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()
	return fn(ctx, e.svc)
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes in sheet order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *notes.Service) error {
				list, err := svc.List(ctx)
				if err != nil {
					return cliError(err)
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), list)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No notes yet.")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), notesTable(list))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func notesTable(list []notes.Note) string {
	rows := make([][]string, len(list))
	for i, n := range list {
		created := ""
		if !n.CreatedAt.IsZero() {
			created = ui.LongDate(n.CreatedAt.Local())
		}
		rows[i] = []string{n.ID, ui.Truncate(n.Title, titleColumnMax), created}
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TITLE", "CREATED").
		Rows(rows...).
		String()
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	var title, content string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a note",
		Long:  `Create a note. Pass --content - to read the body from stdin.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readContent(cmd.InOrStdin(), content)
			if err != nil {
				return err
			}
			return withService(cmd, opts, func(ctx context.Context, svc *notes.Service) error {
				n, err := svc.Create(ctx, notes.Input{Title: title, Content: body})
				if err != nil {
					return cliError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created note %s\n", n.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "note title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "note body, or - for stdin")
	return cmd
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	var title, content string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a note's title or content",
		Long:  `Change a note. Fields that are not given keep their current value.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			titleSet := cmd.Flags().Changed("title")
			contentSet := cmd.Flags().Changed("content")
			if !titleSet && !contentSet {
				return errors.New("nothing to change: pass --title and/or --content")
			}
			body := content
			if contentSet {
				var err error
				if body, err = readContent(cmd.InOrStdin(), content); err != nil {
					return err
				}
			}
			return withService(cmd, opts, func(ctx context.Context, svc *notes.Service) error {
				current, err := svc.Get(ctx, args[0])
				if err != nil {
					return cliError(err)
				}
				in := notes.Input{Title: current.Title, Content: current.Content}
				if titleSet {
					in.Title = title
				}
				if contentSet {
					in.Content = body
				}
				n, err := svc.Update(ctx, args[0], in)
				if err != nil {
					return cliError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated note %s\n", n.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "new body, or - for stdin")
	return cmd
}

func newRmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a note and its row",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *notes.Service) error {
				if err := svc.Delete(ctx, args[0]); err != nil {
					return cliError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted note %s\n", args[0])
				return nil
			})
		},
	}
}

// readContent returns flag, or all of r when flag is "-".
func readContent(r io.Reader, flag string) (string, error) {
	if flag != "-" {
		return flag, nil
	}
	if r == nil {
		r = os.Stdin
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// cliError turns service errors into one-line messages.
func cliError(err error) error {
	var verr *notes.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr
	case errors.Is(err, notes.ErrNotFound):
		return errors.New("note not found")
	case errors.Is(err, notes.ErrRowDrift):
		return errors.New("the sheet changed since it was read; try again")
	}
	return errors.New(rowstore.Message(err))
}
