// Package mcpserver exposes the note operations as MCP tools, so an
// assistant can read and edit the sheet through the same service and
// cache the TUI uses.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/marcus/sheetnotes/internal/notes"
	"github.com/marcus/sheetnotes/internal/rowstore"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// NewServer creates an MCP server with tools for note operations.
func NewServer(svc *notes.Service, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"sheetnotes",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("list_notes",
			mcp.WithDescription("List notes in sheet order. Use query to filter by title or content."),
			mcp.WithString("query",
				mcp.Description("Optional: case-insensitive text that must appear in the title or content"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of notes to return (default: 50, max: 500)"),
			),
			mcp.WithBoolean("refresh",
				mcp.Description("Optional: reload from the sheet instead of using a recent copy"),
			),
		),
		handleListNotes(svc),
	)

	s.AddTool(
		mcp.NewTool("get_note",
			mcp.WithDescription("Get a single note by its ID."),
			mcp.WithString("id", mcp.Required(), mcp.Description("The note ID")),
		),
		handleGetNote(svc),
	)

	s.AddTool(
		mcp.NewTool("create_note",
			mcp.WithDescription("Create a note. It is appended as a new row of the sheet."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
			mcp.WithString("content", mcp.Required(), mcp.Description("Note body, markdown allowed")),
		),
		handleCreateNote(svc),
	)

	s.AddTool(
		mcp.NewTool("update_note",
			mcp.WithDescription("Replace the title and content of an existing note."),
			mcp.WithString("id", mcp.Required(), mcp.Description("The note ID")),
			mcp.WithString("title", mcp.Required(), mcp.Description("New title")),
			mcp.WithString("content", mcp.Required(), mcp.Description("New body")),
		),
		handleUpdateNote(svc),
	)

	s.AddTool(
		mcp.NewTool("delete_note",
			mcp.WithDescription("Delete a note. Its row is removed from the sheet."),
			mcp.WithString("id", mcp.Required(), mcp.Description("The note ID")),
		),
		handleDeleteNote(svc),
	)

	return s
}

// Serve runs the server over stdio until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func handleListNotes(svc *notes.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", defaultListLimit)
		if limit <= 0 || limit > maxListLimit {
			limit = maxListLimit
		}

		var (
			list []notes.Note
			err  error
		)
		if req.GetBool("refresh", false) {
			list, err = svc.Refresh(ctx)
		} else {
			list, err = svc.List(ctx)
		}
		if err != nil {
			return mcp.NewToolResultError("failed to list notes: " + errorText(err)), nil
		}

		list = filter(list, req.GetString("query", ""))
		if len(list) > limit {
			list = list[:limit]
		}
		return jsonResult(list)
	}
}

func handleGetNote(svc *notes.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}
		n, err := svc.Get(ctx, id)
		if err != nil {
			return mcp.NewToolResultError("failed to get note: " + errorText(err)), nil
		}
		return jsonResult(n)
	}
}

func handleCreateNote(svc *notes.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		in := notes.Input{
			Title:   req.GetString("title", ""),
			Content: req.GetString("content", ""),
		}
		n, err := svc.Create(ctx, in)
		if err != nil {
			return mcp.NewToolResultError("failed to create note: " + errorText(err)), nil
		}
		return jsonResult(n)
	}
}

func handleUpdateNote(svc *notes.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}
		in := notes.Input{
			Title:   req.GetString("title", ""),
			Content: req.GetString("content", ""),
		}
		n, err := svc.Update(ctx, id, in)
		if err != nil {
			return mcp.NewToolResultError("failed to update note: " + errorText(err)), nil
		}
		return jsonResult(n)
	}
}

func handleDeleteNote(svc *notes.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}
		if err := svc.Delete(ctx, id); err != nil {
			return mcp.NewToolResultError("failed to delete note: " + errorText(err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("deleted note %s", id)), nil
	}
}

// filter keeps notes whose title or content contains query, ignoring case.
func filter(list []notes.Note, query string) []notes.Note {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return list
	}
	var out []notes.Note
	for _, n := range list {
		if strings.Contains(strings.ToLower(n.Title), query) || strings.Contains(strings.ToLower(n.Content), query) {
			out = append(out, n)
		}
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to encode result: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func errorText(err error) string {
	switch {
	case errors.Is(err, notes.ErrNotFound):
		return "note not found"
	case errors.Is(err, notes.ErrRowDrift):
		return "the sheet changed since it was last read; list notes and retry"
	}
	return rowstore.Message(err)
}
