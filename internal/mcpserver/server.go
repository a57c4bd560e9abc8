// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes namespacer tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/namespacer/internal/apperr"
	"github.com/starford/namespacer/internal/batch"
	"github.com/starford/namespacer/internal/models"
	"github.com/starford/namespacer/internal/settings"
)

// Batch plans and runs batches. *batch.Processor satisfies it.
type Batch interface {
	Plan(ctx context.Context) ([]models.PlannedChange, error)
	Run(ctx context.Context, confirmer batch.Confirmer) (*batch.Result, error)
}

// Server wraps the MCP server with namespacer tools.
type Server struct {
	mcp      *server.MCPServer
	batch    Batch
	settings *settings.Store
}

// New creates a new MCP server with all namespacer tools registered.
func New(b Batch, st *settings.Store) *Server {
	s := &Server{batch: b, settings: st}

	s.mcp = server.NewMCPServer(
		"namespacer",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("preview_namespace_changes",
		mcp.WithDescription("List the notes that would get a namespace line, without changing anything."),
	), s.previewChanges)

	s.mcp.AddTool(mcp.NewTool("process_existing_notes",
		mcp.WithDescription("Add a namespace line to every existing note that lacks one. "+
			"Without confirm=true this only reports how many notes would change. "+
			"Read the "+FormatURI+" resource first."),
		mcp.WithBoolean("confirm", mcp.Description("Apply the changes. Defaults to false.")),
	), s.processExisting)

	s.mcp.AddTool(mcp.NewTool("get_settings",
		mcp.WithDescription("Return the current namespace settings as JSON."),
	), s.getSettings)

	s.mcp.AddTool(mcp.NewTool("update_settings",
		mcp.WithDescription("Change one or more namespace settings. Omitted fields keep their value."),
		mcp.WithString("namespace_format", mcp.Description("Format with {path} and {name} placeholders")),
		mcp.WithArray("exclude_patterns", mcp.Description("Substring or glob patterns to skip"), mcp.WithStringItems()),
		mcp.WithBoolean("auto_process_new_files", mcp.Description("Inject new notes as they are created")),
		mcp.WithNumber("batch_size", mcp.Description("Writes between pauses, 1 to 500")),
		mcp.WithBoolean("show_progress_bar", mcp.Description("Report batch progress")),
	), s.updateSettings)

	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Namespace Line Format",
			mcp.WithResourceDescription("How the namespace line is built and where it is added."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) previewChanges(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	changes, err := s.batch.Plan(ctx)
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}
	return mcp.NewToolResultText(batch.FormatPreview(changes)), nil
}

func (s *Server) processExisting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !req.GetBool("confirm", false) {
		changes, err := s.batch.Plan(ctx)
		if err != nil {
			return mcp.NewToolResultError(toolError(err)), nil
		}
		if len(changes) == 0 {
			return mcp.NewToolResultText("All notes already have namespaces."), nil
		}
		p := batch.NewPrompt(len(changes))
		return mcp.NewToolResultText(p.Message + " Nothing was changed; call again with confirm=true to apply."), nil
	}

	res, err := s.batch.Run(ctx, batch.AutoConfirm)
	if res == nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(string(out)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getSettings(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.settings.Snapshot(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) updateSettings(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	u, err := parseUpdate(req.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if u.Empty() {
		return mcp.NewToolResultError("no settings given"), nil
	}
	if err := s.settings.Apply(u); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.getSettings(context.Background(), req)
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     FormatGuide,
		},
	}, nil
}

// parseUpdate reads the update_settings arguments. JSON numbers arrive as
// float64.
func parseUpdate(args map[string]any) (settings.Update, error) {
	var u settings.Update
	if v, ok := args["namespace_format"]; ok {
		s, ok := v.(string)
		if !ok {
			return u, errors.New("namespace_format must be a string")
		}
		u.NamespaceFormat = &s
	}
	if v, ok := args["exclude_patterns"]; ok {
		patterns, err := stringList(v)
		if err != nil {
			return u, err
		}
		u.ExcludePatterns = &patterns
	}
	if v, ok := args["auto_process_new_files"]; ok {
		b, ok := v.(bool)
		if !ok {
			return u, errors.New("auto_process_new_files must be a boolean")
		}
		u.AutoProcessNewFiles = &b
	}
	if v, ok := args["batch_size"]; ok {
		var n int
		switch x := v.(type) {
		case float64:
			if x != float64(int(x)) {
				return u, errors.New("batch_size must be a whole number")
			}
			n = int(x)
		case int:
			n = x
		default:
			return u, errors.New("batch_size must be a number")
		}
		u.BatchSize = &n
	}
	if v, ok := args["show_progress_bar"]; ok {
		b, ok := v.(bool)
		if !ok {
			return u, errors.New("show_progress_bar must be a boolean")
		}
		u.ShowProgressBar = &b
	}
	return u, nil
}

func stringList(v any) ([]string, error) {
	switch x := v.(type) {
	case []string:
		return x, nil
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, errors.New("exclude_patterns must be a list of strings")
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, errors.New("exclude_patterns must be a list of strings")
}

func toolError(err error) string {
	switch {
	case err == nil:
		return "unknown error"
	case errors.Is(err, apperr.ErrNotReady):
		return "vault storage is not available"
	case errors.Is(err, apperr.ErrBusy):
		return "a batch is already running"
	}
	return fmt.Sprintf("error: %v", err)
}
