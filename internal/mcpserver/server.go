// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz notebooks to LLM agents via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/chat"
	"github.com/starford/ansuz/internal/store"
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp   *server.MCPServer
	store store.Store
	chat  *chat.Service
}

// New creates a new MCP server with all Ansuz tools registered.
func New(st store.Store, chatSvc *chat.Service) *Server {
	s := &Server{store: st, chat: chatSvc}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notebooks",
		mcp.WithDescription("List all notebooks with their titles, tags, and source counts."),
	), s.listNotebooks)

	s.mcp.AddTool(mcp.NewTool("read_source",
		mcp.WithDescription("Read one ingested source document: its extracted text and AI summary."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Source file id")),
	), s.readSource)

	s.mcp.AddTool(mcp.NewTool("search_sources",
		mcp.WithDescription("Full-text search across ingested source documents."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchSources)

	s.mcp.AddTool(mcp.NewTool("ask_notebook",
		mcp.WithDescription("Ask a question answered from a notebook's ingested sources. "+
			"The question and answer are appended to the notebook's chat transcript."),
		mcp.WithString("notebook_id", mcp.Required(), mcp.Description("Notebook id")),
		mcp.WithString("query", mcp.Required(), mcp.Description("The question to answer")),
	), s.askNotebook)

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

func (s *Server) listNotebooks(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notebooks, err := s.store.GetAllNotebooks()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	type row struct {
		ID      string   `json:"id"`
		Title   string   `json:"title"`
		Tags    []string `json:"tags,omitempty"`
		Sources int      `json:"sources"`
	}
	rows := make([]row, len(notebooks))
	for i, nb := range notebooks {
		rows[i] = row{ID: nb.ID, Title: nb.Title, Tags: nb.Tags, Sources: len(nb.SourceIDs)}
	}
	out, _ := json.MarshalIndent(rows, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readSource(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := s.store.GetFile(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", f.Name)
	if f.Summary != nil {
		fmt.Fprintf(&b, "Summary: %s\n\n", f.Summary.Summary)
	}
	b.WriteString(f.Content)
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) searchSources(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.store.SearchFiles(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) askNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notebookID, err := req.RequireString("notebook_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answer, err := s.chat.Ask(ctx, notebookID, query, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(answer.Content), nil
}
