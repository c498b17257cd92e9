// Package mcp exposes the workstream core as MCP tools over stdio so
// agent frontends can query and mutate tracked work natively.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kestrelhq/kestrel/internal/models"
	"github.com/kestrelhq/kestrel/internal/notify"
	"github.com/kestrelhq/kestrel/internal/poller"
	"github.com/kestrelhq/kestrel/internal/workstream"
)

// Server wraps the kestrel core and exposes it as MCP tools.
type Server struct {
	manager *workstream.Manager
	queue   *notify.Queue
	poller  *poller.Poller
}

// NewServer creates the MCP server wrapper with all required dependencies.
func NewServer(mgr *workstream.Manager, queue *notify.Queue, p *poller.Poller) *Server {
	return &Server{
		manager: mgr,
		queue:   queue,
		poller:  p,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("kestrel", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listWorkstreamsTool())
	srv.AddTool(s.getWorkstreamTool())
	srv.AddTool(s.updateStatusTool())
	srv.AddTool(s.listNotificationsTool())
	srv.AddTool(s.trashSearchTool())
	srv.AddTool(s.pollNowTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

type workstreamOut struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Type          string            `json:"type"`
	Status        string            `json:"status"`
	StatusMessage string            `json:"status_message,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	TurnCount     int               `json:"turn_count"`
	TokenEstimate int               `json:"token_estimate"`
	MessageCount  int               `json:"message_count"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func toWorkstreamOut(ws *models.Workstream) workstreamOut {
	return workstreamOut{
		ID:            ws.ID,
		Name:          ws.Name,
		Type:          string(ws.Type),
		Status:        string(ws.Status),
		StatusMessage: ws.StatusMessage,
		CreatedAt:     ws.CreatedAt,
		UpdatedAt:     ws.UpdatedAt,
		TurnCount:     ws.TurnCount,
		TokenEstimate: ws.TokenEstimate,
		MessageCount:  len(ws.Messages),
		Metadata:      ws.Metadata,
	}
}

// kestrel_list_workstreams
func (s *Server) listWorkstreamsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("kestrel_list_workstreams",
		mcp.WithDescription("List tracked workstreams sorted by creation time. Returns a JSON array with id, name, type, status, and counters."),
		mcp.WithString("status", mcp.Description("Filter by status: needs_input, in_progress, waiting, done, error")),
		mcp.WithString("type", mcp.Description("Filter by type: pr, ticket, ask, investigation, custom")),
	)
	return tool, s.handleListWorkstreams
}

func (s *Server) handleListWorkstreams(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := request.GetString("status", "")
	typ := request.GetString("type", "")

	var items []*models.Workstream
	switch {
	case status != "":
		items = s.manager.GetByStatus(models.WorkstreamStatus(status))
	case typ != "":
		items = s.manager.GetByType(models.WorkstreamType(typ))
	default:
		items = s.manager.GetAll()
	}

	out := make([]workstreamOut, len(items))
	for i, ws := range items {
		out[i] = toWorkstreamOut(ws)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal workstreams: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// kestrel_get_workstream
func (s *Server) getWorkstreamTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("kestrel_get_workstream",
		mcp.WithDescription("Get one workstream by id, including its full conversation history."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Workstream id")),
	)
	return tool, s.handleGetWorkstream
}

func (s *Server) handleGetWorkstream(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	ws := s.manager.Get(id)
	if ws == nil {
		return mcp.NewToolResultError(fmt.Sprintf("workstream not found: %s", id)), nil
	}

	data, err := json.Marshal(ws)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal workstream: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// kestrel_update_status
func (s *Server) updateStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("kestrel_update_status",
		mcp.WithDescription("Set a workstream's status and optional status message."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Workstream id")),
		mcp.WithString("status", mcp.Required(), mcp.Description("New status: needs_input, in_progress, waiting, done, error")),
		mcp.WithString("message", mcp.Description("Human-readable status message")),
	)
	return tool, s.handleUpdateStatus
}

func (s *Server) handleUpdateStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: status"), nil
	}
	message := request.GetString("message", "")

	ws, err := s.manager.UpdateStatus(id, models.WorkstreamStatus(status), message)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update workstream: %v", err)), nil
	}
	if ws == nil {
		return mcp.NewToolResultError(fmt.Sprintf("workstream not found: %s", id)), nil
	}

	data, _ := json.Marshal(toWorkstreamOut(ws))
	return mcp.NewToolResultText(string(data)), nil
}

// kestrel_list_notifications
func (s *Server) listNotificationsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("kestrel_list_notifications",
		mcp.WithDescription("List queued notifications, newest first."),
		mcp.WithBoolean("unread_only", mcp.Description("Only return unread notifications")),
	)
	return tool, s.handleListNotifications
}

func (s *Server) handleListNotifications(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var items []*models.Notification
	if request.GetBool("unread_only", false) {
		items = s.queue.Unread()
	} else {
		items = s.queue.Notifications()
	}

	data, err := json.Marshal(items)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal notifications: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// kestrel_trash_search
func (s *Server) trashSearchTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("kestrel_trash_search",
		mcp.WithDescription("Search soft-deleted workstreams. Smart mode returns scored results."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithBoolean("smart", mcp.Description("Use scored retrieval instead of plain substring scan")),
	)
	return tool, s.handleTrashSearch
}

func (s *Server) handleTrashSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	type hit struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		DeletedAt time.Time `json:"deleted_at"`
		Score     float64   `json:"score,omitempty"`
		Field     string    `json:"field,omitempty"`
		Preview   string    `json:"preview,omitempty"`
	}

	var hits []hit
	if request.GetBool("smart", false) {
		for _, r := range s.manager.Trash().SmartSearch(query) {
			hits = append(hits, hit{ID: r.Item.ID, Name: r.Item.Name, DeletedAt: r.Item.DeletedAt, Score: r.Score})
		}
	} else {
		for _, r := range s.manager.Trash().Search(query) {
			hits = append(hits, hit{ID: r.Item.ID, Name: r.Item.Name, DeletedAt: r.Item.DeletedAt, Field: r.Field, Preview: r.Preview})
		}
	}

	data, err := json.Marshal(hits)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// kestrel_poll_now
func (s *Server) pollNowTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("kestrel_poll_now",
		mcp.WithDescription("Run one synchronization cycle against the status provider immediately."),
	)
	return tool, s.handlePollNow
}

func (s *Server) handlePollNow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.poller == nil {
		return mcp.NewToolResultError("no status provider configured"), nil
	}
	s.poller.PollNow()
	return mcp.NewToolResultText(`{"polled": true}`), nil
}
