package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/shopspring/decimal"

	"github.com/kalambet/finplan/internal/convlog"
	"github.com/kalambet/finplan/internal/matcher"
	"github.com/kalambet/finplan/internal/profile"
	"github.com/kalambet/finplan/internal/storage"
)

// recentSessions is how many sessions the sessions://recent resource lists.
const recentSessions = 10

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store   *storage.Store
	Logs    *convlog.Store
	Matcher *matcher.Matcher
	Version string
}

// NewMCPServer creates an MCP server exposing past planning sessions to
// other assistants.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"finplan",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("finplan: past financial planning conversations, searchable by profile."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("find_similar_profile",
			mcp.WithDescription("Find an earlier planning session with the same gender and city and an income within tolerance."),
			mcp.WithString("income", mcp.Description("Annual income in lakhs, e.g. \"12.5\""), mcp.Required()),
			mcp.WithString("gender", mcp.Description("M or F"), mcp.Required()),
			mcp.WithString("city", mcp.Description("City of residence"), mcp.Required()),
		),
		mcpFindSimilar(deps),
	)

	s.AddTool(
		mcp.NewTool("get_conversation_log",
			mcp.WithDescription("Return the query/response records of a planning session."),
			mcp.WithString("session_id", mcp.Description("Session ID from list_sessions")),
			mcp.WithString("log_file", mcp.Description("Log filename, e.g. asha_f_12.5_pune.json")),
		),
		mcpConversationLog(deps),
	)

	s.AddTool(
		mcp.NewTool("list_sessions",
			mcp.WithDescription("List indexed planning sessions, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of sessions (default 20)")),
		),
		mcpListSessions(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"sessions://recent",
			"Recent Sessions",
			mcp.WithResourceDescription(fmt.Sprintf("Last %d planning sessions", recentSessions)),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpFindSimilar(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		incomeStr, err := req.RequireString("income")
		if err != nil {
			return mcpError("income is required"), nil
		}
		income, err := decimal.NewFromString(incomeStr)
		if err != nil || !income.IsPositive() {
			return mcpError("income must be a positive number"), nil
		}
		genderStr, err := req.RequireString("gender")
		if err != nil {
			return mcpError("gender is required"), nil
		}
		gender, err := profile.ParseGender(genderStr)
		if err != nil {
			return mcpError("gender must be M or F"), nil
		}
		city, err := req.RequireString("city")
		if err != nil || city == "" {
			return mcpError("city is required"), nil
		}

		c, ok, err := deps.Matcher.FindMatch(ctx, income, gender, city)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcpJSON(toMatchView(c, ok))
	}
}

func mcpConversationLog(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var path string
		if id := req.GetString("session_id", ""); id != "" {
			sess, err := deps.Store.GetSession(id)
			if errors.Is(err, storage.ErrNotFound) {
				return mcpError("session not found"), nil
			}
			if err != nil {
				return mcpError(fmt.Sprintf("failed to get session: %v", err)), nil
			}
			path = sess.LogFile
		} else if name := req.GetString("log_file", ""); name != "" {
			// Only bare filenames inside the log directory are served.
			if _, ok := profile.ParseFilename(name); !ok || filepath.Base(name) != name {
				return mcpError("log_file must be a conversation log filename"), nil
			}
			path = name
		} else {
			return mcpError("session_id or log_file is required"), nil
		}

		records, err := deps.Logs.LoadFile(path)
		if errors.Is(err, convlog.ErrLogMissing) {
			return mcpError("conversation log not found"), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to read conversation log: %v", err)), nil
		}
		return mcpJSON(records)
	}
}

func mcpListSessions(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		sessions, err := deps.Store.ListSessions(limit, 0)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list sessions: %v", err)), nil
		}
		views := make([]SessionView, 0, len(sessions))
		for _, s := range sessions {
			views = append(views, toSessionView(s))
		}
		return mcpJSON(views)
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		sessions, err := deps.Store.ListSessions(recentSessions, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}

		views := make([]SessionView, 0, len(sessions))
		for _, s := range sessions {
			views = append(views, toSessionView(s))
		}
		b, err := json.Marshal(views)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal sessions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
