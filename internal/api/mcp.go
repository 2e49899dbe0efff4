package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/folio-hq/folio/internal/chat"
	"github.com/folio-hq/folio/internal/portfolio"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Portfolios *portfolio.Manager
	Relay      *chat.Relay
	Version    string
}

// NewMCPServer creates an MCP server exposing portfolio lookups and the chat
// assistant as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"folio",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("folio: portfolio documents and the assistant that answers questions about their owners."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("get_portfolio",
			mcp.WithDescription("Fetch a public portfolio as JSON. The OpenRouter API key is never included."),
			mcp.WithString("username", mcp.Description("Portfolio username"), mcp.Required()),
		),
		mcpGetPortfolio(deps),
	)

	s.AddTool(
		mcp.NewTool("portfolio_context",
			mcp.WithDescription("Render the system prompt the chat assistant uses for a portfolio."),
			mcp.WithString("username", mcp.Description("Portfolio username"), mcp.Required()),
		),
		mcpPortfolioContext(deps),
	)

	s.AddTool(
		mcp.NewTool("ask_portfolio",
			mcp.WithDescription("Ask the portfolio's assistant a question, using the owner's stored API key."),
			mcp.WithString("username", mcp.Description("Portfolio username"), mcp.Required()),
			mcp.WithString("message", mcp.Description("The question to ask"), mcp.Required()),
			mcp.WithString("history", mcp.Description("Optional JSON array of prior {role, content} turns")),
		),
		mcpAskPortfolio(deps),
	)

	return s
}

func mcpGetPortfolio(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		username, err := req.RequireString("username")
		if err != nil {
			return mcpError("username is required"), nil
		}

		p, err := deps.Portfolios.Public(ctx, username)
		if err != nil {
			return mcpPortfolioError(username, err), nil
		}

		b, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal portfolio: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpPortfolioContext(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		username, err := req.RequireString("username")
		if err != nil {
			return mcpError("username is required"), nil
		}

		p, err := deps.Portfolios.Get(ctx, username)
		if err != nil {
			return mcpPortfolioError(username, err), nil
		}
		return mcpText(deps.Relay.ContextFor(p)), nil
	}
}

func mcpAskPortfolio(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		username, err := req.RequireString("username")
		if err != nil {
			return mcpError("username is required"), nil
		}
		message, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}

		var history []chat.Turn
		if raw := req.GetString("history", ""); raw != "" {
			if err := json.Unmarshal([]byte(raw), &history); err != nil {
				return mcpError(fmt.Sprintf("invalid history JSON: %v", err)), nil
			}
		}

		p, err := deps.Portfolios.Get(ctx, username)
		if err != nil {
			return mcpPortfolioError(username, err), nil
		}

		text, err := deps.Relay.Reply(ctx, chat.Request{Message: message, Portfolio: p, History: history})
		if err != nil {
			return mcpError(chat.PublicMessage(err)), nil
		}
		return mcpText(text), nil
	}
}

func mcpPortfolioError(username string, err error) *mcp.CallToolResult {
	if errors.Is(err, portfolio.ErrNotFound) {
		return mcpError(fmt.Sprintf("portfolio %q not found", username))
	}
	return mcpError(fmt.Sprintf("failed to load portfolio: %v", err))
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
