package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcp-process-host/internal/command"
)

// Invoker runs named commands. *command.Dispatcher implements it.
type Invoker interface {
	Invoke(ctx context.Context, name string, args json.RawMessage) command.Outcome
	Tools() []*mcp.Tool
}

// Compile-time verification that Dispatcher implements Invoker.
var _ Invoker = (*command.Dispatcher)(nil)

// NewServer creates an MCP server exposing every command of inv as a tool.
func NewServer(name, version string, inv Invoker) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)

	for _, tool := range inv.Tools() {
		server.AddTool(tool, handler(inv, tool.Name))
	}

	return server
}

func handler(inv Invoker, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args json.RawMessage
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}

		return OutcomeResult(inv.Invoke(ctx, name, args)), nil
	}
}

// OutcomeResult converts a command outcome to a tool result. Failed outcomes
// become error results so the calling model sees the message.
func OutcomeResult(o command.Outcome) *mcp.CallToolResult {
	if !o.OK {
		return ErrorResult(o.Error)
	}

	text := o.Message
	if text == "" && o.Servers != nil {
		text = strings.Join(o.Servers, "\n")
	}

	if text == "" {
		text = "No MCP servers running"
	}

	result := TextResult(text)
	result.StructuredContent = o

	return result
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}
