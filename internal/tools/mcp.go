package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerName is the MCP server name advertised to clients.
const ServerName = "veto"

// NewMCPServer registers every tool in r on a new MCP server.
func NewMCPServer(r *Registry, version string) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	for _, t := range r.List() {
		s.AddTool(MCPTool(t), MCPHandler(r, t.Name))
	}
	return s
}

// MCPTool converts a tool schema to its MCP definition.
func MCPTool(t Tool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(t.Description)}
	for _, p := range t.Params {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		}
		if p.Min != nil {
			props = append(props, mcp.Min(*p.Min))
		}
		if p.Max != nil {
			props = append(props, mcp.Max(*p.Max))
		}
		switch p.Kind {
		case KindNumber, KindInteger:
			opts = append(opts, mcp.WithNumber(p.Name, props...))
		case KindBoolean:
			opts = append(opts, mcp.WithBoolean(p.Name, props...))
		case KindRange:
			props = append(props, mcp.Properties(map[string]any{
				"min": map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
				"max": map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
			}))
			opts = append(opts, mcp.WithObject(p.Name, props...))
		default:
			if len(p.Enum) > 0 {
				props = append(props, mcp.Enum(p.Enum...))
			}
			opts = append(opts, mcp.WithString(p.Name, props...))
		}
	}
	return mcp.NewTool(t.Name, opts...)
}

// MCPHandler runs the named tool and renders its payload as JSON text.
// Tool failures become error results carrying an ErrorPayload.
func MCPHandler(r *Registry, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := r.Call(ctx, name, req.GetArguments())
		if err != nil {
			body, merr := json.MarshalIndent(NewErrorPayload(err), "", "  ")
			if merr != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultError(string(body)), nil
		}
		body, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}
