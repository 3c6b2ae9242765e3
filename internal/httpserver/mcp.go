package httpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/contextharness/ctx/internal/registry"
)

// MountMCP builds an MCP server from every tool/agent currently in reg and
// mounts its streamable-HTTP transport at /mcp. Registration happens once,
// at server start — registries are auto-loaded then, so a process restart
// is required to pick up registry changes. Tool/prompt registration is
// driven dynamically off registry.Tool.Parameters instead of a fixed set
// of hand-written tool structs, since this server's tool set is only
// known at runtime.
func (s *Server) MountMCP(reg *registry.Registry) {
	mcpServer := server.NewMCPServer("ctx-mcp", "1.0.0", server.WithToolCapabilities(true))

	for _, t := range reg.ListTools() {
		mcpServer.AddTool(toMCPTool(t), toMCPHandler(t))
	}
	for _, a := range reg.ListAgents() {
		mcpServer.AddPrompt(toMCPPrompt(a), toMCPPromptHandler(reg, a))
	}

	httpServer := server.NewStreamableHTTPServer(mcpServer)
	s.mcpMount = httpServer
	s.router.Mount("/mcp", httpServer)
}

// toMCPTool converts a registry.Tool's parameter list into mcp.Tool options,
// dispatching on each parameter's declared JSON-Schema-ish type.
func toMCPTool(t *registry.Tool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(t.Description)}
	for _, p := range t.Parameters {
		opts = append(opts, paramOption(p))
	}
	return mcp.NewTool(t.Name, opts...)
}

func paramOption(p registry.ToolParam) mcp.ToolOption {
	var propOpts []mcp.PropertyOption
	if p.Required {
		propOpts = append(propOpts, mcp.Required())
	}
	if p.Description != "" {
		propOpts = append(propOpts, mcp.Description(p.Description))
	}
	switch p.Type {
	case "integer", "number":
		return mcp.WithNumber(p.Name, propOpts...)
	case "boolean":
		return mcp.WithBoolean(p.Name, propOpts...)
	default:
		return mcp.WithString(p.Name, propOpts...)
	}
}

func toMCPHandler(t *registry.Tool) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params, _ := req.Params.Arguments.(map[string]any)
		if params == nil {
			params = map[string]any{}
		}
		out, err := t.Invoke(ctx, params)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		jsonData, err := json.Marshal(out)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(jsonData)), nil
	}
}

func toMCPPrompt(a *registry.Agent) mcp.Prompt {
	return mcp.NewPrompt(a.Name, mcp.WithPromptDescription(a.Description))
}

func toMCPPromptHandler(reg *registry.Registry, a *registry.Agent) func(context.Context, mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		args := map[string]any{}
		for k, v := range req.Params.Arguments {
			args[k] = v
		}
		res, err := reg.ResolveAgent(ctx, a.Name, args)
		if err != nil {
			return nil, err
		}
		return &mcp.GetPromptResult{
			Description: a.Description,
			Messages: []mcp.PromptMessage{
				{
					Role:    mcp.RoleAssistant,
					Content: mcp.NewTextContent(res.System),
				},
			},
		}, nil
	}
}
