package actrec

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/actrec/internal/kit"
)

// RegisterMCP registers the recorder tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	ep := s.endpoints()
	idSchema := kit.InputSchema(map[string]any{
		"id": map[string]any{"type": "string", "description": "Session ID"},
	}, "id")

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "actrec_start",
		Description: "Open a page and start recording user actions on it. Returns the session.",
		InputSchema: kit.InputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Page URL to open"},
			"id":  map[string]any{"type": "string", "description": "Optional session ID"},
		}, "url"),
	}, ep.start, kit.DecodeArgs[StartRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "actrec_stop",
		Description: "Stop a recording session and return its ordered action log.",
		InputSchema: idSchema,
	}, ep.stop, kit.DecodeArgs[sessionIDRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "actrec_get",
		Description: "Get a session, running or finished, with the actions captured so far.",
		InputSchema: idSchema,
	}, ep.get, kit.DecodeArgs[sessionIDRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "actrec_list",
		Description: "List recording sessions, newest first.",
		InputSchema: kit.InputSchema(map[string]any{}),
	}, ep.list, kit.DecodeArgs[struct{}]())
}

// MCPHandler serves the recorder tools over the streamable HTTP transport.
func (s *Service) MCPHandler(impl *mcp.Implementation) http.Handler {
	srv := mcp.NewServer(impl, nil)
	s.RegisterMCP(srv)
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil)
}
