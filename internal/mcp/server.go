package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/course-assistant/internal/assistant"
	"github.com/ziadkadry99/course-assistant/internal/llm"
	"github.com/ziadkadry99/course-assistant/internal/vectordb"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Index is the read side of the vector index used by the tools.
type Index interface {
	Search(ctx context.Context, query string, k int) ([]vectordb.SearchResult, error)
	Stats() vectordb.Stats
}

// Answerer answers a single question.
type Answerer interface {
	Answer(ctx context.Context, history []llm.Message, userText string) assistant.Reply
}

// Server wraps an MCP server that exposes the course knowledge base.
type Server struct {
	index     Index
	assistant Answerer
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server. assistant may be nil, in which case
// only the retrieval tools are registered.
func NewServer(index Index, a Answerer) *Server {
	s := &Server{
		index:     index,
		assistant: a,
	}

	s.mcp = server.NewMCPServer(
		"courseqa",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchCourseDocsTool, s.handleSearchCourseDocs)
	s.mcp.AddTool(indexStatusTool, s.handleIndexStatus)
	if s.assistant != nil {
		s.mcp.AddTool(askCourseAssistantTool, s.handleAskCourseAssistant)
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
