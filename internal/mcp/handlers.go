package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/course-assistant/internal/assistant"
	"github.com/ziadkadry99/course-assistant/internal/vectordb"
)

const emptyIndexHint = "The course knowledge base is empty. Run `courseqa ingest <files>` to add material."

// handleSearchCourseDocs performs semantic search over the course index.
func (s *Server) handleSearchCourseDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", assistant.DefaultTopK)
	if limit <= 0 {
		limit = assistant.DefaultTopK
	}

	results, err := s.index.Search(ctx, query, limit)
	if errors.Is(err, vectordb.ErrNotReady) {
		return mcp.NewToolResultText(emptyIndexHint), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No results found."), nil
	}

	return mcp.NewToolResultText(formatSearchResults(results)), nil
}

// handleAskCourseAssistant runs one stateless assistant turn.
func (s *Server) handleAskCourseAssistant(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil || strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	reply := s.assistant.Answer(ctx, nil, strings.TrimSpace(question))
	return mcp.NewToolResultText(formatReply(reply)), nil
}

// handleIndexStatus reports the index state.
func (s *Server) handleIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.index.Stats()
	if !st.Exists {
		return mcp.NewToolResultText(emptyIndexHint), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Backend: %s\nPassages: %d", st.Backend, st.Chunks)), nil
}

// formatSearchResults converts search results into a text format suited
// to AI agent consumption.
func formatSearchResults(results []vectordb.SearchResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d passage(s):\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("\n--- Result %d ---\n", i+1))
		sb.WriteString(fmt.Sprintf("Source: %s\n", r.Chunk.Source))
		sb.WriteString(fmt.Sprintf("Similarity: %.1f%%\n", r.Similarity*100))
		sb.WriteString("\n")
		sb.WriteString(r.Chunk.Text)
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatReply(reply assistant.Reply) string {
	var sb strings.Builder
	sb.WriteString(reply.Answer)
	sb.WriteString("\n")

	if len(reply.Sources) > 0 {
		sb.WriteString("\nSources: ")
		sb.WriteString(strings.Join(reply.Sources, ", "))
		sb.WriteString("\n")
	}
	if len(reply.RecommendedQuestions) > 0 {
		sb.WriteString("\nRecommended questions:\n")
		for _, q := range reply.RecommendedQuestions {
			sb.WriteString("- ")
			sb.WriteString(q)
			sb.WriteString("\n")
		}
	}
	sb.WriteString(fmt.Sprintf("\nIntent: %s\n", reply.Intent))
	return sb.String()
}
