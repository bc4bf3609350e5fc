package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchCourseDocsTool defines the search_course_docs MCP tool.
var searchCourseDocsTool = mcp.NewTool("search_course_docs",
	mcp.WithDescription("Semantic search over uploaded course material. Returns the most similar passages with their source file."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of passages to return (default 5)"),
	),
)

// askCourseAssistantTool defines the ask_course_assistant MCP tool.
var askCourseAssistantTool = mcp.NewTool("ask_course_assistant",
	mcp.WithDescription("Ask the course assistant a question. Document questions are answered from the uploaded material, with suggested follow-up questions."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The question to ask"),
	),
)

// indexStatusTool defines the index_status MCP tool.
var indexStatusTool = mcp.NewTool("index_status",
	mcp.WithDescription("Report whether the course knowledge base exists and how many passages it holds."),
)
