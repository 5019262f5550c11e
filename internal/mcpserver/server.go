// Package mcpserver exposes the diary as Model Context Protocol tools over
// stdio, so an assistant can log meals and symptoms and read them back.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rcliao/allergy-diary/internal/app"
)

// New creates an MCP server with every diary tool registered.
// suggest_triggers is only registered when a language model is configured.
func New(a *app.App) *server.MCPServer {
	s := server.NewMCPServer(
		"allergy-diary",
		app.Version,
		server.WithLogging(),
		server.WithRecovery(),
	)
	h := &handlers{app: a}

	s.AddTool(mcp.NewTool("list_profiles",
		mcp.WithDescription("Lists all diary profiles with their known allergies."),
	), h.listProfiles)

	s.AddTool(mcp.NewTool("log_food",
		mcp.WithDescription("Logs a meal for one or more profiles."),
		mcp.WithString("food_items", mcp.Required(), mcp.Description("What was eaten, free text.")),
		mcp.WithString("profile_ids", mcp.Required(), mcp.Description("Comma-separated profile ids.")),
		mcp.WithString("photo", mcp.Description("Optional photo reference.")),
	), h.logFood)

	s.AddTool(mcp.NewTool("log_symptom",
		mcp.WithDescription("Logs a symptom for one profile."),
		mcp.WithString("symptom", mcp.Required(), mcp.Description("The symptom, e.g. 'hives'.")),
		mcp.WithString("profile_id", mcp.Required(), mcp.Description("Profile id.")),
		mcp.WithString("category", mcp.Description("skin, gastro, respiratory or general (default general).")),
		mcp.WithString("severity", mcp.Description("mild, moderate or severe (default mild).")),
		mcp.WithString("start_time", mcp.Description("When it started (default now).")),
		mcp.WithString("duration", mcp.Description("How long it lasted, free text.")),
		mcp.WithString("linked_food_id", mcp.Description("Id of the meal suspected to cause it.")),
	), h.logSymptom)

	s.AddTool(mcp.NewTool("recent_entries",
		mcp.WithDescription("Lists the latest meals and symptoms, newest first."),
		mcp.WithString("profile_id", mcp.Description("Only entries of this profile.")),
		mcp.WithNumber("limit", mcp.Description("Max entries (default 10).")),
	), h.recentEntries)

	s.AddTool(mcp.NewTool("search_diary",
		mcp.WithDescription("Searches meals, symptoms and profiles by keyword."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Text to look for.")),
		mcp.WithString("profile_id", mcp.Description("Only entries of this profile.")),
		mcp.WithString("kind", mcp.Description("food, symptom or profile.")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20).")),
	), h.searchDiary)

	s.AddTool(mcp.NewTool("usage",
		mcp.WithDescription("Shows what is left of today's free-tier limits."),
	), h.usage)

	if a.Analysis.Enabled() {
		s.AddTool(mcp.NewTool("suggest_triggers",
			mcp.WithDescription("Asks the configured language model for possible food triggers. Not a medical diagnosis."),
			mcp.WithString("profile_id", mcp.Description("Only use entries of this profile.")),
			mcp.WithString("context", mcp.Description("Extra context for the analysis.")),
		), h.suggestTriggers)
	}

	return s
}

// Serve runs the stdio event loop until stdin closes.
func Serve(a *app.App) error {
	return server.ServeStdio(New(a))
}
