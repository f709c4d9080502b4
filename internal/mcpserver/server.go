// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes Glucolog tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ronnes/glucolog/internal/record"
	"github.com/ronnes/glucolog/internal/tracker"
)

// Server wraps the MCP server with Glucolog tools.
type Server struct {
	mcp *server.MCPServer
	svc *tracker.Service
}

// New creates a new MCP server with all Glucolog tools registered.
func New(svc *tracker.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Glucolog",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("log_meal",
		mcp.WithDescription("Log the initial entry for a new meal. Glucose values are mg/dL. "+
			"Read the glucolog://metric-definitions resource (or call get_metric_definitions) "+
			"to understand the derived metrics in the response."),
		mcp.WithString("description", mcp.Required(), mcp.Description("What was eaten")),
		mcp.WithNumber("carb_estimate", mcp.Required(), mcp.Description("Estimated carbs in grams (0-300)")),
		mcp.WithNumber("pre_glucose", mcp.Required(), mcp.Description("Pre-meal glucose in mg/dL (40-400)")),
		mcp.WithString("datetime", mcp.Description("Meal time (RFC 3339 or YYYY-MM-DD HH:MM:SS); defaults to now")),
		mcp.WithString("protein_level", mcp.Description("none, low, moderate or high")),
		mcp.WithString("fat_level", mcp.Description("none, low, moderate or high")),
		mcp.WithString("notes", mcp.Description("Free-form notes")),
		mcp.WithString("context_tags", mcp.Description("Comma-separated context tags (e.g. walk_after,poor_sleep)")),
	), s.logMeal)

	s.mcp.AddTool(mcp.NewTool("update_meal",
		mcp.WithDescription("Complete a logged meal with its post-meal samples. "+
			"Omitted fields keep their stored values, so the update can be repeated with corrections."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Meal id returned by log_meal or list_meals")),
		mcp.WithNumber("peak_glucose", mcp.Description("Peak glucose in mg/dL (40-400)")),
		mcp.WithNumber("peak_time_minutes", mcp.Description("Minutes from first bite to the peak (0-180)")),
		mcp.WithNumber("glucose_at_2hr", mcp.Description("Glucose at the 2-hour mark in mg/dL (40-400)")),
		mcp.WithNumber("time_back_under_120", mcp.Description("Minutes until glucose fell below 120 (0-300)")),
		mcp.WithString("notes", mcp.Description("Replacement notes")),
	), s.updateMeal)

	s.mcp.AddTool(mcp.NewTool("list_meals",
		mcp.WithDescription("List all logged meals with their derived metrics."),
		mcp.WithString("sort", mcp.Description("Sort key: datetime, description, carbEstimate, spikeMagnitude, "+
			"spikeCategory, timeBackUnder120, durationCategory, aucProxy or returnDelta")),
		mcp.WithString("dir", mcp.Description("Sort direction: asc or desc (default desc)")),
	), s.listMeals)

	s.mcp.AddTool(mcp.NewTool("log_fasting",
		mcp.WithDescription("Save a fasting glucose reading for a date. "+
			"A second reading for the same date overwrites the first."),
		mcp.WithNumber("fasting_glucose", mcp.Required(), mcp.Description("Fasting glucose in mg/dL (40-400)")),
		mcp.WithString("date", mcp.Description("Calendar date (YYYY-MM-DD); defaults to today")),
	), s.logFasting)

	s.mcp.AddTool(mcp.NewTool("food_report",
		mcp.WithDescription("Per-food summary: repeated tests of the same description with average "+
			"spike magnitude and average return time."),
	), s.foodReport)

	s.mcp.AddTool(mcp.NewTool("time_of_day_report",
		mcp.WithDescription("Morning/afternoon/evening summary with meal counts and average spike magnitude."),
	), s.timeOfDayReport)

	s.mcp.AddTool(mcp.NewTool("get_metric_definitions",
		mcp.WithDescription("Returns the definitions of the derived metrics (spike category thresholds, "+
			"AUC proxy method, meal periods). Call this before interpreting report output."),
	), s.getMetricDefinitions)

	// Resource: metric definitions.
	s.mcp.AddResource(
		mcp.NewResource("glucolog://metric-definitions", "Metric Definitions",
			mcp.WithResourceDescription("Definitions of the derived glucose metrics and their thresholds."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMetricDefinitionsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) logMeal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	description, err := req.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := req.GetArguments()

	meal, err := s.svc.LogMeal(tracker.MealInput{
		Datetime:     record.Datetime(args["datetime"]),
		Description:  description,
		CarbEstimate: record.NumberOrNil(args["carb_estimate"]),
		ProteinLevel: stringArg(args, "protein_level"),
		FatLevel:     stringArg(args, "fat_level"),
		PreGlucose:   record.NumberOrNil(args["pre_glucose"]),
		Notes:        stringArg(args, "notes"),
		ContextTags:  splitTags(stringArg(args, "context_tags")),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(meal)
}

func (s *Server) updateMeal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := req.GetArguments()

	var upd tracker.MealUpdate
	if v, ok := args["peak_glucose"]; ok {
		upd.PeakGlucose = record.NumberOrNil(v)
	}
	if v, ok := args["peak_time_minutes"]; ok {
		upd.PeakTimeMinutes = record.NumberOrNil(v)
	}
	if v, ok := args["glucose_at_2hr"]; ok {
		upd.GlucoseAt2Hr = record.NumberOrNil(v)
	}
	if v, ok := args["time_back_under_120"]; ok {
		upd.TimeBackUnder120 = record.NumberOrNil(v)
	}
	if notes, ok := args["notes"].(string); ok {
		upd.Notes = &notes
	}

	meal, err := s.svc.UpdateMeal(id, upd)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(meal)
}

func (s *Server) listMeals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	key := stringArg(args, "sort")
	if key == "" {
		key = "datetime"
	}
	dir := stringArg(args, "dir")
	if dir == "" {
		dir = "desc"
	}
	return jsonResult(s.svc.SortedMeals(key, dir))
}

func (s *Server) logFasting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	entry, err := s.svc.UpsertFasting(stringArg(args, "date"), record.NumberOrNil(args["fasting_glucose"]))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(entry)
}

func (s *Server) foodReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.FoodPatterns())
}

func (s *Server) timeOfDayReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.TimeOfDaySummary())
}

func (s *Server) getMetricDefinitions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MetricDefinitions), nil
}

func (s *Server) readMetricDefinitionsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "glucolog://metric-definitions",
			MIMEType: "text/markdown",
			Text:     MetricDefinitions,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func stringArg(args map[string]any, key string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return ""
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(tag)
		if trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}
