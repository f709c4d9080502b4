package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ronnes/glucolog/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	return New(testutil.TestService(t))
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we invoke
	// the handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "log_meal":
		result, err = srv.logMeal(ctx, req)
	case "update_meal":
		result, err = srv.updateMeal(ctx, req)
	case "list_meals":
		result, err = srv.listMeals(ctx, req)
	case "log_fasting":
		result, err = srv.logFasting(ctx, req)
	case "food_report":
		result, err = srv.foodReport(ctx, req)
	case "time_of_day_report":
		result, err = srv.timeOfDayReport(ctx, req)
	case "get_metric_definitions":
		result, err = srv.getMetricDefinitions(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestLogAndUpdateMeal(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "log_meal", map[string]interface{}{
		"description":   "Oatmeal",
		"carb_estimate": 60.0,
		"pre_glucose":   100.0,
		"datetime":      "2026-03-10T08:30:00",
		"context_tags":  "walk_after, poor_sleep",
	})
	if r.IsError {
		t.Fatalf("log_meal failed: %s", resultText(r))
	}

	var meal map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &meal); err != nil {
		t.Fatalf("log_meal output not JSON: %v", err)
	}
	id := meal["id"].(string)
	if tags := meal["contextTags"].([]any); len(tags) != 2 {
		t.Errorf("contextTags = %v", tags)
	}

	r = callTool(t, srv, "update_meal", map[string]interface{}{
		"id":                  id,
		"peak_glucose":        160.0,
		"peak_time_minutes":   45.0,
		"glucose_at_2hr":      110.0,
		"time_back_under_120": 95.0,
	})
	if r.IsError {
		t.Fatalf("update_meal failed: %s", resultText(r))
	}
	var updated map[string]any
	_ = json.Unmarshal([]byte(resultText(r)), &updated)
	if updated["complete"] != true {
		t.Error("record should be complete after the update")
	}
	if updated["spikeCategory"] != "High" {
		t.Errorf("spikeCategory = %v", updated["spikeCategory"])
	}
}

func TestLogMealValidation(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "log_meal", map[string]interface{}{
		"description":   "Soup",
		"carb_estimate": 20.0,
		"pre_glucose":   500.0,
	})
	if !r.IsError {
		t.Fatal("out-of-range glucose should fail")
	}
	if resultText(r) != "Pre-meal glucose must be between 40 and 400." {
		t.Errorf("error = %q", resultText(r))
	}
}

func TestUpdateMealUnknownID(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "update_meal", map[string]interface{}{
		"id":           "missing",
		"peak_glucose": 150.0,
	})
	if !r.IsError {
		t.Error("unknown id should fail")
	}
}

func TestListMealsSorted(t *testing.T) {
	srv := testServer(t)

	_ = callTool(t, srv, "log_meal", map[string]interface{}{
		"description": "Oatmeal", "carb_estimate": 60.0, "pre_glucose": 100.0,
		"datetime": "2026-03-09T08:00:00",
	})
	_ = callTool(t, srv, "log_meal", map[string]interface{}{
		"description": "Toast", "carb_estimate": 30.0, "pre_glucose": 95.0,
		"datetime": "2026-03-10T08:00:00",
	})

	r := callTool(t, srv, "list_meals", map[string]interface{}{"sort": "datetime", "dir": "desc"})
	var meals []map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &meals); err != nil {
		t.Fatalf("list output not JSON: %v", err)
	}
	if len(meals) != 2 || meals[0]["description"] != "Toast" {
		t.Errorf("meals = %v", meals)
	}
}

func TestLogFastingAndReports(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "log_fasting", map[string]interface{}{
		"date":            "2026-03-10",
		"fasting_glucose": 92.0,
	})
	if r.IsError {
		t.Fatalf("log_fasting failed: %s", resultText(r))
	}

	_ = callTool(t, srv, "log_meal", map[string]interface{}{
		"description": "Oatmeal", "carb_estimate": 60.0, "pre_glucose": 100.0,
	})

	r = callTool(t, srv, "food_report", map[string]interface{}{})
	if !strings.Contains(resultText(r), "Oatmeal") {
		t.Errorf("food report = %s", resultText(r))
	}

	r = callTool(t, srv, "time_of_day_report", map[string]interface{}{})
	if !strings.Contains(resultText(r), "Morning") {
		t.Errorf("time of day report = %s", resultText(r))
	}
}

func TestMetricDefinitions(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_metric_definitions", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "spikeCategory") || !strings.Contains(text, "aucProxy") {
		t.Errorf("definitions missing sections: %s", text)
	}
}
