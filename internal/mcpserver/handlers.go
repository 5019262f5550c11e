package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rcliao/allergy-diary/internal/app"
	"github.com/rcliao/allergy-diary/internal/diary"
	"github.com/rcliao/allergy-diary/internal/model"
)

const limitMessage = "Daily limit reached. Try again tomorrow or upgrade to premium."

type handlers struct {
	app *app.App
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize result to JSON: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func stringArg(req mcp.CallToolRequest, name string) string {
	v, _ := req.Params.Arguments[name].(string)
	return strings.TrimSpace(v)
}

func intArg(req mcp.CallToolRequest, name string) int {
	v, _ := req.Params.Arguments[name].(float64)
	return int(v)
}

func (h *handlers) listProfiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.app.Diary.Profiles.List(ctx))
}

func (h *handlers) logFood(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var ids []string
	for _, id := range strings.Split(stringArg(req, "profile_ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	f, err := h.app.Diary.Foods.Add(ctx, diary.FoodInput{
		FoodItems:  stringArg(req, "food_items"),
		Photo:      stringArg(req, "photo"),
		ProfileIDs: ids,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to log meal: %v", err)), nil
	}
	if f == nil {
		return mcp.NewToolResultError(limitMessage), nil
	}
	return jsonResult(f)
}

func (h *handlers) logSymptom(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profileID := stringArg(req, "profile_id")
	if profileID == "" {
		return mcp.NewToolResultError("'profile_id' parameter is required and must be a non-empty string."), nil
	}
	category := stringArg(req, "category")
	if category == "" {
		category = string(model.CategoryGeneral)
	}
	severity := stringArg(req, "severity")
	if severity == "" {
		severity = string(model.SeverityMild)
	}

	e, err := h.app.Diary.Symptoms.Add(ctx, diary.SymptomInput{
		Symptom:           stringArg(req, "symptom"),
		Category:          model.SymptomCategory(category),
		Severity:          model.Severity(severity),
		StartTime:         stringArg(req, "start_time"),
		Duration:          stringArg(req, "duration"),
		LinkedFoodEntryID: stringArg(req, "linked_food_id"),
		ProfileID:         profileID,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to log symptom: %v", err)), nil
	}
	if e == nil {
		return mcp.NewToolResultError(limitMessage), nil
	}
	return jsonResult(e)
}

func (h *handlers) recentEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.app.Diary.Recent(ctx, stringArg(req, "profile_id"), intArg(req, "limit")))
}

func (h *handlers) searchDiary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := stringArg(req, "query")
	if query == "" {
		return mcp.NewToolResultError("'query' parameter is required and must be a non-empty string."), nil
	}
	results := h.app.Diary.Search(ctx, diary.SearchParams{
		Query:     query,
		ProfileID: stringArg(req, "profile_id"),
		Kind:      stringArg(req, "kind"),
		Limit:     intArg(req, "limit"),
	})
	if len(results) == 0 {
		return mcp.NewToolResultText("[]"), nil
	}
	return jsonResult(results)
}

func (h *handlers) usage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.app.Quota.Remaining(ctx, len(h.app.Diary.Profiles.List(ctx))))
}

func (h *handlers) suggestTriggers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := h.app.Analysis.SuggestTriggers(ctx, stringArg(req, "profile_id"), stringArg(req, "context"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Analysis failed: %v", err)), nil
	}
	if out == nil {
		return mcp.NewToolResultError(limitMessage), nil
	}
	return jsonResult(out)
}
