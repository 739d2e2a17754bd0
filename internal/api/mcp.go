package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/ttyv/internal/analysis"
	"github.com/kalambet/ttyv/internal/runner"
	"github.com/kalambet/ttyv/internal/store"
)

// NewMCPServer creates an MCP server exposing the analysis service as
// tools, sharing AppDeps with the REST handlers.
func NewMCPServer(deps AppDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"ttyv",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithInstructions("ttyv — talk to YouTube videos: analyze, summarize, and chat about video content."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("analyze_video",
			mcp.WithDescription("Start analyzing a YouTube video. Returns the video id to poll with video_status."),
			mcp.WithString("url", mcp.Description("YouTube video URL or 11-character video id"), mcp.Required()),
			mcp.WithString("summary_type", mcp.Description("Summary style: comprehensive, executive, bullet_points or key_topics (default comprehensive)")),
		),
		mcpAnalyzeVideo(deps),
	)

	s.AddTool(
		mcp.NewTool("video_status",
			mcp.WithDescription("Check the processing status of a previously submitted video."),
			mcp.WithString("video_id", mcp.Description("Video id returned by analyze_video"), mcp.Required()),
		),
		mcpVideoStatus(deps),
	)

	s.AddTool(
		mcp.NewTool("video_analysis",
			mcp.WithDescription("Fetch the stored analysis (summary, topics, questions) for a completed video."),
			mcp.WithString("video_id", mcp.Description("Video id returned by analyze_video"), mcp.Required()),
			mcp.WithString("summary_type", mcp.Description("Summary style to fetch (default comprehensive)")),
		),
		mcpVideoAnalysis(deps),
	)

	s.AddTool(
		mcp.NewTool("ask_video",
			mcp.WithDescription("Ask a question about an analyzed video. Answers are grounded in the transcript."),
			mcp.WithString("video_id", mcp.Description("Video id returned by analyze_video"), mcp.Required()),
			mcp.WithString("question", mcp.Description("The question to ask"), mcp.Required()),
			mcp.WithBoolean("use_external_sources", mcp.Description("Allow the model to draw on general knowledge beyond the transcript")),
		),
		mcpAskVideo(deps),
	)

	s.AddTool(
		mcp.NewTool("list_videos",
			mcp.WithDescription("List all videos known to the analysis cache with their status."),
		),
		mcpListVideos(deps),
	)

	return s
}

func mcpAnalyzeVideo(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return mcpError("url is required"), nil
		}

		job, created, err := deps.Runner.Analyze(url, runner.AnalyzeOptions{
			Variant:          req.GetString("summary_type", ""),
			IncludeTopics:    true,
			IncludeQuestions: true,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("analyze failed: %v", err)), nil
		}

		msg := "Analysis started; poll video_status for progress."
		if !created {
			msg = fmt.Sprintf("Video already known; current status: %s.", job.Status)
		}
		return mcpJSON(map[string]any{
			"video_id": job.ID,
			"status":   job.Status,
			"title":    job.Metadata.Title,
			"message":  msg,
		})
	}
}

func mcpVideoStatus(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("video_id")
		if err != nil {
			return mcpError("video_id is required"), nil
		}

		job, err := deps.Store.Get(id)
		if err != nil {
			return mcpError(fmt.Sprintf("video %s not found", id)), nil
		}

		resp := map[string]any{
			"video_id":    job.ID,
			"status":      job.Status,
			"title":       job.Metadata.Title,
			"channel":     job.Metadata.AuthorName,
			"chunk_count": job.ChunkCount(),
			"created_at":  job.CreatedAt.Format(time.RFC3339),
		}
		if job.Error != "" {
			resp["error"] = job.Error
		}
		if !job.CompletedAt.IsZero() {
			resp["completed_at"] = job.CompletedAt.Format(time.RFC3339)
		}
		return mcpJSON(resp)
	}
}

func mcpVideoAnalysis(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("video_id")
		if err != nil {
			return mcpError("video_id is required"), nil
		}

		variant := req.GetString("summary_type", analysis.VariantComprehensive)
		if !analysis.ValidVariant(variant) {
			return mcpError(fmt.Sprintf("unknown summary type %q", variant)), nil
		}

		job, err := deps.Store.Get(id)
		if err != nil {
			return mcpError(fmt.Sprintf("video %s not found", id)), nil
		}
		if job.Status != store.StatusCompleted {
			return mcpError(fmt.Sprintf("analysis not ready; video status is %s", job.Status)), nil
		}

		a, err := deps.Store.GetAnalysis(id, variant)
		if err != nil {
			return mcpError(fmt.Sprintf("no %s analysis stored for this video", variant)), nil
		}
		return mcpJSON(a)
	}
}

func mcpAskVideo(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("video_id")
		if err != nil {
			return mcpError("video_id is required"), nil
		}
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		reply, err := deps.Runner.Chat(ctx, runner.ChatRequest{
			VideoID:            id,
			Message:            question,
			UseExternalSources: req.GetBool("use_external_sources", false),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("chat failed: %v", err)), nil
		}

		return mcpJSON(map[string]any{
			"session_id": reply.SessionID,
			"response":   reply.Response,
			"sources":    reply.Sources,
		})
	}
}

func mcpListVideos(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobs := deps.Store.List()

		type videoEntry struct {
			VideoID string `json:"video_id"`
			Title   string `json:"title"`
			Channel string `json:"channel"`
			Status  string `json:"status"`
		}

		entries := make([]videoEntry, len(jobs))
		for i, j := range jobs {
			entries[i] = videoEntry{
				VideoID: j.ID,
				Title:   j.Metadata.Title,
				Channel: j.Metadata.AuthorName,
				Status:  j.Status,
			}
		}
		return mcpJSON(entries)
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
