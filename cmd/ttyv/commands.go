package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// pollInterval paces the --wait loops. Overridden in tests.
var pollInterval = 2 * time.Second

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Submit a YouTube video for analysis",
	Long: `Submit a YouTube video for analysis.

Examples:
  ttyv analyze https://www.youtube.com/watch?v=dQw4w9WgXcQ
  ttyv analyze https://youtu.be/dQw4w9WgXcQ --type executive --wait
  ttyv analyze https://youtu.be/dQw4w9WgXcQ --sentiment --no-questions`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summaryType, _ := cmd.Flags().GetString("type")
		noTopics, _ := cmd.Flags().GetBool("no-topics")
		noQuestions, _ := cmd.Flags().GetBool("no-questions")
		sentiment, _ := cmd.Flags().GetBool("sentiment")
		force, _ := cmd.Flags().GetBool("force")
		wait, _ := cmd.Flags().GetBool("wait")

		req := map[string]any{"url": args[0]}
		if summaryType != "" {
			req["summary_type"] = summaryType
		}
		if noTopics {
			req["include_topics"] = false
		}
		if noQuestions {
			req["include_questions"] = false
		}
		if sentiment {
			req["include_sentiment"] = true
		}
		if force {
			req["force"] = true
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/v1/analyze", req)
		if err != nil {
			return err
		}

		var result struct {
			VideoID string `json:"video_id"`
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.Status == "already_processed" {
			printWarning("%s", result.Message)
		} else {
			printSuccess("Queued video %s", result.VideoID)
		}

		if !wait {
			printStep("Fetch results with: ttyv results %s", result.VideoID)
			return nil
		}

		printStep("Waiting for analysis to finish...")
		st, err := waitForVideo(cmd.Context(), client, result.VideoID)
		if err != nil {
			return err
		}
		if st.Status == "error" {
			printError("Analysis failed: %s", st.Error)
			return fmt.Errorf("analysis failed")
		}
		if st.Metadata.Title != "" {
			printSuccess("Analyzed %q", st.Metadata.Title)
		}
		return fetchAndPrintAnalysis(cmd.Context(), client, result.VideoID, summaryType)
	},
}

func init() {
	analyzeCmd.Flags().String("type", "", "summary type (comprehensive, executive, bullet_points, key_topics)")
	analyzeCmd.Flags().Bool("no-topics", false, "skip topic extraction")
	analyzeCmd.Flags().Bool("no-questions", false, "skip question generation")
	analyzeCmd.Flags().Bool("sentiment", false, "include sentiment analysis")
	analyzeCmd.Flags().Bool("force", false, "re-analyze even if the video is cached")
	analyzeCmd.Flags().Bool("wait", false, "block until the analysis finishes and print it")
}

// --- results ---

var resultsCmd = &cobra.Command{
	Use:   "results <video-id>",
	Short: "Show the stored analysis for a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summaryType, _ := cmd.Flags().GetString("type")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return fetchAndPrintAnalysis(cmd.Context(), client, args[0], summaryType)
	},
}

func init() {
	resultsCmd.Flags().String("type", "", "summary type (comprehensive, executive, bullet_points, key_topics)")
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <video-id> <question>",
	Short: "Ask a question about an analyzed video",
	Long: `Ask a question about an analyzed video.

Each answer prints a session id; pass it back with --session to keep the
conversation going.

Examples:
  ttyv ask a1b2c3d4e5f6 "What are the main points?"
  ttyv ask a1b2c3d4e5f6 --session a1b2c3d4e5f6_0f8c "Tell me more" --external`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		external, _ := cmd.Flags().GetBool("external")
		session, _ := cmd.Flags().GetString("session")

		req := map[string]any{
			"video_id": args[0],
			"message":  strings.Join(args[1:], " "),
		}
		if session != "" {
			req["session_id"] = session
		}
		if external {
			req["use_external_sources"] = true
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/v1/chat", req)
		if err != nil {
			return err
		}
		if msg, pending := notReady(resp); pending {
			printWarning("%s", msg)
			return nil
		}

		var result struct {
			SessionID string   `json:"session_id"`
			Response  string   `json:"response"`
			Sources   []string `json:"sources"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Response)
		if len(result.Sources) > 0 {
			fmt.Printf("\n%s\n", colorize(colorBold, "Sources"))
			for _, src := range result.Sources {
				fmt.Printf("  - %s\n", src)
			}
		}
		printStep("Continue with: ttyv ask %s --session %s <question>", args[0], result.SessionID)
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("external", false, "let the model draw on general knowledge beyond the transcript")
	askCmd.Flags().String("session", "", "session id to continue an earlier conversation")
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Show the turns of a chat session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/v1/chat/history/"+args[0])
		if err != nil {
			return err
		}

		var result struct {
			SessionID string `json:"session_id"`
			Messages  []struct {
				Role string `json:"role"`
				Text string `json:"text"`
			} `json:"messages"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Messages) == 0 {
			fmt.Println("No messages in this session.")
			return nil
		}
		for _, m := range result.Messages {
			color := colorCyan
			if m.Role == "assistant" {
				color = colorGreen
			}
			fmt.Printf("%s  %s\n", colorize(color, m.Role), m.Text)
		}
		return nil
	},
}

// --- videos ---

var videosCmd = &cobra.Command{
	Use:   "videos",
	Short: "List cached videos",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/v1/videos")
		if err != nil {
			return err
		}

		var result struct {
			Videos []struct {
				VideoID string `json:"video_id"`
				Title   string `json:"title"`
				Channel string `json:"channel"`
				Status  string `json:"status"`
			} `json:"videos"`
			Total int `json:"total"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.Total == 0 {
			fmt.Println("No videos in the cache.")
			return nil
		}
		for _, v := range result.Videos {
			title := v.Title
			if title == "" {
				title = "(untitled)"
			}
			if v.Channel != "" {
				title += "  (" + v.Channel + ")"
			}
			fmt.Printf("%s  %-10s  %s\n", colorize(colorCyan, v.VideoID), v.Status, title)
		}
		return nil
	},
}

// --- compare ---

var compareCmd = &cobra.Command{
	Use:   "compare <url> <url> [url...]",
	Short: "Compare 2-10 videos against each other",
	Long: `Compare 2-10 videos against each other.

Examples:
  ttyv compare https://youtu.be/aaa https://youtu.be/bbb --wait
  ttyv compare https://youtu.be/aaa https://youtu.be/bbb https://youtu.be/ccc`,
	Args: cobra.RangeArgs(2, 10),
	RunE: func(cmd *cobra.Command, args []string) error {
		wait, _ := cmd.Flags().GetBool("wait")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/v1/compare", map[string]any{
			"video_urls": args,
		})
		if err != nil {
			return err
		}

		var result struct {
			ComparisonID string `json:"comparison_id"`
			Status       string `json:"status"`
			VideosCount  int    `json:"videos_count"`
			Message      string `json:"message"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Comparison %s covers %d videos", result.ComparisonID, result.VideosCount)
		if !wait {
			printStep("Results at GET /api/v1/compare/%s, or rerun with --wait", result.ComparisonID)
			return nil
		}

		final, err := waitForComposite(cmd.Context(), client, "/api/v1/compare/"+result.ComparisonID)
		if err != nil {
			return err
		}
		if final.Status == "error" {
			printError("Comparison failed: %s", final.Error)
			return fmt.Errorf("comparison failed")
		}
		if final.Comparison == nil {
			return fmt.Errorf("comparison finished without results")
		}
		return printComparison(final.Comparison)
	},
}

func init() {
	compareCmd.Flags().Bool("wait", false, "block until the comparison finishes and print it")
}

// --- trends ---

var trendsCmd = &cobra.Command{
	Use:   "trends <url> <url> <url> [url...]",
	Short: "Analyze trends across 3-50 videos",
	Long: `Analyze trends across 3-50 videos.

Examples:
  ttyv trends https://youtu.be/aaa https://youtu.be/bbb https://youtu.be/ccc --wait
  ttyv trends https://youtu.be/aaa https://youtu.be/bbb https://youtu.be/ccc --group-by channel`,
	Args: cobra.RangeArgs(3, 50),
	RunE: func(cmd *cobra.Command, args []string) error {
		groupBy, _ := cmd.Flags().GetString("group-by")
		timeframe, _ := cmd.Flags().GetString("timeframe")
		wait, _ := cmd.Flags().GetBool("wait")

		req := map[string]any{"video_urls": args}
		if groupBy != "" {
			req["grouping"] = groupBy
		}
		if timeframe != "" {
			req["time_period"] = timeframe
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/v1/trends", req)
		if err != nil {
			return err
		}

		var result struct {
			AnalysisID  string `json:"analysis_id"`
			Status      string `json:"status"`
			VideosCount int    `json:"videos_count"`
			Message     string `json:"message"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Trend analysis %s covers %d videos", result.AnalysisID, result.VideosCount)
		if !wait {
			printStep("Results at GET /api/v1/trends/%s, or rerun with --wait", result.AnalysisID)
			return nil
		}

		final, err := waitForComposite(cmd.Context(), client, "/api/v1/trends/"+result.AnalysisID)
		if err != nil {
			return err
		}
		if final.Status == "error" {
			printError("Trend analysis failed: %s", final.Error)
			return fmt.Errorf("trend analysis failed")
		}
		if final.Trends == nil {
			return fmt.Errorf("trend analysis finished without results")
		}
		return printTrends(final.Trends)
	},
}

func init() {
	trendsCmd.Flags().String("group-by", "", "grouping method (temporal, topical, channel)")
	trendsCmd.Flags().String("timeframe", "", "period label for the report (default all_time)")
	trendsCmd.Flags().Bool("wait", false, "block until the analysis finishes and print it")
}

// --- cache ---

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the analysis cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [video-id]",
	Short: "Delete one cached video, or the whole cache",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if len(args) == 1 {
			resp, err := client.delete(cmd.Context(), "/api/v1/cache/"+args[0])
			if err != nil {
				return err
			}
			var result map[string]string
			if err := decodeJSON(resp, &result); err != nil {
				return err
			}
			printSuccess("Deleted video %s", result["video_id"])
			return nil
		}

		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL cached analyses. Use --confirm to proceed.")
			return nil
		}

		resp, err := client.delete(cmd.Context(), "/api/v1/cache")
		if err != nil {
			return err
		}
		var result struct {
			Jobs       int `json:"jobs"`
			Analyses   int `json:"analyses"`
			Sessions   int `json:"sessions"`
			Composites int `json:"composites"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Cleared %d videos, %d analyses, %d sessions, %d composite jobs",
			result.Jobs, result.Analyses, result.Sessions, result.Composites)
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().Bool("confirm", false, "confirm clearing the whole cache")
	cacheCmd.AddCommand(cacheClearCmd)
}

// --- shared helpers ---

type videoStatus struct {
	VideoID    string `json:"video_id"`
	Status     string `json:"status"`
	Error      string `json:"error"`
	ChunkCount int    `json:"chunk_count"`
	Metadata   struct {
		Title      string `json:"title"`
		AuthorName string `json:"author_name"`
	} `json:"metadata"`
}

// waitForVideo polls the status endpoint until the job leaves the
// processing state.
func waitForVideo(ctx context.Context, client *apiClient, videoID string) (videoStatus, error) {
	for {
		resp, err := client.get(ctx, "/api/v1/status/"+videoID)
		if err != nil {
			return videoStatus{}, err
		}
		var st videoStatus
		if err := decodeJSON(resp, &st); err != nil {
			return videoStatus{}, err
		}
		if st.Status != "processing" {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return videoStatus{}, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

type compositeStatus struct {
	Status   string `json:"status"`
	Error    string `json:"error"`
	Progress struct {
		Completed int `json:"completed"`
		Total     int `json:"total"`
	} `json:"progress"`
	Comparison json.RawMessage `json:"comparison_results"`
	Trends     json.RawMessage `json:"trends"`
}

// waitForComposite polls a comparison or trend result endpoint until the
// job leaves the processing state, reporting member progress as it moves.
func waitForComposite(ctx context.Context, client *apiClient, path string) (compositeStatus, error) {
	reported := -1
	for {
		resp, err := client.get(ctx, path)
		if err != nil {
			return compositeStatus{}, err
		}
		var st compositeStatus
		if err := decodeJSON(resp, &st); err != nil {
			return compositeStatus{}, err
		}
		if st.Status != "processing" {
			return st, nil
		}
		if st.Progress.Completed != reported {
			reported = st.Progress.Completed
			printStep("Analyzed %d/%d videos", st.Progress.Completed, st.Progress.Total)
		}
		select {
		case <-ctx.Done():
			return compositeStatus{}, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func fetchAndPrintAnalysis(ctx context.Context, client *apiClient, videoID, summaryType string) error {
	path := "/api/v1/analysis/" + videoID
	if summaryType != "" {
		path += "?summary_type=" + url.QueryEscape(summaryType)
	}

	resp, err := client.get(ctx, path)
	if err != nil {
		return err
	}
	if msg, pending := notReady(resp); pending {
		printWarning("%s", msg)
		return nil
	}

	var result struct {
		SummaryType string   `json:"summary_type"`
		Summary     string   `json:"summary"`
		Topics      []string `json:"topics"`
		Questions   []string `json:"questions"`
		Sentiment   string   `json:"sentiment"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}

	fmt.Printf("\n%s\n\n%s\n", colorize(colorBold, "Summary ("+result.SummaryType+")"), result.Summary)
	if len(result.Topics) > 0 {
		fmt.Printf("\n%s\n", colorize(colorBold, "Topics"))
		for _, topic := range result.Topics {
			fmt.Printf("  - %s\n", topic)
		}
	}
	if len(result.Questions) > 0 {
		fmt.Printf("\n%s\n", colorize(colorBold, "Suggested questions"))
		for _, q := range result.Questions {
			fmt.Printf("  - %s\n", q)
		}
	}
	if result.Sentiment != "" {
		fmt.Printf("\n%s\n\n%s\n", colorize(colorBold, "Sentiment"), result.Sentiment)
	}
	return nil
}

func printComparison(raw json.RawMessage) error {
	var result struct {
		ComparisonAnalysis string `json:"comparison_analysis"`
		VideosCount        int    `json:"videos_count"`
		Videos             []struct {
			Title  string `json:"title"`
			Author string `json:"author"`
		} `json:"videos"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("parsing comparison result: %w", err)
	}

	header := fmt.Sprintf("Comparison of %d videos", result.VideosCount)
	fmt.Printf("\n%s\n\n%s\n", colorize(colorBold, header), result.ComparisonAnalysis)
	if len(result.Videos) > 0 {
		fmt.Printf("\n%s\n", colorize(colorBold, "Videos"))
		for _, v := range result.Videos {
			line := v.Title
			if line == "" {
				line = "(untitled)"
			}
			if v.Author != "" {
				line += " (" + v.Author + ")"
			}
			fmt.Printf("  - %s\n", line)
		}
	}
	return nil
}

func printTrends(raw json.RawMessage) error {
	var result struct {
		TrendAnalysis  string   `json:"trend_analysis"`
		GroupingMethod string   `json:"grouping_method"`
		Insights       []string `json:"insights"`
		DataSummary    struct {
			TotalVideos    int `json:"total_videos"`
			GroupsAnalyzed int `json:"groups_analyzed"`
		} `json:"data_summary"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("parsing trend result: %w", err)
	}

	header := fmt.Sprintf("Trends across %d videos (%d groups, grouped by %s)",
		result.DataSummary.TotalVideos, result.DataSummary.GroupsAnalyzed, result.GroupingMethod)
	fmt.Printf("\n%s\n\n%s\n", colorize(colorBold, header), result.TrendAnalysis)
	if len(result.Insights) > 0 {
		fmt.Printf("\n%s\n", colorize(colorBold, "Insights"))
		for _, insight := range result.Insights {
			fmt.Printf("  - %s\n", insight)
		}
	}
	return nil
}
