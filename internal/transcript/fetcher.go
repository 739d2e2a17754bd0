package transcript

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	stdhtml "html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	defaultBaseURL = "https://www.youtube.com"

	// Watch pages run to a few MB; cap reads.
	maxResponseBytes = 8 << 20

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Client fetches transcripts and metadata over plain HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client. An empty baseURL selects youtube.com; tests point
// it at a local server.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchTranscript retrieves the caption text for a video. Track choice
// prefers manually authored English captions, then auto-generated
// English, then whatever the video offers first.
func (c *Client) FetchTranscript(ctx context.Context, videoID string) (Transcript, error) {
	pageURL := fmt.Sprintf("%s/watch?v=%s&hl=en", c.baseURL, url.QueryEscape(videoID))
	page, err := c.get(ctx, pageURL)
	if err != nil {
		return Transcript{}, fmt.Errorf("loading watch page: %w", err)
	}

	tracks, err := parseCaptionTracks(page)
	if err != nil {
		return Transcript{}, err
	}
	track := pickTrack(tracks)

	body, err := c.get(ctx, track.BaseURL)
	if err != nil {
		return Transcript{}, fmt.Errorf("fetching caption track: %w", err)
	}

	text, segments, err := parseTimedText(body)
	if err != nil {
		return Transcript{}, fmt.Errorf("parsing caption track: %w", err)
	}
	if text == "" {
		return Transcript{}, fmt.Errorf("%w: caption track for %s is empty", ErrUnavailable, videoID)
	}
	return Transcript{Language: track.LanguageCode, Text: text, Segments: segments}, nil
}

// Metadata looks up a video's oEmbed record. Lookup failures degrade to
// minimal synthesized metadata rather than failing the caller; a video
// without oEmbed data can still be analyzed.
func (c *Client) Metadata(ctx context.Context, videoID string) Metadata {
	md := Metadata{
		Title:        "YouTube Video: " + videoID,
		AuthorName:   "Unknown Channel",
		ThumbnailURL: fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID),
		Provider:     "YouTube",
		VideoID:      videoID,
		VideoURL:     CanonicalURL(videoID),
	}

	oembedURL := fmt.Sprintf("%s/oembed?url=%s&format=json",
		c.baseURL, url.QueryEscape(CanonicalURL(videoID)))
	body, err := c.get(ctx, oembedURL)
	if err != nil {
		slog.Debug("oEmbed lookup failed, using fallback metadata", "video_id", videoID, "error", err)
		return md
	}

	var resp struct {
		Title        string `json:"title"`
		AuthorName   string `json:"author_name"`
		AuthorURL    string `json:"author_url"`
		ThumbnailURL string `json:"thumbnail_url"`
		ProviderName string `json:"provider_name"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		slog.Debug("oEmbed response unparseable, using fallback metadata", "video_id", videoID, "error", err)
		return md
	}

	if resp.Title != "" {
		md.Title = resp.Title
	}
	if resp.AuthorName != "" {
		md.AuthorName = resp.AuthorName
	}
	if resp.ProviderName != "" {
		md.Provider = resp.ProviderName
	}
	md.AuthorURL = resp.AuthorURL
	if resp.ThumbnailURL != "" {
		md.ThumbnailURL = resp.ThumbnailURL
	}
	return md
}

func (c *Client) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return string(data), nil
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" marks auto-generated tracks
}

const captionTracksMarker = `"captionTracks":`

// parseCaptionTracks locates the caption track list embedded in the watch
// page's player response. A page without the marker has captions disabled.
func parseCaptionTracks(page string) ([]captionTrack, error) {
	idx := strings.Index(page, captionTracksMarker)
	if idx < 0 {
		return nil, fmt.Errorf("%w: no caption tracks on watch page", ErrUnavailable)
	}

	dec := json.NewDecoder(strings.NewReader(page[idx+len(captionTracksMarker):]))
	var tracks []captionTrack
	if err := dec.Decode(&tracks); err != nil {
		return nil, fmt.Errorf("parsing caption track list: %w", err)
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: empty caption track list", ErrUnavailable)
	}
	return tracks, nil
}

func pickTrack(tracks []captionTrack) captionTrack {
	for _, t := range tracks {
		if t.LanguageCode == "en" && t.Kind != "asr" {
			return t
		}
	}
	for _, t := range tracks {
		if t.LanguageCode == "en" {
			return t
		}
	}
	return tracks[0]
}

type timedText struct {
	XMLName xml.Name `xml:"transcript"`
	Lines   []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Raw   string `xml:",innerxml"`
	} `xml:"text"`
}

// parseTimedText flattens a timedtext XML document into plain text.
func parseTimedText(body string) (string, int, error) {
	var doc timedText
	if err := xml.Unmarshal([]byte(body), &doc); err != nil {
		return "", 0, err
	}

	lines := make([]string, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		if text := cleanCaptionText(line.Raw); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, " "), len(lines), nil
}

// cleanCaptionText turns one raw caption line into plain text. Caption
// lines are double-escaped ("&amp;#39;" means an apostrophe) and may wrap
// words in formatting tags like <i> or <b>, so: unescape, drop markup,
// unescape again.
func cleanCaptionText(raw string) string {
	text := stdhtml.UnescapeString(raw)
	text = stripMarkup(text)
	text = stdhtml.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

// stripMarkup removes tags while keeping their text content.
func stripMarkup(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}

	var sb strings.Builder
	tok := html.NewTokenizer(strings.NewReader(s))
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.TextToken:
			sb.Write(tok.Text())
		}
	}
}
