package transcript

import (
	"fmt"
	"regexp"
)

var (
	videoIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/shorts/)([^&\n?#/]+)`),
		regexp.MustCompile(`youtube\.com/watch\?.*v=([^&\n?#]+)`),
	}
	bareVideoID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// ExtractVideoID pulls the video identifier out of any of the common
// YouTube URL shapes (watch, youtu.be, embed, shorts) or accepts a bare
// 11-character id.
func ExtractVideoID(rawURL string) (string, error) {
	for _, pattern := range videoIDPatterns {
		if m := pattern.FindStringSubmatch(rawURL); m != nil {
			return m[1], nil
		}
	}
	if bareVideoID.MatchString(rawURL) {
		return rawURL, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
}

// CanonicalURL is the watch-page form of a video id. Job identity hashes
// this form, so every URL spelling of the same video maps to one job.
func CanonicalURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
