// Package transcript acquires YouTube video transcripts and descriptive
// metadata. Transcripts come from the public caption (timedtext) tracks
// referenced by a video's watch page; metadata comes from the oEmbed
// endpoint. Neither requires an API key.
package transcript

import "errors"

// ErrUnavailable is returned when a video has no usable transcript:
// captions are disabled, the track list is empty, or the track content
// cannot be retrieved.
var ErrUnavailable = errors.New("transcript unavailable")

// ErrInvalidURL is returned when a string cannot be recognized as a
// YouTube video reference.
var ErrInvalidURL = errors.New("invalid YouTube URL")

// Transcript is the full text of one video's captions.
type Transcript struct {
	Language string // BCP-47 code of the chosen caption track
	Text     string // caption lines joined with single spaces
	Segments int    // number of caption lines the text was built from
}

// Metadata describes a video as reported by oEmbed. All fields are
// best-effort; ID and URL are always set.
type Metadata struct {
	Title        string
	AuthorName   string
	AuthorURL    string
	ThumbnailURL string
	Provider     string
	VideoID      string
	VideoURL     string
}
