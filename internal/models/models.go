package models

import (
	"fmt"
	"strings"
	"time"
)

// ContentType identifies which analysis page and endpoint a request belongs to
type ContentType string

const (
	ContentImage ContentType = "image"
	ContentVideo ContentType = "video"
	ContentAudio ContentType = "audio"
	ContentLink  ContentType = "link"
)

// ContentTypes lists every supported content type in selector order
var ContentTypes = []ContentType{ContentImage, ContentVideo, ContentAudio, ContentLink}

// ParseContentType converts a path segment such as "image" into a ContentType
func ParseContentType(value string) (ContentType, error) {
	ct := ContentType(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range ContentTypes {
		if ct == known {
			return ct, nil
		}
	}
	return "", fmt.Errorf("unknown content type %q", value)
}

// IsFile reports whether the content type is analyzed from an uploaded file
func (c ContentType) IsFile() bool {
	return c == ContentImage || c == ContentVideo || c == ContentAudio
}

// Upload is a binary payload selected on one of the file pages
type Upload struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// AnalysisRequest identifies the content being analyzed.
// Exactly one of File and URL is set.
type AnalysisRequest struct {
	Type ContentType `json:"type"`
	File *Upload     `json:"file,omitempty"`
	URL  string      `json:"url,omitempty"`
}

// Validate checks that the request carries exactly the input its type needs
func (r *AnalysisRequest) Validate() error {
	if r.Type.IsFile() {
		if r.File == nil || len(r.File.Data) == 0 {
			return fmt.Errorf("%s analysis requires a file", r.Type)
		}
		if r.URL != "" {
			return fmt.Errorf("%s analysis does not accept a url", r.Type)
		}
		return nil
	}

	if r.Type == ContentLink {
		if strings.TrimSpace(r.URL) == "" {
			return fmt.Errorf("link analysis requires a url")
		}
		if r.File != nil {
			return fmt.Errorf("link analysis does not accept a file")
		}
		return nil
	}

	return fmt.Errorf("unknown content type %q", r.Type)
}

// Name returns the file name or URL used to label the request
func (r *AnalysisRequest) Name() string {
	if r.File != nil {
		return r.File.Name
	}
	return r.URL
}

// Reason is one contributing factor behind a verdict
type Reason struct {
	Title       string  `json:"title"`
	Score       float64 `json:"score"` // 0-100
	Description string  `json:"description"`
}

// AnalysisResult is the parsed response of the Analysis Service
type AnalysisResult struct {
	Confidence float64  `json:"confidence"` // 0-100, likelihood of AI-generated or malicious
	Verdict    string   `json:"verdict"`
	Reasons    []Reason `json:"reasons"`
}

// HistoryEntry records a completed analysis for the landing page
type HistoryEntry struct {
	ID         string      `json:"id"`
	Type       ContentType `json:"type"`
	Icon       string      `json:"icon"`
	Name       string      `json:"name"`
	Verdict    string      `json:"verdict"`
	Confidence float64     `json:"confidence"`
	Time       time.Time   `json:"time"`
	Path       string      `json:"path"` // page to navigate back to
}

// Chat message senders
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// ChatMessage is one line of the assistant transcript
type ChatMessage struct {
	ID     string    `json:"id"`
	Sender string    `json:"sender"`
	Text   string    `json:"text"`
	Time   time.Time `json:"time"`
}

// ForensicReport is an exported PDF report together with the data it shows
type ForensicReport struct {
	Type        ContentType `json:"type"`
	Name        string      `json:"name"`
	Verdict     string      `json:"verdict"`
	Confidence  float64     `json:"confidence"`
	Reasons     []Reason    `json:"reasons"`
	GeneratedAt time.Time   `json:"generated_at"`
	Filename    string      `json:"filename"`
	PDF         []byte      `json:"-"`
}

// HistoryDigest summarizes the session history for scheduled notifications
type HistoryDigest struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Entries     []HistoryEntry      `json:"entries"`
	ByType      map[ContentType]int `json:"by_type"`
}
