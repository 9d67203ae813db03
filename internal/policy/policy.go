package policy

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/deepfake-detector/detector-console/internal/models"
)

// Derived verdict labels
const (
	LikelyReal     = "Likely Real"
	LikelyHuman    = "Likely Human"
	LikelyAI       = "Likely AI-Generated"
	PossiblyAI     = "Possibly AI-Generated"
	backendVerdict = ""
)

// Policy holds everything that differs between the four analysis pages.
// The differences are kept in one table so they can be enumerated and
// reviewed side by side.
type Policy struct {
	Type     models.ContentType
	Title    string
	Subtitle string
	Icon     string
	Path     string

	// RecordsHistory controls whether a successful analysis is added to
	// the landing page history. Only image and video do so today.
	RecordsHistory bool

	// AllowReanalyze lets Analyze run again from the Resulted state
	// without selecting new input.
	AllowReanalyze bool

	MissingInputAlert string
	ConfidenceLabel   string
	Stages            []string

	derive func(confidence float64, verdict string) string
	alert  func(verdict string) bool
}

var table = map[models.ContentType]Policy{
	models.ContentImage: {
		Type:              models.ContentImage,
		Title:             "Image Deepfake Detection",
		Subtitle:          "Upload an image to check whether it was generated by AI",
		Icon:              "🖼️",
		Path:              "/image",
		RecordsHistory:    true,
		MissingInputAlert: "Please upload an image first",
		ConfidenceLabel:   "AI Probability",
		Stages: []string{
			"Uploading image...",
			"Scanning frequency spectrum...",
			"Comparing against AI signatures...",
			"Compiling verdict...",
		},
		derive: imageVerdict,
		alert:  mentionsAI,
	},
	models.ContentVideo: {
		Type:              models.ContentVideo,
		Title:             "Video Deepfake Detection",
		Subtitle:          "Upload a video to analyze whether it is real or manipulated",
		Icon:              "🎥",
		Path:              "/video",
		RecordsHistory:    true,
		MissingInputAlert: "Please upload a video first",
		ConfidenceLabel:   "Confidence",
		Stages: []string{
			"Uploading video...",
			"Extracting frames...",
			"Checking temporal consistency...",
			"Compiling verdict...",
		},
		alert: mentionsAI,
	},
	models.ContentAudio: {
		Type:              models.ContentAudio,
		Title:             "Audio Deepfake Detection",
		Subtitle:          "Upload an audio file to check if the voice is AI-generated",
		Icon:              "🎧",
		Path:              "/audio",
		MissingInputAlert: "Please upload an audio file first",
		ConfidenceLabel:   "AI Likelihood",
		Stages: []string{
			"Uploading audio...",
			"Transcribing speech...",
			"Analyzing voice patterns...",
			"Compiling verdict...",
		},
		derive: audioVerdict,
		alert:  mentionsAI,
	},
	models.ContentLink: {
		Type:              models.ContentLink,
		Title:             "Link Analysis",
		Subtitle:          "Enter a link to check if it is real or suspicious",
		Icon:              "🔗",
		Path:              "/link",
		AllowReanalyze:    true,
		MissingInputAlert: "Please enter a URL",
		ConfidenceLabel:   "Confidence",
		Stages: []string{
			"Resolving link...",
			"Inspecting domain reputation...",
			"Scanning page content...",
			"Compiling verdict...",
		},
		alert: mentionsSuspicion,
	},
}

// For returns the policy of a content type
func For(ct models.ContentType) (Policy, error) {
	p, ok := table[ct]
	if !ok {
		return Policy{}, fmt.Errorf("no policy for content type %q", ct)
	}
	return p, nil
}

// MustFor is For for content types known at compile time
func MustFor(ct models.ContentType) Policy {
	p, err := For(ct)
	if err != nil {
		panic(err)
	}
	return p
}

// All returns the policies in selector order
func All() []Policy {
	policies := make([]Policy, 0, len(models.ContentTypes))
	for _, ct := range models.ContentTypes {
		policies = append(policies, table[ct])
	}
	return policies
}

// OverridesVerdict reports whether the page relabels the backend verdict
func (p Policy) OverridesVerdict() bool {
	return p.derive != nil
}

// DeriveVerdict returns the label shown for a result. Pages without an
// override rule show the backend verdict unchanged.
func (p Policy) DeriveVerdict(result *models.AnalysisResult) string {
	if result == nil {
		return ""
	}
	if p.derive == nil {
		return result.Verdict
	}
	if derived := p.derive(result.Confidence, result.Verdict); derived != backendVerdict {
		return derived
	}
	return result.Verdict
}

// IsAlert reports whether a displayed verdict should be styled as a
// detection (AI-generated, fake or suspicious) rather than as safe.
func (p Policy) IsAlert(verdict string) bool {
	if p.alert == nil {
		return false
	}
	return p.alert(verdict)
}

func imageVerdict(confidence float64, _ string) string {
	switch {
	case confidence <= 10:
		return LikelyReal
	case confidence >= 85:
		return LikelyAI
	default:
		return backendVerdict
	}
}

func audioVerdict(confidence float64, _ string) string {
	switch {
	case confidence < 30:
		return LikelyHuman
	case confidence > 70:
		return LikelyAI
	default:
		return PossiblyAI
	}
}

// mentionsAI matches "AI" as a word ("Likely AI-Generated") and fake
// labels, without tripping on words that merely contain the letters.
func mentionsAI(verdict string) bool {
	lower := strings.ToLower(verdict)
	if strings.Contains(lower, "fake") {
		return true
	}
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		if word == "ai" {
			return true
		}
	}
	return false
}

func mentionsSuspicion(verdict string) bool {
	lower := strings.ToLower(verdict)
	return strings.Contains(lower, "suspicious") || strings.Contains(lower, "fake")
}
