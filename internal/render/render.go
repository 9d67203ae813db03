package render

import (
	"math"
	"strconv"
	"strings"

	"github.com/deepfake-detector/detector-console/internal/models"
	"github.com/deepfake-detector/detector-console/internal/policy"
)

// Severity selects the colour scheme of a verdict
type Severity string

const (
	SeverityAlert Severity = "alert" // red/orange: AI-detected or suspicious
	SeveritySafe  Severity = "safe"  // green: real or safe
)

// FactorCard is one rendered contributing factor
type FactorCard struct {
	Title       string  `json:"title"`
	Score       float64 `json:"score"`
	Width       float64 `json:"width"` // bar width in percent
	Description string  `json:"description"`
}

// View is the display model of an analysis result
type View struct {
	Type            models.ContentType `json:"type"`
	Verdict         string             `json:"verdict"`
	BackendVerdict  string             `json:"backend_verdict"`
	Severity        Severity           `json:"severity"`
	Class           string             `json:"class"`
	ConfidenceLabel string             `json:"confidence_label"`
	Confidence      float64            `json:"confidence"`
	ConfidenceText  string             `json:"confidence_text"`
	BarWidth        float64            `json:"bar_width"`
	Factors         []FactorCard       `json:"factors"`
}

// Render builds the display model for a result. It returns nil when there
// is no result; absent or empty reasons yield no factor cards.
func Render(p policy.Policy, result *models.AnalysisResult) *View {
	if result == nil {
		return nil
	}

	verdict := p.DeriveVerdict(result)
	severity := SeveritySafe
	if p.IsAlert(verdict) {
		severity = SeverityAlert
	}

	view := &View{
		Type:            p.Type,
		Verdict:         verdict,
		BackendVerdict:  result.Verdict,
		Severity:        severity,
		Class:           Slug(verdict),
		ConfidenceLabel: p.ConfidenceLabel,
		Confidence:      result.Confidence,
		ConfidenceText:  Percent(result.Confidence),
		BarWidth:        clampPercent(result.Confidence),
		Factors:         make([]FactorCard, 0, len(result.Reasons)),
	}

	for _, reason := range result.Reasons {
		view.Factors = append(view.Factors, FactorCard{
			Title:       reason.Title,
			Score:       reason.Score,
			Width:       clampPercent(reason.Score),
			Description: reason.Description,
		})
	}

	return view
}

// Slug turns a verdict into a CSS class name such as "likely-ai-generated"
func Slug(verdict string) string {
	return strings.Join(strings.Fields(strings.ToLower(verdict)), "-")
}

// Percent formats a score without trailing zeros, e.g. 77 -> "77%"
func Percent(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64) + "%"
}

func clampPercent(value float64) float64 {
	if math.IsNaN(value) {
		return 0
	}
	return math.Max(0, math.Min(100, value))
}
