package report

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/deepfake-detector/detector-console/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExporter() *Exporter {
	fixed := time.Date(2026, 10, 19, 14, 30, 0, 0, time.UTC)
	return NewExporter(
		WithClock(func() time.Time { return fixed }),
		WithCompression(false),
	)
}

func TestExport_ContainsVerdictAndReasons(t *testing.T) {
	result := &models.AnalysisResult{
		Verdict:    "Likely AI-Generated",
		Confidence: 77,
		Reasons: []models.Reason{
			{Title: "Blink rate", Score: 62, Description: "Unnatural blink pattern"},
		},
	}

	doc, err := newTestExporter().Export(result, "")
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))
	for _, literal := range []string{
		"Likely AI-Generated",
		"77%",
		"Blink rate",
		"62% Impact",
		"Unnatural blink pattern",
		"Deepfake Forensic Report",
		"Generated: 2026-10-19 14:30:00",
	} {
		assert.True(t, bytes.Contains(doc, []byte(literal)), "missing %q", literal)
	}
	assert.False(t, bytes.Contains(doc, []byte("No specific forensic anomalies detected.")))
}

func TestExport_NoReasons(t *testing.T) {
	for _, reasons := range [][]models.Reason{nil, {}} {
		doc, err := newTestExporter().Export(&models.AnalysisResult{Verdict: "Real", Confidence: 4, Reasons: reasons}, "")
		require.NoError(t, err)
		assert.True(t, bytes.Contains(doc, []byte("No specific forensic anomalies detected.")))
	}
}

func TestExport_NilResultIsNoop(t *testing.T) {
	doc, err := newTestExporter().Export(nil, "Likely Real")
	assert.NoError(t, err)
	assert.Nil(t, doc)

	var buf bytes.Buffer
	assert.NoError(t, newTestExporter().Write(&buf, nil, ""))
	assert.Zero(t, buf.Len())
}

func TestExport_OverrideReplacesVerdict(t *testing.T) {
	doc, err := newTestExporter().Export(&models.AnalysisResult{Verdict: "Fake", Confidence: 90}, "Likely AI-Generated")
	require.NoError(t, err)

	assert.True(t, bytes.Contains(doc, []byte("Verdict: Likely AI-Generated")))
	assert.False(t, bytes.Contains(doc, []byte("Verdict: Fake")))
}

func TestExport_Paginates(t *testing.T) {
	var reasons []models.Reason
	for i := 0; i < 30; i++ {
		reasons = append(reasons, models.Reason{
			Title:       fmt.Sprintf("Factor %d", i),
			Score:       float64(i),
			Description: strings.Repeat("Compression artifacts around the jawline. ", 6),
		})
	}

	doc, err := newTestExporter().Export(&models.AnalysisResult{Verdict: "AI-Generated", Confidence: 99, Reasons: reasons}, "")
	require.NoError(t, err)

	assert.True(t, bytes.Contains(doc, []byte("Factor 29")))
	// the footer is printed once per page
	assert.Greater(t, bytes.Count(doc, []byte("Hackathon Edition")), 1)
}

func TestBannerColor(t *testing.T) {
	tests := []struct {
		verdict  string
		expected Color
	}{
		{"Likely AI-Generated", colorAlert},
		{"possibly ai-generated", colorAlert},
		{"Likely Real", colorSafe},
		{"Likely Human", colorSafe},
		// content-type blind: a suspicious link still renders green
		{"Suspicious", colorSafe},
		{"Safe", colorSafe},
	}

	for _, tt := range tests {
		t.Run(tt.verdict, func(t *testing.T) {
			assert.Equal(t, tt.expected, BannerColor(tt.verdict))
		})
	}
}
