package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/deepfake-detector/detector-console/internal/models"
	"github.com/deepfake-detector/detector-console/internal/render"
	"github.com/go-pdf/fpdf"
	"github.com/sirupsen/logrus"
)

// Filename is the download name of an exported report
const Filename = "deepfake_analysis_report.pdf"

const (
	margin       = 20.0
	headerHeight = 40.0
	footerGap    = 30.0
	lineHeight   = 6.0
)

// Color is an RGB triple
type Color struct{ R, G, B int }

var (
	colorHeader   = Color{15, 23, 42}
	colorAlert    = Color{239, 68, 68}
	colorSafe     = Color{34, 197, 94}
	colorTitle    = Color{51, 65, 85}
	colorScore    = Color{100, 116, 139}
	colorBody     = Color{71, 85, 105}
	colorRule     = Color{203, 213, 225}
	colorFootnote = Color{148, 163, 184}
)

// Exporter renders analysis results as a paginated PDF forensic report
type Exporter struct {
	now         func() time.Time
	compress    bool
	footer      string
	titlePrefix string
}

// Option customizes an Exporter
type Option func(*Exporter)

// WithClock overrides the generation timestamp source
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// WithCompression toggles stream compression; uncompressed output keeps
// the report text greppable.
func WithCompression(compress bool) Option {
	return func(e *Exporter) { e.compress = compress }
}

// WithFooter sets the footer line printed on every page
func WithFooter(footer string) Option {
	return func(e *Exporter) { e.footer = footer }
}

// NewExporter creates a new report exporter
func NewExporter(opts ...Option) *Exporter {
	e := &Exporter{
		now:         time.Now,
		compress:    true,
		footer:      "Deepfake Detection System - Hackathon Edition",
		titlePrefix: "Deepfake Forensic Report",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export renders the result into PDF bytes. A non-empty override replaces
// the backend verdict. A nil result is a no-op returning nil, nil.
func (e *Exporter) Export(result *models.AnalysisResult, override string) ([]byte, error) {
	if result == nil {
		return nil, nil
	}

	var buf bytes.Buffer
	if err := e.Write(&buf, result, override); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders the result into w. A nil result writes nothing.
func (e *Exporter) Write(w io.Writer, result *models.AnalysisResult, override string) error {
	if result == nil {
		return nil
	}

	verdict := result.Verdict
	if override != "" {
		verdict = override
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(e.compress)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(e.titlePrefix, true)
	pdf.SetCreator("detector-console", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth, pageHeight := pdf.GetPageSize()
	generated := e.now()

	pdf.SetFooterFunc(func() {
		setDraw(pdf, colorRule)
		pdf.Line(margin, pageHeight-footerGap, pageWidth-margin, pageHeight-footerGap)
		pdf.SetFont("Helvetica", "", 10)
		setText(pdf, colorFootnote)
		footer := tr(e.footer)
		pdf.Text((pageWidth-pdf.GetStringWidth(footer))/2, pageHeight-15, footer)
	})

	pdf.AddPage()

	// header band
	setFill(pdf, colorHeader)
	pdf.Rect(0, 0, pageWidth, headerHeight, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.Text(margin, 25, tr(e.titlePrefix))
	pdf.SetFont("Helvetica", "", 10)
	stamp := "Generated: " + generated.Format("2006-01-02 15:04:05")
	pdf.Text(pageWidth-margin-pdf.GetStringWidth(stamp), 25, stamp)

	// summary and verdict banner
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(margin, 60, "Analysis Summary")

	banner := BannerColor(verdict)
	setFill(pdf, banner)
	setDraw(pdf, banner)
	pdf.Rect(margin, 70, pageWidth-2*margin, 30, "FD")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(30, 90, tr("Verdict: "+verdict))
	confidence := "Confidence: " + render.Percent(result.Confidence)
	pdf.Text(pageWidth-30-pdf.GetStringWidth(confidence), 90, confidence)

	// reasons
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(margin, 120, "Forensic Details")

	y := 135.0
	bottom := pageHeight - footerGap - 10

	if len(result.Reasons) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.Text(margin, y, "No specific forensic anomalies detected.")
	}

	for _, reason := range result.Reasons {
		pdf.SetFont("Helvetica", "", 11)
		lines := pdf.SplitText(tr(reason.Description), pageWidth-2*margin)
		if reason.Description == "" {
			lines = nil
		}

		needed := 7 + float64(len(lines))*lineHeight
		if y+needed > bottom && y > 40 {
			pdf.AddPage()
			y = 30
		}

		pdf.SetFont("Helvetica", "B", 12)
		setText(pdf, colorTitle)
		pdf.Text(margin, y, tr(reason.Title))

		impact := render.Percent(reason.Score) + " Impact"
		setText(pdf, colorScore)
		pdf.Text(pageWidth-margin-pdf.GetStringWidth(impact), y, impact)
		y += 7

		pdf.SetFont("Helvetica", "", 11)
		setText(pdf, colorBody)
		for _, line := range lines {
			if y > bottom {
				pdf.AddPage()
				y = 30
				pdf.SetFont("Helvetica", "", 11)
				setText(pdf, colorBody)
			}
			pdf.Text(margin, y, line)
			y += lineHeight
		}
		y += 10
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render forensic report: %w", err)
	}

	logrus.Debugf("Rendered forensic report with %d reasons on %d pages", len(result.Reasons), pdf.PageCount())
	return nil
}

// IsAIVerdict is the banner classification: any verdict mentioning "ai",
// case-insensitively, is shown in red. It does not look at the content
// type, so link verdicts such as "Suspicious" render green.
func IsAIVerdict(verdict string) bool {
	return strings.Contains(strings.ToLower(verdict), "ai")
}

// BannerColor returns the verdict banner colour
func BannerColor(verdict string) Color {
	if IsAIVerdict(verdict) {
		return colorAlert
	}
	return colorSafe
}

func setFill(pdf *fpdf.Fpdf, c Color) { pdf.SetFillColor(c.R, c.G, c.B) }
func setDraw(pdf *fpdf.Fpdf, c Color) { pdf.SetDrawColor(c.R, c.G, c.B) }
func setText(pdf *fpdf.Fpdf, c Color) { pdf.SetTextColor(c.R, c.G, c.B) }
