package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/deepfake-detector/detector-console/internal/analysis"
	"github.com/deepfake-detector/detector-console/internal/models"
	"github.com/deepfake-detector/detector-console/internal/policy"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// State is a step of the upload-analyze-render workflow
type State string

const (
	StateIdle         State = "idle"
	StateFileSelected State = "file_selected"
	StateAnalyzing    State = "analyzing"
	StateResulted     State = "resulted"
)

// User-facing alerts for backend failures
const (
	AlertBackendDown  = "Backend not responding"
	AlertBackendError = "Backend error"
)

var (
	ErrInputMissing       = errors.New("input missing")
	ErrAnalysisInProgress = errors.New("analysis already in progress")
	ErrAlreadyAnalyzed    = errors.New("select new input to analyze again")
	ErrWrongInputKind     = errors.New("input kind not accepted by this page")
)

// HistoryRecorder receives entries for analyses whose policy records history
type HistoryRecorder interface {
	Record(entry models.HistoryEntry)
}

// Snapshot is a consistent copy of a controller's state
type Snapshot struct {
	Type       models.ContentType     `json:"type"`
	State      State                  `json:"state"`
	InputName  string                 `json:"input_name,omitempty"`
	Stage      string                 `json:"stage,omitempty"`
	Result     *models.AnalysisResult `json:"result,omitempty"`
	CanAnalyze bool                   `json:"can_analyze"`
}

// Controller runs the workflow for one content-type page
type Controller struct {
	policy        policy.Policy
	analyzer      analysis.Analyzer
	history       HistoryRecorder
	stageInterval time.Duration
	now           func() time.Time

	mu     sync.Mutex
	state  State
	input  *models.AnalysisRequest
	result *models.AnalysisResult
	stage  string
}

// Option customizes a Controller
type Option func(*Controller)

// WithClock overrides the time source used for history entries
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithStageInterval sets how often the progress caption advances
func WithStageInterval(interval time.Duration) Option {
	return func(c *Controller) {
		c.stageInterval = interval
	}
}

// NewController creates a controller in the Idle state. history may be nil
// when the page never records history.
func NewController(p policy.Policy, analyzer analysis.Analyzer, history HistoryRecorder, opts ...Option) *Controller {
	c := &Controller{
		policy:        p,
		analyzer:      analyzer,
		history:       history,
		stageInterval: 1500 * time.Millisecond,
		now:           time.Now,
		state:         StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the page policy the controller was built with
func (c *Controller) Policy() policy.Policy {
	return c.policy
}

// SelectFile stores a file for one of the file pages and clears any previous result
func (c *Controller) SelectFile(name, contentType string, data []byte) error {
	if !c.policy.Type.IsFile() {
		return fmt.Errorf("%w: %s page takes a url", ErrWrongInputKind, c.policy.Type)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: no file chosen", ErrInputMissing)
	}

	return c.selectInput(&models.AnalysisRequest{
		Type: c.policy.Type,
		File: &models.Upload{Name: name, ContentType: contentType, Data: data},
	})
}

// SelectURL stores the link to analyze and clears any previous result
func (c *Controller) SelectURL(rawURL string) error {
	if c.policy.Type.IsFile() {
		return fmt.Errorf("%w: %s page takes a file", ErrWrongInputKind, c.policy.Type)
	}
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return fmt.Errorf("%w: blank url", ErrInputMissing)
	}

	return c.selectInput(&models.AnalysisRequest{Type: c.policy.Type, URL: trimmed})
}

func (c *Controller) selectInput(req *models.AnalysisRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateAnalyzing {
		return ErrAnalysisInProgress
	}

	c.input = req
	c.result = nil
	c.stage = ""
	c.state = StateFileSelected

	logrus.WithFields(logrus.Fields{
		"type":  c.policy.Type,
		"input": req.Name(),
	}).Debug("Input selected")
	return nil
}

// Analyze submits the selected input and blocks until the Analysis Service
// answers. Exactly one request is issued per call. On failure the
// controller returns to FileSelected without a result.
func (c *Controller) Analyze(ctx context.Context) (*models.AnalysisResult, error) {
	req, err := c.begin()
	if err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{
		"type":  c.policy.Type,
		"input": req.Name(),
	})
	log.Info("Starting analysis")

	progress := StartProgress(c.policy.Stages, c.stageInterval, c.setStage)
	result, err := c.analyzer.Analyze(ctx, req)
	// stop before taking the lock: a pending tick needs it to finish
	progress.Stop()

	c.mu.Lock()
	c.stage = ""
	if err != nil {
		c.state = StateFileSelected
		c.mu.Unlock()

		log.Errorf("Analysis failed: %v", err)
		return nil, fmt.Errorf("%s analysis failed: %w", c.policy.Type, err)
	}
	c.result = result
	c.state = StateResulted
	c.mu.Unlock()

	log.WithFields(logrus.Fields{
		"verdict":    result.Verdict,
		"confidence": result.Confidence,
		"reasons":    len(result.Reasons),
	}).Info("Analysis completed")

	if c.policy.RecordsHistory && c.history != nil {
		c.history.Record(models.HistoryEntry{
			ID:         uuid.New().String(),
			Type:       c.policy.Type,
			Icon:       c.policy.Icon,
			Name:       req.Name(),
			Verdict:    result.Verdict,
			Confidence: result.Confidence,
			Time:       c.now(),
			Path:       c.policy.Path,
		})
	}

	return cloneResult(result), nil
}

func (c *Controller) begin() (*models.AnalysisRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateAnalyzing:
		return nil, ErrAnalysisInProgress
	case StateResulted:
		if !c.policy.AllowReanalyze {
			return nil, ErrAlreadyAnalyzed
		}
	}

	if c.input == nil || c.input.Validate() != nil {
		return nil, fmt.Errorf("%w: nothing selected on the %s page", ErrInputMissing, c.policy.Type)
	}

	c.state = StateAnalyzing
	c.result = nil
	return c.input, nil
}

func (c *Controller) setStage(stage string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateAnalyzing {
		c.stage = stage
	}
}

// State returns the current workflow state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result returns a copy of the stored result, or nil
func (c *Controller) Result() *models.AnalysisResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneResult(c.result)
}

// Snapshot returns a consistent view for rendering
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Type:   c.policy.Type,
		State:  c.state,
		Stage:  c.stage,
		Result: cloneResult(c.result),
	}
	if c.input != nil {
		snap.InputName = c.input.Name()
	}
	snap.CanAnalyze = c.state == StateFileSelected ||
		(c.state == StateResulted && c.policy.AllowReanalyze)
	return snap
}

// Alert maps a workflow error to the blocking message shown to the user
func (c *Controller) Alert(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInputMissing):
		return c.policy.MissingInputAlert
	case errors.Is(err, analysis.ErrBackend):
		return AlertBackendError
	case errors.Is(err, analysis.ErrUnavailable), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return AlertBackendDown
	case errors.Is(err, ErrAnalysisInProgress):
		return "Analysis already in progress"
	case errors.Is(err, ErrAlreadyAnalyzed):
		return "Select a new file to analyze again"
	default:
		return err.Error()
	}
}

func cloneResult(r *models.AnalysisResult) *models.AnalysisResult {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Reasons != nil {
		clone.Reasons = append([]models.Reason(nil), r.Reasons...)
	}
	return &clone
}
