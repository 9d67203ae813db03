package detector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/deepfake-detector/detector-console/internal/analysis"
	"github.com/deepfake-detector/detector-console/internal/assistant"
	"github.com/deepfake-detector/detector-console/internal/config"
	"github.com/deepfake-detector/detector-console/internal/history"
	"github.com/deepfake-detector/detector-console/internal/models"
	"github.com/deepfake-detector/detector-console/internal/notifications"
	"github.com/deepfake-detector/detector-console/internal/policy"
	"github.com/deepfake-detector/detector-console/internal/report"
	"github.com/deepfake-detector/detector-console/internal/storage"
	"github.com/deepfake-detector/detector-console/internal/workflow"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoResult is returned when a report is requested before any analysis finished
	ErrNoResult = errors.New("no analysis result to report")
	// ErrNoShareTarget is returned when neither an archive nor a notification channel is configured
	ErrNoShareTarget = errors.New("no archive or notification channel configured")
)

// Service owns the per-type workflows and the session-wide components
type Service struct {
	config              *config.Config
	backend             analysis.Backend
	storage             storage.StorageInterface
	notificationService notifications.NotificationInterface
	controllers         map[models.ContentType]*workflow.Controller
	history             *history.Recorder
	assistant           *assistant.Client
	exporter            *report.Exporter
	now                 func() time.Time
	metrics             *Metrics
	health              BackendHealth
	mu                  sync.RWMutex
}

// Metrics holds detector metrics
type Metrics struct {
	TotalAnalyses    int            `json:"total_analyses"`
	FailedAnalyses   int            `json:"failed_analyses"`
	TypeMetrics      map[string]int `json:"type_metrics"`
	VerdictBreakdown map[string]int `json:"verdict_breakdown"`
	ReportsExported  int            `json:"reports_exported"`
	ReportsShared    int            `json:"reports_shared"`
	LastAnalysis     time.Time      `json:"last_analysis"`
	LastDuration     string         `json:"last_duration"`
}

// BackendHealth is the result of the most recent Analysis Service probe
type BackendHealth struct {
	Reachable bool      `json:"reachable"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}

// NewService creates a new detector service. storage and notificationService
// may be nil when archiving or sharing is disabled.
func NewService(cfg *config.Config, backend analysis.Backend, storage storage.StorageInterface, notificationService notifications.NotificationInterface) *Service {
	service := &Service{
		config:              cfg,
		backend:             backend,
		storage:             storage,
		notificationService: notificationService,
		controllers:         make(map[models.ContentType]*workflow.Controller),
		history:             history.NewRecorder(cfg.HistoryCapacity),
		assistant:           assistant.NewClient(backend),
		now:                 time.Now,
		metrics: &Metrics{
			TypeMetrics:      make(map[string]int),
			VerdictBreakdown: make(map[string]int),
		},
	}

	var exporterOpts []report.Option
	if cfg.ReportFooter != "" {
		exporterOpts = append(exporterOpts, report.WithFooter(cfg.ReportFooter))
	}
	service.exporter = report.NewExporter(exporterOpts...)

	service.initializeControllers()

	return service
}

func (s *Service) initializeControllers() {
	var opts []workflow.Option
	if s.config.StageInterval > 0 {
		opts = append(opts, workflow.WithStageInterval(s.config.StageInterval))
	}

	for _, p := range policy.All() {
		s.controllers[p.Type] = workflow.NewController(p, s.backend, s.history, opts...)
	}
}

// Controller returns the workflow of one content type
func (s *Service) Controller(ct models.ContentType) (*workflow.Controller, error) {
	c, ok := s.controllers[ct]
	if !ok {
		return nil, fmt.Errorf("unknown content type %q", ct)
	}
	return c, nil
}

// Analyze runs the workflow of one content type and records metrics
func (s *Service) Analyze(ctx context.Context, ct models.ContentType) (*models.AnalysisResult, error) {
	c, err := s.Controller(ct)
	if err != nil {
		return nil, err
	}

	if s.config.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.AnalysisTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := c.Analyze(ctx)
	s.updateMetrics(ct, c.Policy(), result, err, time.Since(start))

	return result, err
}

func (s *Service) updateMetrics(ct models.ContentType, p policy.Policy, result *models.AnalysisResult, err error, duration time.Duration) {
	// refusals never reached the backend
	if errors.Is(err, workflow.ErrInputMissing) || errors.Is(err, workflow.ErrAnalysisInProgress) || errors.Is(err, workflow.ErrAlreadyAnalyzed) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.TotalAnalyses++
	s.metrics.TypeMetrics[string(ct)]++
	s.metrics.LastAnalysis = s.now()
	s.metrics.LastDuration = duration.String()

	if err != nil {
		s.metrics.FailedAnalyses++
		return
	}
	s.metrics.VerdictBreakdown[p.DeriveVerdict(result)]++
}

// ExportReport renders the stored result of a content type as a PDF.
// The page's derived verdict is printed in place of the backend verdict.
func (s *Service) ExportReport(ct models.ContentType) ([]byte, string, error) {
	c, err := s.Controller(ct)
	if err != nil {
		return nil, "", err
	}
	return s.export(c.Policy(), c.Result())
}

func (s *Service) export(p policy.Policy, result *models.AnalysisResult) ([]byte, string, error) {
	if result == nil {
		return nil, "", ErrNoResult
	}

	override := ""
	if p.OverridesVerdict() {
		override = p.DeriveVerdict(result)
	}

	pdf, err := s.exporter.Export(result, override)
	if err != nil {
		return nil, "", fmt.Errorf("failed to export %s report: %w", p.Type, err)
	}

	s.mu.Lock()
	s.metrics.ReportsExported++
	s.mu.Unlock()

	return pdf, report.Filename, nil
}

// ShareReport archives the current report and sends it to the configured
// notification channels. It returns the archived name, empty when no
// archive is configured.
func (s *Service) ShareReport(ctx context.Context, ct models.ContentType) (string, error) {
	c, err := s.Controller(ct)
	if err != nil {
		return "", err
	}
	if s.storage == nil && s.notificationService == nil {
		return "", ErrNoShareTarget
	}

	snap := c.Snapshot()
	pdf, filename, err := s.export(c.Policy(), snap.Result)
	if err != nil {
		return "", err
	}

	generatedAt := s.now().UTC()
	forensic := &models.ForensicReport{
		Type:        ct,
		Name:        snap.InputName,
		Verdict:     c.Policy().DeriveVerdict(snap.Result),
		Confidence:  snap.Result.Confidence,
		Reasons:     snap.Result.Reasons,
		GeneratedAt: generatedAt,
		Filename:    filename,
		PDF:         pdf,
	}

	var archived string
	if s.storage != nil {
		archived = ArchiveName(ct, generatedAt)
		if err := s.storage.Store(ctx, archived, pdf); err != nil {
			return "", fmt.Errorf("failed to archive report: %w", err)
		}
	}

	if s.notificationService != nil {
		if err := s.notificationService.SendReport(forensic); err != nil {
			return archived, fmt.Errorf("failed to send report: %w", err)
		}
	}

	s.mu.Lock()
	s.metrics.ReportsShared++
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"type":     ct,
		"verdict":  forensic.Verdict,
		"archived": archived,
	}).Info("Shared forensic report")

	return archived, nil
}

// ArchiveName is the storage key of a report generated at t
func ArchiveName(ct models.ContentType, t time.Time) string {
	return fmt.Sprintf("reports/%s-%s.pdf", ct, t.UTC().Format("2006-01-02-15-04-05"))
}

// ListReports returns the archived report names, oldest first
func (s *Service) ListReports(ctx context.Context) ([]string, error) {
	if s.storage == nil {
		return nil, nil
	}
	return s.storage.List(ctx, "reports/")
}

// RetrieveReport reads an archived report
func (s *Service) RetrieveReport(ctx context.Context, name string) ([]byte, error) {
	if s.storage == nil {
		return nil, ErrNoShareTarget
	}
	return s.storage.Retrieve(ctx, name)
}

// DeleteReport removes an archived report
func (s *Service) DeleteReport(ctx context.Context, name string) error {
	if s.storage == nil {
		return ErrNoShareTarget
	}
	logrus.Infof("Deleting archived report %s", name)
	return s.storage.Delete(ctx, name)
}

// CheckBackend probes the Analysis Service and stores the outcome
func (s *Service) CheckBackend(ctx context.Context) BackendHealth {
	err := s.backend.Ping(ctx)

	health := BackendHealth{
		Reachable: err == nil,
		CheckedAt: s.now(),
	}
	if err != nil {
		health.Error = err.Error()
		logrus.Warnf("Analysis Service health probe failed: %v", err)
	}

	s.mu.Lock()
	wasReachable := s.health.Reachable || s.health.CheckedAt.IsZero()
	s.health = health
	s.mu.Unlock()

	if health.Reachable && !wasReachable {
		logrus.Info("Analysis Service is reachable again")
	}

	return health
}

// Health returns the most recent probe result
func (s *Service) Health() BackendHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.health
}

// Digest summarizes the session history
func (s *Service) Digest() *models.HistoryDigest {
	entries := s.history.Entries()
	digest := &models.HistoryDigest{
		GeneratedAt: s.now().UTC(),
		Entries:     entries,
		ByType:      make(map[models.ContentType]int),
	}
	for _, entry := range entries {
		digest.ByType[entry.Type]++
	}
	return digest
}

// SendDigest sends the history digest to the notification channels
func (s *Service) SendDigest() error {
	if s.notificationService == nil {
		logrus.Debug("No notification channel configured, skipping digest")
		return nil
	}
	return s.notificationService.SendDigest(s.Digest())
}

// History returns the recorded analyses, most recent first
func (s *Service) History() []models.HistoryEntry {
	return s.history.Entries()
}

// Assistant returns the session chat client
func (s *Service) Assistant() *assistant.Client {
	return s.assistant
}

// BackendURL returns the configured Analysis Service root
func (s *Service) BackendURL() string {
	return strings.TrimSuffix(s.config.AnalysisAPIURL, "/")
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(struct {
		*Metrics
		Backend BackendHealth `json:"backend"`
		History int           `json:"history_entries"`
	}{s.metrics, s.health, s.history.Len()}, "", "  ")
	return string(data)
}
