package detector

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/deepfake-detector/detector-console/internal/analysis"
	"github.com/deepfake-detector/detector-console/internal/config"
	"github.com/deepfake-detector/detector-console/internal/models"
	"github.com/deepfake-detector/detector-console/internal/policy"
	"github.com/deepfake-detector/detector-console/internal/report"
	"github.com/deepfake-detector/detector-console/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBackend is a mock implementation of the Analysis Service
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Analyze(ctx context.Context, req *models.AnalysisRequest) (*models.AnalysisResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*models.AnalysisResult)
	return result, args.Error(1)
}

func (m *MockBackend) Chat(ctx context.Context, message string) (string, error) {
	args := m.Called(ctx, message)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockStorage is a mock implementation of the storage interface
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Store(ctx context.Context, name string, data []byte) error {
	args := m.Called(ctx, name, data)
	return args.Error(0)
}

func (m *MockStorage) Retrieve(ctx context.Context, name string) ([]byte, error) {
	args := m.Called(ctx, name)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorage) List(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// MockNotificationService is a mock implementation of the notification service
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) SendReport(report *models.ForensicReport) error {
	args := m.Called(report)
	return args.Error(0)
}

func (m *MockNotificationService) SendDigest(digest *models.HistoryDigest) error {
	args := m.Called(digest)
	return args.Error(0)
}

func testConfig() *config.Config {
	return &config.Config{
		AnalysisAPIURL:  "http://127.0.0.1:5000/",
		StageInterval:   time.Hour,
		HistoryCapacity: 20,
	}
}

func analyzeImage(t *testing.T, s *Service, backend *MockBackend, result *models.AnalysisResult) {
	t.Helper()
	backend.On("Analyze", mock.Anything, mock.AnythingOfType("*models.AnalysisRequest")).Return(result, nil).Once()

	c, err := s.Controller(models.ContentImage)
	require.NoError(t, err)
	require.NoError(t, c.SelectFile("a.jpg", "image/jpeg", []byte{0xff, 0xd8}))

	_, err = s.Analyze(context.Background(), models.ContentImage)
	require.NoError(t, err)
}

func TestService_AnalyzeRecordsImageHistory(t *testing.T) {
	backend := &MockBackend{}
	s := NewService(testConfig(), backend, nil, nil)

	analyzeImage(t, s, backend, &models.AnalysisResult{Confidence: 90, Verdict: "Fake", Reasons: []models.Reason{}})

	entries := s.History()
	require.Len(t, entries, 1)
	assert.Equal(t, models.ContentImage, entries[0].Type)
	assert.Equal(t, "a.jpg", entries[0].Name)
	assert.Equal(t, "Fake", entries[0].Verdict)
	assert.Equal(t, 90.0, entries[0].Confidence)
	assert.NotEmpty(t, entries[0].ID)
	backend.AssertExpectations(t)
}

func TestService_AudioDoesNotRecordHistory(t *testing.T) {
	backend := &MockBackend{}
	s := NewService(testConfig(), backend, nil, nil)
	backend.On("Analyze", mock.Anything, mock.Anything).
		Return(&models.AnalysisResult{Confidence: 80, Verdict: "AI"}, nil).Once()

	c, err := s.Controller(models.ContentAudio)
	require.NoError(t, err)
	require.NoError(t, c.SelectFile("voice.wav", "audio/wav", []byte("RIFF")))

	_, err = s.Analyze(context.Background(), models.ContentAudio)
	require.NoError(t, err)
	assert.Empty(t, s.History())
}

func TestService_ControllerUnknownType(t *testing.T) {
	s := NewService(testConfig(), &MockBackend{}, nil, nil)
	_, err := s.Controller(models.ContentType("pdf"))
	assert.Error(t, err)
}

func TestService_Metrics(t *testing.T) {
	backend := &MockBackend{}
	s := NewService(testConfig(), backend, nil, nil)

	// refused without reaching the backend
	_, err := s.Analyze(context.Background(), models.ContentVideo)
	require.ErrorIs(t, err, workflow.ErrInputMissing)

	analyzeImage(t, s, backend, &models.AnalysisResult{Confidence: 90, Verdict: "Fake"})

	backend.On("Analyze", mock.Anything, mock.Anything).Return(nil, analysis.ErrUnavailable).Once()
	c, _ := s.Controller(models.ContentVideo)
	require.NoError(t, c.SelectFile("clip.mp4", "video/mp4", []byte("mp4")))
	_, err = s.Analyze(context.Background(), models.ContentVideo)
	require.Error(t, err)

	var metrics struct {
		TotalAnalyses    int            `json:"total_analyses"`
		FailedAnalyses   int            `json:"failed_analyses"`
		TypeMetrics      map[string]int `json:"type_metrics"`
		VerdictBreakdown map[string]int `json:"verdict_breakdown"`
		HistoryEntries   int            `json:"history_entries"`
	}
	require.NoError(t, json.Unmarshal([]byte(s.GetMetrics()), &metrics))

	assert.Equal(t, 2, metrics.TotalAnalyses)
	assert.Equal(t, 1, metrics.FailedAnalyses)
	assert.Equal(t, map[string]int{"image": 1, "video": 1}, metrics.TypeMetrics)
	assert.Equal(t, map[string]int{policy.LikelyAI: 1}, metrics.VerdictBreakdown)
	assert.Equal(t, 1, metrics.HistoryEntries)
}

func TestService_ExportReport(t *testing.T) {
	backend := &MockBackend{}
	s := NewService(testConfig(), backend, nil, nil)

	_, _, err := s.ExportReport(models.ContentImage)
	assert.ErrorIs(t, err, ErrNoResult)

	analyzeImage(t, s, backend, &models.AnalysisResult{Confidence: 90, Verdict: "Fake"})

	pdf, filename, err := s.ExportReport(models.ContentImage)
	require.NoError(t, err)
	assert.Equal(t, report.Filename, filename)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))
}

func TestService_ShareReport(t *testing.T) {
	backend := &MockBackend{}
	store := &MockStorage{}
	notifier := &MockNotificationService{}
	s := NewService(testConfig(), backend, store, notifier)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 5, 0, time.UTC) }

	analyzeImage(t, s, backend, &models.AnalysisResult{
		Confidence: 90,
		Verdict:    "Fake",
		Reasons:    []models.Reason{{Title: "Blink rate", Score: 62}},
	})

	store.On("Store", mock.Anything, "reports/image-2024-03-01-12-30-05.pdf", mock.Anything).Return(nil).Once()
	notifier.On("SendReport", mock.MatchedBy(func(r *models.ForensicReport) bool {
		return r.Verdict == policy.LikelyAI &&
			r.Name == "a.jpg" &&
			r.Confidence == 90 &&
			len(r.Reasons) == 1 &&
			len(r.PDF) > 0
	})).Return(nil).Once()

	archived, err := s.ShareReport(context.Background(), models.ContentImage)
	require.NoError(t, err)
	assert.Equal(t, "reports/image-2024-03-01-12-30-05.pdf", archived)

	store.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestService_ShareReportErrors(t *testing.T) {
	backend := &MockBackend{}

	s := NewService(testConfig(), backend, nil, nil)
	_, err := s.ShareReport(context.Background(), models.ContentImage)
	assert.ErrorIs(t, err, ErrNoShareTarget)

	store := &MockStorage{}
	s = NewService(testConfig(), backend, store, nil)
	_, err = s.ShareReport(context.Background(), models.ContentImage)
	assert.ErrorIs(t, err, ErrNoResult)

	analyzeImage(t, s, backend, &models.AnalysisResult{Confidence: 50, Verdict: "Uncertain"})
	store.On("Store", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()
	_, err = s.ShareReport(context.Background(), models.ContentImage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestService_CheckBackend(t *testing.T) {
	backend := &MockBackend{}
	s := NewService(testConfig(), backend, nil, nil)

	backend.On("Ping", mock.Anything).Return(analysis.ErrUnavailable).Once()
	health := s.CheckBackend(context.Background())
	assert.False(t, health.Reachable)
	assert.NotEmpty(t, health.Error)

	backend.On("Ping", mock.Anything).Return(nil).Once()
	health = s.CheckBackend(context.Background())
	assert.True(t, health.Reachable)
	assert.Equal(t, health, s.Health())
}

func TestService_SendDigest(t *testing.T) {
	backend := &MockBackend{}
	notifier := &MockNotificationService{}
	s := NewService(testConfig(), backend, nil, notifier)

	analyzeImage(t, s, backend, &models.AnalysisResult{Confidence: 5, Verdict: "Real"})

	notifier.On("SendDigest", mock.MatchedBy(func(d *models.HistoryDigest) bool {
		return len(d.Entries) == 1 && d.ByType[models.ContentImage] == 1
	})).Return(nil).Once()

	require.NoError(t, s.SendDigest())
	notifier.AssertExpectations(t)

	assert.NoError(t, NewService(testConfig(), backend, nil, nil).SendDigest())
}

func TestService_Assistant(t *testing.T) {
	backend := &MockBackend{}
	s := NewService(testConfig(), backend, nil, nil)
	backend.On("Chat", mock.Anything, "hi").Return("hello", nil).Once()

	require.NoError(t, s.Assistant().Send(context.Background(), "hi"))

	transcript := s.Assistant().Transcript()
	require.Len(t, transcript, 3)
	assert.Equal(t, "hello", transcript[2].Text)
}

func TestService_BackendURL(t *testing.T) {
	s := NewService(testConfig(), &MockBackend{}, nil, nil)
	assert.Equal(t, "http://127.0.0.1:5000", s.BackendURL())
}

func TestArchiveName(t *testing.T) {
	at := time.Date(2024, 12, 31, 23, 59, 1, 0, time.FixedZone("X", 3600))
	assert.Equal(t, "reports/link-2024-12-31-22-59-01.pdf", ArchiveName(models.ContentLink, at))
}

func TestService_ArchivedReports(t *testing.T) {
	ctx := context.Background()

	s := NewService(testConfig(), &MockBackend{}, nil, nil)
	names, err := s.ListReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
	_, err = s.RetrieveReport(ctx, "reports/a.pdf")
	assert.ErrorIs(t, err, ErrNoShareTarget)

	store := &MockStorage{}
	s = NewService(testConfig(), &MockBackend{}, store, nil)
	store.On("List", ctx, "reports/").Return([]string{"reports/a.pdf"}, nil).Once()
	store.On("Retrieve", ctx, "reports/a.pdf").Return([]byte("%PDF"), nil).Once()
	store.On("Delete", ctx, "reports/a.pdf").Return(nil).Once()

	names, err = s.ListReports(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"reports/a.pdf"}, names)

	data, err := s.RetrieveReport(ctx, "reports/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), data)

	require.NoError(t, s.DeleteReport(ctx, "reports/a.pdf"))
	store.AssertExpectations(t)
}
