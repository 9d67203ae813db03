package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deepfake-detector/detector-console/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_AnalyzeFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/analyze/video", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "clip.mp4", header.Filename)
		assert.Equal(t, "video/mp4", header.Header.Get("Content-Type"))
		assert.Equal(t, []byte("frames"), data)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"confidence": 64, "verdict": "AI-Generated", "reasons": [
			{"title": "Blink rate", "score": 62, "description": "Unnatural blink pattern"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)
	result, err := client.Analyze(context.Background(), &models.AnalysisRequest{
		Type: models.ContentVideo,
		File: &models.Upload{Name: "clip.mp4", ContentType: "video/mp4", Data: []byte("frames")},
	})

	require.NoError(t, err)
	assert.Equal(t, 64.0, result.Confidence)
	assert.Equal(t, "AI-Generated", result.Verdict)
	require.Len(t, result.Reasons, 1)
	assert.Equal(t, models.Reason{Title: "Blink rate", Score: 62, Description: "Unnatural blink pattern"}, result.Reasons[0])
}

func TestClient_AnalyzeLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze/link", r.URL.Path)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://example.com", body["url"])

		w.Write([]byte(`{"confidence": 12, "verdict": "Safe"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0)
	result, err := client.Analyze(context.Background(), &models.AnalysisRequest{
		Type: models.ContentLink,
		URL:  "https://example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "Safe", result.Verdict)
	assert.NotNil(t, result.Reasons)
	assert.Empty(t, result.Reasons)
}

func TestClient_AnalyzeReasonsVariants(t *testing.T) {
	bodies := map[string]string{
		"Missing reasons": `{"confidence": 50, "verdict": "Real"}`,
		"Null reasons":    `{"confidence": 50, "verdict": "Real", "reasons": null}`,
		"Empty reasons":   `{"confidence": 50, "verdict": "Real", "reasons": []}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer server.Close()

			result, err := NewClient(server.URL, 0).Analyze(context.Background(), &models.AnalysisRequest{
				Type: models.ContentImage,
				File: &models.Upload{Name: "a.jpg", Data: []byte{0xff}},
			})
			require.NoError(t, err)
			assert.Len(t, result.Reasons, 0)
		})
	}
}

func TestClient_AnalyzeFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected error
	}{
		{name: "Server error", status: http.StatusInternalServerError, body: `{"error":"boom"}`, expected: ErrBackend},
		{name: "Bad request", status: http.StatusBadRequest, body: ``, expected: ErrBackend},
		{name: "HTML body", status: http.StatusOK, body: `<html>oops</html>`, expected: ErrUnavailable},
		{name: "Missing confidence", status: http.StatusOK, body: `{"verdict":"Real"}`, expected: ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, 0).Analyze(context.Background(), &models.AnalysisRequest{
				Type: models.ContentAudio,
				File: &models.Upload{Name: "voice.wav", Data: []byte("pcm")},
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.expected), "got %v", err)
		})
	}
}

func TestClient_StatusErrorDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, 0).Analyze(context.Background(), &models.AnalysisRequest{
		Type: models.ContentLink,
		URL:  "https://example.com",
	})

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "/analyze/link", statusErr.Endpoint)
}

func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, 0)
	_, err := client.Analyze(context.Background(), &models.AnalysisRequest{
		Type: models.ContentLink,
		URL:  "https://example.com",
	})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = client.Chat(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.ErrorIs(t, client.Ping(context.Background()), ErrUnavailable)
}

func TestClient_InvalidRequest(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 0)

	_, err := client.Analyze(context.Background(), &models.AnalysisRequest{Type: models.ContentImage})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestClient_Chat(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{name: "Reply present", body: `{"response": "Deepfakes are synthetic media."}`, expected: "Deepfakes are synthetic media."},
		{name: "Reply missing", body: `{}`, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/analyze/chat", r.URL.Path)
				var body map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "what is a deepfake?", body["message"])
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			reply, err := NewClient(server.URL, 0).Chat(context.Background(), "what is a deepfake?")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, reply)
		})
	}
}

func TestClient_PingAcceptsAnyStatus(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	assert.NoError(t, NewClient(server.URL, 0).Ping(context.Background()))
}
