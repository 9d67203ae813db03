package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deepfake-detector/detector-console/internal/analysis"
	"github.com/deepfake-detector/detector-console/internal/assistant"
	"github.com/deepfake-detector/detector-console/internal/detector"
	"github.com/deepfake-detector/detector-console/internal/models"
	"github.com/deepfake-detector/detector-console/internal/policy"
	"github.com/deepfake-detector/detector-console/internal/render"
	"github.com/deepfake-detector/detector-console/internal/workflow"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// maxUploadSize bounds the multipart body of a select request
const maxUploadSize = 64 << 20

// Server exposes the detector over HTTP
type Server struct {
	detector *detector.Service
	router   *mux.Router
}

// statusResponse is the JSON view of one analysis page
type statusResponse struct {
	Snapshot workflow.Snapshot `json:"snapshot"`
	View     *render.View      `json:"view,omitempty"`
}

// NewServer creates the router for every page and API endpoint
func NewServer(d *detector.Service) *Server {
	s := &Server{detector: d, router: mux.NewRouter()}
	s.routes()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Health check endpoint
	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Metrics endpoint
	r.HandleFunc("/metrics", s.handleMetrics).Methods("GET")

	r.HandleFunc("/", s.handleIndex).Methods("GET")
	r.HandleFunc("/chat", s.handleChatPage).Methods("GET")
	r.HandleFunc("/chat", s.handleChatSend).Methods("POST")

	r.HandleFunc("/reports", s.handleListReports).Methods("GET")
	r.HandleFunc("/reports/{name:.+}", s.handleGetReport).Methods("GET")
	r.HandleFunc("/reports/{name:.+}", s.handleDeleteReport).Methods("DELETE")

	page := r.PathPrefix("/{type:image|video|audio|link}").Subrouter()
	page.HandleFunc("", s.handlePage).Methods("GET")
	page.HandleFunc("/status", s.handleStatus).Methods("GET")
	page.HandleFunc("/select", s.handleSelect).Methods("POST")
	page.HandleFunc("/analyze", s.handleAnalyze).Methods("POST")
	page.HandleFunc("/report", s.handleReport).Methods("GET")
	page.HandleFunc("/report/share", s.handleShare).Methods("POST")
}

func (s *Server) controller(r *http.Request) (*workflow.Controller, error) {
	ct, err := models.ParseContentType(mux.Vars(r)["type"])
	if err != nil {
		return nil, err
	}
	return s.detector.Controller(ct)
}

func (s *Server) status(c *workflow.Controller) statusResponse {
	snap := c.Snapshot()
	return statusResponse{
		Snapshot: snap,
		View:     render.Render(c.Policy(), snap.Result),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"backend":   s.detector.Health(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.detector.GetMetrics()))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Policies:   policy.All(),
		History:    s.detector.History(),
		Health:     s.detector.Health(),
		BackendURL: s.detector.BackendURL(),
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, data)
		return
	}
	renderPage(w, indexTemplate, data)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	c, err := s.controller(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	st := s.status(c)
	renderPage(w, pageTemplate, pageData{
		Policy:   c.Policy(),
		Snapshot: st.Snapshot,
		View:     st.View,
		Alert:    r.URL.Query().Get("alert"),
		Notice:   r.URL.Query().Get("notice"),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	c, err := s.controller(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.status(c))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	c, err := s.controller(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	p := c.Policy()
	if p.Type.IsFile() {
		err = selectFile(w, r, c)
	} else {
		var link string
		if link, err = linkURL(r); err == nil {
			err = c.SelectURL(link)
		}
	}

	if err != nil {
		logrus.Debugf("Rejected %s selection: %v", p.Type, err)
		s.fail(w, r, c, err)
		return
	}

	s.respond(w, r, c, "")
}

func selectFile(w http.ResponseWriter, r *http.Request, c *workflow.Controller) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return fmt.Errorf("%w: expected a file upload", workflow.ErrInputMissing)
		}
		return fmt.Errorf("failed to read upload: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return fmt.Errorf("%w: %v", workflow.ErrInputMissing, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}

	return c.SelectFile(header.Filename, header.Header.Get("Content-Type"), data)
}

func linkURL(r *http.Request) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("%w: invalid select request: %v", workflow.ErrInputMissing, err)
		}
		return body.URL, nil
	}
	return r.FormValue("url"), nil
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	c, err := s.controller(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	// a dropped connection must not abort the analysis; ANALYSIS_TIMEOUT bounds it
	ctx := context.WithoutCancel(r.Context())
	if _, err := s.detector.Analyze(ctx, c.Policy().Type); err != nil {
		s.fail(w, r, c, err)
		return
	}

	s.respond(w, r, c, "")
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	c, err := s.controller(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	pdf, filename, err := s.detector.ExportReport(c.Policy().Type)
	if errors.Is(err, detector.ErrNoResult) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		logrus.Errorf("Failed to export report: %v", err)
		http.Error(w, "failed to export report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	c, err := s.controller(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	archived, err := s.detector.ShareReport(r.Context(), c.Policy().Type)
	if err != nil {
		s.fail(w, r, c, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"archived": archived})
		return
	}
	s.respond(w, r, c, "Report shared")
}

func (s *Server) handleChatPage(w http.ResponseWriter, r *http.Request) {
	transcript := s.detector.Assistant().Transcript()
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, transcript)
		return
	}
	renderPage(w, chatTemplate, chatData{Transcript: transcript})
}

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	message, err := chatMessage(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	err = s.detector.Assistant().Send(r.Context(), message)
	if errors.Is(err, assistant.ErrEmptyMessage) {
		if wantsJSON(r) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		http.Redirect(w, r, "/chat", http.StatusSeeOther)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, s.detector.Assistant().Transcript())
		return
	}
	http.Redirect(w, r, "/chat", http.StatusSeeOther)
}

func chatMessage(r *http.Request) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("invalid chat request: %w", err)
		}
		return body.Message, nil
	}
	return r.FormValue("message"), nil
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	names, err := s.detector.ListReports(r.Context())
	if err != nil {
		logrus.Errorf("Failed to list reports: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list reports"})
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"reports": names})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	name := "reports/" + mux.Vars(r)["name"]
	data, err := s.detector.RetrieveReport(r.Context(), name)
	if err != nil {
		logrus.Debugf("Report %s not available: %v", name, err)
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	name := "reports/" + mux.Vars(r)["name"]
	if err := s.detector.DeleteReport(r.Context(), name); err != nil {
		logrus.Errorf("Failed to delete report %s: %v", name, err)
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respond answers a successful page action: the JSON status for API
// clients, a redirect back to the page for browsers.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, c *workflow.Controller, notice string) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, s.status(c))
		return
	}
	redirectToPage(w, r, c.Policy(), "notice", notice)
}

// fail shows the blocking alert for err
func (s *Server) fail(w http.ResponseWriter, r *http.Request, c *workflow.Controller, err error) {
	alert := c.Alert(err)
	if errors.Is(err, detector.ErrNoShareTarget) || errors.Is(err, detector.ErrNoResult) {
		alert = err.Error()
	}

	if wantsJSON(r) {
		writeJSON(w, statusFor(err), map[string]string{"error": alert})
		return
	}
	redirectToPage(w, r, c.Policy(), "alert", alert)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrInputMissing), errors.Is(err, workflow.ErrWrongInputKind):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrAnalysisInProgress), errors.Is(err, workflow.ErrAlreadyAnalyzed), errors.Is(err, detector.ErrNoResult):
		return http.StatusConflict
	case errors.Is(err, analysis.ErrBackend):
		return http.StatusBadGateway
	case errors.Is(err, analysis.ErrUnavailable), errors.Is(err, detector.ErrNoShareTarget):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func redirectToPage(w http.ResponseWriter, r *http.Request, p policy.Policy, key, value string) {
	target := p.Path
	if value != "" {
		target += "?" + url.Values{key: {value}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to write response: %v", err)
	}
}
