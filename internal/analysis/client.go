package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/deepfake-detector/detector-console/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUnavailable covers transport failures and bodies that cannot be parsed
	ErrUnavailable = errors.New("backend not responding")
	// ErrBackend is wrapped by StatusError for non-2xx responses
	ErrBackend = errors.New("backend error")
)

// StatusError is returned when the Analysis Service answers with a non-2xx status
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Endpoint, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return ErrBackend
}

// Client talks to the remote Analysis Service over HTTP+JSON
type Client struct {
	baseURL string
	client  *resty.Client
}

// Ensure Client implements the service contracts
var (
	_ Analyzer = (*Client)(nil)
	_ ChatAPI  = (*Client)(nil)
	_ Backend  = (*Client)(nil)
)

type resultPayload struct {
	Confidence *float64        `json:"confidence"`
	Verdict    string          `json:"verdict"`
	Reasons    []reasonPayload `json:"reasons"`
}

type reasonPayload struct {
	Title       string  `json:"title"`
	Score       float64 `json:"score"`
	Description string  `json:"description"`
}

type linkRequest struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// NewClient creates a new Analysis Service client. A zero timeout leaves
// requests bounded only by their context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("User-Agent", "Deepfake-Detector-Console/1.0"),
	}
}

// BaseURL returns the service root the client was created with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Endpoint returns the path serving a content type
func Endpoint(ct models.ContentType) string {
	return "/analyze/" + string(ct)
}

// Analyze submits a file or URL and parses the verdict
func (c *Client) Analyze(ctx context.Context, req *models.AnalysisRequest) (*models.AnalysisResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	endpoint := Endpoint(req.Type)
	request := c.client.R().SetContext(ctx)

	if req.Type.IsFile() {
		contentType := req.File.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		request.SetMultipartField("file", req.File.Name, contentType, bytes.NewReader(req.File.Data))
	} else {
		request.
			SetHeader("Content-Type", "application/json").
			SetBody(linkRequest{URL: req.URL})
	}

	logrus.Debugf("Submitting %s for analysis to %s", req.Name(), endpoint)

	body, err := c.post(request, endpoint)
	if err != nil {
		return nil, err
	}

	var payload resultPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s returned an unreadable body: %v", ErrUnavailable, endpoint, err)
	}

	if payload.Confidence == nil {
		return nil, fmt.Errorf("%w: %s returned no confidence", ErrUnavailable, endpoint)
	}

	result := &models.AnalysisResult{
		Confidence: *payload.Confidence,
		Verdict:    payload.Verdict,
		Reasons:    make([]models.Reason, 0, len(payload.Reasons)),
	}
	for _, r := range payload.Reasons {
		result.Reasons = append(result.Reasons, models.Reason{
			Title:       r.Title,
			Score:       r.Score,
			Description: r.Description,
		})
	}

	return result, nil
}

// Chat sends one assistant message and returns the reply text
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	request := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(chatRequest{Message: message})

	body, err := c.post(request, "/analyze/chat")
	if err != nil {
		return "", err
	}

	var reply chatResponse
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", fmt.Errorf("%w: chat returned an unreadable body: %v", ErrUnavailable, err)
	}

	return reply.Response, nil
}

// Ping checks that the service answers HTTP at all. The service exposes no
// health route, so any status code counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.client.R().SetContext(ctx).Get("/")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	logrus.Debugf("Analysis Service answered health probe with status %d", resp.StatusCode())
	return nil
}

func (c *Client) post(request *resty.Request, endpoint string) ([]byte, error) {
	resp, err := request.Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: POST %s: %v", ErrUnavailable, endpoint, err)
	}

	if !resp.IsSuccess() {
		return nil, &StatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode(),
			Body:       string(resp.Body()),
		}
	}

	return resp.Body(), nil
}
