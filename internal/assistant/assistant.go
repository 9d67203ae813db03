package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/deepfake-detector/detector-console/internal/analysis"
	"github.com/deepfake-detector/detector-console/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Canned assistant lines
const (
	Greeting      = "Hello! I'm your Deepfake Detection Assistant. How can I help you today?"
	FallbackReply = "Sorry, I couldn't process that."
	ConnectError  = "Sorry, I'm having trouble connecting to the server."
)

// ErrEmptyMessage is returned for blank input; nothing is sent
var ErrEmptyMessage = errors.New("message is empty")

// Client keeps the chat transcript and relays messages to the chat endpoint.
// Replies are appended in the order they arrive, which can differ from the
// order the questions were sent when requests overlap.
type Client struct {
	api analysis.ChatAPI
	now func() time.Time

	mu         sync.Mutex
	transcript []models.ChatMessage
	pending    int
}

// NewClient creates an assistant seeded with the greeting
func NewClient(api analysis.ChatAPI) *Client {
	c := &Client{api: api, now: time.Now}
	c.transcript = append(c.transcript, c.message(models.SenderBot, Greeting))
	return c
}

// Send appends the user message, asks the backend, and appends the reply.
// Backend failures are reported in the transcript, not returned.
func (c *Client) Send(ctx context.Context, message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	c.transcript = append(c.transcript, c.message(models.SenderUser, message))
	c.pending++
	c.mu.Unlock()

	reply, err := c.api.Chat(ctx, message)
	switch {
	case err != nil:
		logrus.Errorf("Chat request failed: %v", err)
		reply = ConnectError
	case strings.TrimSpace(reply) == "":
		reply = FallbackReply
	}

	c.mu.Lock()
	c.transcript = append(c.transcript, c.message(models.SenderBot, reply))
	c.pending--
	c.mu.Unlock()

	return nil
}

// Transcript returns a copy of all messages in append order
func (c *Client) Transcript() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ChatMessage(nil), c.transcript...)
}

// Pending returns the number of sends still waiting for a reply
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func (c *Client) message(sender, text string) models.ChatMessage {
	return models.ChatMessage{
		ID:     uuid.New().String(),
		Sender: sender,
		Text:   text,
		Time:   c.now(),
	}
}
