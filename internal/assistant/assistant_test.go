package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/deepfake-detector/detector-console/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockChatAPI is a mock implementation of the chat endpoint
type MockChatAPI struct {
	mock.Mock
}

func (m *MockChatAPI) Chat(ctx context.Context, message string) (string, error) {
	args := m.Called(ctx, message)
	return args.String(0), args.Error(1)
}

// gatedChatAPI answers each message only when its gate is released
type gatedChatAPI struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	arrived chan string
}

func newGatedChatAPI(messages ...string) *gatedChatAPI {
	g := &gatedChatAPI{gates: map[string]chan struct{}{}, arrived: make(chan string, len(messages))}
	for _, m := range messages {
		g.gates[m] = make(chan struct{})
	}
	return g
}

func (g *gatedChatAPI) Chat(ctx context.Context, message string) (string, error) {
	g.mu.Lock()
	gate := g.gates[message]
	g.mu.Unlock()

	g.arrived <- message
	<-gate
	return "reply to " + message, nil
}

func texts(messages []models.ChatMessage) []string {
	var out []string
	for _, m := range messages {
		out = append(out, m.Sender+": "+m.Text)
	}
	return out
}

func TestClient_Greeting(t *testing.T) {
	c := NewClient(&MockChatAPI{})

	transcript := c.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, models.SenderBot, transcript[0].Sender)
	assert.Equal(t, Greeting, transcript[0].Text)
}

func TestClient_BlankMessageNotSent(t *testing.T) {
	api := &MockChatAPI{}
	c := NewClient(api)

	for _, msg := range []string{"", "   ", "\n\t"} {
		assert.ErrorIs(t, c.Send(context.Background(), msg), ErrEmptyMessage)
	}

	assert.Len(t, c.Transcript(), 1)
	api.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestClient_Replies(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		err      error
		expected string
	}{
		{name: "Reply", reply: "A deepfake is synthetic media.", expected: "A deepfake is synthetic media."},
		{name: "Missing reply field", reply: "", expected: FallbackReply},
		{name: "Connection failure", err: errors.New("connection refused"), expected: ConnectError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &MockChatAPI{}
			api.On("Chat", mock.Anything, "what is a deepfake?").Return(tt.reply, tt.err).Once()
			c := NewClient(api)

			require.NoError(t, c.Send(context.Background(), "what is a deepfake?"))

			assert.Equal(t, []string{
				"bot: " + Greeting,
				"user: what is a deepfake?",
				"bot: " + tt.expected,
			}, texts(c.Transcript()))
			assert.Equal(t, 0, c.Pending())
			api.AssertExpectations(t)
		})
	}
}

func TestClient_UserMessageAppendedBeforeReply(t *testing.T) {
	api := newGatedChatAPI("hi")
	c := NewClient(api)

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "hi") }()
	<-api.arrived

	assert.Equal(t, []string{"bot: " + Greeting, "user: hi"}, texts(c.Transcript()))
	assert.Equal(t, 1, c.Pending())

	close(api.gates["hi"])
	require.NoError(t, <-done)
	assert.Len(t, c.Transcript(), 3)
}

func TestClient_RepliesAppendInArrivalOrder(t *testing.T) {
	api := newGatedChatAPI("hi", "bye")
	c := NewClient(api)

	hiDone := make(chan error, 1)
	go func() { hiDone <- c.Send(context.Background(), "hi") }()
	<-api.arrived

	byeDone := make(chan error, 1)
	go func() { byeDone <- c.Send(context.Background(), "bye") }()
	<-api.arrived

	// the "bye" response arrives first
	close(api.gates["bye"])
	require.NoError(t, <-byeDone)
	close(api.gates["hi"])
	require.NoError(t, <-hiDone)

	assert.Equal(t, []string{
		"bot: " + Greeting,
		"user: hi",
		"user: bye",
		"bot: reply to bye",
		"bot: reply to hi",
	}, texts(c.Transcript()))
}
