package analysis

import (
	"context"

	"github.com/deepfake-detector/detector-console/internal/models"
)

// Analyzer defines the contract for submitting content to the Analysis Service
type Analyzer interface {
	Analyze(ctx context.Context, req *models.AnalysisRequest) (*models.AnalysisResult, error)
}

// ChatAPI defines the contract for the assistant endpoint.
// An empty reply means the backend answered without a response field.
type ChatAPI interface {
	Chat(ctx context.Context, message string) (string, error)
}

// Backend is the full Analysis Service surface used by the console
type Backend interface {
	Analyzer
	ChatAPI
	Ping(ctx context.Context) error
}
