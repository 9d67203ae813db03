package notifications

import "github.com/deepfake-detector/detector-console/internal/models"

// NotificationInterface defines the contract for sharing reports and digests
type NotificationInterface interface {
	SendReport(report *models.ForensicReport) error
	SendDigest(digest *models.HistoryDigest) error
}
