package history

import (
	"sync"

	"github.com/deepfake-detector/detector-console/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultCapacity is the number of analyses kept when no capacity is configured
const DefaultCapacity = 20

// Recorder keeps the most recent completed analyses in a fixed-size ring.
// Entries live only as long as the process.
type Recorder struct {
	mu    sync.RWMutex
	ring  []models.HistoryEntry
	head  int // slot the next entry is written to
	count int
}

// NewRecorder creates a recorder holding at most capacity entries
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{ring: make([]models.HistoryEntry, capacity)}
}

// Record adds an entry in front of the others, evicting the oldest when full.
// Entries are not deduplicated.
func (r *Recorder) Record(entry models.HistoryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == len(r.ring) {
		logrus.Debugf("History full, evicting %s", r.ring[r.head].Name)
	} else {
		r.count++
	}
	r.ring[r.head] = entry
	r.head = (r.head + 1) % len(r.ring)
}

// Entries returns the recorded analyses, most recent first
func (r *Recorder) Entries() []models.HistoryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]models.HistoryEntry, 0, r.count)
	for i := 1; i <= r.count; i++ {
		idx := (r.head - i + len(r.ring)) % len(r.ring)
		entries = append(entries, r.ring[idx])
	}
	return entries
}

// Len returns the number of stored entries
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Capacity returns the maximum number of stored entries
func (r *Recorder) Capacity() int {
	return len(r.ring)
}
