// Package status tracks where each transcript is in the processing
// lifecycle and refuses transitions the lifecycle does not allow.
package status

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/synaptica-ai/clinextract/pkg/clinical"
)

var (
	ErrNotFound          = errors.New("transcript status not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Entry is the stored status of one transcript.
type Entry struct {
	TranscriptID string                    `json:"transcript_id"`
	Status       clinical.ProcessingStatus `json:"status"`
	Message      string                    `json:"message,omitempty"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

type Tracker interface {
	Get(ctx context.Context, transcriptID string) (Entry, error)
	// Transition moves a transcript to the given status. A transcript with
	// no entry is treated as pending.
	Transition(ctx context.Context, transcriptID string, to clinical.ProcessingStatus, message string) (Entry, error)
	// Record stores a status reported by the service that owns that stage,
	// without checking the lifecycle.
	Record(ctx context.Context, transcriptID string, status clinical.ProcessingStatus, message string) (Entry, error)
	// Reclaim renews an extracting claim last updated before staleBefore.
	// Any other entry, including a claim renewed since, is
	// ErrInvalidTransition.
	Reclaim(ctx context.Context, transcriptID string, staleBefore time.Time, message string) (Entry, error)
}

func transitionError(from, to clinical.ProcessingStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

func checkReclaim(current Entry, staleBefore time.Time) error {
	if current.Status != clinical.StatusExtracting {
		return transitionError(current.Status, clinical.StatusExtracting)
	}
	if !current.UpdatedAt.Before(staleBefore) {
		return fmt.Errorf("%w: claim renewed at %s", ErrInvalidTransition, current.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

// MemoryTracker keeps statuses in process memory.
type MemoryTracker struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		entries: make(map[string]Entry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryTracker) Get(_ context.Context, transcriptID string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[transcriptID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

func (m *MemoryTracker) Transition(_ context.Context, transcriptID string, to clinical.ProcessingStatus, message string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := clinical.StatusPending
	if entry, ok := m.entries[transcriptID]; ok {
		from = entry.Status
	}
	if !clinical.CanTransition(from, to) {
		return Entry{}, transitionError(from, to)
	}

	entry := Entry{TranscriptID: transcriptID, Status: to, Message: message, UpdatedAt: m.now()}
	m.entries[transcriptID] = entry
	return entry, nil
}

func (m *MemoryTracker) Record(_ context.Context, transcriptID string, status clinical.ProcessingStatus, message string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := Entry{TranscriptID: transcriptID, Status: status, Message: message, UpdatedAt: m.now()}
	m.entries[transcriptID] = entry
	return entry, nil
}

func (m *MemoryTracker) Reclaim(_ context.Context, transcriptID string, staleBefore time.Time, message string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.entries[transcriptID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if err := checkReclaim(current, staleBefore); err != nil {
		return Entry{}, err
	}
	entry := Entry{TranscriptID: transcriptID, Status: clinical.StatusExtracting, Message: message, UpdatedAt: m.now()}
	m.entries[transcriptID] = entry
	return entry, nil
}
