package call

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record tracks a single outbound verification conversation with an external
// voice provider. The monitor's view of Status only moves forward; a terminal
// status is never regressed.
type Record struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SessionID      uuid.UUID  `json:"session_id"`
	ToNumber       string     `json:"to_number"`
	Purpose        string     `json:"purpose"` // "reference_check", "employment_verification"
	Status         Status     `json:"status"`
	Transcript     *string    `json:"transcript,omitempty"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type Status int

const (
	StatusInitiated Status = iota
	StatusInProgress
	StatusCompleted
	StatusFailed
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusInitiated:
		return "initiated"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimedOut:
		return true
	default:
		return false
	}
}

// ParseStatus maps a provider status string onto the domain status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "initiated", "queued", "registered":
		return StatusInitiated, nil
	case "in_progress", "in-progress", "ongoing":
		return StatusInProgress, nil
	case "completed", "ended", "done":
		return StatusCompleted, nil
	case "failed", "error":
		return StatusFailed, nil
	case "timed_out", "timeout":
		return StatusTimedOut, nil
	default:
		return StatusInitiated, fmt.Errorf("unknown call status %q", s)
	}
}

// NewRecord creates a call record for a freshly initiated conversation.
func NewRecord(conversationID string, sessionID uuid.UUID, toNumber, purpose string) (*Record, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("conversation ID cannot be empty")
	}
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("session ID cannot be nil")
	}
	now := clock.Now()
	return &Record{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SessionID:      sessionID,
		ToNumber:       toNumber,
		Purpose:        purpose,
		Status:         StatusInitiated,
		StartTime:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Advance moves the record to a later status. Terminal states stick and
// backwards transitions are ignored.
func (r *Record) Advance(status Status) {
	if r.Status.IsTerminal() || status <= r.Status {
		return
	}
	r.Status = status
	r.UpdatedAt = clock.Now()
	if status.IsTerminal() {
		now := clock.Now()
		r.EndTime = &now
	}
}

// Complete marks the record completed with its transcript.
func (r *Record) Complete(transcript string) {
	if r.Status.IsTerminal() {
		return
	}
	r.Transcript = &transcript
	r.Advance(StatusCompleted)
}

// Transcript payload returned by a completed conversation.
type Transcript struct {
	ConversationID string        `json:"conversation_id"`
	RawTranscript  string        `json:"raw_transcript"`
	Duration       time.Duration `json:"duration"`
	EndedAt        time.Time     `json:"ended_at"`
}
