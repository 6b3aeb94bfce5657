package verification

import (
	"time"

	"github.com/google/uuid"

	"github.com/verihire/verihire-backend/internal/domain/call"
	"github.com/verihire/verihire-backend/internal/domain/candidate"
	"github.com/verihire/verihire-backend/internal/domain/evidence"
)

// Stage is the session's lifecycle position.
type Stage string

const (
	StageCreated    Stage = "CREATED"
	StageInProgress Stage = "IN_PROGRESS"
	StageCompleted  Stage = "COMPLETED"
	StageFailed     Stage = "FAILED"
)

// IsTerminal reports whether the stage is final.
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Progress is the externally observable completion state of a session.
type Progress struct {
	Percentage                   int  `json:"percentage"`
	EmploymentVerificationsDone  int  `json:"employment_verifications_done"`
	EmploymentVerificationsTotal int  `json:"employment_verifications_total"`
	ReferenceChecksDone          int  `json:"reference_checks_done"`
	ReferenceChecksTotal         int  `json:"reference_checks_total"`
	TechnicalAnalysisComplete    bool `json:"technical_analysis_complete"`
	FraudFlagCount               int  `json:"fraud_flag_count"`
}

// ActivityEvent is one observable step of a verification worker. Events are
// append-only and ordered by occurrence.
type ActivityEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"` // "check_started", "check_completed", "check_failed", "stage_changed"
	Check     string    `json:"check,omitempty"`
	Message   string    `json:"message"`
}

// EmploymentVerification is the structured outcome of one employment
// verification call.
type EmploymentVerification struct {
	Company    string `json:"company"`
	Title      string `json:"title"`
	Confirmed  bool   `json:"confirmed"`
	Transcript string `json:"transcript,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Session is the unit of work tracking one candidate's end-to-end
// verification. It is mutated only by its single owning worker once started.
type Session struct {
	ID         uuid.UUID       `json:"id"`
	Stage      Stage           `json:"stage"`
	Claim      candidate.Claim `json:"claim"`
	Progress   Progress        `json:"progress"`
	Activities []ActivityEvent `json:"activities"`

	// Accumulated evidence, consolidated before the final analysis.
	Github     evidence.GithubEvidence      `json:"github"`
	References []evidence.ReferenceResponse `json:"references"`
	Employment []EmploymentVerification     `json:"employment"`

	// Audit log of outbound conversations, successful or not.
	Calls []call.Record `json:"calls,omitempty"`

	Report *Report `json:"report,omitempty"`
	Error  string  `json:"error,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// NewSession creates a session in the CREATED stage.
func NewSession(claim candidate.Claim) *Session {
	return &Session{
		ID:        uuid.New(),
		Stage:     StageCreated,
		Claim:     claim,
		Github:    evidence.Unavailable(claim.GithubUsername),
		CreatedAt: time.Now(),
	}
}

// RecordActivity appends an observability event.
func (s *Session) RecordActivity(kind, check, message string) {
	s.Activities = append(s.Activities, ActivityEvent{
		Timestamp: time.Now(),
		Kind:      kind,
		Check:     check,
		Message:   message,
	})
}
