package rest

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verihire/verihire-backend/internal/domain/candidate"
	"github.com/verihire/verihire-backend/internal/domain/verification"
	verifsvc "github.com/verihire/verihire-backend/internal/service/verification"
)

// CreateSessionRequest is the candidate intake payload.
type CreateSessionRequest struct {
	Name              string                      `json:"name" validate:"required"`
	Email             string                      `json:"email" validate:"omitempty,email"`
	GithubUsername    string                      `json:"github_username"`
	Skills            []string                    `json:"skills"`
	EmploymentHistory []EmploymentEntry           `json:"employment_history" validate:"dive"`
	References        []verifsvc.ReferenceContact `json:"references" validate:"dive"`
}

// EmploymentEntry mirrors one claimed position. Dates use "YYYY-MM";
// a missing end_date means the position is current.
type EmploymentEntry struct {
	Company   string  `json:"company" validate:"required"`
	Title     string  `json:"title"`
	StartDate string  `json:"start_date" validate:"required"`
	EndDate   *string `json:"end_date"`
}

// toClaim converts the request into a validated domain claim.
func (r *CreateSessionRequest) toClaim() (*candidate.Claim, error) {
	history := make([]candidate.EmploymentClaim, 0, len(r.EmploymentHistory))
	for i, entry := range r.EmploymentHistory {
		start, err := candidate.ParseMonth(entry.StartDate)
		if err != nil {
			return nil, fmt.Errorf("employment entry %d: %w", i, err)
		}
		claim := candidate.EmploymentClaim{
			Company:   entry.Company,
			Title:     entry.Title,
			StartDate: start,
		}
		if entry.EndDate != nil {
			end, err := candidate.ParseMonth(*entry.EndDate)
			if err != nil {
				return nil, fmt.Errorf("employment entry %d: %w", i, err)
			}
			claim.EndDate = &end
		}
		history = append(history, claim)
	}

	claim, err := candidate.NewClaim(r.Name, r.Skills, history)
	if err != nil {
		return nil, err
	}
	claim.Email = r.Email
	claim.GithubUsername = r.GithubUsername
	return claim, nil
}

// CreateSessionResponse returns the new session's id.
type CreateSessionResponse struct {
	SessionID uuid.UUID `json:"session_id"`
}

// StartSessionResponse acknowledges an accepted start.
type StartSessionResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Stage     string    `json:"stage"`
}

// SessionStatusResponse is the progress snapshot returned while a
// verification runs.
type SessionStatusResponse struct {
	SessionID uuid.UUID                    `json:"session_id"`
	Stage     string                       `json:"stage"`
	Progress  verification.Progress        `json:"progress"`
	Activity  []verification.ActivityEvent `json:"activity,omitempty"`
	Error     string                       `json:"error,omitempty"`
	CreatedAt time.Time                    `json:"created_at"`
	StartedAt *time.Time                   `json:"started_at,omitempty"`
	EndedAt   *time.Time                   `json:"ended_at,omitempty"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
