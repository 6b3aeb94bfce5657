package verification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/verihire/verihire-backend/internal/domain/call"
	"github.com/verihire/verihire-backend/internal/domain/evidence"
	"github.com/verihire/verihire-backend/internal/domain/verification"
)

// Store persists session state. The orchestrator treats it as providing
// at-least-once write semantics per update; persistence errors are logged
// and do not fail the worker.
type Store interface {
	SaveSession(ctx context.Context, session *verification.Session) error
	SaveProgress(ctx context.Context, sessionID uuid.UUID, progress verification.Progress) error
	SaveReport(ctx context.Context, sessionID uuid.UUID, report *verification.Report) error
	LoadSession(ctx context.Context, sessionID uuid.UUID) (*verification.Session, error)
}

// GithubProvider fetches corroborating code-hosting evidence. A provider
// error maps to the explicit unavailable marker, never to fraud.
type GithubProvider interface {
	FetchProfile(ctx context.Context, username string) (evidence.GithubEvidence, error)
}

// CallProvider initiates outbound verification conversations. The returned
// conversation id feeds the call completion monitor.
type CallProvider interface {
	InitiateCall(ctx context.Context, toNumber, purpose, prompt string) (string, error)
}

// CallWaiter blocks until a conversation reaches a terminal state or a
// timeout fires. Satisfied by callmonitor.Monitor.
type CallWaiter interface {
	WaitForCompletion(ctx context.Context, conversationID, participantRef string, maxWait, pollInterval time.Duration) (*call.Transcript, error)
}

// EmailSender delivers the reference questionnaire over email.
type EmailSender interface {
	SendReferenceEmail(ctx context.Context, to, referenceName, candidateName string) (string, error)
}

// TranscriptAnalyzer extracts structured evidence from raw call transcripts.
// Backed by an LLM collaborator; prompt design is outside this package.
type TranscriptAnalyzer interface {
	ParseReferenceResponse(ctx context.Context, transcript string) (evidence.ReferenceResponse, error)
	ParseEmploymentVerification(ctx context.Context, transcript, company, title string) (verification.EmploymentVerification, error)
}

// EmployerDirectory resolves a claimed employer to an HR verification line.
type EmployerDirectory interface {
	LookupHRLine(ctx context.Context, company string) (string, error)
}

// ReferenceContact is a contact supplied by the candidate for reference
// checks. Phone is preferred; email is the fallback channel.
type ReferenceContact struct {
	Name         string `json:"name" validate:"required"`
	Company      string `json:"company"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
}
