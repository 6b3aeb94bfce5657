package verification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/verihire/verihire-backend/internal/domain/call"
	"github.com/verihire/verihire-backend/internal/domain/evidence"
	"github.com/verihire/verihire-backend/internal/domain/verification"
)

type mockStore struct{ mock.Mock }

func (m *mockStore) SaveSession(ctx context.Context, session *verification.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *mockStore) SaveProgress(ctx context.Context, sessionID uuid.UUID, progress verification.Progress) error {
	return m.Called(ctx, sessionID, progress).Error(0)
}

func (m *mockStore) SaveReport(ctx context.Context, sessionID uuid.UUID, report *verification.Report) error {
	return m.Called(ctx, sessionID, report).Error(0)
}

func (m *mockStore) LoadSession(ctx context.Context, sessionID uuid.UUID) (*verification.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.Session), args.Error(1)
}

type mockGithub struct{ mock.Mock }

func (m *mockGithub) FetchProfile(ctx context.Context, username string) (evidence.GithubEvidence, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(evidence.GithubEvidence), args.Error(1)
}

type mockCallProvider struct{ mock.Mock }

func (m *mockCallProvider) InitiateCall(ctx context.Context, toNumber, purpose, prompt string) (string, error) {
	args := m.Called(ctx, toNumber, purpose, prompt)
	return args.String(0), args.Error(1)
}

type mockWaiter struct{ mock.Mock }

func (m *mockWaiter) WaitForCompletion(ctx context.Context, conversationID, participantRef string, maxWait, pollInterval time.Duration) (*call.Transcript, error) {
	args := m.Called(ctx, conversationID, participantRef, maxWait, pollInterval)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*call.Transcript), args.Error(1)
}

type mockEmail struct{ mock.Mock }

func (m *mockEmail) SendReferenceEmail(ctx context.Context, to, referenceName, candidateName string) (string, error) {
	args := m.Called(ctx, to, referenceName, candidateName)
	return args.String(0), args.Error(1)
}

type mockAnalyzer struct{ mock.Mock }

func (m *mockAnalyzer) ParseReferenceResponse(ctx context.Context, transcript string) (evidence.ReferenceResponse, error) {
	args := m.Called(ctx, transcript)
	return args.Get(0).(evidence.ReferenceResponse), args.Error(1)
}

func (m *mockAnalyzer) ParseEmploymentVerification(ctx context.Context, transcript, company, title string) (verification.EmploymentVerification, error) {
	args := m.Called(ctx, transcript, company, title)
	return args.Get(0).(verification.EmploymentVerification), args.Error(1)
}

type mockDirectory struct{ mock.Mock }

func (m *mockDirectory) LookupHRLine(ctx context.Context, company string) (string, error) {
	args := m.Called(ctx, company)
	return args.String(0), args.Error(1)
}
