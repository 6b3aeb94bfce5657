package verification

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/verihire/verihire-backend/internal/domain/call"
	"github.com/verihire/verihire-backend/internal/domain/candidate"
	domainerrors "github.com/verihire/verihire-backend/internal/domain/errors"
	"github.com/verihire/verihire-backend/internal/domain/evidence"
	"github.com/verihire/verihire-backend/internal/domain/verification"
	"github.com/verihire/verihire-backend/internal/service/fraud"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxCallWait = 100 * time.Millisecond
	cfg.PollInterval = time.Millisecond
	cfg.WorkerTimeout = 5 * time.Second
	return cfg
}

func monthPtr(s string) *candidate.Month {
	m := candidate.MustParseMonth(s)
	return &m
}

func testClaim(t *testing.T) *candidate.Claim {
	t.Helper()
	claim, err := candidate.NewClaim("Jordan Reyes",
		[]string{"Python", "Go"},
		[]candidate.EmploymentClaim{
			{Company: "Acme", Title: "Engineer", StartDate: candidate.MustParseMonth("2019-01"), EndDate: monthPtr("2021-06")},
		})
	require.NoError(t, err)
	claim.GithubUsername = "jreyes"
	return claim
}

func newTestOrchestrator(store *mockStore, gh *mockGithub, cp *mockCallProvider, w *mockWaiter, em *mockEmail, an *mockAnalyzer, dir *mockDirectory) *Orchestrator {
	return NewOrchestrator(store, gh, cp, w, em, an, dir,
		fraud.NewEngine(fraud.DefaultConfig()), nil,
		slog.New(slog.DiscardHandler), testConfig())
}

func permissiveStore() *mockStore {
	store := &mockStore{}
	store.On("SaveSession", mock.Anything, mock.Anything).Return(nil)
	store.On("SaveProgress", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("SaveReport", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	return store
}

func waitForTerminal(t *testing.T, o *Orchestrator, id uuid.UUID) *verification.Session {
	t.Helper()
	var session *verification.Session
	require.Eventually(t, func() bool {
		s, err := o.GetStatus(context.Background(), id)
		if err != nil {
			return false
		}
		session = s
		return s.Stage.IsTerminal()
	}, 3*time.Second, 5*time.Millisecond)
	return session
}

func TestOrchestrator_CompletesSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := permissiveStore()
	gh := &mockGithub{}
	cp := &mockCallProvider{}
	w := &mockWaiter{}
	em := &mockEmail{}
	an := &mockAnalyzer{}
	dir := &mockDirectory{}

	gh.On("FetchProfile", mock.Anything, "jreyes").Return(evidence.GithubEvidence{
		Available:  true,
		Languages:  map[string]int{"Go": 4},
		TotalRepos: 6,
	}, nil)

	dir.On("LookupHRLine", mock.Anything, "Acme").Return("+15550100", nil)
	cp.On("InitiateCall", mock.Anything, "+15550100", "employment_verification", mock.Anything).Return("conv-emp", nil)
	cp.On("InitiateCall", mock.Anything, "+15550101", "reference_check", mock.Anything).Return("conv-ref", nil)

	w.On("WaitForCompletion", mock.Anything, "conv-emp", mock.Anything, mock.Anything, mock.Anything).
		Return(&call.Transcript{ConversationID: "conv-emp", RawTranscript: "Confirmed employment."}, nil)
	w.On("WaitForCompletion", mock.Anything, "conv-ref", mock.Anything, mock.Anything, mock.Anything).
		Return(&call.Transcript{ConversationID: "conv-ref", RawTranscript: "Great colleague."}, nil)

	an.On("ParseEmploymentVerification", mock.Anything, "Confirmed employment.", "Acme", "Engineer").
		Return(verification.EmploymentVerification{Company: "Acme", Title: "Engineer", Confirmed: true}, nil)
	an.On("ParseReferenceResponse", mock.Anything, "Great colleague.").
		Return(evidence.ReferenceResponse{PerformanceRating: 9, WouldRehire: true}, nil)

	em.On("SendReferenceEmail", mock.Anything, "sam@example.com", "Sam Lee", "Jordan Reyes").
		Return("msg-1", nil)

	o := newTestOrchestrator(store, gh, cp, w, em, an, dir)

	id, err := o.CreateSession(ctx, testClaim(t), []ReferenceContact{
		{Name: "Pat Kim", Phone: "+15550101", Company: "Acme", Relationship: "manager"},
		{Name: "Sam Lee", Email: "sam@example.com"},
	})
	require.NoError(t, err)

	created, err := o.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, verification.StageCreated, created.Stage)

	require.NoError(t, o.Start(ctx, id))
	session := waitForTerminal(t, o, id)

	assert.Equal(t, verification.StageCompleted, session.Stage)
	assert.Equal(t, 100, session.Progress.Percentage)
	assert.Equal(t, 1, session.Progress.EmploymentVerificationsDone)
	assert.Equal(t, 2, session.Progress.ReferenceChecksDone)
	assert.True(t, session.Progress.TechnicalAnalysisComplete)
	require.NotNil(t, session.Report)

	report, err := o.GetReport(ctx, id)
	require.NoError(t, err)
	// Go is backed by evidence, Python is not: one medium flag, green verdict.
	assert.Equal(t, verification.RiskGreen, report.RiskLevel)
	assert.Len(t, report.Flags, 1)
	assert.Equal(t, "unverified_skill", report.Flags[0].Type)

	// Both phone conversations left completed call records; the emailed
	// reference did not place a call.
	require.Len(t, session.Calls, 2)
	for _, record := range session.Calls {
		assert.Equal(t, call.StatusCompleted, record.Status)
		assert.Equal(t, id, record.SessionID)
	}
}

func TestOrchestrator_DoubleStartIsConflict(t *testing.T) {
	ctx := context.Background()
	store := permissiveStore()
	gh := &mockGithub{}
	gh.On("FetchProfile", mock.Anything, mock.Anything).Return(evidence.Unavailable("jreyes"), fmt.Errorf("rate limited"))
	cp := &mockCallProvider{}
	w := &mockWaiter{}
	dir := &mockDirectory{}
	dir.On("LookupHRLine", mock.Anything, mock.Anything).Return("", fmt.Errorf("unknown company"))
	an := &mockAnalyzer{}

	o := newTestOrchestrator(store, gh, cp, w, &mockEmail{}, an, dir)

	id, err := o.CreateSession(ctx, testClaim(t), nil)
	require.NoError(t, err)

	require.NoError(t, o.Start(ctx, id))
	err = o.Start(ctx, id)
	require.Error(t, err)
	assert.True(t, domainerrors.IsType(err, domainerrors.ErrorTypeConflict))

	session := waitForTerminal(t, o, id)
	// One worker only: the single employment check resolved exactly once.
	assert.Equal(t, 1, session.Progress.EmploymentVerificationsDone)

	// A completed session rejects further starts the same way.
	err = o.Start(ctx, id)
	assert.True(t, domainerrors.IsType(err, domainerrors.ErrorTypeConflict))
}

func TestOrchestrator_CallTimeoutIsFailedSubCheckNotFatal(t *testing.T) {
	ctx := context.Background()
	store := permissiveStore()
	gh := &mockGithub{}
	gh.On("FetchProfile", mock.Anything, mock.Anything).Return(evidence.GithubEvidence{Available: true}, nil)
	cp := &mockCallProvider{}
	w := &mockWaiter{}
	dir := &mockDirectory{}
	an := &mockAnalyzer{}

	dir.On("LookupHRLine", mock.Anything, "Acme").Return("+15550100", nil)
	cp.On("InitiateCall", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("conv-1", nil)
	w.On("WaitForCompletion", mock.Anything, "conv-1", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domainerrors.NewTimeoutError("CALL_STUCK_INITIATED", "conversation conv-1 stuck in state \"initiated\""))

	o := newTestOrchestrator(store, gh, cp, w, &mockEmail{}, an, dir)

	id, err := o.CreateSession(ctx, testClaim(t), nil)
	require.NoError(t, err)
	require.NoError(t, o.Start(ctx, id))

	session := waitForTerminal(t, o, id)

	assert.Equal(t, verification.StageCompleted, session.Stage)
	assert.Empty(t, session.Employment)

	// The abandoned conversation still left an audit record.
	require.Len(t, session.Calls, 1)
	assert.Equal(t, call.StatusTimedOut, session.Calls[0].Status)

	var failedChecks int
	for _, a := range session.Activities {
		if a.Kind == "check_failed" && a.Check == "employment_verification" {
			failedChecks++
		}
	}
	assert.Equal(t, 1, failedChecks)
}

func TestOrchestrator_MissingProviderFailsSession(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		calls     CallProvider
		waiter    CallWaiter
		analyzer  TranscriptAnalyzer
		wantError string
	}{
		{
			name:      "missing call provider",
			wantError: "call provider is not configured",
		},
		{
			name:      "missing completion monitor",
			calls:     &mockCallProvider{},
			wantError: "call completion monitor is not configured",
		},
		{
			name:      "missing transcript analyzer",
			calls:     &mockCallProvider{},
			waiter:    &mockWaiter{},
			wantError: "transcript analyzer is not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrchestrator(permissiveStore(), nil, tt.calls, tt.waiter, nil, tt.analyzer, nil,
				fraud.NewEngine(fraud.DefaultConfig()), nil,
				slog.New(slog.DiscardHandler), testConfig())

			id, err := o.CreateSession(ctx, testClaim(t), nil)
			require.NoError(t, err)
			require.NoError(t, o.Start(ctx, id))

			session := waitForTerminal(t, o, id)

			assert.Equal(t, verification.StageFailed, session.Stage)
			assert.Equal(t, tt.wantError, session.Error)
		})
	}
}

func TestOrchestrator_ReportNotReadyWhileInFlight(t *testing.T) {
	ctx := context.Background()
	store := permissiveStore()

	o := newTestOrchestrator(store, &mockGithub{}, &mockCallProvider{}, &mockWaiter{}, &mockEmail{}, &mockAnalyzer{}, &mockDirectory{})

	claim, err := candidate.NewClaim("Jordan Reyes", nil, nil)
	require.NoError(t, err)
	id, err := o.CreateSession(ctx, claim, nil)
	require.NoError(t, err)

	_, err = o.GetReport(ctx, id)
	require.Error(t, err)
	assert.True(t, domainerrors.IsType(err, domainerrors.ErrorTypeConflict))
}

func TestOrchestrator_UnknownSessionIsNotFound(t *testing.T) {
	o := newTestOrchestrator(permissiveStore(), &mockGithub{}, &mockCallProvider{}, &mockWaiter{}, &mockEmail{}, &mockAnalyzer{}, &mockDirectory{})

	_, err := o.GetStatus(context.Background(), uuid.New())
	assert.True(t, domainerrors.IsType(err, domainerrors.ErrorTypeNotFound))

	err = o.Start(context.Background(), uuid.New())
	assert.True(t, domainerrors.IsType(err, domainerrors.ErrorTypeNotFound))
}

func TestOrchestrator_WorkerEmitsPhaseSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	ctx := context.Background()
	o := newTestOrchestrator(permissiveStore(), &mockGithub{}, &mockCallProvider{}, &mockWaiter{}, &mockEmail{}, &mockAnalyzer{}, &mockDirectory{})

	// A claim with no github profile, employment history, or references
	// exercises the worker skeleton without any outbound calls.
	claim, err := candidate.NewClaim("Jordan Reyes", []string{"Go"}, nil)
	require.NoError(t, err)
	id, err := o.CreateSession(ctx, claim, nil)
	require.NoError(t, err)
	require.NoError(t, o.Start(ctx, id))
	waitForTerminal(t, o, id)

	spans := map[string]sdktrace.ReadOnlySpan{}
	for _, span := range recorder.Ended() {
		spans[span.Name()] = span
	}

	session, ok := spans["verification.session"]
	require.True(t, ok, "expected a session span")
	var sessionID string
	for _, attr := range session.Attributes() {
		if attr.Key == "session.id" {
			sessionID = attr.Value.AsString()
		}
	}
	assert.Equal(t, id.String(), sessionID)

	for _, name := range []string{
		"verification.technical_analysis",
		"verification.employment",
		"verification.references",
	} {
		phase, ok := spans[name]
		require.True(t, ok, "expected span %s", name)
		assert.Equal(t, session.SpanContext().SpanID(), phase.Parent().SpanID())
	}
}
