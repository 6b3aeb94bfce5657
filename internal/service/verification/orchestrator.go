package verification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/verihire/verihire-backend/internal/domain/call"
	"github.com/verihire/verihire-backend/internal/domain/candidate"
	"github.com/verihire/verihire-backend/internal/domain/errors"
	"github.com/verihire/verihire-backend/internal/domain/evidence"
	"github.com/verihire/verihire-backend/internal/domain/verification"
	"github.com/verihire/verihire-backend/internal/infrastructure/metrics"
	"github.com/verihire/verihire-backend/internal/service/fraud"
)

// Config bounds the orchestrator's external waits.
type Config struct {
	MaxCallWait          time.Duration
	PollInterval         time.Duration
	WorkerTimeout        time.Duration
	ReferenceParallelism int
}

// DefaultConfig returns the production wait bounds.
func DefaultConfig() Config {
	return Config{
		MaxCallWait:          120 * time.Second,
		PollInterval:         5 * time.Second,
		WorkerTimeout:        15 * time.Minute,
		ReferenceParallelism: 2,
	}
}

// Orchestrator owns the verification session lifecycle. Each started session
// is driven by exactly one worker goroutine; a second start is rejected as a
// conflict, never queued silently.
type Orchestrator struct {
	store     Store
	github    GithubProvider
	calls     CallProvider
	waiter    CallWaiter
	email     EmailSender
	analyzer  TranscriptAnalyzer
	directory EmployerDirectory
	engine    *fraud.Engine
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
	cfg       Config

	mu       sync.RWMutex
	sessions map[uuid.UUID]*sessionState
}

// sessionState pairs a session with its start-request contacts. The state
// mutex serializes the owning worker's mutations against status reads.
type sessionState struct {
	mu       sync.Mutex
	session  *verification.Session
	contacts []ReferenceContact
}

// NewOrchestrator wires the orchestrator with its collaborators. metrics may
// be nil in tests.
func NewOrchestrator(
	store Store,
	github GithubProvider,
	calls CallProvider,
	waiter CallWaiter,
	email EmailSender,
	analyzer TranscriptAnalyzer,
	directory EmployerDirectory,
	engine *fraud.Engine,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg Config,
) *Orchestrator {
	return &Orchestrator{
		store:     store,
		github:    github,
		calls:     calls,
		waiter:    waiter,
		email:     email,
		analyzer:  analyzer,
		directory: directory,
		engine:    engine,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("verihire.verification"),
		cfg:       cfg,
		sessions:  make(map[uuid.UUID]*sessionState),
	}
}

// CreateSession registers a new session in the CREATED stage.
func (o *Orchestrator) CreateSession(ctx context.Context, claim *candidate.Claim, contacts []ReferenceContact) (uuid.UUID, error) {
	if claim == nil {
		return uuid.Nil, errors.NewValidationError("INVALID_CLAIM", "claim cannot be nil")
	}

	session := verification.NewSession(*claim)
	session.RecordActivity("stage_changed", "", "session created")

	if err := o.store.SaveSession(ctx, session); err != nil {
		return uuid.Nil, errors.NewInternalError("failed to persist session").WithCause(err)
	}

	o.mu.Lock()
	o.sessions[session.ID] = &sessionState{session: session, contacts: contacts}
	o.mu.Unlock()

	if o.metrics != nil {
		o.metrics.SessionsCreated.Inc()
	}
	return session.ID, nil
}

// Start transitions a session to IN_PROGRESS and launches its worker. The
// transition is guarded: any stage other than CREATED is a conflict and no
// second worker is created.
func (o *Orchestrator) Start(ctx context.Context, sessionID uuid.UUID) error {
	state, err := o.lookup(sessionID)
	if err != nil {
		return err
	}

	state.mu.Lock()
	if state.session.Stage != verification.StageCreated {
		state.mu.Unlock()
		return errors.NewConflictError("Session has already been started").WithDetails(map[string]interface{}{
			"session_id": sessionID.String(),
			"stage":      string(state.session.Stage),
		})
	}

	now := time.Now()
	state.session.Stage = verification.StageInProgress
	state.session.StartedAt = &now
	state.session.Progress = verification.Progress{
		EmploymentVerificationsTotal: len(state.session.Claim.EmploymentHistory),
		ReferenceChecksTotal:         len(state.contacts),
	}
	state.session.RecordActivity("stage_changed", "", "verification started")
	state.mu.Unlock()

	o.persistSession(state)
	if o.metrics != nil {
		o.metrics.SessionsStarted.Inc()
	}

	// The worker outlives the triggering request; its context is bounded so
	// no wait can block forever.
	workerCtx, cancel := context.WithTimeout(context.Background(), o.cfg.WorkerTimeout)
	go func() {
		defer cancel()
		o.run(workerCtx, state)
	}()

	return nil
}

// GetStatus returns a snapshot of the session's observable state.
func (o *Orchestrator) GetStatus(ctx context.Context, sessionID uuid.UUID) (*verification.Session, error) {
	state, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return snapshot(state.session), nil
}

// GetReport returns the final report, or a conflict while the session has
// not completed.
func (o *Orchestrator) GetReport(ctx context.Context, sessionID uuid.UUID) (*verification.Report, error) {
	state, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.session.Stage != verification.StageCompleted || state.session.Report == nil {
		return nil, errors.NewConflictError("Verification report is not ready").WithDetails(map[string]interface{}{
			"stage": string(state.session.Stage),
		})
	}
	report := *state.session.Report
	return &report, nil
}

func (o *Orchestrator) lookup(sessionID uuid.UUID) (*sessionState, error) {
	o.mu.RLock()
	state, ok := o.sessions[sessionID]
	o.mu.RUnlock()
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	return state, nil
}

// run drives every sub-check for one session, then produces the final report.
// Per-check failures become recorded activities; only an escaped panic or a
// missing required collaborator fails the whole session.
func (o *Orchestrator) run(ctx context.Context, state *sessionState) {
	ctx, span := o.tracer.Start(ctx, "verification.session",
		trace.WithAttributes(attribute.String("session.id", state.session.ID.String())))
	defer span.End()

	log := o.logger.With(slog.String("session_id", state.session.ID.String()))

	defer func() {
		if r := recover(); r != nil {
			log.Error("verification worker panicked", slog.Any("panic", r))
			o.fail(state, fmt.Sprintf("worker panic: %v", r))
		}
	}()

	switch {
	case o.calls == nil:
		o.fail(state, "call provider is not configured")
		return
	case o.waiter == nil:
		o.fail(state, "call completion monitor is not configured")
		return
	case o.analyzer == nil:
		o.fail(state, "transcript analyzer is not configured")
		return
	}

	o.runTechnicalAnalysis(ctx, state, log)
	o.runEmploymentVerifications(ctx, state, log)
	o.runReferenceChecks(ctx, state, log)
	o.complete(state, log)
}

func (o *Orchestrator) runTechnicalAnalysis(ctx context.Context, state *sessionState, log *slog.Logger) {
	ctx, span := o.tracer.Start(ctx, "verification.technical_analysis")
	defer span.End()

	username := state.session.Claim.GithubUsername

	o.recordActivity(state, "check_started", "technical_analysis", "fetching code-hosting profile")

	if username == "" || o.github == nil {
		o.updateProgress(state, func(p *verification.Progress) { p.TechnicalAnalysisComplete = true })
		o.recordActivity(state, "check_completed", "technical_analysis", "no code-hosting profile supplied")
		return
	}

	profile, err := o.github.FetchProfile(ctx, username)
	if err != nil {
		// Evidence absence, not fraud: keep the unavailable marker.
		log.Warn("github profile unavailable", slog.String("username", username), slog.Any("error", err))
		o.recordActivity(state, "check_failed", "technical_analysis", "code-hosting profile unavailable")
		o.observeCheck("technical_analysis", "unavailable")
	} else {
		state.mu.Lock()
		state.session.Github = profile
		state.mu.Unlock()
		o.recordActivity(state, "check_completed", "technical_analysis",
			fmt.Sprintf("analyzed %d repositories", profile.TotalRepos))
		o.observeCheck("technical_analysis", "ok")
	}

	o.updateProgress(state, func(p *verification.Progress) { p.TechnicalAnalysisComplete = true })
}

func (o *Orchestrator) runEmploymentVerifications(ctx context.Context, state *sessionState, log *slog.Logger) {
	ctx, span := o.tracer.Start(ctx, "verification.employment",
		trace.WithAttributes(attribute.Int("employment.claims", len(state.session.Claim.EmploymentHistory))))
	defer span.End()

	for _, claim := range state.session.Claim.EmploymentHistory {
		o.recordActivity(state, "check_started", "employment_verification",
			fmt.Sprintf("verifying employment at %s", claim.Company))

		result, err := o.verifyEmployment(ctx, state, claim)
		if err != nil {
			log.Warn("employment verification failed",
				slog.String("company", claim.Company), slog.Any("error", err))
			o.recordActivity(state, "check_failed", "employment_verification",
				fmt.Sprintf("could not verify employment at %s: %v", claim.Company, err))
			o.observeCheck("employment_verification", "failed")
		} else {
			state.mu.Lock()
			state.session.Employment = append(state.session.Employment, *result)
			state.mu.Unlock()
			o.recordActivity(state, "check_completed", "employment_verification",
				fmt.Sprintf("employment at %s resolved", claim.Company))
			o.observeCheck("employment_verification", "ok")
		}

		o.updateProgress(state, func(p *verification.Progress) { p.EmploymentVerificationsDone++ })
	}
}

func (o *Orchestrator) verifyEmployment(ctx context.Context, state *sessionState, claim candidate.EmploymentClaim) (*verification.EmploymentVerification, error) {
	if o.directory == nil {
		return nil, fmt.Errorf("no employer directory configured")
	}
	hrLine, err := o.directory.LookupHRLine(ctx, claim.Company)
	if err != nil {
		return nil, fmt.Errorf("looking up HR line: %w", err)
	}

	prompt := fmt.Sprintf("Verify that %s held the title %q at %s.",
		state.session.Claim.Name, claim.Title, claim.Company)
	transcript, err := o.placeCall(ctx, state, hrLine, "employment_verification", prompt, claim.Company)
	if err != nil {
		return nil, err
	}

	result, err := o.analyzer.ParseEmploymentVerification(ctx, transcript.RawTranscript, claim.Company, claim.Title)
	if err != nil {
		return nil, fmt.Errorf("parsing transcript: %w", err)
	}
	result.Transcript = transcript.RawTranscript
	return &result, nil
}

func (o *Orchestrator) runReferenceChecks(ctx context.Context, state *sessionState, log *slog.Logger) {
	ctx, span := o.tracer.Start(ctx, "verification.references",
		trace.WithAttributes(attribute.Int("references.count", len(state.contacts))))
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)
	if o.cfg.ReferenceParallelism > 0 {
		g.SetLimit(o.cfg.ReferenceParallelism)
	}

	for _, contact := range state.contacts {
		g.Go(func() error {
			o.checkReference(gctx, state, log, contact)
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) checkReference(ctx context.Context, state *sessionState, log *slog.Logger, contact ReferenceContact) {
	defer o.updateProgress(state, func(p *verification.Progress) { p.ReferenceChecksDone++ })

	o.recordActivity(state, "check_started", "reference_check",
		fmt.Sprintf("contacting reference %s", contact.Name))

	switch {
	case contact.Phone != "":
		response, err := o.checkReferenceByPhone(ctx, state, contact)
		if err != nil {
			log.Warn("reference call failed", slog.String("reference", contact.Name), slog.Any("error", err))
			o.recordActivity(state, "check_failed", "reference_check",
				fmt.Sprintf("call to %s failed: %v", contact.Name, err))
			o.observeCheck("reference_check", "failed")
			return
		}
		state.mu.Lock()
		state.session.References = append(state.session.References, *response)
		state.mu.Unlock()
		o.recordActivity(state, "check_completed", "reference_check",
			fmt.Sprintf("reference %s responded by phone", contact.Name))
		o.observeCheck("reference_check", "ok")

	case contact.Email != "":
		messageID, err := o.email.SendReferenceEmail(ctx, contact.Email, contact.Name, state.session.Claim.Name)
		if err != nil {
			log.Warn("reference email failed", slog.String("reference", contact.Name), slog.Any("error", err))
			o.recordActivity(state, "check_failed", "reference_check",
				fmt.Sprintf("email to %s failed: %v", contact.Name, err))
			o.observeCheck("reference_check", "failed")
			return
		}
		o.recordActivity(state, "check_completed", "reference_check",
			fmt.Sprintf("questionnaire emailed to %s (message %s)", contact.Name, messageID))
		o.observeCheck("reference_check", "emailed")

	default:
		o.recordActivity(state, "check_failed", "reference_check",
			fmt.Sprintf("reference %s has no phone or email", contact.Name))
		o.observeCheck("reference_check", "unreachable")
	}
}

func (o *Orchestrator) checkReferenceByPhone(ctx context.Context, state *sessionState, contact ReferenceContact) (*evidence.ReferenceResponse, error) {
	prompt := fmt.Sprintf("Reference check for %s; speaking with %s (%s at %s).",
		state.session.Claim.Name, contact.Name, contact.Relationship, contact.Company)
	transcript, err := o.placeCall(ctx, state, contact.Phone, "reference_check", prompt, contact.Name)
	if err != nil {
		return nil, err
	}

	response, err := o.analyzer.ParseReferenceResponse(ctx, transcript.RawTranscript)
	if err != nil {
		return nil, fmt.Errorf("parsing transcript: %w", err)
	}
	response.Channel = "phone"
	if response.Company == "" {
		response.Company = contact.Company
	}
	if response.Relationship == "" {
		response.Relationship = contact.Relationship
	}
	return &response, nil
}

// placeCall runs one outbound conversation end to end: initiate, wait for a
// terminal state, and leave an auditable call record on the session either
// way.
func (o *Orchestrator) placeCall(ctx context.Context, state *sessionState, toNumber, purpose, prompt, participantRef string) (*call.Transcript, error) {
	ctx, span := o.tracer.Start(ctx, "verification.call",
		trace.WithAttributes(attribute.String("call.purpose", purpose)))
	defer span.End()

	conversationID, err := o.calls.InitiateCall(ctx, toNumber, purpose, prompt)
	if err != nil {
		return nil, fmt.Errorf("initiating call: %w", err)
	}
	span.SetAttributes(attribute.String("call.conversation_id", conversationID))

	record, err := call.NewRecord(conversationID, state.session.ID, toNumber, purpose)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	transcript, waitErr := o.waiter.WaitForCompletion(ctx, conversationID, participantRef, o.cfg.MaxCallWait, o.cfg.PollInterval)
	o.observeCallWait(time.Since(start))
	if waitErr != nil {
		if errors.IsType(waitErr, errors.ErrorTypeTimeout) {
			record.Advance(call.StatusTimedOut)
		} else {
			record.Advance(call.StatusFailed)
		}
		o.appendCallRecord(state, record)
		return nil, waitErr
	}

	record.Complete(transcript.RawTranscript)
	o.appendCallRecord(state, record)
	return transcript, nil
}

func (o *Orchestrator) appendCallRecord(state *sessionState, record *call.Record) {
	state.mu.Lock()
	state.session.Calls = append(state.session.Calls, *record)
	state.mu.Unlock()
}

// complete consolidates the gathered evidence into the final report and
// transitions the session to COMPLETED.
func (o *Orchestrator) complete(state *sessionState, log *slog.Logger) {
	state.mu.Lock()
	claim := state.session.Claim
	github := state.session.Github
	references := append([]evidence.ReferenceResponse(nil), state.session.References...)
	state.mu.Unlock()

	report := o.engine.Analyze(&claim, github, references)

	now := time.Now()
	state.mu.Lock()
	state.session.Report = report
	state.session.Progress.FraudFlagCount = len(report.Flags)
	state.session.Progress.Percentage = 100
	state.session.Stage = verification.StageCompleted
	state.session.EndedAt = &now
	state.session.RecordActivity("stage_changed", "", fmt.Sprintf("verification completed: risk %s", report.RiskLevel))
	state.mu.Unlock()

	if err := o.store.SaveReport(context.Background(), state.session.ID, report); err != nil {
		log.Error("failed to persist report", slog.Any("error", err))
	}
	o.persistSession(state)

	if o.metrics != nil {
		o.metrics.SessionsCompleted.WithLabelValues(string(verification.StageCompleted)).Inc()
		o.metrics.ReportRiskLevel.WithLabelValues(string(report.RiskLevel)).Inc()
	}
	log.Info("verification completed", slog.String("risk_level", string(report.RiskLevel)),
		slog.Int("flags", len(report.Flags)))
}

// fail transitions the session to FAILED with the recorded error. A session
// is never left silently stuck in IN_PROGRESS.
func (o *Orchestrator) fail(state *sessionState, message string) {
	now := time.Now()
	state.mu.Lock()
	state.session.Stage = verification.StageFailed
	state.session.Error = message
	state.session.EndedAt = &now
	state.session.RecordActivity("stage_changed", "", "verification failed: "+message)
	state.mu.Unlock()

	o.persistSession(state)
	if o.metrics != nil {
		o.metrics.SessionsCompleted.WithLabelValues(string(verification.StageFailed)).Inc()
	}
}

func (o *Orchestrator) recordActivity(state *sessionState, kind, check, message string) {
	state.mu.Lock()
	state.session.RecordActivity(kind, check, message)
	state.mu.Unlock()
}

// updateProgress applies fn, recomputes the percentage, and persists the
// progress snapshot.
func (o *Orchestrator) updateProgress(state *sessionState, fn func(*verification.Progress)) {
	state.mu.Lock()
	p := &state.session.Progress
	fn(p)

	total := 1 + p.EmploymentVerificationsTotal + p.ReferenceChecksTotal
	done := p.EmploymentVerificationsDone + p.ReferenceChecksDone
	if p.TechnicalAnalysisComplete {
		done++
	}
	p.Percentage = done * 100 / total

	sessionID := state.session.ID
	progress := *p
	state.mu.Unlock()

	if err := o.store.SaveProgress(context.Background(), sessionID, progress); err != nil {
		o.logger.Error("failed to persist progress",
			slog.String("session_id", sessionID.String()), slog.Any("error", err))
	}
}

func (o *Orchestrator) persistSession(state *sessionState) {
	state.mu.Lock()
	copied := snapshot(state.session)
	state.mu.Unlock()

	if err := o.store.SaveSession(context.Background(), copied); err != nil {
		o.logger.Error("failed to persist session",
			slog.String("session_id", copied.ID.String()), slog.Any("error", err))
	}
}

func (o *Orchestrator) observeCheck(check, outcome string) {
	if o.metrics != nil {
		o.metrics.ChecksResolved.WithLabelValues(check, outcome).Inc()
	}
}

func (o *Orchestrator) observeCallWait(d time.Duration) {
	if o.metrics != nil {
		o.metrics.CallWaitDuration.Observe(d.Seconds())
	}
}

// snapshot deep-copies the mutable parts of a session for safe hand-out.
func snapshot(s *verification.Session) *verification.Session {
	copied := *s
	copied.Activities = append([]verification.ActivityEvent(nil), s.Activities...)
	copied.References = append([]evidence.ReferenceResponse(nil), s.References...)
	copied.Employment = append([]verification.EmploymentVerification(nil), s.Employment...)
	copied.Calls = append([]call.Record(nil), s.Calls...)
	if s.Report != nil {
		report := *s.Report
		copied.Report = &report
	}
	return &copied
}
