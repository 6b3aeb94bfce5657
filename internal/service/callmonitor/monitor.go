package callmonitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/verihire/verihire-backend/internal/domain/call"
	"github.com/verihire/verihire-backend/internal/domain/errors"
)

// DefaultStuckInitiatedThreshold is how long a conversation may sit in the
// "initiated" state before the wait is abandoned, independent of the overall
// wait budget. A provider that never picks up the call tends to stall here.
const DefaultStuckInitiatedThreshold = 60 * time.Second

// StatusSnapshot is the provider's current view of a conversation.
type StatusSnapshot struct {
	Status     call.Status
	Transcript string
	StartTime  time.Time
	EndTime    *time.Time
}

// StatusProvider exposes the external conversation resource.
type StatusProvider interface {
	GetStatus(ctx context.Context, conversationID string) (*StatusSnapshot, error)
}

// Monitor polls a single call resource until it reaches a terminal state or a
// timeout fires. The monitor never regresses a terminal status it has seen.
type Monitor struct {
	provider       StatusProvider
	logger         *slog.Logger
	stuckThreshold time.Duration
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithStuckInitiatedThreshold overrides the stuck-initiated threshold.
// Used by tests to avoid minute-long waits.
func WithStuckInitiatedThreshold(d time.Duration) Option {
	return func(m *Monitor) { m.stuckThreshold = d }
}

// New creates a call completion monitor.
func New(provider StatusProvider, logger *slog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		provider:       provider,
		logger:         logger,
		stuckThreshold: DefaultStuckInitiatedThreshold,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WaitForCompletion polls the conversation every pollInterval until it
// completes, fails, or a timeout fires.
//
// Two distinct timeouts apply: the stuck-initiated threshold fires first when
// the status has never left "initiated", and the overall maxWait bounds the
// whole wait. Transient provider fetch errors are logged and retried inside
// the same budget rather than aborting the wait.
func (m *Monitor) WaitForCompletion(ctx context.Context, conversationID, participantRef string, maxWait, pollInterval time.Duration) (*call.Transcript, error) {
	if pollInterval <= 0 {
		return nil, errors.NewValidationError("INVALID_POLL_INTERVAL", "poll interval must be positive")
	}

	log := m.logger.With(
		slog.String("conversation_id", conversationID),
		slog.String("participant", participantRef),
	)

	start := time.Now()
	deadline := start.Add(maxWait)
	sawInitiated := false
	leftInitiated := false

	for {
		snapshot, err := m.provider.GetStatus(ctx, conversationID)
		if err != nil {
			log.Warn("transient status fetch error, retrying", slog.Any("error", err))
		} else {
			if snapshot.Status == call.StatusInitiated {
				sawInitiated = true
			} else {
				leftInitiated = true
			}

			switch snapshot.Status {
			case call.StatusCompleted:
				if snapshot.Transcript == "" {
					// Completed without a transcript violates the provider
					// contract; the caller must treat the check as failed.
					return nil, errors.NewExternalError("call provider",
						fmt.Sprintf("conversation %s completed with an empty transcript", conversationID))
				}
				endedAt := time.Now()
				if snapshot.EndTime != nil {
					endedAt = *snapshot.EndTime
				}
				return &call.Transcript{
					ConversationID: conversationID,
					RawTranscript:  snapshot.Transcript,
					Duration:       endedAt.Sub(snapshot.StartTime),
					EndedAt:        endedAt,
				}, nil
			case call.StatusFailed:
				return nil, errors.NewExternalError("call provider",
					fmt.Sprintf("conversation %s reported terminal failure", conversationID))
			case call.StatusTimedOut:
				return nil, errors.NewTimeoutError("CALL_PROVIDER_TIMEOUT",
					fmt.Sprintf("conversation %s timed out on the provider side", conversationID))
			}
		}

		now := time.Now()

		// Stuck-initiated fires before the overall timeout, but only once a
		// successful poll has actually seen the initiated state; a stream of
		// fetch errors falls through to the overall timeout instead.
		if sawInitiated && !leftInitiated && now.Sub(start) > m.stuckThreshold {
			return nil, errors.NewTimeoutError("CALL_STUCK_INITIATED",
				fmt.Sprintf("conversation %s stuck in state \"initiated\" for over %s", conversationID, m.stuckThreshold))
		}

		if now.After(deadline) {
			return nil, errors.NewTimeoutError("CALL_WAIT_TIMEOUT",
				fmt.Sprintf("conversation %s did not reach a terminal state within %s", conversationID, maxWait))
		}

		if err := sleep(ctx, pollInterval); err != nil {
			return nil, err
		}
	}
}

// sleep waits for d or until the context ends, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.NewTimeoutError("CALL_WAIT_CANCELED", "wait canceled").WithCause(ctx.Err())
	case <-timer.C:
		return nil
	}
}
