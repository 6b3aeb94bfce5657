package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/verihire/verihire-backend/internal/domain/candidate"
	domainErrors "github.com/verihire/verihire-backend/internal/domain/errors"
	"github.com/verihire/verihire-backend/internal/domain/verification"
	verifsvc "github.com/verihire/verihire-backend/internal/service/verification"
)

// VerificationService is the session lifecycle surface consumed by the
// handlers. Satisfied by the orchestrator.
type VerificationService interface {
	CreateSession(ctx context.Context, claim *candidate.Claim, contacts []verifsvc.ReferenceContact) (uuid.UUID, error)
	Start(ctx context.Context, sessionID uuid.UUID) error
	GetStatus(ctx context.Context, sessionID uuid.UUID) (*verification.Session, error)
	GetReport(ctx context.Context, sessionID uuid.UUID) (*verification.Report, error)
}

// ReportCache is the optional read-through cache in front of GetReport.
type ReportCache interface {
	Get(ctx context.Context, sessionID uuid.UUID) (*verification.Report, error)
	Put(ctx context.Context, sessionID uuid.UUID, report *verification.Report) error
}

// Handler serves the verification session API.
type Handler struct {
	service  VerificationService
	reports  ReportCache
	validate *validator.Validate
	logger   *slog.Logger
	version  string
}

func NewHandler(service VerificationService, reports ReportCache, logger *slog.Logger, version string) *Handler {
	return &Handler{
		service:  service,
		reports:  reports,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		version:  version,
	}
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	claim, err := req.toClaim()
	if err != nil {
		writeError(w, h.logger, domainErrors.NewValidationError("INVALID_CLAIM", err.Error()))
		return
	}

	sessionID, err := h.service.CreateSession(r.Context(), claim, req.References)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateSessionResponse{SessionID: sessionID})
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDFromPath(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.service.Start(r.Context(), sessionID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	// The worker runs in the background; the caller polls status.
	writeJSON(w, http.StatusAccepted, StartSessionResponse{
		SessionID: sessionID,
		Stage:     string(verification.StageInProgress),
	})
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDFromPath(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	session, err := h.service.GetStatus(r.Context(), sessionID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, SessionStatusResponse{
		SessionID: session.ID,
		Stage:     string(session.Stage),
		Progress:  session.Progress,
		Activity:  session.Activities,
		Error:     session.Error,
		CreatedAt: session.CreatedAt,
		StartedAt: session.StartedAt,
		EndedAt:   session.EndedAt,
	})
}

func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDFromPath(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if h.reports != nil {
		if cached, err := h.reports.Get(r.Context(), sessionID); err == nil && cached != nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	report, err := h.service.GetReport(r.Context(), sessionID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if h.reports != nil {
		if err := h.reports.Put(r.Context(), sessionID, report); err != nil {
			h.logger.Warn("caching report failed",
				slog.String("session_id", sessionID.String()),
				slog.String("error", err.Error()))
		}
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

func sessionIDFromPath(r *http.Request) (uuid.UUID, error) {
	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, domainErrors.NewValidationError("INVALID_SESSION_ID", "session id must be a UUID")
	}
	return sessionID, nil
}
