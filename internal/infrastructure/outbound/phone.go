package outbound

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/verihire/verihire-backend/internal/domain/call"
	"github.com/verihire/verihire-backend/internal/infrastructure/config"
	"github.com/verihire/verihire-backend/internal/service/callmonitor"
)

// PhoneProvider drives outbound verification calls through the
// conversational-call vendor's REST API. It implements both call
// initiation and the status polls consumed by the completion monitor.
type PhoneProvider struct {
	baseURL     string
	apiKey      string
	agentNumber string
	http        *http.Client
	logger      *slog.Logger
}

func NewPhoneProvider(cfg config.CallProviderConfig, logger *slog.Logger) *PhoneProvider {
	return &PhoneProvider{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		agentNumber: cfg.AgentNumber,
		http:        &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

type initiateRequest struct {
	ToNumber   string `json:"to_number"`
	FromNumber string `json:"from_number"`
	Purpose    string `json:"purpose"`
	Prompt     string `json:"prompt"`
}

type initiateResponse struct {
	ConversationID string `json:"conversation_id"`
}

type statusResponse struct {
	Status     string     `json:"status"`
	Transcript string     `json:"transcript"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
}

// InitiateCall places an outbound call and returns the vendor's
// conversation id.
func (p *PhoneProvider) InitiateCall(ctx context.Context, toNumber, purpose, prompt string) (string, error) {
	body, err := json.Marshal(initiateRequest{
		ToNumber:   toNumber,
		FromNumber: p.agentNumber,
		Purpose:    purpose,
		Prompt:     prompt,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling call request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/conversations", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building call request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("call provider returned status %d", resp.StatusCode)
	}

	var out initiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding call response: %w", err)
	}
	if out.ConversationID == "" {
		return "", fmt.Errorf("call provider returned no conversation id")
	}

	p.logger.Info("outbound call initiated",
		slog.String("conversation_id", out.ConversationID),
		slog.String("purpose", purpose))
	return out.ConversationID, nil
}

// GetStatus implements callmonitor.StatusProvider.
func (p *PhoneProvider) GetStatus(ctx context.Context, conversationID string) (*callmonitor.StatusSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/v1/conversations/"+url.PathEscape(conversationID), nil)
	if err != nil {
		return nil, fmt.Errorf("building status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("call provider returned status %d", resp.StatusCode)
	}

	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding status response: %w", err)
	}

	status, err := call.ParseStatus(out.Status)
	if err != nil {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, err)
	}

	return &callmonitor.StatusSnapshot{
		Status:     status,
		Transcript: out.Transcript,
		StartTime:  out.StartTime,
		EndTime:    out.EndTime,
	}, nil
}
