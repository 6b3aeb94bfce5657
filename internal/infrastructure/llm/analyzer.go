package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/verihire/verihire-backend/internal/domain/evidence"
	"github.com/verihire/verihire-backend/internal/domain/verification"
	"github.com/verihire/verihire-backend/internal/infrastructure/config"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Analyzer turns raw call transcripts into structured evidence using a
// chat-completion model. The model is instructed to answer with a single
// JSON object; anything else is a parse error surfaced to the caller.
type Analyzer struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithBaseURL points the analyzer at a different API endpoint. Used by
// tests and by OpenAI-compatible gateways.
func WithBaseURL(u string) Option {
	return func(a *Analyzer) { a.baseURL = strings.TrimSuffix(u, "/") }
}

func NewAnalyzer(cfg config.LLMConfig, logger *slog.Logger, opts ...Option) *Analyzer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	a := &Analyzer{
		baseURL: defaultBaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

const referenceSystemPrompt = `You extract structured data from reference-check call transcripts.
Respond with exactly one JSON object, no prose, with these fields:
{"reference_name": string, "company": string, "relationship": string,
 "performance_rating": integer 1-10 or 0 if not stated,
 "would_rehire": boolean}`

// ParseReferenceResponse extracts a reference's answers from a phone
// transcript. A rating the reference never stated comes back as 0, which
// the rule engine treats as malformed and skips.
func (a *Analyzer) ParseReferenceResponse(ctx context.Context, transcript string) (evidence.ReferenceResponse, error) {
	var out evidence.ReferenceResponse
	if err := a.complete(ctx, referenceSystemPrompt, "Transcript:\n"+transcript, &out); err != nil {
		return evidence.ReferenceResponse{}, err
	}
	out.Channel = "phone"
	return out, nil
}

const employmentSystemPrompt = `You extract structured data from employment-verification call transcripts.
Respond with exactly one JSON object, no prose, with these fields:
{"confirmed": boolean, "notes": string}
Set "confirmed" true only if the employer explicitly confirmed both the
candidate's employment and their job title.`

// ParseEmploymentVerification extracts whether an employer confirmed the
// claimed company and title.
func (a *Analyzer) ParseEmploymentVerification(ctx context.Context, transcript, company, title string) (verification.EmploymentVerification, error) {
	prompt := fmt.Sprintf("Claimed company: %s\nClaimed title: %s\n\nTranscript:\n%s",
		company, title, transcript)

	var parsed struct {
		Confirmed bool   `json:"confirmed"`
		Notes     string `json:"notes"`
	}
	if err := a.complete(ctx, employmentSystemPrompt, prompt, &parsed); err != nil {
		return verification.EmploymentVerification{}, err
	}

	return verification.EmploymentVerification{
		Company:    company,
		Title:      title,
		Confirmed:  parsed.Confirmed,
		Transcript: transcript,
		Notes:      parsed.Notes,
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (a *Analyzer) complete(ctx context.Context, system, user string, out any) error {
	body, err := json.Marshal(chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0,
	})
	if err != nil {
		return fmt.Errorf("marshaling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading llm response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llm returned status %d: %s", resp.StatusCode, string(raw))
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return fmt.Errorf("decoding llm response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return fmt.Errorf("llm returned no choices")
	}

	content := extractJSON(chat.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		a.logger.Warn("llm produced unparseable output",
			slog.String("content", chat.Choices[0].Message.Content))
		return fmt.Errorf("parsing llm output: %w", err)
	}
	return nil
}

// extractJSON strips markdown fences and surrounding prose that models
// sometimes wrap around the requested object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
