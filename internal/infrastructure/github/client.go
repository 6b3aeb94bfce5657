package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/verihire/verihire-backend/internal/domain/evidence"
	"github.com/verihire/verihire-backend/internal/infrastructure/config"
)

const (
	reposPerPage     = 100
	commitSampleSize = 10
)

// Client fetches candidate evidence from the GitHub REST API. Any failure,
// including an unknown username, degrades to the explicit unavailable
// marker so downstream rules skip instead of flagging.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(cfg config.GithubConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type userResponse struct {
	Login     string    `json:"login"`
	CreatedAt time.Time `json:"created_at"`
}

type repoResponse struct {
	Name            string `json:"name"`
	Fork            bool   `json:"fork"`
	Language        string `json:"language"`
	StargazersCount int    `json:"stargazers_count"`
}

type pushEventResponse struct {
	Type    string `json:"type"`
	Payload struct {
		Commits []struct {
			Message string `json:"message"`
		} `json:"commits"`
	} `json:"payload"`
}

// FetchProfile assembles a candidate's code-hosting evidence from their
// profile, owned repositories and recent public push activity.
func (c *Client) FetchProfile(ctx context.Context, username string) (evidence.GithubEvidence, error) {
	var user userResponse
	if err := c.get(ctx, "/users/"+url.PathEscape(username), &user); err != nil {
		c.logger.Warn("github profile unavailable",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return evidence.Unavailable(username), err
	}

	var repos []repoResponse
	path := fmt.Sprintf("/users/%s/repos?per_page=%d&type=owner&sort=updated",
		url.PathEscape(username), reposPerPage)
	if err := c.get(ctx, path, &repos); err != nil {
		return evidence.Unavailable(username), err
	}

	ev := evidence.GithubEvidence{
		Available:    true,
		Username:     username,
		Languages:    map[string]int{},
		TotalRepos:   len(repos),
		AccountSince: user.CreatedAt.Year(),
	}
	for _, repo := range repos {
		if repo.Fork {
			ev.ForkedRepos++
			continue
		}
		ev.OriginalRepos++
		ev.StarsReceived += repo.StargazersCount
		if repo.Language != "" {
			ev.Languages[repo.Language]++
		}
	}

	// Push activity is best-effort; a profile without visible events is
	// still usable evidence.
	var events []pushEventResponse
	eventsPath := "/users/" + url.PathEscape(username) + "/events/public?per_page=100"
	if err := c.get(ctx, eventsPath, &events); err == nil {
		for _, event := range events {
			if event.Type != "PushEvent" {
				continue
			}
			ev.TotalCommits += len(event.Payload.Commits)
			for _, commit := range event.Payload.Commits {
				if len(ev.CommitsSample) < commitSampleSize {
					ev.CommitsSample = append(ev.CommitsSample, commit.Message)
				}
			}
		}
	}

	return ev, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github returned status %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding github response: %w", err)
	}
	return nil
}
