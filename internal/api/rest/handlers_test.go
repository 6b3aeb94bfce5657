package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/verihire/verihire-backend/internal/domain/candidate"
	domainErrors "github.com/verihire/verihire-backend/internal/domain/errors"
	"github.com/verihire/verihire-backend/internal/domain/verification"
	"github.com/verihire/verihire-backend/internal/infrastructure/config"
	verifsvc "github.com/verihire/verihire-backend/internal/service/verification"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) CreateSession(ctx context.Context, claim *candidate.Claim, contacts []verifsvc.ReferenceContact) (uuid.UUID, error) {
	args := m.Called(ctx, claim, contacts)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockService) Start(ctx context.Context, sessionID uuid.UUID) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *mockService) GetStatus(ctx context.Context, sessionID uuid.UUID) (*verification.Session, error) {
	args := m.Called(ctx, sessionID)
	if session := args.Get(0); session != nil {
		return session.(*verification.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockService) GetReport(ctx context.Context, sessionID uuid.UUID) (*verification.Report, error) {
	args := m.Called(ctx, sessionID)
	if report := args.Get(0); report != nil {
		return report.(*verification.Report), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockReportCache struct {
	mock.Mock
}

func (m *mockReportCache) Get(ctx context.Context, sessionID uuid.UUID) (*verification.Report, error) {
	args := m.Called(ctx, sessionID)
	if report := args.Get(0); report != nil {
		return report.(*verification.Report), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReportCache) Put(ctx context.Context, sessionID uuid.UUID, report *verification.Report) error {
	return m.Called(ctx, sessionID, report).Error(0)
}

type testServer struct {
	server  *httptest.Server
	service *mockService
	reports *mockReportCache
	token   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	service := &mockService{}
	reports := &mockReportCache{}

	securityCfg := config.SecurityConfig{
		JWTSecret:   "test-secret",
		TokenExpiry: time.Hour,
		RateLimit: config.RateLimitConfig{
			RequestsPerSecond: 100,
			BurstSize:         200,
		},
	}

	auth := NewAuthMiddleware(securityCfg, logger)
	token, err := auth.GenerateToken("test-client")
	require.NoError(t, err)

	router := NewRouter(RouterDeps{
		Handler:   NewHandler(service, reports, logger, "test"),
		Auth:      auth,
		RateLimit: NewRateLimitMiddleware(securityCfg.RateLimit, nil, logger),
		Logger:    logger,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{server: server, service: service, reports: reports, token: token}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ts.token)

	resp, err := ts.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func validCreateRequest() CreateSessionRequest {
	end := "2021-06"
	return CreateSessionRequest{
		Name:           "Jordan Reyes",
		Email:          "jordan@example.com",
		GithubUsername: "jreyes",
		Skills:         []string{"Python", "Go"},
		EmploymentHistory: []EmploymentEntry{
			{Company: "Acme", Title: "Engineer", StartDate: "2019-01", EndDate: &end},
		},
		References: []verifsvc.ReferenceContact{
			{Name: "Pat Chen", Company: "Acme", Phone: "+15559876543"},
		},
	}
}

func TestCreateSession(t *testing.T) {
	ts := newTestServer(t)
	sessionID := uuid.New()
	ts.service.On("CreateSession", mock.Anything, mock.MatchedBy(func(claim *candidate.Claim) bool {
		return claim.Name == "Jordan Reyes" && len(claim.EmploymentHistory) == 1
	}), mock.Anything).Return(sessionID, nil)

	resp := ts.do(t, http.MethodPost, "/api/v1/sessions", validCreateRequest())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body CreateSessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, sessionID, body.SessionID)
	ts.service.AssertExpectations(t)
}

func TestCreateSession_MissingName(t *testing.T) {
	ts := newTestServer(t)
	req := validCreateRequest()
	req.Name = ""

	resp := ts.do(t, http.MethodPost, "/api/v1/sessions", req)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	ts.service.AssertNotCalled(t, "CreateSession")
}

func TestCreateSession_BadDateFormat(t *testing.T) {
	ts := newTestServer(t)
	req := validCreateRequest()
	req.EmploymentHistory[0].StartDate = "January 2019"

	resp := ts.do(t, http.MethodPost, "/api/v1/sessions", req)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "INVALID_CLAIM", body.Error.Code)
}

func TestStartSession_Accepted(t *testing.T) {
	ts := newTestServer(t)
	sessionID := uuid.New()
	ts.service.On("Start", mock.Anything, sessionID).Return(nil)

	resp := ts.do(t, http.MethodPost, "/api/v1/sessions/"+sessionID.String()+"/start", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body StartSessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "IN_PROGRESS", body.Stage)
}

func TestStartSession_AlreadyStartedConflicts(t *testing.T) {
	ts := newTestServer(t)
	sessionID := uuid.New()
	ts.service.On("Start", mock.Anything, sessionID).Return(domainErrors.ErrSessionNotStartable)

	resp := ts.do(t, http.MethodPost, "/api/v1/sessions/"+sessionID.String()+"/start", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGetStatus(t *testing.T) {
	ts := newTestServer(t)
	sessionID := uuid.New()
	started := time.Now().Add(-time.Minute)
	ts.service.On("GetStatus", mock.Anything, sessionID).Return(&verification.Session{
		ID:        sessionID,
		Stage:     verification.StageInProgress,
		Progress:  verification.Progress{Percentage: 40, ReferenceChecksDone: 1, ReferenceChecksTotal: 2},
		CreatedAt: started.Add(-time.Minute),
		StartedAt: &started,
	}, nil)

	resp := ts.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body SessionStatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "IN_PROGRESS", body.Stage)
	assert.Equal(t, 40, body.Progress.Percentage)
}

func TestGetStatus_UnknownSession(t *testing.T) {
	ts := newTestServer(t)
	sessionID := uuid.New()
	ts.service.On("GetStatus", mock.Anything, sessionID).Return(nil, domainErrors.ErrSessionNotFound)

	resp := ts.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID.String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetStatus_MalformedID(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/v1/sessions/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "INVALID_SESSION_ID", body.Error.Code)
}

func TestGetReport_CacheMissThenFill(t *testing.T) {
	ts := newTestServer(t)
	sessionID := uuid.New()
	report := &verification.Report{RiskLevel: verification.RiskGreen, Summary: "No issues identified"}

	ts.reports.On("Get", mock.Anything, sessionID).Return(nil, nil)
	ts.service.On("GetReport", mock.Anything, sessionID).Return(report, nil)
	ts.reports.On("Put", mock.Anything, sessionID, report).Return(nil)

	resp := ts.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID.String()+"/report", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body verification.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, verification.RiskGreen, body.RiskLevel)
	ts.reports.AssertExpectations(t)
}

func TestGetReport_CacheHitSkipsService(t *testing.T) {
	ts := newTestServer(t)
	sessionID := uuid.New()
	report := &verification.Report{RiskLevel: verification.RiskRed}

	ts.reports.On("Get", mock.Anything, sessionID).Return(report, nil)

	resp := ts.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID.String()+"/report", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ts.service.AssertNotCalled(t, "GetReport")
}

func TestGetReport_NotReadyConflicts(t *testing.T) {
	ts := newTestServer(t)
	sessionID := uuid.New()
	ts.reports.On("Get", mock.Anything, sessionID).Return(nil, nil)
	ts.service.On("GetReport", mock.Anything, sessionID).Return(nil, domainErrors.ErrReportNotReady)

	resp := ts.do(t, http.MethodGet, "/api/v1/sessions/"+sessionID.String()+"/report", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAuth_MissingTokenRejected(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.server.Client().Get(ts.server.URL + "/api/v1/sessions/" + uuid.NewString())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_GarbageTokenRejected(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.server.URL+"/api/v1/sessions/"+uuid.NewString(), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not.a.token")

	resp, err := ts.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthz_Unauthenticated(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.server.Client().Get(ts.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
}

func TestRateLimit_Enforced(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	service := &mockService{}
	service.On("GetStatus", mock.Anything, mock.Anything).Return(nil, domainErrors.ErrSessionNotFound)

	securityCfg := config.SecurityConfig{
		JWTSecret:   "test-secret",
		TokenExpiry: time.Hour,
		RateLimit:   config.RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2},
	}
	auth := NewAuthMiddleware(securityCfg, logger)
	token, err := auth.GenerateToken("rate-limited-client")
	require.NoError(t, err)

	router := NewRouter(RouterDeps{
		Handler:   NewHandler(service, nil, logger, "test"),
		Auth:      auth,
		RateLimit: NewRateLimitMiddleware(securityCfg.RateLimit, nil, logger),
		Logger:    logger,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req, err := http.NewRequest(http.MethodGet, server.URL+"/api/v1/sessions/"+uuid.NewString(), nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := server.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Contains(t, statuses, http.StatusTooManyRequests)
}
