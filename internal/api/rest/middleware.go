package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/verihire/verihire-backend/internal/infrastructure/config"
)

type contextKey string

const (
	contextKeyRequestID contextKey = "request_id"
	contextKeySubject   contextKey = "subject"
)

// Claims are the JWT claims issued to API clients.
type Claims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}

// AuthMiddleware validates bearer tokens on the API surface.
type AuthMiddleware struct {
	secret []byte
	expiry time.Duration
	logger *slog.Logger
}

func NewAuthMiddleware(cfg config.SecurityConfig, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		secret: []byte(cfg.JWTSecret),
		expiry: cfg.TokenExpiry,
		logger: logger,
	}
}

// GenerateToken mints a token for a client. Used by provisioning tooling
// and tests; there is no interactive login flow.
func (m *AuthMiddleware) GenerateToken(subject string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "verihire",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(m.secret)
}

func (m *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: ErrorDetail{
				Code: "UNAUTHORIZED", Message: "missing bearer token",
			}})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims,
			func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return m.secret, nil
			})
		if err != nil || !token.Valid {
			m.logger.Debug("token rejected", slog.String("error", fmt.Sprintf("%v", err)))
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: ErrorDetail{
				Code: "UNAUTHORIZED", Message: "invalid or expired token",
			}})
			return
		}

		ctx := context.WithValue(r.Context(), contextKeySubject, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DistributedLimiter is the cross-instance rate limit gate, satisfied by
// the Redis sliding-window limiter. A nil limiter disables the gate.
type DistributedLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimitMiddleware applies a local token bucket per client followed by
// the shared distributed gate. The local bucket absorbs bursts cheaply;
// the distributed gate keeps a fleet honest.
type RateLimitMiddleware struct {
	cfg     config.RateLimitConfig
	shared  DistributedLimiter
	logger  *slog.Logger
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func NewRateLimitMiddleware(cfg config.RateLimitConfig, shared DistributedLimiter, logger *slog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		cfg:     cfg,
		shared:  shared,
		logger:  logger,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (m *RateLimitMiddleware) bucket(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	limiter, ok := m.buckets[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(m.cfg.RequestsPerSecond), m.cfg.BurstSize)
		m.buckets[key] = limiter
	}
	return limiter
}

func (m *RateLimitMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)

		if !m.bucket(key).Allow() {
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: ErrorDetail{
				Code: "RATE_LIMITED", Message: "too many requests",
			}})
			return
		}

		if m.shared != nil {
			allowed, err := m.shared.Allow(r.Context(), key, m.cfg.RequestsPerSecond, time.Second)
			if err != nil {
				// The shared gate failing open is preferable to rejecting
				// all traffic when Redis is down.
				m.logger.Warn("distributed rate limit unavailable", slog.String("error", err.Error()))
			} else if !allowed {
				writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: ErrorDetail{
					Code: "RATE_LIMITED", Message: "too many requests",
				}})
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// clientKey prefers the authenticated subject and falls back to the
// remote address for unauthenticated routes.
func clientKey(r *http.Request) string {
	if subject, ok := r.Context().Value(contextKeySubject).(string); ok && subject != "" {
		return subject
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusRecorder captures the response code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware tags each request with an id and logs its outcome.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
			next.ServeHTTP(recorder, r.WithContext(ctx))

			// Context-aware so the traced handler stamps trace/span ids.
			logger.InfoContext(ctx, "request completed",
				slog.String("request_id", requestID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", recorder.status),
				slog.Duration("duration", time.Since(start)))
		})
	}
}

// RecoveryMiddleware converts handler panics into 500 responses.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					logger.Error("handler panic",
						slog.String("path", r.URL.Path),
						slog.Any("panic", recovered))
					writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{
						Code: "INTERNAL_ERROR", Message: "an internal error occurred",
					}})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
