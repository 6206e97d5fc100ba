package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-login-relay/internal/domain"
	"telegram-login-relay/internal/infra/logging"
	"telegram-login-relay/internal/usecase"
)

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes token issuance and redemption over HTTP.
type Server struct {
	auth       usecase.AuthUseCase
	db         Pinger
	serviceKey string
	timeout    time.Duration
	log        *zerolog.Logger
}

// NewServer builds the handler set. An empty serviceKey leaves the issue endpoint unmounted.
func NewServer(auth usecase.AuthUseCase, db Pinger, serviceKey string, timeout time.Duration, logger *zerolog.Logger) *Server {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Server{auth: auth, db: db, serviceKey: serviceKey, timeout: timeout, log: logger}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), Timeout(s.timeout))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		if s.serviceKey != "" {
			r.With(RequireBearer(s.serviceKey)).Post("/token", s.handleIssue)
		}
		r.Post("/verify", s.handleVerify)
	})
	return r
}

type errorBody struct {
	Error string `json:"error"`
}

type issueRequest struct {
	TelegramID int64 `json:"telegram_id"`
}

type issueResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	AuthURL   string    `json:"auth_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	TelegramID     int64  `json:"telegram_id"`
	AccountID      string `json:"account_id"`
	AccountCreated bool   `json:"account_created"`
	SessionToken   string `json:"session_token"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			logging.With(r.Context(), s.log).Warn().Err(err).Msg("health: database ping failed")
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := decodeJSON(w, r, &req); err != nil || req.TelegramID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "telegram_id required"})
		return
	}
	ctx := logging.WithTgID(r.Context(), req.TelegramID)

	issued, err := s.auth.Issue(ctx, req.TelegramID)
	if err != nil {
		logging.With(ctx, s.log).Error().Err(err).Msg("issue token")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal"})
		return
	}
	writeJSON(w, http.StatusOK, issueResponse{
		Success:   true,
		Token:     issued.Token,
		AuthURL:   issued.RedirectURL,
		ExpiresAt: issued.ExpiresAt,
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "token required"})
		return
	}

	res, err := s.auth.Redeem(r.Context(), req.Token)
	if err != nil {
		if code, ok := rejectionCode(err); ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: code})
			return
		}
		logging.With(r.Context(), s.log).Error().Err(err).Msg("verify token")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal"})
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{
		TelegramID:     res.TelegramID,
		AccountID:      res.AccountID,
		AccountCreated: res.AccountCreated,
		SessionToken:   res.SessionToken,
	})
}

func rejectionCode(err error) (string, bool) {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired", true
	case errors.Is(err, domain.ErrTokenAlreadyUsed):
		return "already_used", true
	case errors.Is(err, domain.ErrTokenNotFound):
		return "not_found", true
	default:
		return "", false
	}
}

const maxBodyBytes = 1 << 16

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
