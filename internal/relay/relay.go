// Package relay runs a local HTTP endpoint that turns signed POSTs into
// responses, so scripts can answer a chat message without linking the Go API.
package relay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nestor/internal/domain"
	"nestor/internal/metrics"
	"nestor/internal/nestorapi"
	"nestor/internal/response"
)

const (
	maxBodyBytes = 1 << 20

	// DefaultPath is the response route; every path must carry {teamID}.
	DefaultPath = "/teams/{teamID}/responses"
)

// Config configures the relay server.
type Config struct {
	Addr        string
	Path        string // response route, DefaultPath when empty
	Secret      string // HMAC secret; empty disables signature checks
	Debug       bool   // buffer into Sink instead of posting
	Poster      domain.Poster
	Sink        domain.Sink
	SinkForTeam func(teamID string) domain.Sink // overrides Sink when set
	Metrics     *metrics.DeliveryMetrics
	Gatherer    prometheus.Gatherer // serves /metrics when non-nil
	MetricsPath string
	Logger      *slog.Logger
}

// Server accepts response requests and delivers them through a Response.
type Server struct {
	addr        string
	path        string
	secret      string
	debug       bool
	poster      domain.Poster
	sink        domain.Sink
	sinkForTeam func(teamID string) domain.Sink
	metrics     *metrics.DeliveryMetrics
	gatherer    prometheus.Gatherer
	metricsPath string
	logger      *slog.Logger
	server      *http.Server
}

// Request is the JSON body of a POST to the response route.
type Request struct {
	UserUID    string   `json:"user_uid"`
	ChannelUID string   `json:"channel_uid"`
	Strings    []string `json:"strings"`
	Reply      bool     `json:"reply"`
}

// New creates a relay server.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:9090"
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		addr:        cfg.Addr,
		path:        cfg.Path,
		secret:      cfg.Secret,
		debug:       cfg.Debug,
		poster:      cfg.Poster,
		sink:        cfg.Sink,
		sinkForTeam: cfg.SinkForTeam,
		metrics:     cfg.Metrics,
		gatherer:    cfg.Gatherer,
		metricsPath: cfg.MetricsPath,
		logger:      cfg.Logger,
	}
}

// Handler returns the relay routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Handle(s.metricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Post(s.path, s.handleResponse)
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("relay server starting", "addr", s.addr, "path", s.path, "debug", s.debug)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("relay server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("relay server: %w", err)
	}
}

func (s *Server) handleResponse(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if s.secret != "" {
		sig := r.Header.Get("X-Signature-256")
		if sig == "" {
			http.Error(w, "Missing signature", http.StatusUnauthorized)
			return
		}
		if !verifyHMAC(body, s.secret, sig) {
			http.Error(w, "Invalid signature", http.StatusForbidden)
			return
		}
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.UserUID == "" || req.ChannelUID == "" {
		http.Error(w, "user_uid and channel_uid are required", http.StatusBadRequest)
		return
	}
	if len(req.Strings) == 0 {
		http.Error(w, "strings is required", http.StatusBadRequest)
		return
	}

	teamID := chi.URLParam(r, "teamID")
	sink := s.sink
	if s.sinkForTeam != nil {
		sink = s.sinkForTeam(teamID)
	}
	resp := response.New(response.Config{
		Robot:   domain.NewRobot(teamID, "", s.debug),
		Message: domain.NewTextMessage(domain.User{ID: req.UserUID, Room: req.ChannelUID}, ""),
		Poster:  s.poster,
		Sink:    sink,
		Metrics: s.metrics,
		Logger:  s.logger,
	})

	payload := domain.Lines(req.Strings...)
	if req.Reply {
		err = resp.Reply(r.Context(), payload)
	} else {
		err = resp.Send(r.Context(), payload)
	}
	if err != nil {
		s.logger.Warn("relay delivery failed",
			"team", teamID, "user", req.UserUID, "channel", req.ChannelUID, "reply", req.Reply, "err", err)
		writeDeliveryError(w, err)
		return
	}

	s.logger.Info("relay delivered",
		"team", teamID,
		"user", req.UserUID,
		"channel", req.ChannelUID,
		"reply", req.Reply,
		"lines", len(req.Strings),
	)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func writeDeliveryError(w http.ResponseWriter, err error) {
	if apiErr, ok := nestorapi.IsAPIError(err); ok {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":           "upstream rejected message",
			"upstream_status": apiErr.StatusCode,
		})
		return
	}
	var te *nestorapi.TransportError
	if errors.As(err, &te) {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream unreachable"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// verifyHMAC verifies the HMAC-SHA256 signature of the body.
func verifyHMAC(body []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(body, secret)), []byte(signature))
}

// Sign returns the X-Signature-256 value for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
