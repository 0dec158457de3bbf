// internal/ingest/server.go
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/volumewars/volumewars-bot/internal/round"
	"github.com/volumewars/volumewars-bot/internal/storage/models"
)

// RoundControl is the orchestrator surface the HTTP layer exposes.
type RoundControl interface {
	StartRound(ctx context.Context) error
	EndRound(ctx context.Context) error
	Resume(ctx context.Context) error
	Snapshot(topN int) round.Snapshot
}

// WinnerHistory serves past round winners. Nil when the service runs
// without durable storage.
type WinnerHistory interface {
	ListWinners(ctx context.Context, limit, offset int) ([]*models.Winner, error)
}

// Server hosts the trade webhook, the status endpoints and the manual
// round overrides.
type Server struct {
	addr       string
	adminToken string
	processor  *Processor
	control    RoundControl
	history    WinnerHistory
	logger     *zap.Logger
}

func NewServer(addr, adminToken string, processor *Processor, control RoundControl, history WinnerHistory, logger *zap.Logger) *Server {
	return &Server{
		addr:       addr,
		adminToken: adminToken,
		processor:  processor,
		control:    control,
		history:    history,
		logger:     logger.Named("http"),
	}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Post("/webhook/trades", s.handleWebhook)
	r.Get("/status", s.handleStatus)
	r.Get("/winners", s.handleWinners)

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Post("/round/start", s.handleRoundStart)
		r.Post("/round/end", s.handleRoundEnd)
		r.Post("/round/resume", s.handleRoundResume)
	})

	return r
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handleWebhook acknowledges every notification immediately and
// unconditionally; the upstream source must never see a failure from
// this side. Processing happens after the acknowledgment.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	w.WriteHeader(http.StatusOK)
	if err != nil {
		s.logger.Warn("Failed to read webhook body", zap.Error(err))
		return
	}

	var batch []TradeNotification
	if err := json.Unmarshal(body, &batch); err != nil {
		var single TradeNotification
		if err := json.Unmarshal(body, &single); err != nil {
			s.logger.Warn("Unparseable webhook payload", zap.Int("bytes", len(body)))
			return
		}
		batch = []TradeNotification{single}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for i := range batch {
			s.processor.Process(ctx, &batch[i])
		}
	}()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.control.Snapshot(10)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Warn("Failed to encode status", zap.Error(err))
	}
}

type winnerView struct {
	Wallet    string    `json:"wallet"`
	Volume    float64   `json:"volume"`
	Reward    float64   `json:"reward"`
	Signature string    `json:"signature"`
	Round     int64     `json:"round"`
	PaidAt    time.Time `json:"paid_at"`
}

func (s *Server) handleWinners(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	views := []winnerView{}
	if s.history != nil {
		records, err := s.history.ListWinners(r.Context(), limit, offset)
		if err != nil {
			s.logger.Error("Failed to list winners", zap.Error(err))
			http.Error(w, "winner history unavailable", http.StatusInternalServerError)
			return
		}
		for _, rec := range records {
			views = append(views, winnerView{
				Wallet:    rec.Wallet,
				Volume:    rec.Volume,
				Reward:    rec.Reward,
				Signature: rec.Signature,
				Round:     rec.Round,
				PaidAt:    rec.CreatedAt,
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(views); err != nil {
		s.logger.Warn("Failed to encode winners", zap.Error(err))
	}
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func (s *Server) handleRoundStart(w http.ResponseWriter, r *http.Request) {
	s.adminAction(w, r, "start", s.control.StartRound)
}

// handleRoundEnd kicks off the settlement pipeline detached from the
// request. Settlement waits on confirmations and routinely outlives the
// request timeout, and a client disconnect must never cancel transfers
// mid-pipeline.
func (s *Server) handleRoundEnd(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("Admin round command", zap.String("command", "end"))
	go func() {
		if err := s.control.EndRound(context.Background()); err != nil {
			s.logger.Error("Round end failed", zap.Error(err))
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleRoundResume(w http.ResponseWriter, r *http.Request) {
	s.adminAction(w, r, "resume", s.control.Resume)
}

func (s *Server) adminAction(w http.ResponseWriter, r *http.Request, name string, fn func(context.Context) error) {
	s.logger.Info("Admin round command", zap.String("command", name))
	if err := fn(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" || r.Header.Get("X-Admin-Token") != s.adminToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
