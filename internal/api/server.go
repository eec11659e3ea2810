// Package api serves health, metrics and read-only views of the sniper state.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/sugawarayuuta/sonnet"

	"solana-launch-sniper/internal/blockhash"
	"solana-launch-sniper/internal/coordinator"
	"solana-launch-sniper/internal/dispatch"
	"solana-launch-sniper/internal/domain"
	"solana-launch-sniper/internal/observability"
	"solana-launch-sniper/internal/storage"
)

const (
	defaultLaunchLimit = 100
	maxLaunchLimit     = 1000
	shutdownTimeout    = 5 * time.Second
)

// BlockhashStatus reports blockhash refresh health.
type BlockhashStatus interface {
	Status() blockhash.Status
}

// CoordinatorStats reports coordinator counters.
type CoordinatorStats interface {
	Stats() coordinator.Stats
	Mode() dispatch.Mode
}

// Options for creating a Server.
type Options struct {
	Blockhash   BlockhashStatus
	Coordinator CoordinatorStats
	Trades      storage.TradeStore
	Journal     storage.LaunchJournal // optional
	DryRun      bool
	CORSOrigins []string
	Logger      zerolog.Logger
}

// Server handles the HTTP API.
type Server struct {
	opts    Options
	router  *mux.Router
	log     zerolog.Logger
	started time.Time
}

// NewServer creates a server and registers its routes.
func NewServer(opts Options) *Server {
	s := &Server{
		opts:    opts,
		router:  mux.NewRouter(),
		log:     opts.Logger.With().Str("component", "api").Logger(),
		started: time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/trades", s.handleTrades).Methods(http.MethodGet)
	api.HandleFunc("/launches", s.handleLaunches).Methods(http.MethodGet)
}

// Handler returns the router, wrapped with CORS when origins are configured.
func (s *Server) Handler() http.Handler {
	if len(s.opts.CORSOrigins) == 0 {
		return s.router
	}
	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// BlockhashInfo is the blockhash part of the status response.
type BlockhashInfo struct {
	Hash             string    `json:"hash"`
	FetchedAt        time.Time `json:"fetched_at"`
	AgeSeconds       float64   `json:"age_seconds"`
	Stale            bool      `json:"stale"`
	LastError        string    `json:"last_error,omitempty"`
	LastErrorAt      time.Time `json:"last_error_at,omitempty"`
	ConsecutiveFails int       `json:"consecutive_fails"`
}

// StatusResponse is the JSON response for /api/v1/status.
type StatusResponse struct {
	Status      string             `json:"status"`
	Uptime      string             `json:"uptime"`
	Mode        string             `json:"mode"`
	DryRun      bool               `json:"dry_run"`
	Blockhash   *BlockhashInfo     `json:"blockhash,omitempty"`
	Coordinator *coordinator.Stats `json:"coordinator,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Status: "running",
		Uptime: time.Since(s.started).Truncate(time.Second).String(),
		DryRun: s.opts.DryRun,
	}

	if s.opts.Blockhash != nil {
		st := s.opts.Blockhash.Status()
		resp.Blockhash = &BlockhashInfo{
			FetchedAt:        st.Snapshot.FetchedAt,
			AgeSeconds:       st.Age.Seconds(),
			Stale:            st.Stale,
			LastError:        st.LastError,
			LastErrorAt:      st.LastErrorAt,
			ConsecutiveFails: st.ConsecutiveFails,
		}
		if !st.Snapshot.IsZero() {
			resp.Blockhash.Hash = st.Snapshot.Hash.String()
		}
		if st.Stale {
			resp.Status = "degraded"
		}
	}

	if s.opts.Coordinator != nil {
		stats := s.opts.Coordinator.Stats()
		resp.Coordinator = &stats
		resp.Mode = string(s.opts.Coordinator.Mode())
	}

	respondJSON(w, http.StatusOK, resp)
}

// TradeInfo is one trade in API responses. Decimals are strings.
type TradeInfo struct {
	ID        string    `json:"id"`
	Ts        time.Time `json:"ts"`
	Side      string    `json:"side"`
	Mint      string    `json:"mint"`
	Signature string    `json:"signature"`
	Qty       string    `json:"qty"`
	PriceSOL  string    `json:"price_sol"`
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if s.opts.Trades == nil {
		respondJSON(w, http.StatusOK, []TradeInfo{})
		return
	}

	trades, err := s.opts.Trades.FetchTrades(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("fetch trades")
		respondError(w, http.StatusInternalServerError, "failed to fetch trades")
		return
	}

	out := make([]TradeInfo, len(trades))
	for i, t := range trades {
		out[i] = TradeInfo{
			ID:        t.ID,
			Ts:        t.Ts,
			Side:      string(t.Side),
			Mint:      t.Mint,
			Signature: t.Signature,
			Qty:       t.Qty.String(),
			PriceSOL:  t.PriceSOL.String(),
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// LaunchInfo is one journal row in API responses.
type LaunchInfo struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	Signature      string    `json:"signature"`
	Mint           string    `json:"mint,omitempty"`
	BaseIsSOL      bool      `json:"base_is_sol"`
	DetectedAtSlot uint64    `json:"detected_at_slot"`
	Outcome        string    `json:"outcome"`
	DispatchSig    string    `json:"dispatch_sig,omitempty"`
	Error          string    `json:"error,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
}

func (s *Server) handleLaunches(w http.ResponseWriter, r *http.Request) {
	limit := defaultLaunchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLaunchLimit)
	}

	if s.opts.Journal == nil {
		respondJSON(w, http.StatusOK, []LaunchInfo{})
		return
	}

	recs, err := s.opts.Journal.Recent(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("fetch launches")
		respondError(w, http.StatusInternalServerError, "failed to fetch launches")
		return
	}

	out := make([]LaunchInfo, len(recs))
	for i, rec := range recs {
		out[i] = launchInfo(rec)
	}
	respondJSON(w, http.StatusOK, out)
}

func launchInfo(r *domain.LaunchRecord) LaunchInfo {
	return LaunchInfo{
		ID:             r.ID,
		Kind:           string(r.Kind),
		Signature:      r.Signature,
		Mint:           r.Mint,
		BaseIsSOL:      r.BaseIsSOL,
		DetectedAtSlot: r.DetectedAtSlot,
		Outcome:        string(r.Outcome),
		DispatchSig:    r.DispatchSig,
		Error:          r.Error,
		RecordedAt:     r.RecordedAt,
	}
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := sonnet.Marshal(data)
	if err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, ErrorResponse{Error: msg})
}
