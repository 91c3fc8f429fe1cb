// Package server is the contract's HTTP surface: public contract
// information, the relay directory, accesskey and servicekey issuance,
// sharetoken submission and the withdrawal endpoints.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wireskip/contract/api"
	"github.com/wireskip/contract/log"
	"github.com/wireskip/contract/metrics"
	"github.com/wireskip/contract/payout"
	"github.com/wireskip/contract/tracker"
)

// shutdownGrace bounds the drain of in-flight requests on stop.
const shutdownGrace = 5 * time.Second

// Config carries everything the server needs wired in.
type Config struct {
	Address string
	Keypair *api.Keypair
	Public  api.Public
	Tracker *tracker.Tracker
	Payout  *payout.Pipeline
	// Stub, when non-nil, mounts the bundled payment system on this
	// server so the default payout endpoint (self) answers.
	Stub *payout.Stub
}

// Server handles the contract's HTTP endpoints. The relay directory
// and the published enrollment counters live behind its lock; all
// settlement state belongs to the tracker.
type Server struct {
	address string
	keypair *api.Keypair
	tracker *tracker.Tracker
	payout  *payout.Pipeline
	log     *log.Logger
	handler http.Handler

	mu     sync.RWMutex
	public api.Public
	relays map[string]api.Relay
}

// New assembles the server and its route tree.
func New(cfg Config, logger *log.Logger) *Server {
	s := &Server{
		address: cfg.Address,
		keypair: cfg.Keypair,
		tracker: cfg.Tracker,
		payout:  cfg.Payout,
		log:     logger.Module("server"),
		public:  cfg.Public,
		relays:  make(map[string]api.Relay),
	}
	s.handler = s.router(cfg.Stub)
	return s
}

// Handler returns the assembled route tree.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) router(stub *payout.Stub) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CleanPath)
	r.Use(middleware.StripSlashes)
	r.Use(s.observe)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusNotFound, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/info", s.infoGet)
	r.Get("/relays", s.relaysGet)
	r.Post("/relays", s.relaysPost)
	r.Delete("/relays", s.relaysDelete)
	r.Post("/issue-accesskeys", s.issueAccesskeys)
	r.Post("/servicekey/activate", s.activate)
	r.Post("/submit", s.submit)
	r.Post("/withdraw", s.withdraw)
	r.Get("/payout/balance", s.payoutBalance)
	r.Post("/verify-withdrawal-request", s.verifyWithdrawal)
	r.Method(http.MethodGet, "/metrics", metrics.NewExporter(metrics.DefaultRegistry, "wireskip"))

	if stub != nil {
		ps := stub.Router()
		r.Handle("/withdrawals", ps)
		r.Handle("/withdrawals/{id}", ps)
	}
	return r
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.address, Handler: s.handler}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", "address", s.address)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("server stopped")
	return nil
}
