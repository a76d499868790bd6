// Package api serves the finance simulator as JSON over HTTP.
//
// Handlers resolve identity through auth.Gate, call the portfolio engine
// with it, and map *model.Failure kinds to status codes.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"finance-sim/internal/auth"
	"finance-sim/internal/feed"
	"finance-sim/internal/metrics"
	"finance-sim/internal/model"
	"finance-sim/internal/portfolio"
)

// UserStore is the account storage the handlers need.
type UserStore interface {
	Create(ctx context.Context, username, hash string, cash decimal.Decimal) (model.User, error)
	ByUsername(ctx context.Context, username string) (model.User, error)
	ByID(ctx context.Context, id int64) (model.User, error)
	SetTOTP(ctx context.Context, id int64, secret string, enabled bool) error
}

// Deps are the collaborators of the API server. Feed, Metrics, Health and
// Log are optional.
type Deps struct {
	Engine       *portfolio.Engine
	Users        UserStore
	Gate         *auth.Gate
	StartingCash decimal.Decimal
	Feed         *feed.Hub
	Metrics      *metrics.Metrics
	Health       http.Handler
	Log          *slog.Logger
}

// Server is the finance HTTP API.
type Server struct {
	engine       *portfolio.Engine
	users        UserStore
	gate         *auth.Gate
	startingCash decimal.Decimal
	feed         *feed.Hub
	metrics      *metrics.Metrics
	health       http.Handler
	log          *slog.Logger

	handler http.Handler
}

// NewServer wires routes and middleware.
func NewServer(d Deps) *Server {
	s := &Server{
		engine:       d.Engine,
		users:        d.Users,
		gate:         d.Gate,
		startingCash: d.StartingCash,
		feed:         d.Feed,
		metrics:      d.Metrics,
		health:       d.Health,
		log:          d.Log,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With("component", "api")
	s.handler = s.middleware(s.routes())
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)

	mux.HandleFunc("GET /api/quote", s.requireAuth(s.handleQuote))
	mux.HandleFunc("POST /api/quote", s.requireAuth(s.handleQuote))
	mux.HandleFunc("POST /api/buy", s.requireAuth(s.handleBuy))
	mux.HandleFunc("POST /api/sell", s.requireAuth(s.handleSell))
	mux.HandleFunc("GET /api/portfolio", s.requireAuth(s.handlePortfolio))
	mux.HandleFunc("GET /api/history", s.requireAuth(s.handleHistory))

	mux.HandleFunc("POST /api/account/totp", s.requireAuth(s.handleTOTPStart))
	mux.HandleFunc("POST /api/account/totp/confirm", s.requireAuth(s.handleTOTPConfirm))

	if s.feed != nil {
		mux.HandleFunc("GET /api/feed", s.requireAuth(s.handleFeed))
	}

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		s.health.ServeHTTP(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserFrom(r.Context())
	s.feed.Serve(w, r, uid)
}
