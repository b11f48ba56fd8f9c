// Package echoserver is a local stand-in for the public services API tests usually run
// against: an echo service that reflects requests back, a workspace and collection API
// guarded by an API key, and a fixed users API.
package echoserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	commonmiddleware "github.com/tansive/restspec/internal/common/middleware"
)

// APIKeyHeader carries the key checked by the workspace and collection routes.
const APIKeyHeader = "X-Api-Key"

// Options configures the server.
type Options struct {
	HandleCORS     bool
	APIKey         string        // workspace and collection routes require it when set
	DownloadDir    string        // served by /download/{name}; downloads answer 404 when empty
	RequestTimeout time.Duration // per-request timeout; none when zero
	MaxBodyBytes   int64         // request body limit; DefaultMaxBodyBytes when zero
}

const DefaultMaxBodyBytes = 10 << 20

type Server struct {
	Router *chi.Mux
	opts   Options
	store  *store
}

func CreateNewServer(opts Options) (*Server, error) {
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.MaxBodyBytes < 0 {
		return nil, fmt.Errorf("invalid body limit %d", opts.MaxBodyBytes)
	}
	st, err := newStore()
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}
	s := &Server{
		Router: chi.NewRouter(),
		opts:   opts,
		store:  st,
	}
	return s, nil
}

func (s *Server) MountHandlers() {
	s.Router.Use(commonmiddleware.RequestLogger)
	s.Router.Use(commonmiddleware.PanicHandler)
	if s.opts.HandleCORS {
		s.Router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"https://*", "http://*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", APIKeyHeader},
			ExposedHeaders:   []string{commonmiddleware.RequestIDHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	if s.opts.RequestTimeout > 0 {
		s.Router.Use(commonmiddleware.SetTimeout(s.opts.RequestTimeout))
	}
	s.mountEchoHandlers(s.Router)
	s.Router.Route("/workspaces", s.mountWorkspaceHandlers)
	s.Router.Route("/collections", s.mountCollectionHandlers)
	s.Router.Route("/users", s.mountUserHandlers)

	if log.Trace().Enabled() {
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			log.Trace().Str("method", method).Str("route", route).Msg("route")
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			log.Error().Err(err).Msg("unable to walk routes")
		}
	}
}

// ServeHTTP makes the server usable directly with httptest.NewServer.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// New creates a server with its handlers mounted.
func New(opts Options) (*Server, error) {
	s, err := CreateNewServer(opts)
	if err != nil {
		return nil, err
	}
	s.MountHandlers()
	return s, nil
}
