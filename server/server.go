package server

import (
	"net/http"

	"github.com/libris-io/identity/auth"
	"github.com/libris-io/identity/internal/config"
)

// Server is the HTTP surface over the session core. It maps session outcomes
// to status codes and owns the refresh-token cookie transport; bearer-token
// validation of ordinary API calls lives elsewhere.
type Server struct {
	env     string
	mux     *http.ServeMux
	config  config.Config
	session *auth.Service
}

func New(cfg config.Config, session *auth.Service) *Server {
	s := &Server{
		env:     cfg.GetEnv(),
		mux:     http.NewServeMux(),
		config:  cfg,
		session: session,
	}
	s.initRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) initRoutes() {
	s.mux.HandleFunc("POST "+RouteLogin, ChainMiddleware(s.Login(), s.apiMiddleware()...))
	s.mux.HandleFunc("POST "+RouteRefresh, ChainMiddleware(s.Refresh(), s.apiMiddleware()...))
	s.mux.HandleFunc("POST "+RouteLogout, ChainMiddleware(s.Logout(), s.apiMiddleware()...))
}

func (s *Server) apiMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return []func(http.HandlerFunc) http.HandlerFunc{
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.SecurityHeadersMiddleware,
	}
}
