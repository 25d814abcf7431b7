package server

import (
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/jrsteele09/go-token-server/endpoint"
	"github.com/jrsteele09/go-token-server/internal/config"
	"golang.org/x/time/rate"
)

type Server struct {
	env    string // Environment (e.g., "DEV", "production")
	mux    *http.ServeMux
	routes []string
	config config.Config
	token  *endpoint.TokenEndpoint

	limiters    map[string]*rate.Limiter
	limitersMux sync.Mutex
}

func New(cfg config.Config, tokenEndpoint *endpoint.TokenEndpoint) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		config:   cfg,
		token:    tokenEndpoint,
		limiters: make(map[string]*rate.Limiter),
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("POST "+RouteOAuth2Token, ChainMiddleware(s.TokenHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) == 2 {
			logRoute(parts[0], parts[1])
			continue
		}
		logRoute("ANY", route)
	}
}

func logRoute(method, path string) {
	log.Printf("[%-7s] %s\n", method, path)
}
