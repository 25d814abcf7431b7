package server

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

func (s *Server) APIMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return []func(http.HandlerFunc) http.HandlerFunc{
		s.RecoverMiddleware,
		s.RateLimitMiddleware,
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("handler panic")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

// RateLimitMiddleware throttles requests per client id. Unidentified callers
// share one bucket keyed by remote address.
func (s *Server) RateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.config.GetEnableRateLimiting() {
			next(w, r)
			return
		}
		key := r.PostFormValue("client_id")
		if key == "" {
			key = r.RemoteAddr
		}
		if !s.limiter(key).Allow() {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func (s *Server) limiter(key string) *rate.Limiter {
	s.limitersMux.Lock()
	defer s.limitersMux.Unlock()
	limiter, ok := s.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(s.config.GetClientRateLimit(), s.config.GetClientRateBurst())
		s.limiters[key] = limiter
	}
	return limiter
}
