package server

import (
	"net/http"

	"github.com/jrsteele09/go-token-server/endpoint"
	"github.com/jrsteele09/go-token-server/oauth2"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

// TokenHandler serves the OAuth2 token endpoint. The protocol logic lives in
// the endpoint package; this handler only moves bytes between HTTP and the
// typed request/response.
func (s *Server) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.writeTokenResult(w, nil, oauth2.NewTokenError(oauth2.ErrorInvalidRequest, "malformed request body"))
			return
		}

		raw := oauth2.ParseTokenRequest(r.PostForm)
		raw.AuthorizationHeader = r.Header.Get("Authorization")

		parsed, err := s.token.ParseRequest(raw)
		if err != nil {
			log.Err(err).Str("grant_type", string(raw.GrantType)).Msg("token request rejected at parse")
			s.writeTokenResult(w, nil, err)
			return
		}

		resp, err := s.token.ProcessRequest(parsed, s.config.GetIssueRefreshTokens())
		if err != nil {
			log.Err(err).
				Str("grant_type", string(raw.GrantType)).
				Str("client_id", parsed.Client.ID).
				Msg("token request rejected")
		}
		s.writeTokenResult(w, resp, err)
	}
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

func (s *Server) writeTokenResult(w http.ResponseWriter, resp *endpoint.Response, err error) {
	body, status, headers := s.token.DoResponse(resp, err)
	for key, values := range headers {
		for _, v := range values {
			w.Header().Set(key, v)
		}
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
