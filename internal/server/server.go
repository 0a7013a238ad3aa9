package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/kanopy-platform/appid-gateway/pkg/appid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

type Server struct {
	router   *mux.Router
	tokens   TokenService
	registry *prometheus.Registry
	metrics  *metrics
}

func New(opts ...ServerFuncOpt) (http.Handler, error) {
	s := &Server{
		router:   mux.NewRouter(),
		registry: prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.tokens == nil {
		return nil, fmt.Errorf("a token service is required")
	}

	m, err := newMetrics(s.registry)
	if err != nil {
		return nil, err
	}
	s.metrics = m

	s.router.Use(requestIDMiddleware, s.instrument)
	s.router.NotFoundHandler = requestIDMiddleware(s.instrument(http.NotFoundHandler()))
	s.router.MethodNotAllowedHandler = requestIDMiddleware(s.instrument(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		})))

	s.router.HandleFunc("/healthz", s.handleHealthz()).Methods(http.MethodGet)
	s.router.HandleFunc("/introspect", s.handleIntrospect()).Methods(http.MethodPost)
	s.router.HandleFunc("/revoke", s.handleRevoke()).Methods(http.MethodPost)
	s.router.HandleFunc("/userinfo", s.handleUserInfo()).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

func (s *Server) handleIntrospect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.PostFormValue("token")
		if token == "" {
			writeError(w, r, http.StatusBadRequest, errors.New("token is required"))
			return
		}

		active, err := s.tokens.Introspect(r.Context(), token)
		if err != nil {
			writeUpstreamError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, map[string]bool{"active": active})
	}
}

func (s *Server) handleRevoke() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.PostFormValue("token")
		if token == "" {
			writeError(w, r, http.StatusBadRequest, errors.New("token is required"))
			return
		}

		revoked, err := s.tokens.Revoke(r.Context(), token)
		if err != nil {
			writeUpstreamError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, map[string]bool{"revoked": revoked})
	}
}

type profile struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	Cnum         string         `json:"cnum"`
	UID          string         `json:"uid"`
	Location     string         `json:"location"`
	LotusNotesID string         `json:"lotusNotesId"`
	IBMInfo      map[string]any `json:"ibmInfo"`
	Attributes   map[string]any `json:"attributes"`
}

func (s *Server) handleUserInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken := bearerToken(r)
		if accessToken == "" {
			writeError(w, r, http.StatusBadRequest, errors.New("bearer token is required"))
			return
		}

		owner, err := s.tokens.ResourceOwner(r.Context(), &oauth2.Token{
			AccessToken: accessToken,
			TokenType:   "Bearer",
		})
		if err != nil {
			writeUpstreamError(w, r, err)
			return
		}

		email, err := owner.Email()
		if err != nil {
			writeUpstreamError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, profile{
			ID:           owner.ID(),
			Name:         owner.FullName(),
			Email:        email,
			Cnum:         owner.Cnum(),
			UID:          owner.UID(),
			Location:     owner.Location(),
			LotusNotesID: owner.LotusNotesID(),
			IBMInfo:      owner.IBMInfo(),
			Attributes:   owner.Attributes(),
		})
	}
}

func bearerToken(r *http.Request) string {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

// writeUpstreamError maps errors from the token service: errors reported by
// App ID mean the caller's token or client was rejected, unless App ID itself
// failed; anything else is a gateway failure.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		pErr  *appid.ProviderError
		cfErr *appid.ConfigurationError
	)

	switch {
	case errors.As(err, &pErr) && pErr.Unavailable():
		writeError(w, r, http.StatusBadGateway, err)
	case errors.As(err, &pErr):
		writeError(w, r, http.StatusUnauthorized, err)
	case errors.As(err, &cfErr):
		writeError(w, r, http.StatusBadRequest, err)
	default:
		writeError(w, r, http.StatusBadGateway, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	log.WithError(err).WithFields(log.Fields{
		"request_id": requestIDFromContext(r.Context()),
		"path":       r.URL.Path,
	}).Warn("request failed")

	writeJSON(w, r, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).WithField("request_id", requestIDFromContext(r.Context())).Error("error encoding response")
	}
}
