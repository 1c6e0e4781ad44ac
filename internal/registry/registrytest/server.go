// Package registrytest provides an in-process fake of the WHO ICD-11 API for
// tests: a token endpoint plus the codeinfo and entity endpoints of one
// release and linearization.
package registrytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/icdload/internal/config"
)

// Token is the access token the fake issues and expects.
const Token = "test-token-0123456789"

// Request is a request received by the fake, kept for assertions.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Form   map[string]string
}

// Server is a fake ICD-11 API.
type Server struct {
	*httptest.Server

	ReleaseID     string
	Linearization string

	mu          sync.Mutex
	codes       map[string]any
	entities    map[string]any
	tokenStatus int
	delay       time.Duration
	requests    []Request
}

// NewServer starts a fake serving release and linearization.
// Callers must Close it.
func NewServer(releaseID, linearization string) *Server {
	s := &Server{
		ReleaseID:     releaseID,
		Linearization: linearization,
		codes:         make(map[string]any),
		entities:      make(map[string]any),
		tokenStatus:   http.StatusOK,
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Post("/connect/token", s.handleToken)
	r.Route("/icd/release/{release}/{linearization}", func(r chi.Router) {
		r.Use(s.authorize, s.slowDown)
		r.Get("/codeinfo/{code}", s.handleCodeInfo)
		r.Get("/*", s.handleEntity)
	})

	s.Server = httptest.NewServer(r)
	return s
}

// Config returns a registry configuration pointing at the fake.
func (s *Server) Config(timeout time.Duration) config.RegistryConfig {
	return config.RegistryConfig{
		AuthURL:       s.URL + "/connect/token",
		ClientID:      "client",
		ClientSecret:  "secret",
		BaseURL:       s.URL + "/icd",
		ReleaseID:     s.ReleaseID,
		Linearization: s.Linearization,
		Language:      "es",
		APIVersion:    "v2",
		Timeout:       timeout,
	}
}

// AddCode registers a codeinfo response body for code.
func (s *Server) AddCode(code string, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = body
}

// AddStem registers a codeinfo response mapping code to stemID.
func (s *Server) AddStem(code, stemID string) {
	s.AddCode(code, map[string]string{"code": code, "stemId": stemID})
}

// AddEntity registers the detail body served at path, the part of the
// entity URI after "/mms/" (e.g. "1256772020/unspecified").
func (s *Server) AddEntity(path string, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[path] = body
}

// SetTokenStatus makes the token endpoint answer with status.
func (s *Server) SetTokenStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenStatus = status
}

// SetDelay delays every lookup response by d.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// TokenRequests returns how many token exchanges were attempted.
func (s *Server) TokenRequests() int {
	n := 0
	for _, r := range s.Requests() {
		if r.Path == "/connect/token" {
			n++
		}
	}
	return n
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := Request{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone()}
		if r.Method == http.MethodPost && r.ParseForm() == nil {
			rec.Form = make(map[string]string, len(r.PostForm))
			for k := range r.PostForm {
				rec.Form[k] = r.PostForm.Get(k)
			}
		}

		s.mu.Lock()
		s.requests = append(s.requests, rec)
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+Token {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		if chi.URLParam(r, "release") != s.ReleaseID || chi.URLParam(r, "linearization") != s.Linearization {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) slowDown(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		d := s.delay
		s.mu.Unlock()

		if d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.tokenStatus
	s.mu.Unlock()

	if status != http.StatusOK {
		http.Error(w, `{"error":"invalid_client"}`, status)
		return
	}
	if r.PostForm.Get("grant_type") != "client_credentials" {
		http.Error(w, `{"error":"unsupported_grant_type"}`, http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]any{
		"access_token": Token,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (s *Server) handleCodeInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body, ok := s.codes[chi.URLParam(r, "code")]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, body)
}

func (s *Server) handleEntity(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body, ok := s.entities[chi.URLParam(r, "*")]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, body)
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
