// Package registrytest runs an in-memory session registry over HTTP for tests.
package registrytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
)

const defaultMaxDevices = 3

type Server struct {
	*httptest.Server

	mu               sync.Mutex
	passwords        map[string]string
	tokens           map[string]string
	accounts         []domain.Account
	sessions         map[domain.AccountID]map[string]bool
	externalSessions map[domain.AccountID]int
	devices          map[string]map[string]bool
	externalDevices  map[string]int
	maxDevices       int
	failures         map[string]int
	requests         []string
	userAgents       map[string]bool
	hooks            map[string]func()
}

func New(t interface{ Cleanup(func()) }) *Server {
	s := &Server{
		passwords:        map[string]string{},
		tokens:           map[string]string{},
		sessions:         map[domain.AccountID]map[string]bool{},
		externalSessions: map[domain.AccountID]int{},
		devices:          map[string]map[string]bool{},
		externalDevices:  map[string]int{},
		maxDevices:       defaultMaxDevices,
		failures:         map[string]int{},
		userAgents:       map[string]bool{},
		hooks:            map[string]func(){},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/auth/validate", s.authed(s.handleValidate))
	mux.HandleFunc("GET /api/accounts", s.authed(s.handleAccounts))
	mux.HandleFunc("GET /api/accounts/{id}/session", s.authed(s.handleSessionInfo))
	mux.HandleFunc("POST /api/sessions", s.authed(s.handleCreateSession))
	mux.HandleFunc("DELETE /api/sessions/{id}", s.authed(s.handleEndSession))
	mux.HandleFunc("GET /api/users/{id}/devices", s.authed(s.handleDevices))
	mux.HandleFunc("POST /api/devices/register", s.authed(s.handleRegisterDevice))
	mux.HandleFunc("DELETE /api/devices/{id}", s.authed(s.handleUnregisterDevice))

	s.Server = httptest.NewServer(s.record(mux))
	t.Cleanup(s.Close)

	return s
}

// AddUser registers a login and returns the token that login will issue.
func (s *Server) AddUser(email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.passwords[email] = password
	return "token-" + email
}

// Authorize makes token valid for email without a login call.
func (s *Server) Authorize(token, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = email
}

// RevokeTokens invalidates every issued token; later calls get 401.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]string{}
}

func (s *Server) AddAccount(account domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account.MaxConcurrentUsers <= 0 {
		account.MaxConcurrentUsers = 1
	}
	s.accounts = append(s.accounts, account)
}

// SetExternalSessions simulates sessions held by other clients.
func (s *Server) SetExternalSessions(id domain.AccountID, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.externalSessions[id] = n
}

func (s *Server) SetMaxDevices(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxDevices = n
}

func (s *Server) SetExternalDevices(userID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.externalDevices[userID] = n
}

// FailWith makes every request matching "METHOD /path" answer status.
// status 0 removes the failure.
func (s *Server) FailWith(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status == 0 {
		delete(s.failures, route)
		return
	}
	s.failures[route] = status
}

func (s *Server) ActiveSessions(id domain.AccountID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions[id]) + s.externalSessions[id]
}

func (s *Server) OwnSessions(id domain.AccountID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions[id])
}

func (s *Server) DeviceRegistered(userID, deviceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.devices[userID][deviceID]
}

func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.requests...)
}

// BeforeNext runs fn once, before the next request to route is handled.
// route has the form "GET /api/accounts/12/session".
func (s *Server) BeforeNext(route string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[route] = fn
}

// SawUserAgent reports whether any request carried ua.
func (s *Server) SawUserAgent(ua string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userAgents[ua]
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path

		s.mu.Lock()
		s.requests = append(s.requests, route)
		s.userAgents[r.UserAgent()] = true
		status, failing := s.failures[route]
		hook := s.hooks[route]
		delete(s.hooks, route)
		s.mu.Unlock()

		if hook != nil {
			hook()
		}

		if failing {
			writeDetail(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, email string)

func (s *Server) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		s.mu.Lock()
		email, ok := s.tokens[token]
		s.mu.Unlock()

		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next(w, r, email)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form")
		return
	}
	email := r.PostForm.Get("username")

	s.mu.Lock()
	password, ok := s.passwords[email]
	if ok && password == r.PostForm.Get("password") {
		s.tokens["token-"+email] = email
	}
	s.mu.Unlock()

	if !ok || password != r.PostForm.Get("password") {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": "token-" + email, "token_type": "bearer"})
}

func (s *Server) handleValidate(w http.ResponseWriter, _ *http.Request, email string) {
	writeJSON(w, http.StatusOK, map[string]any{"email": email, "is_admin": false})
}

func (s *Server) handleAccounts(w http.ResponseWriter, _ *http.Request, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload := make([]map[string]any, 0, len(s.accounts))
	for _, account := range s.accounts {
		cookies := make([]map[string]string, 0, len(account.Cookies))
		for _, cookie := range account.Cookies {
			cookies = append(cookies, map[string]string{"domain": cookie.Domain, "name": cookie.Name, "value": cookie.Value, "path": "/"})
		}
		payload = append(payload, map[string]any{
			"id":                   wireID(account.ID),
			"name":                 account.Name,
			"cookies":              cookies,
			"max_concurrent_users": account.MaxConcurrentUsers,
			"active_users":         len(s.sessions[account.ID]) + s.externalSessions[account.ID],
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleSessionInfo(w http.ResponseWriter, r *http.Request, _ string) {
	id := domain.AccountID(r.PathValue("id"))

	s.mu.Lock()
	account, ok := s.accountLocked(id)
	active := len(s.sessions[id]) + s.externalSessions[id]
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Account not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account_id":           wireID(id),
		"active_sessions":      active,
		"max_concurrent_users": account.MaxConcurrentUsers,
	})
}

type createSessionRequest struct {
	AccountID flexID `json:"account_id"`
	Domain    string `json:"domain"`
	DeviceID  string `json:"device_id"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request, email string) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	id := domain.AccountID(req.AccountID)

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accountLocked(id)
	if !ok {
		writeDetail(w, http.StatusForbidden, "Not authorized to access this account")
		return
	}
	if len(s.sessions[id])+s.externalSessions[id] >= account.MaxConcurrentUsers {
		writeDetail(w, http.StatusBadRequest, "Maximum concurrent users reached")
		return
	}
	if s.sessions[id] == nil {
		s.sessions[id] = map[string]bool{}
	}
	s.sessions[id][email] = true

	writeJSON(w, http.StatusOK, map[string]any{
		"account_id": wireID(id),
		"domain":     req.Domain,
		"user_id":    email,
		"active":     true,
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request, email string) {
	id := domain.AccountID(r.PathValue("id"))

	s.mu.Lock()
	_, ok := s.sessions[id][email]
	delete(s.sessions[id], email)
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session ended successfully"})
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request, _ string) {
	userID := r.PathValue("id")

	s.mu.Lock()
	active := len(s.devices[userID]) + s.externalDevices[userID]
	maxDevices := s.maxDevices
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]int{"active_devices": active, "max_devices": maxDevices})
}

type registerDeviceRequest struct {
	UserID    string `json:"user_id"`
	DeviceID  string `json:"device_id"`
	AccountID flexID `json:"account_id"`
}

func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request, _ string) {
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceID == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	registered := s.devices[req.UserID]
	if registered == nil {
		registered = map[string]bool{}
		s.devices[req.UserID] = registered
	}
	if !registered[req.DeviceID] && len(registered)+s.externalDevices[req.UserID] >= s.maxDevices {
		writeDetail(w, http.StatusForbidden, "Maximum number of devices reached")
		return
	}
	registered[req.DeviceID] = true

	writeJSON(w, http.StatusOK, map[string]string{"message": "Device registered"})
}

func (s *Server) handleUnregisterDevice(w http.ResponseWriter, r *http.Request, email string) {
	deviceID := r.PathValue("id")

	s.mu.Lock()
	delete(s.devices[email], deviceID)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Device removed"})
}

func (s *Server) accountLocked(id domain.AccountID) (domain.Account, bool) {
	for _, account := range s.accounts {
		if account.ID == id {
			return account, true
		}
	}

	return domain.Account{}, false
}

// wireID renders numeric ids as JSON numbers, like the real registry.
func wireID(id domain.AccountID) any {
	if n, err := strconv.Atoi(string(id)); err == nil {
		return n
	}
	return string(id)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*f = flexID(text)
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return err
	}
	*f = flexID(number.String())
	return nil
}
