package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/ringclient-core/internal/auth"
)

// ticketTTL is how long a WebSocket ticket is valid.
const ticketTTL = 60 * time.Second

// defaultTokenTTL applies when api.auth.token_ttl is unset.
const defaultTokenTTL = 60 * time.Minute

// tokenRequest is the request body for POST /auth/token.
type tokenRequest struct {
	Passphrase string     `json:"passphrase"`
	Subject    string     `json:"subject"`
	Scope      auth.Scope `json:"scope"`
}

// tokenResponse is the response body for POST /auth/token.
type tokenResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int        `json:"expires_in"`
	Scope       auth.Scope `json:"scope"`
}

// handleToken exchanges the configured passphrase for an access token.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Auth.Enabled {
		writeError(w, http.StatusNotFound, ErrCodeUnsupported, "authentication is disabled")
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Subject == "" {
		req.Subject = "api"
	}
	if req.Scope == "" {
		req.Scope = auth.ScopeRead
	}
	if req.Scope != auth.ScopeRead && req.Scope != auth.ScopeControl {
		writeBadRequest(w, "scope must be read or control")
		return
	}

	ok, err := auth.VerifyPassphrase(req.Passphrase, s.cfg.Auth.PassphraseHash)
	if err != nil {
		s.logger.Error("verifying passphrase failed", "error", err)
		writeInternalError(w, "failed to verify passphrase")
		return
	}
	if !ok {
		s.logger.Warn("rejected token request", "subject", req.Subject, "remote", r.RemoteAddr)
		writeUnauthorized(w, "invalid credentials")
		return
	}

	ttl := time.Duration(s.cfg.Auth.TokenTTL) * time.Minute
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	token, err := auth.IssueToken(req.Subject, req.Scope, s.cfg.Auth.JWTSecret, ttl)
	if err != nil {
		writeInternalError(w, "failed to generate token")
		return
	}

	s.logger.Info("issued access token", "subject", req.Subject, "scope", req.Scope)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl.Seconds()),
		Scope:       req.Scope,
	})
}

// ticketStore holds pending WebSocket authentication tickets.
// Tickets are single-use and expire after ticketTTL.
type ticketStore struct {
	tickets map[string]ticketEntry
	mu      sync.Mutex
}

type ticketEntry struct {
	subject   string
	scope     auth.Scope
	expiresAt time.Time
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticketEntry)}
}

// issue stores a fresh ticket for the caller.
func (t *ticketStore) issue(subject string, scope auth.Scope) string {
	ticket := generateTicket()
	t.mu.Lock()
	t.tickets[ticket] = ticketEntry{
		subject:   subject,
		scope:     scope,
		expiresAt: time.Now().Add(ticketTTL),
	}
	t.mu.Unlock()
	return ticket
}

// consume checks if a ticket is valid and removes it (single-use).
func (t *ticketStore) consume(ticket string) (ticketEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.tickets[ticket]
	if !ok {
		return ticketEntry{}, false
	}
	delete(t.tickets, ticket)
	return entry, time.Now().Before(entry.expiresAt)
}

// clean removes expired tickets from the store.
func (t *ticketStore) clean() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for ticket, entry := range t.tickets {
		if now.After(entry.expiresAt) {
			delete(t.tickets, ticket)
		}
	}
}

// cleanLoop runs clean periodically until the context is cancelled.
func (t *ticketStore) cleanLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.clean()
		}
	}
}

// handleWSTicket generates a single-use WebSocket authentication ticket.
// The client uses this ticket to authenticate the WebSocket connection
// without exposing the JWT in the URL.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		writeUnauthorized(w, "not authenticated")
		return
	}
	ticket := s.tickets.issue(claims.Subject, claims.Scope)

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// ticketBytes is the number of random bytes used for WebSocket tickets.
const ticketBytes = 32

// generateTicket creates a cryptographically random ticket string.
func generateTicket() string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	return hex.EncodeToString(b)
}
