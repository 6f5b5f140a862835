package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openhaus/camsync-core/internal/auth"
)

// ticketTTL is how long a WebSocket ticket is valid.
const ticketTTL = 60 * time.Second

// ─── Request/Response Types ────────────────────────────────────────

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int        `json:"expires_in"`
	User         *auth.User `json:"user"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ─── Handlers ──────────────────────────────────────────────────────

// handleLogin authenticates a user and issues an access/refresh token pair.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.userRepo.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			// Burn a hash comparison so missing users cost the same as
			// wrong passwords.
			_, _ = auth.VerifyPassword(req.Password, dummyHash)
			writeUnauthorized(w, "invalid credentials")
			return
		}
		s.logger.Error("login lookup failed", "error", err)
		writeInternalError(w, "login failed")
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		writeUnauthorized(w, "invalid credentials")
		return
	}

	if !user.IsActive {
		writeUnauthorized(w, "account is inactive")
		return
	}

	resp, err := s.issueTokens(r.Context(), user, uuid.NewString(), r.UserAgent())
	if err != nil {
		s.logger.Error("token issue failed", "error", err)
		writeInternalError(w, "login failed")
		return
	}

	s.logger.Info("user logged in", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusOK, resp)
}

// handleRefresh rotates a refresh token and issues a new token pair.
//
// Presenting an already-rotated token is treated as theft: the whole
// token family is revoked and the caller must log in again.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeBadRequest(w, "refresh_token is required")
		return
	}

	stored, err := s.tokenRepo.GetByTokenHash(r.Context(), auth.HashToken(req.RefreshToken))
	if err != nil {
		writeUnauthorized(w, "invalid refresh token")
		return
	}

	if stored.Revoked {
		// Reuse of a rotated token: revoke the family.
		if err := s.tokenRepo.RevokeFamily(r.Context(), stored.FamilyID); err != nil {
			s.logger.Error("family revoke failed", "family_id", stored.FamilyID, "error", err)
		}
		s.logger.Warn("refresh token reuse detected", "user_id", stored.UserID, "family_id", stored.FamilyID)
		writeUnauthorized(w, "refresh token reuse detected, session revoked")
		return
	}

	if time.Now().After(stored.ExpiresAt) {
		writeUnauthorized(w, "refresh token expired")
		return
	}

	user, err := s.userRepo.GetByID(r.Context(), stored.UserID)
	if err != nil || !user.IsActive {
		writeUnauthorized(w, "account unavailable")
		return
	}

	resp, err := s.rotateTokens(r.Context(), user, stored, r.UserAgent())
	if err != nil {
		s.logger.Error("token rotation failed", "error", err)
		writeInternalError(w, "refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleLogout revokes the presented refresh token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.RefreshToken != "" {
		stored, err := s.tokenRepo.GetByTokenHash(r.Context(), auth.HashToken(req.RefreshToken))
		if err == nil {
			if err := s.tokenRepo.Revoke(r.Context(), stored.ID); err != nil {
				s.logger.Error("token revoke failed", "error", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// handleMe returns the authenticated user's account and permissions.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	user, err := s.userRepo.GetByID(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeUnauthorized(w, "account no longer exists")
			return
		}
		s.logger.Error("me lookup failed", "error", err)
		writeInternalError(w, "failed to load account")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":        user,
		"permissions": auth.PermissionsForRole(user.Role),
	})
}

// handleChangePassword updates the caller's own password and revokes
// every other session.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.NewPassword) < 8 { //nolint:mnd // minimum password length
		writeBadRequest(w, "new password must be at least 8 characters")
		return
	}

	user, err := s.userRepo.GetByID(r.Context(), claims.Subject)
	if err != nil {
		writeInternalError(w, "failed to load account")
		return
	}

	ok, err := auth.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil || !ok {
		writeUnauthorized(w, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.logger.Error("password hash failed", "error", err)
		writeInternalError(w, "failed to change password")
		return
	}

	if err := s.userRepo.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		s.logger.Error("password update failed", "error", err)
		writeInternalError(w, "failed to change password")
		return
	}

	if err := s.tokenRepo.RevokeAllForUser(r.Context(), user.ID); err != nil {
		s.logger.Error("session revoke after password change failed", "error", err)
	}

	s.logger.Info("password changed", "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}

// issueTokens creates an access/refresh pair in a fresh token family.
func (s *Server) issueTokens(ctx context.Context, user *auth.User, familyID, deviceInfo string) (*loginResponse, error) {
	access, err := auth.GenerateAccessToken(user, s.secCfg.JWT.Secret, s.secCfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	ttl := s.secCfg.JWT.RefreshTokenTTL
	if ttl <= 0 {
		ttl = 1440 //nolint:mnd // default 24h refresh TTL in minutes
	}

	if err := s.tokenRepo.Create(ctx, &auth.RefreshToken{
		UserID:     user.ID,
		FamilyID:   familyID,
		TokenHash:  auth.HashToken(refresh),
		DeviceInfo: deviceInfo,
		ExpiresAt:  time.Now().Add(time.Duration(ttl) * time.Minute),
	}); err != nil {
		return nil, err
	}

	return &loginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    accessTTLSeconds(s.secCfg.JWT.AccessTokenTTL),
		User:         user,
	}, nil
}

// rotateTokens replaces a refresh token within its family.
func (s *Server) rotateTokens(ctx context.Context, user *auth.User, old *auth.RefreshToken, deviceInfo string) (*loginResponse, error) {
	access, err := auth.GenerateAccessToken(user, s.secCfg.JWT.Secret, s.secCfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	ttl := s.secCfg.JWT.RefreshTokenTTL
	if ttl <= 0 {
		ttl = 1440 //nolint:mnd // default 24h refresh TTL in minutes
	}

	if err := s.tokenRepo.RotateRefreshToken(ctx, old.ID, &auth.RefreshToken{
		UserID:     user.ID,
		FamilyID:   old.FamilyID,
		TokenHash:  auth.HashToken(refresh),
		DeviceInfo: deviceInfo,
		ExpiresAt:  time.Now().Add(time.Duration(ttl) * time.Minute),
	}); err != nil {
		return nil, err
	}

	return &loginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    accessTTLSeconds(s.secCfg.JWT.AccessTokenTTL),
		User:         user,
	}, nil
}

// accessTTLSeconds converts the configured TTL (minutes) to seconds.
func accessTTLSeconds(ttlMinutes int) int {
	if ttlMinutes <= 0 {
		ttlMinutes = 15 //nolint:mnd // default 15-minute access token TTL
	}
	return ttlMinutes * 60 //nolint:mnd // seconds per minute
}

// dummyHash is a valid Argon2id hash of a random string, used to keep
// login timing constant for unknown usernames.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=1$AAAAAAAAAAAAAAAAAAAAAA$tP3nNDpvzjxRQbHkU4NRHTxaZNrq+QTSvLzd5fCXLKY"

// ─── WebSocket Tickets ─────────────────────────────────────────────

// ticketStore holds pending WebSocket authentication tickets.
// Tickets are single-use, expire after ticketTTL, and carry the identity
// of the user that requested them.
type ticketStore struct {
	tickets map[string]ticketEntry
	mu      sync.Mutex
}

type ticketEntry struct {
	userID    string
	role      auth.Role
	expiresAt time.Time
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticketEntry)}
}

// handleWSTicket generates a single-use WebSocket authentication ticket.
// The client uses this ticket to authenticate the WebSocket connection
// without exposing the JWT in the URL.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	ticket := generateTicket()

	s.tickets.mu.Lock()
	s.tickets.tickets[ticket] = ticketEntry{
		userID:    claims.Subject,
		role:      claims.Role,
		expiresAt: time.Now().Add(ticketTTL),
	}
	s.tickets.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// validateTicket checks if a ticket is valid and consumes it (single-use).
func (ts *ticketStore) validateTicket(ticket string) (ticketEntry, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	entry, ok := ts.tickets[ticket]
	if !ok {
		return ticketEntry{}, false
	}

	// Remove ticket (single-use)
	delete(ts.tickets, ticket)

	if time.Now().After(entry.expiresAt) {
		return ticketEntry{}, false
	}
	return entry, true
}

// cleanExpired removes expired tickets from the store.
func (ts *ticketStore) cleanExpired() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := time.Now()
	for ticket, entry := range ts.tickets {
		if now.After(entry.expiresAt) {
			delete(ts.tickets, ticket)
		}
	}
}

// cleanLoop runs cleanExpired periodically until the context is cancelled.
func (ts *ticketStore) cleanLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ts.cleanExpired()
		}
	}
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
