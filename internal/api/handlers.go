package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/harshchoudhary100/my-chat-box/internal/auth"
	"github.com/harshchoudhary100/my-chat-box/internal/core"
	"github.com/harshchoudhary100/my-chat-box/internal/metrics"
	"github.com/harshchoudhary100/my-chat-box/internal/store"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxTokenID
)

type APIHandler struct {
	userService *core.UserService
	chatService *core.ChatService
	revocations *auth.RevocationList
	jwtSecret   []byte
}

func NewAPIHandler(us *core.UserService, cs *core.ChatService, rl *auth.RevocationList, jwtSecret []byte) *APIHandler {
	return &APIHandler{
		userService: us,
		chatService: cs,
		revocations: rl,
		jwtSecret:   jwtSecret,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// bearerToken pulls the raw token out of an "Authorization: Bearer <token>"
// header, empty if the header is missing or differently shaped.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// JWTAuthMiddleware guards every protected route: verify the bearer token,
// reject revoked jtis, and attach the owner and token ids to the context.
// Every verification failure collapses to a generic 401.
func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "no token provided")
			return
		}

		claims, err := auth.ParseToken(tokenString, h.jwtSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if h.revocations.IsRevoked(claims.ID) {
			writeError(w, http.StatusUnauthorized, "token invalidated")
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxTokenID, claims.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}

	if err := h.userService.Signup(req.Name, req.Email, req.Password); err != nil {
		if errors.Is(err, core.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, "user already exists")
			return
		}
		log.Error().Err(err).Msg("signup failed")
		writeError(w, http.StatusInternalServerError, "signup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Signup successful"})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	userID, err := h.userService.Login(strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			writeError(w, http.StatusBadRequest, "invalid credentials")
			return
		}
		log.Error().Err(err).Msg("login failed")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	token, _, err := auth.IssueToken(userID, h.jwtSecret)
	if err != nil {
		log.Error().Err(err).Msg("failed to issue token")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token, "userId": userID})
}

// LogoutHandler is best-effort: a decodable bearer token gets its jti
// blacklisted, anything else is silently ignored. Always responds 200 so
// logout stays idempotent for the client.
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if tokenString := bearerToken(r); tokenString != "" {
		if claims, err := auth.ParseToken(tokenString, h.jwtSecret); err == nil && claims.ExpiresAt != nil {
			h.revocations.Revoke(claims.ID, claims.ExpiresAt.Time)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *APIHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(ctxUserID).(string)

	session, err := h.chatService.CreateSession(userID)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to create session")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sessionId": session.SessionID})
}

type RenameSessionRequest struct {
	NewTitle string `json:"newTitle"`
}

func (h *APIHandler) RenameSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(ctxUserID).(string)
	sessionID := chi.URLParam(r, "sessionID")

	var req RenameSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NewTitle == "" {
		writeError(w, http.StatusBadRequest, "newTitle is required")
		return
	}

	if err := h.chatService.RenameSession(userID, sessionID, req.NewTitle); err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("rename failed")
		writeError(w, http.StatusInternalServerError, "rename failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *APIHandler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(ctxUserID).(string)

	sessions, err := h.chatService.ListSessions(userID)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to fetch sessions")
		writeError(w, http.StatusInternalServerError, "failed to fetch sessions")
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

type ChatRequest struct {
	Message string `json:"message"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(ctxUserID).(string)
	sessionID := chi.URLParam(r, "sessionID")

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	metrics.ChatRequestsTotal.Inc()

	reply, err := h.chatService.Chat(r.Context(), userID, sessionID, req.Message)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Str("session", sessionID).Msg("chat failed")
		writeError(w, http.StatusInternalServerError, "chat error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(ctxUserID).(string)
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.chatService.History(userID, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("failed to fetch history")
		writeError(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *APIHandler) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(ctxUserID).(string)
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.chatService.DeleteSession(userID, sessionID); err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("delete failed")
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
