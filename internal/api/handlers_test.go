package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/harshchoudhary100/my-chat-box/internal/auth"
	"github.com/harshchoudhary100/my-chat-box/internal/core"
	"github.com/harshchoudhary100/my-chat-box/internal/store"
)

type stubCompleter struct {
	replies []string
	err     error
}

func (c *stubCompleter) Complete(context.Context, []core.Turn, string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	reply := c.replies[0]
	if len(c.replies) > 1 {
		c.replies = c.replies[1:]
	}
	return reply, nil
}

func newTestServer(t *testing.T, completer core.Completer) http.Handler {
	t.Helper()
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	userSvc := core.NewUserService(db, bcrypt.MinCost)
	chatSvc := core.NewChatService(db, completer, time.Minute)
	handler := NewAPIHandler(userSvc, chatSvc, auth.NewRevocationList(), []byte("test-secret"))
	return NewRouter(handler, "http://localhost:5173")
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func signupAndLogin(t *testing.T, h http.Handler, name, email, password string) (token, userID string) {
	t.Helper()
	w := doRequest(t, h, http.MethodPost, "/auth/signup", "",
		map[string]string{"name": name, "email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, h, http.MethodPost, "/auth/login", "",
		map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[map[string]string](t, w)
	require.NotEmpty(t, resp["token"])
	require.NotEmpty(t, resp["userId"])
	return resp["token"], resp["userId"]
}

func createSession(t *testing.T, h http.Handler, token string) string {
	t.Helper()
	w := doRequest(t, h, http.MethodPost, "/session/create", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[map[string]string](t, w)
	require.NotEmpty(t, resp["sessionId"])
	return resp["sessionId"]
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, &stubCompleter{replies: []string{"ok"}})
	w := doRequest(t, h, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestEndToEndChatFlow(t *testing.T) {
	h := newTestServer(t, &stubCompleter{replies: []string{"hi there"}})

	token, _ := signupAndLogin(t, h, "Ann", "ann@x.com", "pw1")
	sessionID := createSession(t, h, token)

	w := doRequest(t, h, http.MethodPost, "/chat/"+sessionID, token,
		map[string]string{"message": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "hi there", decode[map[string]string](t, w)["reply"])

	w = doRequest(t, h, http.MethodGet, "/history/"+sessionID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]store.Message](t, w)
	require.Len(t, history, 2)
	require.Equal(t, "human", history[0].Role)
	require.Equal(t, "hello", history[0].Content)
	require.Equal(t, "assistant", history[1].Role)
	require.Equal(t, "hi there", history[1].Content)

	w = doRequest(t, h, http.MethodGet, "/sessions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sessions := decode[[]store.Session](t, w)
	require.Len(t, sessions, 1)
	require.Equal(t, "New Chat", sessions[0].Title)
}

func TestBackToBackChatsKeepOrder(t *testing.T) {
	h := newTestServer(t, &stubCompleter{replies: []string{"R1", "R2"}})

	token, _ := signupAndLogin(t, h, "Ann", "ann@x.com", "pw1")
	sessionID := createSession(t, h, token)

	for _, msg := range []string{"m1", "m2"} {
		w := doRequest(t, h, http.MethodPost, "/chat/"+sessionID, token,
			map[string]string{"message": msg})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doRequest(t, h, http.MethodGet, "/history/"+sessionID, token, nil)
	history := decode[[]store.Message](t, w)
	var got []string
	for _, msg := range history {
		got = append(got, msg.Role+":"+msg.Content)
	}
	require.Equal(t, []string{"human:m1", "assistant:R1", "human:m2", "assistant:R2"}, got)
}

func TestSignupDuplicateEmail(t *testing.T) {
	h := newTestServer(t, &stubCompleter{replies: []string{"ok"}})

	w := doRequest(t, h, http.MethodPost, "/auth/signup", "",
		map[string]string{"name": "Ann", "email": "ann@x.com", "password": "pw1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, h, http.MethodPost, "/auth/signup", "",
		map[string]string{"name": "Ann", "email": "ann@x.com", "password": "pw2"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "user already exists", decode[map[string]string](t, w)["error"])
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	h := newTestServer(t, &stubCompleter{replies: []string{"ok"}})
	signupAndLogin(t, h, "Ann", "ann@x.com", "pw1")

	for _, creds := range []map[string]string{
		{"email": "ann@x.com", "password": "wrong"},
		{"email": "ghost@x.com", "password": "pw1"},
	} {
		w := doRequest(t, h, http.MethodPost, "/auth/login", "", creds)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "invalid credentials", decode[map[string]string](t, w)["error"])
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestServer(t, &stubCompleter{replies: []string{"ok"}})

	w := doRequest(t, h, http.MethodGet, "/sessions", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, h, http.MethodGet, "/sessions", "garbage.token.here", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	wrongSecret, _, err := auth.IssueToken("u1", []byte("other-secret"))
	require.NoError(t, err)
	w = doRequest(t, h, http.MethodGet, "/sessions", wrongSecret, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutRevokesAndStaysIdempotent(t *testing.T) {
	h := newTestServer(t, &stubCompleter{replies: []string{"ok"}})
	token, _ := signupAndLogin(t, h, "Ann", "ann@x.com", "pw1")

	w := doRequest(t, h, http.MethodGet, "/sessions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, h, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The token is now blacklisted for protected routes.
	w = doRequest(t, h, http.MethodGet, "/sessions", token, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "token invalidated", decode[map[string]string](t, w)["error"])

	// Logging out again, or with no token at all, still succeeds.
	w = doRequest(t, h, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doRequest(t, h, http.MethodPost, "/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSessionIsolationBetweenUsers(t *testing.T) {
	h := newTestServer(t, &stubCompleter{replies: []string{"reply-a"}})

	tokenA, _ := signupAndLogin(t, h, "Ann", "ann@x.com", "pw1")
	tokenB, _ := signupAndLogin(t, h, "Bob", "bob@x.com", "pw2")

	sessionA := createSession(t, h, tokenA)
	w := doRequest(t, h, http.MethodPost, "/chat/"+sessionA, tokenA,
		map[string]string{"message": "a private note"})
	require.Equal(t, http.StatusOK, w.Code)

	// B's session list never includes A's session.
	w = doRequest(t, h, http.MethodGet, "/sessions", tokenB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decode[[]store.Session](t, w))

	// A's session id under B's token yields an empty history, not A's turns.
	w = doRequest(t, h, http.MethodGet, "/history/"+sessionA, tokenB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decode[[]store.Message](t, w))
}

func TestRenameAndDeleteSession(t *testing.T) {
	h := newTestServer(t, &stubCompleter{replies: []string{"r"}})
	token, _ := signupAndLogin(t, h, "Ann", "ann@x.com", "pw1")
	sessionID := createSession(t, h, token)

	w := doRequest(t, h, http.MethodPost, "/chat/"+sessionID, token,
		map[string]string{"message": "hello"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, h, http.MethodPut, "/session/rename/"+sessionID, token,
		map[string]string{"newTitle": "Trip ideas"})
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, decode[map[string]bool](t, w)["success"])

	w = doRequest(t, h, http.MethodGet, "/sessions", token, nil)
	sessions := decode[[]store.Session](t, w)
	require.Len(t, sessions, 1)
	require.Equal(t, "Trip ideas", sessions[0].Title)

	// Renaming a session that doesn't exist still reports success.
	w = doRequest(t, h, http.MethodPut, "/session/rename/no-such-id", token,
		map[string]string{"newTitle": "x"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, h, http.MethodDelete, "/session/"+sessionID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, decode[map[string]bool](t, w)["success"])

	w = doRequest(t, h, http.MethodGet, "/sessions", token, nil)
	require.Empty(t, decode[[]store.Session](t, w))

	w = doRequest(t, h, http.MethodGet, "/history/"+sessionID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decode[[]store.Message](t, w))
}

func TestChatCompletionFailure(t *testing.T) {
	h := newTestServer(t, &stubCompleter{err: errors.New("provider down")})
	token, _ := signupAndLogin(t, h, "Ann", "ann@x.com", "pw1")
	sessionID := createSession(t, h, token)

	w := doRequest(t, h, http.MethodPost, "/chat/"+sessionID, token,
		map[string]string{"message": "hello"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "chat error", decode[map[string]string](t, w)["error"])

	// Nothing was written.
	w = doRequest(t, h, http.MethodGet, "/history/"+sessionID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decode[[]store.Message](t, w))
}
