package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/mayondo/mwf/internal/auth"
	"github.com/mayondo/mwf/internal/shared"
	_ "github.com/mayondo/mwf/testing"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	if s.user == nil || !strings.EqualFold(s.user.Username, username) {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func newUser(t *testing.T, roles ...string) *auth.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{ID: 7, Username: "ruth", PasswordHash: string(hash), IsActive: true, Roles: roles}
}

type authEnv struct {
	router   http.Handler
	sessions *shared.SessionManager
}

func newAuthEnv(t *testing.T, repo auth.Repository) authEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	handler := auth.NewHandler(nil, auth.NewService(repo), sessionManager, csrfManager)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessionManager.Load(req.Context(), req)
			if err != nil {
				t.Fatalf("load session: %v", err)
			}
			ctx := shared.ContextWithSession(req.Context(), sess)
			req = req.WithContext(ctx)
			cw := &commitWriter{ResponseWriter: w, commit: func() {
				if err := sessionManager.Commit(ctx, w, req, sess); err != nil {
					t.Errorf("commit session: %v", err)
				}
			}}
			next.ServeHTTP(cw, req)
			if !cw.wrote {
				cw.WriteHeader(http.StatusOK)
			}
		})
	})
	r.Route("/auth", handler.MountRoutes)
	return authEnv{router: r, sessions: sessionManager}
}

// commitWriter persists the session before the first header is flushed.
type commitWriter struct {
	http.ResponseWriter
	commit func()
	wrote  bool
}

func (w *commitWriter) WriteHeader(status int) {
	if !w.wrote {
		w.wrote = true
		w.commit()
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *commitWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (e authEnv) login(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	e.router.ServeHTTP(res, req)
	return res
}

func TestLoginSuccess(t *testing.T) {
	repo := &stubRepo{user: newUser(t, shared.RoleManager)}
	env := newAuthEnv(t, repo)

	res := env.login(`{"username":"Ruth","password":"secret123","role":"manager"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var body struct {
		UserID      int64    `json:"user_id"`
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.UserID != 7 || body.Role != shared.RoleManager {
		t.Fatalf("unexpected session body: %+v", body)
	}
	if len(body.Permissions) != len(shared.ManagerScopes()) {
		t.Fatalf("expected manager scopes, got %v", body.Permissions)
	}
	if len(repo.sessions) != 1 {
		t.Fatalf("expected session row to be registered")
	}

	cookies := res.Result().Cookies()
	if len(cookies) == 0 || cookies[0].Name != env.sessions.CookieName() {
		t.Fatalf("expected session cookie, got %v", cookies)
	}
	me := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	me.AddCookie(cookies[0])
	meRes := httptest.NewRecorder()
	env.router.ServeHTTP(meRes, me)
	if meRes.Code != http.StatusOK {
		t.Fatalf("expected /me to resolve session, got %d", meRes.Code)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newAuthEnv(t, &stubRepo{user: newUser(t, shared.RoleEmployee)})

	res := env.login(`{"username":"ruth","password":"wrong","role":"Employee"}`)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Invalid username or password.") {
		t.Fatalf("expected generic credential message, got %s", res.Body.String())
	}

	res = env.login(`{"username":"nobody","password":"secret123","role":"Employee"}`)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", res.Code)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	user := newUser(t, shared.RoleEmployee)
	user.IsActive = false
	env := newAuthEnv(t, &stubRepo{user: user})

	res := env.login(`{"username":"ruth","password":"secret123","role":"Employee"}`)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestLoginRoleMismatch(t *testing.T) {
	env := newAuthEnv(t, &stubRepo{user: newUser(t, shared.RoleEmployee)})

	res := env.login(`{"username":"ruth","password":"secret123","role":"Manager"}`)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "not authorized as this role") {
		t.Fatalf("unexpected body %s", res.Body.String())
	}
}

func TestLoginRejectsUnknownRole(t *testing.T) {
	env := newAuthEnv(t, &stubRepo{user: newUser(t, shared.RoleEmployee)})

	res := env.login(`{"username":"ruth","password":"secret123","role":"Admin"}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	repo := &stubRepo{user: newUser(t, shared.RoleEmployee)}
	env := newAuthEnv(t, repo)

	res := env.login(`{"username":"ruth","password":"secret123","role":"Employee"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("login failed: %d", res.Code)
	}
	cookie := res.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	env.router.ServeHTTP(out, req)
	if out.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", out.Code)
	}
	if len(repo.sessions) != 0 {
		t.Fatalf("expected session row removed")
	}

	me := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	me.AddCookie(cookie)
	meRes := httptest.NewRecorder()
	env.router.ServeHTTP(meRes, me)
	if meRes.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", meRes.Code)
	}
}
