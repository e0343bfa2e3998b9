package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "mwf_session", "secret", time.Hour, false)
}

func commitSession(t *testing.T, sm *SessionManager, sess *Session) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, sm.Commit(context.Background(), rec, req, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newTestSessions(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser(7, "Manager")
	cookie := commitSession(t, sm, sess)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Equal(t, sess.ID, loaded.ID)
	id, ok := loaded.UserID()
	require.True(t, ok)
	require.Equal(t, int64(7), id)
	require.Equal(t, "Manager", loaded.Role())
}

func TestSessionTamperedCookieStartsFresh(t *testing.T) {
	sm := newTestSessions(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser(7, "Manager")
	cookie := commitSession(t, sm, sess)

	cookie.Value = sess.ID + ".forged"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.NotEqual(t, sess.ID, loaded.ID)
	_, ok := loaded.UserID()
	require.False(t, ok)
}

func TestSessionDestroyExpiresCookie(t *testing.T) {
	sm := newTestSessions(t)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sm.Destroy(sess)
	cookie := commitSession(t, sm, sess)
	require.Equal(t, -1, cookie.MaxAge)
	require.Empty(t, cookie.Value)
}

func TestCSRFTokenBoundToSession(t *testing.T) {
	sm := newTestSessions(t)
	csrf := NewCSRFManager("csrf-secret")
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	token, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)

	again, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, token, again)

	require.NoError(t, csrf.VerifyToken(ctx, sess, token))
	require.ErrorIs(t, csrf.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)
	require.ErrorIs(t, csrf.VerifyToken(ctx, sess, token+"x"), ErrCSRFTokenMismatch)

	other, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	other.Set(CSRFSessionKey, token)
	require.ErrorIs(t, csrf.VerifyToken(ctx, other, token), ErrCSRFTokenMismatch)
}
