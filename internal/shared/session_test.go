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

func newTestSessions(t *testing.T, ttl time.Duration) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "bago_session", "secret", ttl, false), mr
}

func commitFresh(t *testing.T, sm *SessionManager, mutate func(*Session)) (*Session, *http.Cookie) {
	t.Helper()
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	mutate(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, req, sess))
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		return sess, nil
	}
	return sess, cookies[0]
}

func TestAnonymousSessionIsNotStored(t *testing.T) {
	sm, mr := newTestSessions(t, time.Hour)

	_, cookie := commitFresh(t, sm, func(*Session) {})
	require.Nil(t, cookie)
	require.Empty(t, mr.Keys())
}

func TestSessionRoundTrip(t *testing.T) {
	sm, _ := newTestSessions(t, time.Hour)
	sess, cookie := commitFresh(t, sm, func(s *Session) {
		s.SetUser("42")
		s.Set(CSRFSessionKey, "tok")
	})
	require.NotNil(t, cookie)
	require.Equal(t, sess.ID, cookie.Value)
	require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	require.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "42", loaded.User())
	require.Equal(t, "tok", loaded.Get(CSRFSessionKey))
	require.Equal(t, int64(42), ActorID(ContextWithSession(context.Background(), loaded)))
}

func TestSessionTTLSlidesOnEachRequest(t *testing.T) {
	sm, mr := newTestSessions(t, 12*time.Hour)
	sess, cookie := commitFresh(t, sm, func(s *Session) { s.SetUser("1") })
	key := "session:" + sess.ID

	mr.FastForward(11 * time.Hour)
	require.Equal(t, time.Hour, mr.TTL(key))

	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req, loaded))
	require.Equal(t, 12*time.Hour, mr.TTL(key))

	mr.FastForward(13 * time.Hour)
	expired, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Empty(t, expired.User())
	require.NotEqual(t, sess.ID, expired.ID)
}

func TestRenewRotatesIdentifier(t *testing.T) {
	sm, mr := newTestSessions(t, time.Hour)
	sess, cookie := commitFresh(t, sm, func(s *Session) { s.Set("k", "v") })
	oldID := sess.ID

	ctx := context.Background()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sm.Renew(loaded)
	loaded.SetUser("5")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), req, loaded))

	require.NotEqual(t, oldID, loaded.ID)
	require.False(t, mr.Exists("session:"+oldID))
	require.True(t, mr.Exists("session:"+loaded.ID))
}

func TestDestroyClearsCookie(t *testing.T) {
	sm, mr := newTestSessions(t, time.Hour)
	sess, cookie := commitFresh(t, sm, func(s *Session) { s.SetUser("9") })

	ctx := context.Background()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sm.Destroy(loaded)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, req, loaded))

	require.False(t, mr.Exists("session:"+sess.ID))
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	require.Equal(t, -1, cleared[0].MaxAge)
}

func TestCSRFVerify(t *testing.T) {
	csrf := NewCSRFManager("secret")
	sess := &Session{ID: "abc"}
	ctx := context.Background()

	require.ErrorIs(t, csrf.VerifyToken(ctx, sess, "x"), ErrCSRFTokenMissing)

	token, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	again, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, token, again)

	require.NoError(t, csrf.VerifyToken(ctx, sess, token))
	require.ErrorIs(t, csrf.VerifyToken(ctx, sess, token+"x"), ErrCSRFTokenMismatch)
	require.ErrorIs(t, csrf.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)
}
