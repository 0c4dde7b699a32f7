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

	"github.com/bago-furniture/bago-inventory/internal/activity"
	"github.com/bago-furniture/bago-inventory/internal/auth"
	"github.com/bago-furniture/bago-inventory/internal/shared"
	_ "github.com/bago-furniture/bago-inventory/testing"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	if s.user == nil || s.user.Username != username {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

type stubPerms struct{}

func (stubPerms) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	return shared.StaffScopes(), nil
}

type stubActivity struct {
	entries []activity.Entry
}

func (s *stubActivity) Record(ctx context.Context, entry activity.Entry) {
	s.entries = append(s.entries, entry)
}

type harness struct {
	handler  *auth.Handler
	sessions *shared.SessionManager
	activity *stubActivity
	redis    *miniredis.Miniredis
}

func newHarness(t *testing.T, user *auth.User) harness {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	log := &stubActivity{}
	handler := auth.NewHandler(nil, auth.NewService(&stubRepo{user: user}), sessionManager, csrfManager, stubPerms{}, log)
	return harness{handler: handler, sessions: sessionManager, activity: log, redis: mr}
}

// commitWriter commits the session right before the first header write, as the app middleware does.
type commitWriter struct {
	http.ResponseWriter
	commit func()
	done   bool
}

func (w *commitWriter) WriteHeader(code int) {
	if !w.done {
		w.done = true
		w.commit()
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *commitWriter) Write(b []byte) (int, error) {
	if !w.done {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// serve runs one request through a session load/commit cycle.
func (h harness) serve(t *testing.T, method, target, body string, cookie *http.Cookie, fn http.HandlerFunc) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if cookie != nil {
		req.AddCookie(cookie)
	}
	sess, err := h.sessions.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)
	res := httptest.NewRecorder()
	w := &commitWriter{ResponseWriter: res, commit: func() {
		if err := h.sessions.Commit(ctx, res, req, sess); err != nil {
			t.Errorf("commit session: %v", err)
		}
	}}
	fn(w, req)
	return res, sess
}

func (h harness) router() http.HandlerFunc {
	r := chi.NewRouter()
	h.handler.MountRoutes(r)
	return r.ServeHTTP
}

func testUser(t *testing.T) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{ID: 1, Username: "kasir", FullName: "Kasir", Role: "staff", PasswordHash: string(hashed), IsActive: true}
}

func sessionCookie(t *testing.T, res *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range res.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestLoginSuccess(t *testing.T) {
	h := newHarness(t, testUser(t))
	router := h.router()

	res, sess := h.serve(t, http.MethodPost, "/login", `{"username":"Kasir","password":"correctpass"}`, nil, router)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var body struct {
		Success bool          `json:"success"`
		Data    auth.Identity `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Data.User.ID != 1 {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Data.CSRFToken == "" || body.Data.CSRFToken != sess.Get(shared.CSRFSessionKey) {
		t.Fatalf("csrf token not issued")
	}
	if strings.Contains(res.Body.String(), "password") {
		t.Fatalf("password hash leaked")
	}
	if sess.User() != "1" {
		t.Fatalf("session not bound to user, got %q", sess.User())
	}
	cookie := sessionCookie(t, res, h.sessions.CookieName())
	if cookie.Value != sess.ID {
		t.Fatalf("cookie does not carry renewed session id")
	}
	if len(h.activity.entries) != 1 || h.activity.entries[0].Action != activity.ActionLogin {
		t.Fatalf("expected LOGIN activity, got %+v", h.activity.entries)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newHarness(t, testUser(t))
	router := h.router()

	for _, body := range []string{
		`{"username":"kasir","password":"wrongpass"}`,
		`{"username":"nobody","password":"correctpass"}`,
	} {
		res, sess := h.serve(t, http.MethodPost, "/login", body, nil, router)
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", res.Code)
		}
		if !strings.Contains(res.Body.String(), "invalid username or password") {
			t.Fatalf("expected error message in response, got %s", res.Body.String())
		}
		if sess.User() != "" {
			t.Fatalf("session must stay anonymous")
		}
	}
	if len(h.activity.entries) != 0 {
		t.Fatalf("failed logins must not be recorded as LOGIN")
	}
}

func TestLoginInactiveUser(t *testing.T) {
	user := testUser(t)
	user.IsActive = false
	h := newHarness(t, user)

	res, _ := h.serve(t, http.MethodPost, "/login", `{"username":"kasir","password":"correctpass"}`, nil, h.router())
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestMeAndLogout(t *testing.T) {
	h := newHarness(t, testUser(t))
	router := h.router()

	res, _ := h.serve(t, http.MethodPost, "/login", `{"username":"kasir","password":"correctpass"}`, nil, router)
	cookie := sessionCookie(t, res, h.sessions.CookieName())

	res, _ = h.serve(t, http.MethodGet, "/me", "", cookie, router)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 from /me, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), shared.PermProductsEdit) {
		t.Fatalf("expected permissions in /me body: %s", res.Body.String())
	}

	res, _ = h.serve(t, http.MethodPost, "/logout", "", cookie, router)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 from logout, got %d", res.Code)
	}
	if last := h.activity.entries[len(h.activity.entries)-1]; last.Action != activity.ActionLogout {
		t.Fatalf("expected LOGOUT activity, got %s", last.Action)
	}
	if h.redis.Exists("session:" + cookie.Value) {
		t.Fatalf("session should be deleted after logout")
	}

	res, _ = h.serve(t, http.MethodGet, "/me", "", cookie, router)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", res.Code)
	}
}
