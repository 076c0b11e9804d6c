package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoja/pkg/logger"
)

func TestProfileMiddleware_IssuesAndReusesToken(t *testing.T) {
	m := NewProfileMiddleware("test-secret", time.Hour, false, logger.NewNop())

	var seen []string
	h := m.Identify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := ProfileIDFromContext(r.Context())
		require.True(t, ok)
		seen = append(seen, id)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	token := w.Header().Get(ProfileHeader)
	require.NotEmpty(t, token)
	require.Len(t, w.Result().Cookies(), 1)
	assert.Equal(t, ProfileCookie, w.Result().Cookies()[0].Name)

	// header
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ProfileHeader, token)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get(ProfileHeader))

	// cookie
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ProfileCookie, Value: token})
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, seen, 3)
	assert.Equal(t, seen[0], seen[1])
	assert.Equal(t, seen[0], seen[2])
}

func TestProfileMiddleware_RejectsForeignToken(t *testing.T) {
	issuer := NewProfileMiddleware("other-secret", time.Hour, false, logger.NewNop())
	token, err := issuer.IssueToken("0b6f2c1e-7d6b-4a8e-9e55-0c1d2e3f4a5b")
	require.NoError(t, err)

	m := NewProfileMiddleware("test-secret", time.Hour, false, logger.NewNop())
	_, err = m.ParseToken(token)
	assert.Error(t, err)

	own, err := m.IssueToken("0b6f2c1e-7d6b-4a8e-9e55-0c1d2e3f4a5b")
	require.NoError(t, err)
	id, err := m.ParseToken(own)
	require.NoError(t, err)
	assert.Equal(t, "0b6f2c1e-7d6b-4a8e-9e55-0c1d2e3f4a5b", id)

	expired := NewProfileMiddleware("test-secret", -time.Minute, false, logger.NewNop())
	stale, err := expired.IssueToken("0b6f2c1e-7d6b-4a8e-9e55-0c1d2e3f4a5b")
	require.NoError(t, err)
	_, err = m.ParseToken(stale)
	assert.Error(t, err)
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestBodyLimit(t *testing.T) {
	h := BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("short")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("far too long for the limit")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestCorrelationID(t *testing.T) {
	var fromCtx string
	h := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "req-1", fromCtx)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCORS_Preflight(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://hoja.example")
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart", nil)
	req.Header.Set("Origin", "https://hoja.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://hoja.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), ProfileHeader)
}

func TestRateLimiter(t *testing.T) {
	rdb := redisOrSkip(t)
	rl := NewRateLimiter(rdb, 2, time.Minute, logger.NewNop())
	h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithProfileID(req.Context(), "rate-"+time.Now().Format(time.RFC3339Nano)))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
