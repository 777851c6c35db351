package mw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"gearguard-backend/internal/auth"
	"gearguard-backend/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type tokenTable map[string]model.Identity

func (t tokenTable) CurrentIdentity(_ context.Context, token string) (*model.Identity, error) {
	if token == "broken" {
		return nil, errors.New("store down")
	}
	ident, ok := t[token]
	if !ok {
		return nil, auth.ErrUnauthenticated
	}
	return &ident, nil
}

var tokens = tokenTable{
	"admin-token": {ID: "1", Username: "admin", Role: model.RoleAdmin},
	"team-token":  {ID: "2", Username: "mechanics", Role: model.RoleTeam, TeamID: "t1"},
}

func newAuthRouter(required bool) *gin.Engine {
	r := gin.New()
	r.Use(Identify(tokens, required, zap.NewNop()))
	r.GET("/whoami", func(c *gin.Context) {
		ident, ok := IdentityFrom(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, ident.Username)
	})
	r.POST("/admin", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func serve(r http.Handler, method, path, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdentify(t *testing.T) {
	testCases := []struct {
		name          string
		required      bool
		authorization string
		wantStatus    int
		wantBody      string
	}{
		{"anonymous allowed", false, "", http.StatusOK, "anonymous"},
		{"anonymous required", true, "", http.StatusUnauthorized, ""},
		{"admin token", true, "Bearer admin-token", http.StatusOK, "admin"},
		{"lowercase scheme", false, "bearer team-token", http.StatusOK, "mechanics"},
		{"unknown token", false, "Bearer nope", http.StatusUnauthorized, ""},
		{"malformed header", false, "Token admin-token", http.StatusUnauthorized, ""},
		{"resolver failure", false, "Bearer broken", http.StatusInternalServerError, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(newAuthRouter(tc.required), http.MethodGet, "/whoami", tc.authorization)
			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantBody != "" {
				assert.Equal(t, tc.wantBody, w.Body.String())
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	r := newAuthRouter(false)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/admin", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodPost, "/admin", "Bearer team-token").Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPost, "/admin", "Bearer admin-token").Code)
}

func TestResponseCache(t *testing.T) {
	rc := NewResponseCache(time.Minute)
	hits := 0
	r := gin.New()
	r.Use(rc.Invalidate(), rc.Cache())
	r.GET("/teams", func(c *gin.Context) {
		hits++
		c.JSON(http.StatusOK, gin.H{"hits": hits})
	})
	r.POST("/teams", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.DELETE("/teams", func(c *gin.Context) { c.Status(http.StatusConflict) })

	first := serve(r, http.MethodGet, "/teams", "")
	second := serve(r, http.MethodGet, "/teams", "")
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, 1, hits)

	serve(r, http.MethodDelete, "/teams", "")
	serve(r, http.MethodGet, "/teams", "")
	assert.Equal(t, 1, hits, "a failed mutation keeps the cache")

	serve(r, http.MethodPost, "/teams", "")
	third := serve(r, http.MethodGet, "/teams", "")
	assert.Equal(t, 2, hits, "a successful mutation flushes the cache")
	assert.JSONEq(t, `{"hits":2}`, third.Body.String())
}

func TestResponseCache_Disabled(t *testing.T) {
	rc := NewResponseCache(0)
	hits := 0
	r := gin.New()
	r.Use(rc.Cache())
	r.GET("/x", func(c *gin.Context) { hits++; c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/x", "")
	serve(r, http.MethodGet, "/x", "")
	assert.Equal(t, 2, hits)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 2)
	r := gin.New()
	r.Use(RateLimiter(limiter))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	var codes []int
	for i := 0; i < 3; i++ {
		codes = append(codes, serve(r, http.MethodGet, "/x", "").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_DropsIdleBuckets(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 1)
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }
	limiter.lastSweep = clock

	r := gin.New()
	r.Use(RateLimiter(limiter))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	from := func(ip string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = ip + ":40000"
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, from("10.0.0.1"))
	assert.Equal(t, http.StatusOK, from("10.0.0.2"))
	assert.Len(t, limiter.visitors, 2)

	clock = clock.Add(5 * time.Minute)
	from("10.0.0.2")
	assert.Len(t, limiter.visitors, 2, "no sweep inside the idle window")

	clock = clock.Add(6 * time.Minute)
	from("10.0.0.3")
	assert.Len(t, limiter.visitors, 2)
	assert.NotContains(t, limiter.visitors, "10.0.0.1")
	assert.Contains(t, limiter.visitors, "10.0.0.2")
	assert.Contains(t, limiter.visitors, "10.0.0.3")
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	serve(r, http.MethodGet, "/ok", "")
	serve(r, http.MethodGet, "/boom", "")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, zap.InfoLevel, entries[0].Level)
		assert.Equal(t, "/ok", entries[0].ContextMap()["path"])
		assert.Equal(t, zap.ErrorLevel, entries[1].Level)
		assert.EqualValues(t, 500, entries[1].ContextMap()["status"])
	}
}
