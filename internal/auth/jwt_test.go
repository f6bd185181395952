package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"headset-bridge/internal/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:      "secret",
		JWTIssuer:      "headsetd",
		JWTAudience:    "softphone",
		AccessTokenTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m := newTestManager(t)

	now := time.Unix(1700000000, 0).UTC()
	tok, err := m.Issue(now, "softphone-1", []string{ScopeControl})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.Verify(tok, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "softphone-1" || !claims.HasScope(ScopeControl) {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1700000000, 0).UTC()
	tok, _ := m.Issue(now, "c", []string{ScopeRead})

	if _, err := m.Verify(tok, now.Add(time.Hour)); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	m := newTestManager(t)
	other, _ := NewManager(config.AuthConfig{JWTSecret: "other", JWTIssuer: "headsetd", JWTAudience: "softphone"})
	now := time.Now()
	tok, _ := other.Issue(now, "c", []string{ScopeRead})

	if _, err := m.Verify(tok, now); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestIssueRequiresScopes(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Issue(time.Now(), "c", nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMiddleware_HeaderAndQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newTestManager(t)
	readTok, _ := m.Issue(time.Now(), "c", []string{ScopeRead})
	expiredTok, _ := m.Issue(time.Now().Add(-time.Hour), "c", []string{ScopeRead})

	r := gin.New()
	g := r.Group("/", RequireAccessToken(m))
	g.GET("/status", func(c *gin.Context) {
		id, err := ClientID(c.Request.Context())
		if err != nil || id != "c" || len(Scopes(c.Request.Context())) != 1 {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name   string
		method string
		target string
		header string
		want   int
	}{
		{"no token", http.MethodGet, "/status", "", http.StatusUnauthorized},
		{"bearer", http.MethodGet, "/status", "Bearer " + readTok, http.StatusOK},
		{"query", http.MethodGet, "/status?access_token=" + readTok, "", http.StatusOK},
		{"garbage", http.MethodGet, "/status", "Bearer nope", http.StatusUnauthorized},
		{"expired", http.MethodGet, "/status", "Bearer " + expiredTok, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.target, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, w.Code)
		}
	}
}
