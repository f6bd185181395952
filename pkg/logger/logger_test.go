package logger

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestNew_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "headsetd.log")
	log, closer := New(Options{Env: "dev", File: path})

	log.Debug("device connected", "vendor", "plantronics")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), `"vendor":"plantronics"`) {
		t.Fatalf("expected json record in file, got %q", string(b))
	}
}

func TestNew_NoFileCloserIsNoop(t *testing.T) {
	_, closer := New(Options{Env: "production"})
	if err := closer.Close(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestFrom_FallsBackToDefault(t *testing.T) {
	if From(context.Background()) == nil {
		t.Fatalf("expected default logger")
	}
}

func TestRequestLogger_SetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, _ := New(Options{Env: "production"})

	r := gin.New()
	r.Use(RequestLogger(log))
	var sameLogger bool
	r.GET("/x", func(c *gin.Context) {
		sameLogger = From(c.Request.Context()) == FromGin(c)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	if w.Header().Get(headerRequestID) == "" {
		t.Fatalf("expected request id header")
	}
	if !sameLogger {
		t.Fatalf("expected request logger in request context")
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "rid-1")
	r.ServeHTTP(w, req)
	if got := w.Header().Get(headerRequestID); got != "rid-1" {
		t.Fatalf("expected propagated request id, got %q", got)
	}
}

func TestRequestLogger_LogsClientAndRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	r := gin.New()
	r.Use(RequestLogger(log))
	r.Use(func(c *gin.Context) { c.Set(ClientKey, "softphone") })
	r.GET("/v1/status", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/v1/status?access_token=secret", nil)
	req.Header.Set(headerRequestID, strings.Repeat("x", maxRequestIDLen+1))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get(headerRequestID); len(got) > maxRequestIDLen {
		t.Fatalf("oversized request id must be replaced, got %q", got)
	}
	out := buf.String()
	for _, want := range []string{`"client":"softphone"`, `"route":"/v1/status"`, `"status":200`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %q", want, out)
		}
	}
	if strings.Contains(out, "secret") {
		t.Fatalf("query string leaked into log: %q", out)
	}

	buf.Reset()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if buf.Len() != 0 {
		t.Fatalf("health probes log at debug, got %q", buf.String())
	}
}
