package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"backoffice/internal/domain"

	"github.com/gin-gonic/gin"
)

func TestLoggerTagsCallerRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(requestContextKey, domain.RequestContext{UserID: 1, Role: domain.RoleDispatcher})
	})
	r.Use(Logger())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	line := buf.String()
	if !strings.Contains(line, "role="+domain.RoleDispatcher) {
		t.Fatalf("access log should carry the caller role, got %q", line)
	}
	if !strings.Contains(line, "path=/ping") {
		t.Fatalf("access log should carry the path, got %q", line)
	}
}

func TestLoggerAnonymousRolePlaceholder(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	r := gin.New()
	r.Use(Logger())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if !strings.Contains(buf.String(), "role=-") {
		t.Fatalf("unauthenticated requests should log role=-, got %q", buf.String())
	}
}
