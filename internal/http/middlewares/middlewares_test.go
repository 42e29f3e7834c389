package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/authgate/internal/actorctx"
	"github.com/geocoder89/authgate/internal/auth"
	"github.com/geocoder89/authgate/internal/domain/principal"
	"github.com/geocoder89/authgate/internal/observability"
	"github.com/gin-gonic/gin"
)

type fakeGate struct {
	calls int
	got   auth.GateRequest
	id    principal.Identity
	err   error
}

func (f *fakeGate) AuthorizeAdmin(ctx context.Context, in auth.GateRequest) (principal.Identity, error) {
	f.calls++
	f.got = in
	return f.id, f.err
}

func TestRequireAdminAccess_AttachesIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	gate := &fakeGate{id: principal.Identity{ID: "a-1", Email: "root@b.com", Permissions: []principal.Permission{principal.PermDelete}}}
	reached := false

	r := gin.New()
	r.DELETE("/purge", RequireAdminAccess(gate), func(c *gin.Context) {
		id, ok := actorctx.AdminFrom(c.Request.Context())
		if !ok || id.ID != "a-1" {
			t.Errorf("identity not on context: %+v", id)
		}
		if v, _ := c.Get(CtxAdminID); v != "a-1" {
			t.Errorf("admin id not set on gin context: %v", v)
		}
		reached = true
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodDelete, "/purge",
		strings.NewReader(`{"adminEmail":"root@b.com","adminPassword":"p","secretKey":"s"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || !reached {
		t.Fatalf("status = %d reached = %v", w.Code, reached)
	}
	if gate.got.AdminEmail != "root@b.com" || gate.got.SecretKey != "s" {
		t.Fatalf("gate input = %+v", gate.got)
	}
}

func TestRequireAdminAccess_BlocksOnFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	gate := &fakeGate{err: auth.ErrInsufficientPermission}

	r := gin.New()
	r.DELETE("/purge", RequireAdminAccess(gate), func(c *gin.Context) {
		t.Errorf("guarded handler ran after a failed gate")
	})

	req := httptest.NewRequest(http.MethodDelete, "/purge", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRequireAdminAccess_BadJSONSkipsGate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	gate := &fakeGate{}
	r := gin.New()
	r.DELETE("/purge", RequireAdminAccess(gate), func(c *gin.Context) {
		t.Errorf("guarded handler ran")
	})

	req := httptest.NewRequest(http.MethodDelete, "/purge", strings.NewReader(`{"adminEmail":`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest || gate.calls != 0 {
		t.Fatalf("status = %d calls = %d", w.Code, gate.calls)
	}
}

func TestRequestTimeout_SetsDeadline(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestTimeout(50 * time.Millisecond))
	r.GET("/", func(c *gin.Context) {
		deadline, ok := c.Request.Context().Deadline()
		if !ok || time.Until(deadline) > 50*time.Millisecond {
			t.Errorf("deadline = %v, %v", deadline, ok)
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRequestID_PropagatesToRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		id, ok := observability.RequestIDFrom(c.Request.Context())
		if !ok || id != "req-123" {
			t.Errorf("request id on context = %q", id)
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("X-Request-Id") != "req-123" {
		t.Fatalf("response header = %q", w.Header().Get("X-Request-Id"))
	}
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORSMiddleware([]string{"http://ok.test"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"allowed origin", http.MethodGet, "http://ok.test", http.StatusOK, "http://ok.test"},
		{"unknown origin", http.MethodGet, "http://evil.test", http.StatusOK, ""},
		{"preflight", http.MethodOptions, "http://ok.test", http.StatusNoContent, "http://ok.test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Fatalf("allow origin = %q, want %q", got, tt.wantAllow)
			}
		})
	}
}

func TestRequireJSON_DeleteWithoutBodyPasses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequireJSON())
	r.DELETE("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "text/plain")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d", w.Code)
	}
}


func TestMaxBodyBytes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	reached := false
	r := gin.New()
	r.POST("/x", MaxBodyBytes(8), func(c *gin.Context) {
		reached = true
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"a":"0123456789"}`)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
	if reached {
		t.Fatalf("handler ran for oversize body")
	}
	if !strings.Contains(w.Body.String(), `"body_too_large"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{}`)))
	if w.Code != http.StatusNoContent || !reached {
		t.Fatalf("small body should pass, got %d", w.Code)
	}
}
