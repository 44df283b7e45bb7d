package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gatemail/internal/cache"
	"github.com/gatemail/internal/config"
	"github.com/gatemail/internal/models"
	"github.com/gatemail/internal/repository"
	"github.com/gatemail/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestCORSPolicyAllowOrigin(t *testing.T) {
	cases := []struct {
		name   string
		cfg    config.CORSConfig
		origin string
		want   string
	}{
		{"wildcard", config.CORSConfig{AllowedOrigins: []string{"*"}}, "https://example.com", "*"},
		{"wildcard with credentials echoes", config.CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true}, "https://example.com", "https://example.com"},
		{"empty list acts as wildcard", config.CORSConfig{}, "https://example.com", "*"},
		{"allow-list match", config.CORSConfig{AllowedOrigins: []string{"https://a.example.com", "https://b.example.com"}}, "https://A.example.com", "https://A.example.com"},
		{"allow-list miss", config.CORSConfig{AllowedOrigins: []string{"https://a.example.com"}}, "https://x.example.com", ""},
		{"allow-list without origin", config.CORSConfig{AllowedOrigins: []string{"https://a.example.com"}}, "", ""},
	}
	for _, tc := range cases {
		if got := newCORSPolicy(tc.cfg).allowOrigin(tc.origin); got != tc.want {
			t.Fatalf("%s: want %q got %q", tc.name, tc.want, got)
		}
	}
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware(config.CORSConfig{AllowedOrigins: []string{"https://a.example.com"}, MaxAge: 600}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://a.example.com")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight want 204 got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Max-Age") != "600" {
		t.Fatalf("unexpected max age: %q", w.Header().Get("Access-Control-Max-Age"))
	}
	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), "Retry-After") {
		t.Fatalf("Retry-After should be exposed: %q", w.Header().Get("Access-Control-Expose-Headers"))
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w2, req2)
	generated := w2.Header().Get(requestIDHeader)
	if generated == "" {
		t.Fatalf("generated request id should not be empty")
	}
	if resp := strings.TrimSpace(generated); resp == "" {
		t.Fatalf("generated request id should not be blank")
	}
}

func TestJWTAuthMiddlewareMissingSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(JWTAuthMiddleware(nil, ""))
	r.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status want 401 got %d", w.Code)
	}
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("status_code want 401 got %d", resp.StatusCode)
	}
}

func setupAuthMiddlewareTest(t *testing.T) (*service.AuthService, *models.Admin, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_auth_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Admin{}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	cfg := &config.Config{JWT: config.JWTConfig{SecretKey: "router-test-secret", ExpireHours: 1}}
	repo := repository.NewAdminRepository(db)
	authService := service.NewAuthService(cfg, repo, cache.NewMemoryStore("test"))

	hash, err := authService.HashPassword("OldPassword1")
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	admin := &models.Admin{Username: "operator", PasswordHash: hash}
	if err := repo.Create(admin); err != nil {
		t.Fatalf("create admin failed: %v", err)
	}

	r := gin.New()
	r.Use(JWTAuthMiddleware(authService, cfg.JWT.SecretKey))
	r.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"admin_id": c.GetUint("admin_id")})
	})
	return authService, admin, r
}

func TestJWTAuthMiddlewareAcceptsValidToken(t *testing.T) {
	authService, admin, r := setupAuthMiddlewareTest(t)

	token, _, err := authService.GenerateJWT(admin)
	if err != nil {
		t.Fatalf("generate jwt failed: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d body=%s", w.Code, w.Body.String())
	}

	bad := httptest.NewRecorder()
	badReq := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	badReq.Header.Set("Authorization", "Token "+token)
	r.ServeHTTP(bad, badReq)
	if bad.Code != http.StatusUnauthorized {
		t.Fatalf("non-bearer scheme should be rejected, got %d", bad.Code)
	}
}

func TestJWTAuthMiddlewareRejectsTokenAfterPasswordChange(t *testing.T) {
	authService, admin, r := setupAuthMiddlewareTest(t)

	token, _, err := authService.GenerateJWT(admin)
	if err != nil {
		t.Fatalf("generate jwt failed: %v", err)
	}
	if err := authService.ChangePassword(context.Background(), admin.ID, "OldPassword1", "NewPassword2"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token status want 401 got %d", w.Code)
	}
}
