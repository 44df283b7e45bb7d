package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gatemail/internal/cache"
	"github.com/gatemail/internal/config"
	"github.com/gatemail/internal/models"
	"github.com/gatemail/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

func setupAuthServiceTest(t *testing.T) (*AuthService, *models.Admin) {
	t.Helper()
	db := openServiceTestDB(t)
	cfg := &config.Config{JWT: config.JWTConfig{SecretKey: "auth-service-test-secret-0123456789", ExpireHours: 2}}
	svc := NewAuthService(cfg, repository.NewAdminRepository(db), cache.NewMemoryStore("auth-test"))

	hash, err := svc.HashPassword("Password123")
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	admin := &models.Admin{Username: "operator", PasswordHash: hash}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	return svc, admin
}

func TestAuthServiceLogin(t *testing.T) {
	svc, admin := setupAuthServiceTest(t)
	ctx := context.Background()

	result, err := svc.Login(ctx, "operator", "Password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.Admin.ID != admin.ID || result.Token == "" || result.Admin.LastLoginAt == nil {
		t.Fatalf("unexpected login result: %+v", result)
	}
	if ttl := time.Until(result.ExpiresAt); ttl < time.Hour || ttl > 2*time.Hour {
		t.Fatalf("unexpected token ttl: %v", ttl)
	}

	claims, err := svc.ParseJWT(result.Token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.AdminID != admin.ID || claims.Subject != "1" || claims.Issuer != adminTokenIssuer {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := svc.Login(ctx, "operator", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password should be ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "Password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user should be ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthServiceParseRejectsForeignTokens(t *testing.T) {
	svc, admin := setupAuthServiceTest(t)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		AdminID: admin.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := foreign.SignedString([]byte("auth-service-test-secret-0123456789"))
	if err != nil {
		t.Fatalf("sign foreign token failed: %v", err)
	}
	if _, err := svc.ParseJWT(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("foreign issuer should be rejected, got %v", err)
	}
	if _, err := svc.ParseJWT("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("garbage token should be rejected, got %v", err)
	}
}

func TestAuthServiceChangePasswordRevokesTokens(t *testing.T) {
	svc, admin := setupAuthServiceTest(t)
	ctx := context.Background()

	result, err := svc.Login(ctx, "operator", "Password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	claims, err := svc.ParseJWT(result.Token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}

	if err := svc.ChangePassword(ctx, admin.ID, "bad-old", "NewPassword1"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("wrong old password should be ErrInvalidPassword, got %v", err)
	}
	if err := svc.ChangePassword(ctx, admin.ID, "Password123", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("short password should be ErrWeakPassword, got %v", err)
	}
	if err := svc.ChangePassword(ctx, 999, "Password123", "NewPassword1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing admin should be ErrNotFound, got %v", err)
	}
	if err := svc.ChangePassword(ctx, admin.ID, "Password123", "NewPassword1"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	state, err := svc.ResolveAuthState(ctx, admin.ID)
	if err != nil || state == nil {
		t.Fatalf("resolve state failed: state=%v err=%v", state, err)
	}
	if state.Accepts(claims.TokenVersion, claims.IssuedAt.Time) {
		t.Fatalf("token issued before password change should be revoked")
	}
	if _, err := svc.Login(ctx, "operator", "NewPassword1"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}
