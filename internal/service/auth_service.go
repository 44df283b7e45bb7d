package service

import (
	"context"
	"errors"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/gatemail/internal/cache"
	"github.com/gatemail/internal/config"
	"github.com/gatemail/internal/logger"
	"github.com/gatemail/internal/models"
	"github.com/gatemail/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminPasswordMinLength = 8
	adminTokenIssuer       = "gatemail-admin"
)

var (
	// ErrWeakPassword 新密码不满足最小长度
	ErrWeakPassword = errors.New("password too weak")
	// ErrTokenInvalid 管理端 Token 无法解析或已过期
	ErrTokenInvalid = errors.New("admin token invalid")
)

// 用户不存在时也做一次 bcrypt 比对，登录耗时与用户名是否存在无关
var dummyPasswordHash, _ = bcrypt.GenerateFromPassword([]byte("gatemail-dummy-password"), bcrypt.MinCost)

// JWTClaims 管理端 Token 声明
type JWTClaims struct {
	AdminID      uint   `json:"admin_id"`
	Username     string `json:"username"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// LoginResult 登录成功返回的账号与 Token
type LoginResult struct {
	Admin     *models.Admin
	Token     string
	ExpiresAt time.Time
}

// AuthService 管理员认证：bcrypt 口令、HS256 Token 与鉴权快照缓存
type AuthService struct {
	jwtCfg    config.JWTConfig
	adminRepo repository.AdminRepository
	store     cache.Store
	now       func() time.Time
}

func NewAuthService(cfg *config.Config, adminRepo repository.AdminRepository, store cache.Store) *AuthService {
	s := &AuthService{adminRepo: adminRepo, store: store, now: time.Now}
	if cfg != nil {
		s.jwtCfg = cfg.JWT
	}
	return s
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func (s *AuthService) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func (s *AuthService) tokenTTL() time.Duration {
	hours := s.jwtCfg.ExpireHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// GenerateJWT 签发管理端 Token，sub 为管理员 ID
func (s *AuthService) GenerateJWT(admin *models.Admin) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.tokenTTL())
	claims := JWTClaims{
		AdminID:      admin.ID,
		Username:     admin.Username,
		TokenVersion: admin.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    adminTokenIssuer,
			Subject:   strconv.FormatUint(uint64(admin.ID), 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtCfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseJWT 校验签名、算法、签发方与有效期
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.jwtCfg.SecretKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(adminTokenIssuer),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, errors.Join(ErrTokenInvalid, err)
	}
	return claims, nil
}

// Login 用户名或密码错误统一返回 ErrInvalidCredentials
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	admin, err := s.adminRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if s.VerifyPassword(admin.PasswordHash, password) != nil {
		logger.Warnw("admin_login_password_mismatch", "admin_id", admin.ID)
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.GenerateJWT(admin)
	if err != nil {
		return nil, err
	}
	loginAt := s.now()
	if err := s.adminRepo.TouchLastLogin(admin.ID, loginAt); err != nil {
		return nil, err
	}
	admin.LastLoginAt = &loginAt
	s.cacheAuthState(ctx, admin)
	return &LoginResult{Admin: admin, Token: token, ExpiresAt: expiresAt}, nil
}

// ResolveAuthState 先读缓存，未命中或缓存故障时回源数据库；账号不存在返回 nil
func (s *AuthService) ResolveAuthState(ctx context.Context, adminID uint) (*cache.AdminAuthState, error) {
	state, found, err := cache.GetAdminAuthState(ctx, s.store, adminID)
	if err != nil {
		logger.Warnw("admin_auth_state_cache_read_failed", "admin_id", adminID, "error", err)
	}
	if found {
		return state, nil
	}
	admin, err := s.adminRepo.GetByID(adminID)
	if err != nil || admin == nil {
		return nil, err
	}
	s.cacheAuthState(ctx, admin)
	return cache.BuildAdminAuthState(admin), nil
}

// ChangePassword 改密后版本号递增，此前签发的 Token 全部失效
func (s *AuthService) ChangePassword(ctx context.Context, adminID uint, oldPassword, newPassword string) error {
	admin, err := s.adminRepo.GetByID(adminID)
	switch {
	case err != nil:
		return err
	case admin == nil:
		return ErrNotFound
	}
	if s.VerifyPassword(admin.PasswordHash, oldPassword) != nil {
		return ErrInvalidPassword
	}
	if utf8.RuneCountInString(newPassword) < adminPasswordMinLength {
		return ErrWeakPassword
	}
	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}

	revokedAt := s.now()
	admin.PasswordHash = hash
	admin.TokenVersion++
	admin.TokenInvalidBefore = &revokedAt
	if err := s.adminRepo.Update(admin); err != nil {
		return err
	}
	s.cacheAuthState(ctx, admin)
	return nil
}

func (s *AuthService) cacheAuthState(ctx context.Context, admin *models.Admin) {
	if err := cache.SetAdminAuthState(ctx, s.store, cache.BuildAdminAuthState(admin)); err != nil {
		logger.Warnw("admin_auth_state_cache_write_failed", "admin_id", admin.ID, "error", err)
	}
}
