// 대시보드 인증 서비스 관련 함수 정의
//
// 계정은 부팅 시 ADMIN_USERNAME/ADMIN_PASSWORD로 프로비저닝하고,
// 로그인 세션은 JWT access 토큰 + 회전식 refresh 쿠키로 유지한다.
// 공개 가입 엔드포인트는 없다.

package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ops-triage/backend/internal/config"
	"github.com/ops-triage/backend/internal/db"
	"github.com/ops-triage/backend/internal/model"
)

const (
	refreshCookieName = "ops_triage_refresh"
	minLoginIDLength  = 3
	maxLoginIDLength  = 64
	minPasswordLength = 8
	maxPasswordLength = 128
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrMisconfigured = errors.New("auth config invalid")
)

// userStore - 인증 서비스가 사용하는 저장소 인터페이스
type userStore interface {
	CreateUser(ctx context.Context, loginID, passwordHash string) (*model.User, error)
	GetUserByLoginID(ctx context.Context, loginID string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	InsertRefreshToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, userID int64, newHash string, expiresAt time.Time) error
	RevokeRefreshTokenByHash(ctx context.Context, tokenHash string) error
}

// Session - 로그인/갱신 결과로 발급되는 토큰 쌍
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// CookieConfig - refresh 쿠키 발급 속성 (핸들러가 SetCookie에 사용)
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   int
}

type AuthService struct {
	store     userStore
	jwtSecret []byte
	cfg       config.AuthConfig
	cookieCfg CookieConfig
}

type authClaims struct {
	LoginID string `json:"loginId"`
	jwt.RegisteredClaims
}

func NewAuthService(store userStore, cfg config.AuthConfig) (*AuthService, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET is required", ErrMisconfigured)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("%w: token TTLs must be positive", ErrMisconfigured)
	}
	if cfg.CookieSameSite == http.SameSiteNoneMode && !cfg.CookieSecure {
		return nil, fmt.Errorf("%w: SameSite=None requires Secure cookie", ErrMisconfigured)
	}

	cookiePath := strings.TrimSpace(cfg.CookiePath)
	if cookiePath == "" {
		cookiePath = "/"
	}

	return &AuthService{
		store:     store,
		jwtSecret: []byte(cfg.JWTSecret),
		cfg:       cfg,
		cookieCfg: CookieConfig{
			Name:     refreshCookieName,
			Path:     cookiePath,
			Domain:   cfg.CookieDomain,
			Secure:   cfg.CookieSecure,
			SameSite: cfg.CookieSameSite,
			MaxAge:   int(cfg.RefreshTTL.Seconds()),
		},
	}, nil
}

func (s *AuthService) CookieConfig() CookieConfig {
	return s.cookieCfg
}

// EnsureAdmin - 관리자 계정 프로비저닝. 이미 있으면 아무것도 하지 않는다.
func (s *AuthService) EnsureAdmin(ctx context.Context, loginID, password string) error {
	if strings.TrimSpace(loginID) == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: ADMIN_USERNAME/ADMIN_PASSWORD are required", ErrMisconfigured)
	}

	_, err := s.store.GetUserByLoginID(ctx, loginID)
	if err == nil {
		return nil
	}
	if !db.IsNoRows(err) {
		return err
	}

	if err := validateCredentials(loginID, password); err != nil {
		return fmt.Errorf("%w: admin credentials out of range", ErrMisconfigured)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if _, err := s.store.CreateUser(ctx, loginID, string(hash)); err != nil {
		// 동시에 뜬 다른 인스턴스가 먼저 만든 경우
		if db.IsUniqueViolation(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *AuthService) Login(ctx context.Context, loginID, password string) (*Session, error) {
	if err := validateCredentials(loginID, password); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByLoginID(ctx, loginID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrUnauthorized
	}

	return s.issueSession(ctx, user)
}

// Refresh - refresh 토큰 검증 후 회전. 기존 토큰은 재사용할 수 없다.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrUnauthorized
	}

	record, err := s.store.GetRefreshTokenByHash(ctx, hashRefreshToken(refreshToken))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if record.RevokedAt != nil || time.Now().After(record.ExpiresAt) {
		return nil, ErrUnauthorized
	}

	user, err := s.store.GetUserByID(ctx, record.UserID)
	if err != nil {
		return nil, err
	}

	nextToken, nextHash, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.store.RotateRefreshToken(ctx, record.ID, record.UserID, nextHash, time.Now().Add(s.cfg.RefreshTTL)); err != nil {
		return nil, err
	}

	accessToken, expiresIn, err := s.signAccessToken(user)
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: accessToken, RefreshToken: nextToken, ExpiresIn: expiresIn}, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	return s.store.RevokeRefreshTokenByHash(ctx, hashRefreshToken(refreshToken))
}

// ParseAccessToken - HMAC 서명 검증 후 토큰의 사용자 정보 반환
func (s *AuthService) ParseAccessToken(tokenStr string) (*model.AuthUser, error) {
	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return &model.AuthUser{ID: userID, LoginID: claims.LoginID}, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *model.User) (*Session, error) {
	accessToken, expiresIn, err := s.signAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshHash, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertRefreshToken(ctx, user.ID, refreshHash, time.Now().Add(s.cfg.RefreshTTL)); err != nil {
		return nil, err
	}

	return &Session{AccessToken: accessToken, RefreshToken: refreshToken, ExpiresIn: expiresIn}, nil
}

func (s *AuthService) signAccessToken(user *model.User) (string, int64, error) {
	now := time.Now()
	claims := authClaims{
		LoginID: user.LoginID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(s.cfg.AccessTTL.Seconds()), nil
}

func validateCredentials(loginID, password string) error {
	loginID = strings.TrimSpace(loginID)
	password = strings.TrimSpace(password)

	if len(loginID) < minLoginIDLength || len(loginID) > maxLoginIDLength {
		return ErrInvalidInput
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrInvalidInput
	}
	return nil
}

// refresh 토큰은 평문을 저장하지 않고 sha256 해시만 저장한다
func newRefreshToken() (string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	return token, hashRefreshToken(token), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
