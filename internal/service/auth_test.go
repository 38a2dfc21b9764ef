package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"

	"github.com/ops-triage/backend/internal/config"
	"github.com/ops-triage/backend/internal/model"
)

type fakeUserStore struct {
	users  map[string]*model.User
	tokens map[string]*model.RefreshToken
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:  map[string]*model.User{},
		tokens: map[string]*model.RefreshToken{},
	}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, loginID, passwordHash string) (*model.User, error) {
	if _, ok := f.users[loginID]; ok {
		return nil, errors.New("duplicate login id")
	}
	f.nextID++
	user := &model.User{ID: f.nextID, LoginID: loginID, PasswordHash: passwordHash}
	f.users[loginID] = user
	return user, nil
}

func (f *fakeUserStore) GetUserByLoginID(ctx context.Context, loginID string) (*model.User, error) {
	if user, ok := f.users[loginID]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) InsertRefreshToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	f.nextID++
	f.tokens[tokenHash] = &model.RefreshToken{ID: f.nextID, UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeUserStore) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	if token, ok := f.tokens[tokenHash]; ok {
		return token, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) RotateRefreshToken(ctx context.Context, oldID, userID int64, newHash string, expiresAt time.Time) error {
	now := time.Now()
	for _, token := range f.tokens {
		if token.ID == oldID {
			token.RevokedAt = &now
		}
	}
	return f.InsertRefreshToken(ctx, userID, newHash, expiresAt)
}

func (f *fakeUserStore) RevokeRefreshTokenByHash(ctx context.Context, tokenHash string) error {
	if token, ok := f.tokens[tokenHash]; ok {
		now := time.Now()
		token.RevokedAt = &now
	}
	return nil
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:      "test-secret",
		AccessTTL:      15 * time.Minute,
		RefreshTTL:     720 * time.Hour,
		CookieSecure:   true,
		CookieSameSite: http.SameSiteLaxMode,
	}
}

func newTestAuth(t *testing.T, store userStore) *AuthService {
	t.Helper()
	svc, err := NewAuthService(store, testAuthConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

func seedAdmin(t *testing.T, svc *AuthService) {
	t.Helper()
	if err := svc.EnsureAdmin(context.Background(), "oncall", "password123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewAuthServiceValidation(t *testing.T) {
	if _, err := NewAuthService(nil, config.AuthConfig{}); err == nil {
		t.Fatalf("missing JWT secret must fail")
	}

	bad := testAuthConfig()
	bad.AccessTTL = 0
	if _, err := NewAuthService(nil, bad); err == nil {
		t.Fatalf("zero access TTL must fail")
	}

	// SameSite=None은 Secure 쿠키가 필수
	bad = testAuthConfig()
	bad.CookieSameSite = http.SameSiteNoneMode
	bad.CookieSecure = false
	if _, err := NewAuthService(nil, bad); err == nil {
		t.Fatalf("SameSite=None without Secure must fail")
	}
}

func TestEnsureAdminIdempotent(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestAuth(t, store)

	seedAdmin(t, svc)
	seedAdmin(t, svc)

	if len(store.users) != 1 {
		t.Fatalf("expected one admin user, got %d", len(store.users))
	}

	if err := svc.EnsureAdmin(context.Background(), "", ""); !errors.Is(err, ErrMisconfigured) {
		t.Fatalf("empty admin credentials must fail, got %v", err)
	}
}

func TestLoginIssuesSession(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestAuth(t, store)
	seedAdmin(t, svc)

	session, err := svc.Login(context.Background(), "oncall", "password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatalf("session must carry both tokens: %+v", session)
	}
	if session.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Fatalf("unexpected expiry: %d", session.ExpiresIn)
	}
	if len(store.tokens) != 1 {
		t.Fatalf("refresh token must be persisted, got %d", len(store.tokens))
	}

	user, err := svc.ParseAccessToken(session.AccessToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.LoginID != "oncall" {
		t.Fatalf("claims must round-trip, got %+v", user)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestAuth(t, store)
	seedAdmin(t, svc)

	if _, err := svc.Login(context.Background(), "oncall", "wrong-password"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong password must be unauthorized, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "nobody-here", "password123"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unknown user must be unauthorized, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestAuth(t, store)
	seedAdmin(t, svc)

	session, err := svc.Login(context.Background(), "oncall", "password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	next, err := svc.Refresh(context.Background(), session.RefreshToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.RefreshToken == session.RefreshToken {
		t.Fatalf("refresh token must rotate")
	}

	// 회전된 기존 토큰은 재사용 불가
	if _, err := svc.Refresh(context.Background(), session.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("rotated token must be rejected, got %v", err)
	}
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestAuth(t, store)
	seedAdmin(t, svc)

	session, err := svc.Login(context.Background(), "oncall", "password123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, token := range store.tokens {
		token.ExpiresAt = time.Now().Add(-time.Minute)
	}
	if _, err := svc.Refresh(context.Background(), session.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expired token must be rejected, got %v", err)
	}
}

func TestParseAccessTokenRejectsWrongAlg(t *testing.T) {
	svc := newTestAuth(t, newFakeUserStore())

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "42"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.ParseAccessToken(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("none alg must be rejected, got %v", err)
	}
}

func TestCookieConfig(t *testing.T) {
	svc := newTestAuth(t, newFakeUserStore())

	cfg := svc.CookieConfig()
	if cfg.Name != "ops_triage_refresh" || !cfg.Secure || cfg.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected cookie config: %+v", cfg)
	}
	if cfg.MaxAge != int((720 * time.Hour).Seconds()) {
		t.Fatalf("cookie max age must match refresh TTL, got %d", cfg.MaxAge)
	}
}
