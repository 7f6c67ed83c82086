package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"voucher-queue/internal/domain"
	"voucher-queue/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidCredentials 用户名或密码错误
var ErrInvalidCredentials = errors.New("invalid username or password")

// Claims JWT 载荷
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService 操作员登录与令牌签发
// Password hashing follows the platform convention: sha256 of the password
// alone, independent of the account name.
type AuthService struct {
	users  repository.UsersRepo
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewAuthService(users repository.UsersRepo, secret string, ttl time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// HashPassword hashes password only (independent of username).
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Login verifies the credentials and returns a signed bearer token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	if u.PasswordHash != HashPassword(password) {
		return "", ErrInvalidCredentials
	}

	if err := s.users.UpdateLastLogin(ctx, u.ID, s.now().UTC()); err != nil {
		// Login still succeeds; the timestamp is bookkeeping.
		s.logger.Warn("failed to record last login",
			zap.String("user_id", u.ID),
			zap.Error(err),
		)
	}

	return s.issueToken(u)
}

func (s *AuthService) issueToken(u *domain.User) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses and validates a bearer token.
func (s *AuthService) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// EnsureUser upserts an operator account. Used at bootstrap to seed the
// default admin login.
func (s *AuthService) EnsureUser(ctx context.Context, username, password, role string) error {
	u := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: HashPassword(password),
		Role:         role,
		Active:       true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return fmt.Errorf("failed to ensure user %s: %w", username, err)
	}
	return nil
}
