package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuttingtoolsjd-ai/JDMES/internal/config"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/entity"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/mes/repository"
	"github.com/cuttingtoolsjd-ai/JDMES/internal/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const refreshKeyPrefix = "mes:refresh:"

// AuthService 认证服务。PIN登录换取JWT，refresh token存redis。
// PIN仍为明文比对，与现场现行做法一致，加固不在本服务范围内。
type AuthService struct {
	userRepo *repository.UserRepository
	rdb      *redis.Client
	cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, rdb *redis.Client, cfg *config.Config) *AuthService {
	return &AuthService{userRepo: userRepo, rdb: rdb, cfg: cfg}
}

// TokenPair Token对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login 用户名+6位PIN登录
func (s *AuthService) Login(ctx context.Context, username, pin string) (*entity.User, *TokenPair, error) {
	if !validPIN(pin) {
		return nil, nil, ErrPINFormat
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidPIN
		}
		return nil, nil, err
	}
	if user.PIN != pin {
		return nil, nil, ErrInvalidPIN
	}

	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// SetPIN 修改PIN（首次登录强制）
func (s *AuthService) SetPIN(ctx context.Context, username, newPIN string) error {
	if !validPIN(newPIN) {
		return ErrPINFormat
	}
	if _, err := s.userRepo.GetByUsername(ctx, username); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return s.userRepo.UpdatePIN(ctx, username, newPIN)
}

// Refresh 用refresh token换新token对
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	username, err := s.rdb.Get(ctx, refreshKeyPrefix+refreshToken).Result()
	if err != nil {
		return nil, fmt.Errorf("refresh token无效或已过期")
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, ErrUserNotFound
	}

	// 旋转：旧token立即作废
	s.rdb.Del(ctx, refreshKeyPrefix+refreshToken)
	return s.generateTokenPair(ctx, user)
}

// Logout 注销refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.rdb.Del(ctx, refreshKeyPrefix+refreshToken).Err()
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *entity.User) (*TokenPair, error) {
	now := time.Now()
	expire := s.cfg.JWT.AccessTokenExpire

	claims := middleware.JWTClaims{
		Username:      user.Username,
		Role:          user.Role,
		MustChangePIN: user.MustChangePIN,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.cfg.JWT.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expire)),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("签发token失败: %w", err)
	}

	refreshToken := uuid.New().String()
	if err := s.rdb.Set(ctx, refreshKeyPrefix+refreshToken, user.Username,
		s.cfg.JWT.RefreshTokenExpire).Err(); err != nil {
		return nil, fmt.Errorf("保存refresh token失败: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(expire.Seconds()),
	}, nil
}

func validPIN(pin string) bool {
	if len(pin) != 6 {
		return false
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
