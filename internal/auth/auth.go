package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"accountshop/internal/config"
	"accountshop/internal/models"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
)

// Service handles registration, login, and bearer-token verification.
type Service struct {
	db     *gorm.DB
	secret []byte
	expiry time.Duration
}

func NewService(db *gorm.DB, cfg config.AuthConfig) *Service {
	return &Service{db: db, secret: []byte(cfg.JWTSecret), expiry: cfg.TokenExpiry}
}

// Register creates a user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, email, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return models.User{}, ErrInvalidCredentials
	}

	var cnt int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&cnt).Error; err != nil {
		return models.User{}, fmt.Errorf("check existing user: %w", err)
	}
	if cnt > 0 {
		return models.User{}, ErrUserExists
	}

	hash, err := models.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	u := models.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Login verifies credentials (username or email) and issues a signed JWT.
func (s *Service) Login(ctx context.Context, ident, password string) (string, error) {
	var u models.User
	q := s.db.WithContext(ctx)
	if strings.Contains(ident, "@") {
		q = q.Where("email = ?", ident)
	} else {
		q = q.Where("username = ?", ident)
	}
	if err := q.First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("load user: %w", err)
	}
	if !models.CheckPassword(u.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(u.ID), 10),
		"iat": now.Unix(),
		"exp": now.Add(s.expiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// UserIDFromToken validates a bearer token and returns the user id it names.
func (s *Service) UserIDFromToken(tokenStr string) (uint, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// CurrentUser loads the user a validated token refers to.
func (s *Service) CurrentUser(ctx context.Context, tokenStr string) (models.User, error) {
	id, err := s.UserIDFromToken(tokenStr)
	if err != nil {
		return models.User{}, err
	}
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrInvalidToken
		}
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}
