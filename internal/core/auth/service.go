package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/viewdesk/viewdesk/config"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAuthDisabled       = errors.New("authentication is disabled")
)

// Service signs in the configured operator and issues HS256 tokens.
type Service struct {
	operator config.OperatorConfig
	config   *config.JWTConfig
	now      func() time.Time
}

func NewService(operator config.OperatorConfig, cfg *config.JWTConfig) *Service {
	return &Service{operator: operator, config: cfg, now: time.Now}
}

type JWTClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Enabled reports whether an operator password is configured.
func (s *Service) Enabled() bool {
	return s.operator.AuthEnabled()
}

func (s *Service) Login(req *LoginRequest) (*AuthResponse, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}

	emailOK := subtle.ConstantTimeCompare(
		[]byte(strings.ToLower(strings.TrimSpace(req.Email))),
		[]byte(strings.ToLower(s.operator.Email)),
	) == 1
	if err := bcrypt.CompareHashAndPassword([]byte(s.operator.PasswordHash), []byte(req.Password)); err != nil || !emailOK {
		return nil, ErrInvalidCredentials
	}

	op := Operator{Email: s.operator.Email}
	token, expiresAt, err := s.generateToken(op)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, ExpiresAt: expiresAt, Operator: op}, nil
}

func (s *Service) generateToken(op Operator) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.config.ExpirationDuration())
	claims := JWTClaims{
		Email: op.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   op.Email,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *Service) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrUnauthorized
}

// HashPassword produces the value for OPERATOR_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
