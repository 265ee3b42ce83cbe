package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"imagedrive/internal/domain"
)

// Claims утверждения токена доступа; sub содержит идентификатор владельца
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Verifier проверяет HS256-токены, выпущенные сервисом аутентификации
type Verifier struct {
	secret []byte
	issuer string
	logger *slog.Logger
}

func NewVerifier(cfg *Config, logger *slog.Logger) (*Verifier, error) {
	if cfg == nil || cfg.JWTSecret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}
	return &Verifier{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		logger: logger,
	}, nil
}

// VerifyToken проверяет подпись, срок действия и издателя токена
func (v *Verifier) VerifyToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		v.logger.Debug("token rejected", "error", err)
		return nil, fmt.Errorf("invalid token: %w", domain.ErrUnauthenticated)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", domain.ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject: %w", domain.ErrUnauthenticated)
	}
	return claims, nil
}

// VerifyRequest достаёт токен из заголовка Authorization и возвращает ID владельца
func (v *Verifier) VerifyRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("no authorization header: %w", domain.ErrUnauthenticated)
	}

	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(tokenString) == "" {
		return "", fmt.Errorf("malformed authorization header: %w", domain.ErrUnauthenticated)
	}

	claims, err := v.VerifyToken(strings.TrimSpace(tokenString))
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
