package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/reefdir/session-service/internal/pkg/log"
)

type accessClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// generateAccessToken генерирует access-токен для субъекта (username).
func (s *Service) generateAccessToken(ctx context.Context, subject string, now time.Time) (string, error) {
	const op = "service.token.generateAccessToken"

	lg := log.From(ctx)

	claims := accessClaims{
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(s.cfg.Audience),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		lg.Error("access_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// validateAccessToken валидирует access-токен и возвращает субъект.
// Любой дефект — подпись, срок, алгоритм, issuer/audience, малформенность —
// сворачивается в один ErrInvalidToken: вызывающий не должен уметь отличить
// «просрочен» от «подделан».
func (s *Service) validateAccessToken(tokenStr string) (string, error) {
	const op = "service.token.validateAccessToken"

	token, err := jwt.ParseWithClaims(tokenStr, &accessClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return []byte(s.cfg.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience...),
	)

	if err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if claims.TokenType != "access" || claims.Subject == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims.Subject, nil
}

// ValidateToken проверяет access-токен и возвращает субъект (username).
// Используется внешними слоями (например, классификацией запросов) как
// примитив верификации.
func (s *Service) ValidateToken(ctx context.Context, accessToken string) (string, error) {
	const op = "service.token.ValidateToken"

	subject, err := s.validateAccessToken(accessToken)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return subject, nil
}
