package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/reefdir/session-service/internal/config"
	"github.com/reefdir/session-service/mocks"
)

func svcWithCfg(t *testing.T, cfg config.AuthConfig) *Service {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return New(mocks.NewMockStorage(ctrl), cfg)
}

func TestAccessToken_IssueAndValidate_RoundTrip(t *testing.T) {
	t.Parallel()

	svc := svcWithCfg(t, testCfg())
	ctx := context.Background()

	token, err := svc.generateAccessToken(ctx, "alice", time.Now().UTC())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "alice", subject)
}

func TestAccessToken_Claims(t *testing.T) {
	t.Parallel()

	svc := svcWithCfg(t, testCfg())
	now := time.Now().UTC()

	tokenStr, err := svc.generateAccessToken(context.Background(), "alice", now)
	require.NoError(t, err)

	var claims accessClaims
	_, err = jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testCfg().JWTSecret), nil
	})
	require.NoError(t, err)

	require.Equal(t, "access", claims.TokenType)
	require.Equal(t, "alice", claims.Subject)
	require.Equal(t, "session-service", claims.Issuer)
	require.Contains(t, claims.Audience, "api-gateway")
	require.WithinDuration(t, now.Add(testCfg().AccessTokenTTL), claims.ExpiresAt.Time, time.Second)
}

func TestValidateToken_Tampered(t *testing.T) {
	t.Parallel()

	svc := svcWithCfg(t, testCfg())

	token, err := svc.generateAccessToken(context.Background(), "alice", time.Now().UTC())
	require.NoError(t, err)

	// Портим последний символ подписи.
	last := "A"
	if token[len(token)-1] == 'A' {
		last = "B"
	}
	tampered := token[:len(token)-1] + last

	_, err = svc.ValidateToken(context.Background(), tampered)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Expired_SameErrorAsInvalid(t *testing.T) {
	t.Parallel()

	svc := svcWithCfg(t, testCfg())

	// Выпущен далеко в прошлом — за пределами TTL и leeway.
	token, err := svc.generateAccessToken(context.Background(), "alice", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	t.Parallel()

	issuer := svcWithCfg(t, testCfg())

	other := testCfg()
	other.JWTSecret = "different-secret"
	verifier := svcWithCfg(t, other)

	token, err := issuer.generateAccessToken(context.Background(), "alice", time.Now().UTC())
	require.NoError(t, err)

	_, err = verifier.ValidateToken(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_WrongIssuerOrAudience(t *testing.T) {
	t.Parallel()

	foreign := testCfg()
	foreign.Issuer = "other-service"
	foreign.Audience = []string{"other-consumer"}
	issuer := svcWithCfg(t, foreign)

	verifier := svcWithCfg(t, testCfg())

	token, err := issuer.generateAccessToken(context.Background(), "alice", time.Now().UTC())
	require.NoError(t, err)

	_, err = verifier.ValidateToken(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_WrongAlg_RejectedAsInvalid(t *testing.T) {
	t.Parallel()

	svc := svcWithCfg(t, testCfg())

	// alg=none с пустой подписью.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    "session-service",
		Audience:  jwt.ClaimStrings{"api-gateway"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	tokenStr, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), tokenStr)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	t.Parallel()

	svc := svcWithCfg(t, testCfg())

	for _, in := range []string{"", "abc", "a.b.c", "Bearer x"} {
		_, err := svc.ValidateToken(context.Background(), in)
		require.ErrorIs(t, err, ErrInvalidToken, "input %q", in)
	}
}

func TestValidateToken_WrongTokenType(t *testing.T) {
	t.Parallel()

	cfg := testCfg()
	svc := svcWithCfg(t, cfg)

	// Токен с type=refresh, подписанный тем же секретом.
	claims := accessClaims{
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings(cfg.Audience),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), tokenStr)
	require.ErrorIs(t, err, ErrInvalidToken)
}
