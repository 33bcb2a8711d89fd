package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
)

const minSecretLength = 32

type JWTTokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type TokenOption func(*JWTTokenService)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(j *JWTTokenService) {
		j.now = now
	}
}

func NewJWTTokenService(secret string, ttl time.Duration, opts ...TokenOption) (*JWTTokenService, error) {
	if len(secret) < minSecretLength {
		return nil, errors.New("token signing secret must be at least 32 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	j := &JWTTokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

func (j *JWTTokenService) TTL() time.Duration {
	return j.ttl
}

func (j *JWTTokenService) Issue(username string) (string, time.Time, error) {
	if username == "" {
		return "", time.Time{}, errors.New("cannot issue a token without a username")
	}
	now := j.now()
	expiresAt := now.Add(j.ttl)

	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify returns internal.ErrInvalidToken for every failure: bad signature,
// wrong algorithm, malformed, expired, or missing username all look the same.
func (j *JWTTokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return j.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil || !token.Valid || claims.Username == "" {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}
