package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"

	"github.com/getzep/reviewpulse/config"
)

const (
	JwtAlg  = "HS256"
	Subject = "reviewpulse"
)

var ErrSecretNotSet = errors.New(
	"auth secret not set, ensure REVIEWPULSE_AUTH_SECRET is set in your environment",
)

func tokenAuth(cfg *config.Config) (*jwtauth.JWTAuth, error) {
	secret := []byte(cfg.Auth.Secret)
	if len(secret) == 0 {
		return nil, ErrSecretNotSet
	}
	return jwtauth.New(JwtAlg, secret, nil), nil
}

// GenerateJWT signs a token for callers of the process endpoint.
// Requires that REVIEWPULSE_AUTH_SECRET is set in the environment.
func GenerateJWT(cfg *config.Config) (string, error) {
	ta, err := tokenAuth(cfg)
	if err != nil {
		return "", err
	}

	claims := map[string]interface{}{"sub": Subject}
	jwtauth.SetIssuedAt(claims, time.Now())
	_, tokenString, err := ta.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("error generating auth token: %w", err)
	}

	return tokenString, nil
}

func JWTVerifier(cfg *config.Config) (func(http.Handler) http.Handler, error) {
	ta, err := tokenAuth(cfg)
	if err != nil {
		return nil, err
	}
	return jwtauth.Verifier(ta), nil
}
