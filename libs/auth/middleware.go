package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const ctxKeyClaims ctxKey = iota

// Verifier checks bearer tokens. HS256 is accepted only when Secret is set and
// RS256 only when JWKS is set; RS256 tokens must name their key with a kid.
// Issuer and Audience are enforced when non-empty.
type Verifier struct {
	Secret   string
	JWKS     *JWKSClient
	Issuer   string
	Audience string
}

func (v Verifier) methods() []string {
	var m []string
	if v.Secret != "" {
		m = append(m, jwt.SigningMethodHS256.Alg())
	}
	if v.JWKS != nil {
		m = append(m, jwt.SigningMethodRS256.Alg())
	}
	return m
}

func (v Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	methods := v.methods()
	if len(methods) == 0 {
		return nil, fmt.Errorf("%w: no verification key configured", ErrInvalidToken)
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods(methods)}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, v.keyFunc(ctx), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (v Verifier) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		switch t.Method.Alg() {
		case jwt.SigningMethodHS256.Alg():
			if v.Secret == "" {
				return nil, errors.New("hs256 is not accepted")
			}
			return []byte(v.Secret), nil
		case jwt.SigningMethodRS256.Alg():
			if v.JWKS == nil {
				return nil, errors.New("rs256 is not accepted")
			}
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("token has no kid header")
			}
			key, err := v.JWKS.Key(ctx, kid)
			if err != nil {
				return nil, err
			}
			return key, nil
		default:
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
	}
}

// RequireAuth rejects requests without a valid bearer token and stores the claims
// in the request context.
func RequireAuth(next http.Handler, v Verifier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") || len(strings.TrimSpace(authHeader)) <= len("Bearer ") {
			unauthorized(w, "missing or invalid Authorization header")
			return
		}
		claims, err := v.Verify(r.Context(), strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")))
		if err != nil {
			unauthorized(w, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), *claims)))
	})
}

// unauthorized answers in the same {"error","kind"} shape as the API handlers.
func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}{Error: msg, Kind: "unauthorized"})
}

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, ctxKeyClaims, c)
}

func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(ctxKeyClaims).(Claims)
	return c, ok
}
