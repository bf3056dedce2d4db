// Package jwt verifies identity-provider tokens signed with HMAC-SHA256.
package jwt

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/roadmap-api/internal/auth"
	"github.com/golang-jwt/jwt/v5"
)

// Config contains token verification settings.
type Config struct {
	SecretKey string
	// Issuer and Audience are checked when non-empty.
	Issuer   string
	Audience string
}

// Claims is the token payload issued by the identity provider.
type Claims struct {
	UID   string `json:"uid,omitempty"`
	Email string `json:"email,omitempty"`
	Roles any    `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Verifier implements auth.TokenVerifier.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier creates a new Verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &Verifier{
		secret: []byte(cfg.SecretKey),
		parser: jwt.NewParser(opts...),
	}, nil
}

// VerifyToken checks the signature and registered claims of token and decodes it.
// The user id is the uid claim, falling back to the subject.
func (v *Verifier) VerifyToken(_ context.Context, token string) (*auth.Token, error) {
	var claims Claims
	parsed, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}

	uid := claims.UID
	if uid == "" {
		uid = claims.Subject
	}

	return &auth.Token{
		UID:   uid,
		Email: claims.Email,
		Roles: claims.Roles,
	}, nil
}

// Signer issues tokens accepted by a Verifier with the same Config.
// It stands in for the identity provider in local setups and tests.
type Signer struct {
	cfg Config
}

// NewSigner creates a new Signer.
func NewSigner(cfg Config) *Signer {
	return &Signer{cfg: cfg}
}

// Sign issues a token carrying claims. Issuer and audience from the Config
// are filled in when the claims leave them empty.
func (s *Signer) Sign(claims Claims) (string, error) {
	if claims.Issuer == "" {
		claims.Issuer = s.cfg.Issuer
	}
	if claims.Audience == nil && s.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.cfg.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
