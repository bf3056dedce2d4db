package testutil

import (
	"testing"
	"time"

	"github.com/bissquit/roadmap-api/internal/auth/jwt"
	gojwt "github.com/golang-jwt/jwt/v5"
)

// TokenConfig is the verifier configuration integration tests run with.
var TokenConfig = jwt.Config{
	SecretKey: "integration-secret",
	Issuer:    "https://idp.test",
	Audience:  "roadmap-api",
}

// SignToken issues a one-hour token for uid with the given roles.
// The email claim is derived from uid.
func SignToken(t *testing.T, uid string, roles ...string) string {
	t.Helper()
	if roles == nil {
		roles = []string{"User"}
	}

	token, err := jwt.NewSigner(TokenConfig).Sign(jwt.Claims{
		UID:   uid,
		Email: uid + "@example.com",
		Roles: roles,
		RegisteredClaims: gojwt.RegisteredClaims{
			IssuedAt:  gojwt.NewNumericDate(time.Now()),
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}
