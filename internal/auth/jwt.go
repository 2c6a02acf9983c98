// Package auth implements the connect-time identity check. The
// platform issues HS256 JWTs whose subject claim is the user id; this
// runs once per connection, never per message.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avail-chat/signaling/internal/domain"
)

// Verifier implements core.IdentityVerifier over HMAC-SHA256 JWTs.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates the credential and returns its subject.
// Every failure wraps domain.ErrAuthentication: missing token, wrong
// algorithm, bad signature, expired, empty subject.
func (v *Verifier) Verify(_ context.Context, credential string) (domain.UserID, error) {
	if credential == "" {
		return "", fmt.Errorf("%w: no credential", domain.ErrAuthentication)
	}

	tok, err := jwt.Parse(credential,
		func(t *jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAuthentication, err)
	}

	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: missing subject", domain.ErrAuthentication)
	}
	return domain.UserID(sub), nil
}
