package middleware

import (
	"errors"
	"fmt"
	"time"

	"Ballot/internal/core/votes"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// IssueToken signs an HS256 token for voter, valid for ttl.
// The voter_type claim is always set so the token does not depend on the
// server's default voter type.
func IssueToken(secret []byte, voter votes.Ref, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("signing secret is empty")
	}
	if err := voter.Validate(); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	token, err := jwt.NewBuilder().
		Subject(voter.ID).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Claim(VoterTypeClaim, voter.Type).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}
