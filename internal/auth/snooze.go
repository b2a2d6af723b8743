// ABOUTME: JWT issuance and parsing for signed snooze (mute) links.
// ABOUTME: Always enforces HS256 and expiration — never call jwt.Parse directly.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// snoozePurpose guards against a snooze token being accepted anywhere else.
const snoozePurpose = "snooze_rule"

// SnoozeClaims holds the claims embedded in a snooze link token.
type SnoozeClaims struct {
	jwt.RegisteredClaims
	ProjectID uuid.UUID `json:"prj"`
	RuleID    string    `json:"rule"`
	Purpose   string    `json:"pur"`
}

// IssueSnoozeToken creates a signed HS256 token authorizing a one-click mute
// of ruleID within projectID. The token is embedded in digest email links.
func IssueSnoozeToken(secret []byte, projectID uuid.UUID, ruleID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SnoozeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		ProjectID: projectID,
		RuleID:    ruleID,
		Purpose:   snoozePurpose,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign snooze token: %w", err)
	}
	return signed, nil
}

// ParseSnoozeToken validates and parses a snooze link token. Returns an error
// if the token is expired, uses a wrong algorithm, carries the wrong purpose,
// or is otherwise invalid.
func ParseSnoozeToken(tokenStr string, secret []byte) (*SnoozeClaims, error) {
	claims := &SnoozeClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(_ *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse snooze token: %w", err)
	}
	if claims.Purpose != snoozePurpose {
		return nil, fmt.Errorf("parse snooze token: wrong purpose %q", claims.Purpose)
	}
	return claims, nil
}
