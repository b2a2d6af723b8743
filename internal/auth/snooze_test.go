// ABOUTME: Tests for snooze link token issuance and validation.
package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mfaller/digestd/internal/auth"
)

var snoozeSecret = []byte("test-snooze-secret")

func TestSnoozeTokenRoundTrip(t *testing.T) {
	t.Parallel()
	projectID := uuid.New()
	signed, err := auth.IssueSnoozeToken(snoozeSecret, projectID, "rule-42", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := auth.ParseSnoozeToken(signed, snoozeSecret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.ProjectID != projectID {
		t.Errorf("ProjectID = %v, want %v", claims.ProjectID, projectID)
	}
	if claims.RuleID != "rule-42" {
		t.Errorf("RuleID = %q", claims.RuleID)
	}
}

func TestSnoozeTokenExpired(t *testing.T) {
	t.Parallel()
	signed, err := auth.IssueSnoozeToken(snoozeSecret, uuid.New(), "rule-1", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := auth.ParseSnoozeToken(signed, snoozeSecret); err == nil {
		t.Error("expired token should not parse")
	}
}

func TestSnoozeTokenWrongSecret(t *testing.T) {
	t.Parallel()
	signed, err := auth.IssueSnoozeToken(snoozeSecret, uuid.New(), "rule-1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := auth.ParseSnoozeToken(signed, []byte("other-secret")); err == nil {
		t.Error("token signed with a different secret should not parse")
	}
}
