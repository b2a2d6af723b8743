// ABOUTME: Integration tests for store/delivery.go — the digest delivery job queue.
// ABOUTME: Uses testutil.NewTestDB; each test runs in its own container (t.Parallel).
package store_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mfaller/digestd/internal/testutil"
)

func TestCreateAndClaimDelivery(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	project := mustCreateProject(t, s, ctx, "claim-basic")
	ch := mustCreateChannel(t, s, ctx, project.ID)

	payload := json.RawMessage(`{"digest":{"project":{"slug":"claim-basic"}}}`)
	id, err := s.CreateDelivery(ctx, project.ID, ch.ID, payload)
	if err != nil {
		t.Fatalf("CreateDelivery: %v", err)
	}

	claimed, err := s.ClaimPendingDeliveries(ctx, 10)
	if err != nil {
		t.Fatalf("ClaimPendingDeliveries: %v", err)
	}
	if len(claimed) != 1 {
		t.Fatalf("claimed = %d, want 1", len(claimed))
	}
	if claimed[0].ID != id {
		t.Errorf("claimed id = %v, want %v", claimed[0].ID, id)
	}
	if claimed[0].ProjectID != project.ID || claimed[0].ChannelID != ch.ID {
		t.Errorf("claimed row = %+v, wrong project/channel", claimed[0])
	}

	// Claimed rows transition to processing; a second claim finds nothing.
	again, err := s.ClaimPendingDeliveries(ctx, 10)
	if err != nil {
		t.Fatalf("ClaimPendingDeliveries (second): %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second claim = %d rows, want 0", len(again))
	}

	d, err := s.GetDelivery(ctx, id, project.ID)
	if err != nil {
		t.Fatalf("GetDelivery: %v", err)
	}
	if d.Status != "processing" {
		t.Errorf("status after claim = %q, want processing", d.Status)
	}
}

func TestClaim_SkipsFutureSendAfter(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	project := mustCreateProject(t, s, ctx, "claim-future")
	ch := mustCreateChannel(t, s, ctx, project.ID)

	id, err := s.CreateDelivery(ctx, project.ID, ch.ID, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("CreateDelivery: %v", err)
	}
	if _, err := s.Pool().Exec(ctx,
		"UPDATE digest_deliveries SET send_after = now() + interval '1 hour' WHERE id=$1", id); err != nil {
		t.Fatalf("push send_after: %v", err)
	}

	claimed, err := s.ClaimPendingDeliveries(ctx, 10)
	if err != nil {
		t.Fatalf("ClaimPendingDeliveries: %v", err)
	}
	if len(claimed) != 0 {
		t.Errorf("claimed = %d, want 0 (send_after in the future)", len(claimed))
	}
}

func TestRetryDelivery_RequeuesWithBackoff(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	project := mustCreateProject(t, s, ctx, "retry")
	ch := mustCreateChannel(t, s, ctx, project.ID)

	id, err := s.CreateDelivery(ctx, project.ID, ch.ID, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("CreateDelivery: %v", err)
	}
	if _, err := s.ClaimPendingDeliveries(ctx, 10); err != nil {
		t.Fatalf("ClaimPendingDeliveries: %v", err)
	}

	if err := s.RetryDelivery(ctx, id, 30, "webhook POST: unexpected status 500"); err != nil {
		t.Fatalf("RetryDelivery: %v", err)
	}

	d, err := s.GetDelivery(ctx, id, project.ID)
	if err != nil {
		t.Fatalf("GetDelivery: %v", err)
	}
	if d.Status != "pending" {
		t.Errorf("status = %q, want pending", d.Status)
	}
	if d.AttemptCount != 1 {
		t.Errorf("attempt_count = %d, want 1", d.AttemptCount)
	}
	if d.LastError == nil || *d.LastError == "" {
		t.Error("last_error not recorded")
	}
	if !d.SendAfter.After(time.Now().Add(20 * time.Second)) {
		t.Errorf("send_after = %v, want ~30s in the future", d.SendAfter)
	}
}

func TestCompleteAndExhaustDelivery(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	project := mustCreateProject(t, s, ctx, "terminal")
	ch := mustCreateChannel(t, s, ctx, project.ID)

	sentID, _ := s.CreateDelivery(ctx, project.ID, ch.ID, json.RawMessage(`{}`))
	failedID, _ := s.CreateDelivery(ctx, project.ID, ch.ID, json.RawMessage(`{}`))

	if err := s.CompleteDelivery(ctx, sentID); err != nil {
		t.Fatalf("CompleteDelivery: %v", err)
	}
	if err := s.ExhaustDelivery(ctx, failedID, "max attempts reached"); err != nil {
		t.Fatalf("ExhaustDelivery: %v", err)
	}

	sent, _ := s.GetDelivery(ctx, sentID, project.ID)
	if sent.Status != "sent" {
		t.Errorf("completed status = %q, want sent", sent.Status)
	}
	failed, _ := s.GetDelivery(ctx, failedID, project.ID)
	if failed.Status != "failed" {
		t.Errorf("exhausted status = %q, want failed", failed.Status)
	}
	if failed.LastError == nil || *failed.LastError != "max attempts reached" {
		t.Errorf("exhausted last_error = %v, want recorded", failed.LastError)
	}
}

func TestResetStuckDeliveries(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	project := mustCreateProject(t, s, ctx, "stuck")
	ch := mustCreateChannel(t, s, ctx, project.ID)

	id, _ := s.CreateDelivery(ctx, project.ID, ch.ID, json.RawMessage(`{}`))
	if _, err := s.ClaimPendingDeliveries(ctx, 10); err != nil {
		t.Fatalf("ClaimPendingDeliveries: %v", err)
	}

	// Age the processing row past the stuck threshold.
	if _, err := s.Pool().Exec(ctx,
		"UPDATE digest_deliveries SET updated_at = now() - interval '10 minutes' WHERE id=$1", id); err != nil {
		t.Fatalf("age row: %v", err)
	}

	if err := s.ResetStuckDeliveries(ctx, 2*time.Minute); err != nil {
		t.Fatalf("ResetStuckDeliveries: %v", err)
	}

	d, _ := s.GetDelivery(ctx, id, project.ID)
	if d.Status != "pending" {
		t.Errorf("status after reset = %q, want pending", d.Status)
	}
}

func TestGetDelivery_ScopedToProject(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	projectA := mustCreateProject(t, s, ctx, "scope-a")
	projectB := mustCreateProject(t, s, ctx, "scope-b")
	ch := mustCreateChannel(t, s, ctx, projectA.ID)

	id, _ := s.CreateDelivery(ctx, projectA.ID, ch.ID, json.RawMessage(`{}`))

	// Lookup through the wrong project must miss.
	d, err := s.GetDelivery(ctx, id, projectB.ID)
	if err != nil {
		t.Fatalf("GetDelivery: %v", err)
	}
	if d != nil {
		t.Error("cross-project delivery lookup should return nil")
	}

	missing, err := s.GetDelivery(ctx, uuid.New(), projectA.ID)
	if err != nil {
		t.Fatalf("GetDelivery(missing): %v", err)
	}
	if missing != nil {
		t.Error("unknown delivery id should return nil")
	}
}
