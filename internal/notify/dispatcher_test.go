// ABOUTME: Integration tests for Dispatcher.Fanout — delivery row creation, snooze suppression, snooze links.
// ABOUTME: Uses testutil.NewTestDB; each test runs against a real Postgres testcontainer.
package notify_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mfaller/digestd/internal/digest"
	"github.com/mfaller/digestd/internal/notify"
	"github.com/mfaller/digestd/internal/testutil"
)

// countPendingDeliveries counts pending delivery rows for a channel.
func countPendingDeliveries(t *testing.T, s *testutil.TestDB, ctx context.Context, chanID uuid.UUID) int {
	t.Helper()
	var count int
	row := s.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM digest_deliveries WHERE channel_id=$1 AND status='pending'`,
		chanID)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("countPendingDeliveries: %v", err)
	}
	return count
}

func TestFanout_NoChannels_NoOp(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	project := mustCreateProject(t, s, ctx, "fanout-noch")

	// No channels for this project — Fanout must return no IDs and create 0 rows.
	d := notify.NewDispatcher(s.Store, "https://digestd.example.com", nil, time.Hour)
	ids, err := d.Fanout(ctx, project, sampleDigest("fanout-noch", "rule-1"))
	if err != nil {
		t.Fatalf("Fanout with no channels: got error %v, want nil", err)
	}
	if len(ids) != 0 {
		t.Errorf("delivery ids = %d, want 0 (no channels)", len(ids))
	}

	var count int
	row := s.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM digest_deliveries WHERE project_id=$1`, project.ID)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count deliveries: %v", err)
	}
	if count != 0 {
		t.Errorf("delivery rows = %d, want 0", count)
	}
}

func TestFanout_SingleChannel_CreatesDeliveryRow(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	project := mustCreateProject(t, s, ctx, "fanout-single")
	ch := mustCreateWebhookChannel(t, s, ctx, project.ID, "https://example.com/hook")

	d := notify.NewDispatcher(s.Store, "https://digestd.example.com", []byte("fanout-secret"), time.Hour)
	ids, err := d.Fanout(ctx, project, sampleDigest("fanout-single", "rule-a"))
	if err != nil {
		t.Fatalf("Fanout: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("delivery ids = %d, want 1", len(ids))
	}

	if count := countPendingDeliveries(t, s, ctx, ch.ID); count != 1 {
		t.Errorf("pending delivery rows = %d, want 1", count)
	}

	// The payload is a full render context: stored project fields win, and each
	// rule carries a signed snooze link rooted at the external URL.
	var raw []byte
	row := s.Pool().QueryRow(ctx,
		`SELECT payload FROM digest_deliveries WHERE channel_id=$1 AND status='pending'`,
		ch.ID)
	if err := row.Scan(&raw); err != nil {
		t.Fatalf("scan payload: %v", err)
	}
	var data digest.TemplateData
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if data.Digest.Project.Slug != project.Slug {
		t.Errorf("payload project slug = %q, want %q", data.Digest.Project.Slug, project.Slug)
	}
	if data.Digest.Project.AbsoluteURL != project.AbsoluteURL {
		t.Errorf("payload project url = %q, want %q", data.Digest.Project.AbsoluteURL, project.AbsoluteURL)
	}
	if !data.SnoozeAlert {
		t.Error("SnoozeAlert = false, want true when a signing secret is set")
	}
	link, ok := data.SnoozeAlertURLs["rule-a"]
	if !ok {
		t.Fatal("missing snooze link for rule-a")
	}
	if !strings.HasPrefix(link, "https://digestd.example.com/snooze?token=") {
		t.Errorf("snooze link = %q, want external-URL-rooted /snooze?token=", link)
	}
	if _, ok := data.RulesDetails["rule-a"]; !ok {
		t.Error("missing rule details for rule-a")
	}

	// The rule must be recorded in alert_rules.
	rules, err := s.ListRules(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(rules) != 1 || rules[0].ExternalID != "rule-a" {
		t.Errorf("recorded rules = %+v, want one row with external_id rule-a", rules)
	}
}

func TestFanout_SnoozedRuleSuppressed(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	project := mustCreateProject(t, s, ctx, "fanout-snooze")
	ch := mustCreateWebhookChannel(t, s, ctx, project.ID, "https://example.com/hook")

	if err := s.SnoozeRule(ctx, project.ID, "rule-muted", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SnoozeRule: %v", err)
	}

	d := notify.NewDispatcher(s.Store, "https://digestd.example.com", []byte("x"), time.Hour)
	ids, err := d.Fanout(ctx, project, sampleDigest("fanout-snooze", "rule-muted", "rule-live"))
	if err != nil {
		t.Fatalf("Fanout: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("delivery ids = %d, want 1", len(ids))
	}

	var raw []byte
	row := s.Pool().QueryRow(ctx,
		`SELECT payload FROM digest_deliveries WHERE channel_id=$1`, ch.ID)
	if err := row.Scan(&raw); err != nil {
		t.Fatalf("scan payload: %v", err)
	}
	var data digest.TemplateData
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(data.Digest.Rules) != 1 {
		t.Fatalf("payload rules = %d, want 1 (snoozed rule suppressed)", len(data.Digest.Rules))
	}
	if got := data.Digest.Rules[0].Rule.ID; got != "rule-live" {
		t.Errorf("surviving rule = %q, want rule-live", got)
	}
}

func TestFanout_AllRulesSnoozed_NoDelivery(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	project := mustCreateProject(t, s, ctx, "fanout-allmuted")
	ch := mustCreateWebhookChannel(t, s, ctx, project.ID, "https://example.com/hook")

	if err := s.SnoozeRule(ctx, project.ID, "rule-only", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SnoozeRule: %v", err)
	}

	d := notify.NewDispatcher(s.Store, "https://digestd.example.com", nil, time.Hour)
	ids, err := d.Fanout(ctx, project, sampleDigest("fanout-allmuted", "rule-only"))
	if err != nil {
		t.Fatalf("Fanout: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("delivery ids = %d, want 0 (every rule snoozed)", len(ids))
	}
	if count := countPendingDeliveries(t, s, ctx, ch.ID); count != 0 {
		t.Errorf("pending delivery rows = %d, want 0", count)
	}
}

func TestFanout_NoSecret_DisablesSnoozeLinks(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()

	project := mustCreateProject(t, s, ctx, "fanout-nosecret")
	ch := mustCreateWebhookChannel(t, s, ctx, project.ID, "https://example.com/hook")

	d := notify.NewDispatcher(s.Store, "https://digestd.example.com", nil, time.Hour)
	if _, err := d.Fanout(ctx, project, sampleDigest("fanout-nosecret", "rule-a")); err != nil {
		t.Fatalf("Fanout: %v", err)
	}

	var raw []byte
	row := s.Pool().QueryRow(ctx,
		`SELECT payload FROM digest_deliveries WHERE channel_id=$1`, ch.ID)
	if err := row.Scan(&raw); err != nil {
		t.Fatalf("scan payload: %v", err)
	}
	var data digest.TemplateData
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if data.SnoozeAlert {
		t.Error("SnoozeAlert = true, want false without a signing secret")
	}
	if len(data.SnoozeAlertURLs) != 0 {
		t.Errorf("SnoozeAlertURLs = %v, want empty", data.SnoozeAlertURLs)
	}
}
