// ABOUTME: Test helpers for notify integration tests — project, channel, and digest setup.
// ABOUTME: Mirrors the helpers in internal/store/*_test.go for the notify_test package.
package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mfaller/digestd/internal/digest"
	"github.com/mfaller/digestd/internal/store"
	"github.com/mfaller/digestd/internal/testutil"
)

// mustCreateProject creates a project or fatals the test.
func mustCreateProject(t *testing.T, s *testutil.TestDB, ctx context.Context, slug string) *store.Project {
	t.Helper()
	p, err := s.CreateProject(ctx, store.CreateProjectParams{
		Slug:        slug,
		Name:        slug,
		AbsoluteURL: "https://app.example.com/" + slug,
	})
	if err != nil {
		t.Fatalf("CreateProject(%q): %v", slug, err)
	}
	return p
}

// mustCreateWebhookChannel creates an active webhook channel pointing at url.
func mustCreateWebhookChannel(t *testing.T, s *testutil.TestDB, ctx context.Context, projectID uuid.UUID, url string) *store.NotificationChannel {
	t.Helper()
	cfg, _ := json.Marshal(map[string]string{"url": url})
	ch, err := s.CreateChannel(ctx, projectID, store.ChannelWebhook, cfg, "testsecret")
	if err != nil {
		t.Fatalf("CreateChannel(webhook): %v", err)
	}
	return ch
}

// sampleDigest builds a one-group digest per rule ID, suitable for Fanout tests.
func sampleDigest(slug string, ruleIDs ...string) digest.Digest {
	start := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	d := digest.Digest{
		Project: digest.Project{Slug: slug, AbsoluteURL: "https://app.example.com/" + slug},
		Start:   start,
		End:     start.Add(time.Hour),
	}
	for _, id := range ruleIDs {
		d.Rules = append(d.Rules, digest.RuleDigest{
			Rule: digest.Rule{
				ID:        id,
				Label:     "Rule " + id,
				StatusURL: "https://app.example.com/" + slug + "/rules/" + id,
			},
			Groups: []digest.GroupDigest{{
				Group: digest.Group{
					ID:      id + "-g1",
					Level:   "error",
					ShortID: "APP-1",
					Title:   "ValueError: boom",
					URL:     "https://app.example.com/" + slug + "/issues/1",
				},
				Records: []digest.Record{{Datetime: start.Add(5 * time.Minute), Message: "boom"}},
			}},
		})
	}
	return d
}
