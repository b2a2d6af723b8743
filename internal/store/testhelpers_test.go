// ABOUTME: Shared fixtures for store integration tests — project and channel creation.
package store_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

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

// mustCreateChannel creates a webhook channel or fatals the test.
func mustCreateChannel(t *testing.T, s *testutil.TestDB, ctx context.Context, projectID uuid.UUID) *store.NotificationChannel {
	t.Helper()
	cfg, _ := json.Marshal(map[string]string{"url": "https://example.com/hook"})
	ch, err := s.CreateChannel(ctx, projectID, store.ChannelWebhook, cfg, "secret")
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	return ch
}
