// ABOUTME: Dispatcher fans an accepted digest out to delivery rows, one per active channel.
// ABOUTME: Snoozed rules are suppressed here; snooze links are signed per rule at fanout time.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mfaller/digestd/internal/auth"
	"github.com/mfaller/digestd/internal/digest"
	"github.com/mfaller/digestd/internal/store"
)

// Dispatcher turns accepted digests into pending delivery rows.
type Dispatcher struct {
	st             *store.Store
	externalURL    string
	snoozeSecret   []byte
	snoozeTokenTTL time.Duration
}

// NewDispatcher creates a Dispatcher backed by st. externalURL is the public
// base URL snooze links are rooted at; snoozeSecret signs them. An empty
// secret disables mute links entirely.
func NewDispatcher(st *store.Store, externalURL string, snoozeSecret []byte, snoozeTokenTTL time.Duration) *Dispatcher {
	return &Dispatcher{
		st:             st,
		externalURL:    externalURL,
		snoozeSecret:   snoozeSecret,
		snoozeTokenTTL: snoozeTokenTTL,
	}
}

// Fanout records the digest's rules, drops snoozed ones, assembles the render
// context, and creates one pending delivery per active channel. Per-channel
// insert errors are logged and do not abort remaining channels. Returns the
// created delivery IDs; an empty result with nil error means every rule was
// snoozed or the project has no active channels.
func (d *Dispatcher) Fanout(ctx context.Context, project *store.Project, dg digest.Digest) ([]uuid.UUID, error) {
	rules := make([]store.RuleUpsert, 0, len(dg.Rules))
	for _, r := range dg.Rules {
		rules = append(rules, store.RuleUpsert{
			ExternalID: r.Rule.ID,
			Label:      r.Rule.Label,
			StatusURL:  r.Rule.StatusURL,
		})
	}
	if err := d.st.UpsertRules(ctx, project.ID, rules); err != nil {
		return nil, fmt.Errorf("fanout: %w", err)
	}

	snoozed, err := d.st.ActiveSnoozes(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("fanout: %w", err)
	}
	kept := make([]digest.RuleDigest, 0, len(dg.Rules))
	for _, r := range dg.Rules {
		if snoozed[r.Rule.ID] {
			slog.InfoContext(ctx, "fanout: rule snoozed, suppressing",
				"project_id", project.ID, "rule_id", r.Rule.ID)
			continue
		}
		kept = append(kept, r)
	}
	if len(kept) == 0 {
		return nil, nil
	}
	dg.Rules = kept

	// The stored project row is authoritative for display fields.
	dg.Project = digest.Project{Slug: project.Slug, AbsoluteURL: project.AbsoluteURL}

	data, err := d.buildTemplateData(project, dg)
	if err != nil {
		return nil, fmt.Errorf("fanout: %w", err)
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("fanout: marshal template data: %w", err)
	}

	channels, err := d.st.ListActiveChannels(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("fanout: list channels: %w", err)
	}

	var ids []uuid.UUID
	for _, ch := range channels {
		id, err := d.st.CreateDelivery(ctx, project.ID, ch.ID, payload)
		if err != nil {
			slog.ErrorContext(ctx, "fanout: create delivery failed",
				"project_id", project.ID,
				"channel_id", ch.ID,
				"error", err,
			)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// buildTemplateData assembles the full render context: rule details from the
// digest itself, signed snooze URLs, and the project's integration state.
func (d *Dispatcher) buildTemplateData(project *store.Project, dg digest.Digest) (digest.TemplateData, error) {
	details := make(map[string]digest.RuleDetails, len(dg.Rules))
	snoozeURLs := make(map[string]string, len(dg.Rules))
	for _, r := range dg.Rules {
		details[r.Rule.ID] = digest.RuleDetails{Label: r.Rule.Label, StatusURL: r.Rule.StatusURL}
		if len(d.snoozeSecret) == 0 {
			continue
		}
		token, err := auth.IssueSnoozeToken(d.snoozeSecret, project.ID, r.Rule.ID, d.snoozeTokenTTL)
		if err != nil {
			return digest.TemplateData{}, fmt.Errorf("issue snooze token for rule %q: %w", r.Rule.ID, err)
		}
		snoozeURLs[r.Rule.ID] = digest.AbsoluteURL(d.externalURL, "/snooze?token="+token)
	}
	return digest.TemplateData{
		Digest:              dg,
		HasAlertIntegration: project.HasAlertIntegration,
		SlackLink:           project.SlackLink,
		RulesDetails:        details,
		SnoozeAlertURLs:     snoozeURLs,
		SnoozeAlert:         len(d.snoozeSecret) > 0,
	}, nil
}
