// ABOUTME: View model for digest email rendering — rules, groups, records.
// ABOUTME: Callers own the data; the renderer never mutates or reorders it.
package digest

import "time"

// Project identifies the project a digest belongs to.
type Project struct {
	Slug        string `json:"slug"`
	AbsoluteURL string `json:"absolute_url"`
}

// Rule is a named alerting condition whose firing batched the digest's groups.
type Rule struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	StatusURL string `json:"status_url"`
}

// Group is a deduplicated cluster of related events (an "issue").
type Group struct {
	ID      string `json:"id"`
	Level   string `json:"level"`
	ShortID string `json:"short_id"`
	Title   string `json:"title"`
	Culprit string `json:"culprit,omitempty"`
	URL     string `json:"url"`
}

// Record is a single raw event instance belonging to a group.
type Record struct {
	Datetime time.Time `json:"datetime"`
	Message  string    `json:"message,omitempty"`
}

// GroupDigest pairs a group with its event records in insertion order.
// Records[0] is the representative (first) event for the group.
type GroupDigest struct {
	Group   Group    `json:"group"`
	Records []Record `json:"records"`
}

// RuleDigest pairs a rule with its groups in insertion order.
type RuleDigest struct {
	Rule   Rule          `json:"rule"`
	Groups []GroupDigest `json:"groups"`
}

// Digest is a batched notification grouping alert events by triggering rule
// across a time window. Rule and group order is the caller's; the renderer
// preserves it.
type Digest struct {
	Project Project      `json:"project"`
	Start   time.Time    `json:"start"`
	End     time.Time    `json:"end"`
	Rules   []RuleDigest `json:"rules"`
}

// RuleDetails is the display view of a rule, looked up by rule ID at render
// time.
type RuleDetails struct {
	Label     string `json:"label"`
	StatusURL string `json:"status_url"`
}

// TemplateData is the context passed to digest email templates. All lookup
// maps must contain an entry for every rule ID referenced by the digest;
// missing keys are a caller contract violation and render as zero values.
type TemplateData struct {
	Digest              Digest                 `json:"digest"`
	HasAlertIntegration bool                   `json:"has_alert_integration"`
	SlackLink           string                 `json:"slack_link,omitempty"`
	RulesDetails        map[string]RuleDetails `json:"rules_details"`
	SnoozeAlertURLs     map[string]string      `json:"snooze_alert_urls,omitempty"`
	SnoozeAlert         bool                   `json:"snooze_alert"`
}
