// ABOUTME: Built-in sample digest used by the preview subcommand and tests.
// ABOUTME: Two rules: one overflowing the display cap, one small.
package digest

import (
	"fmt"
	"time"
)

// Sample returns a fully-populated TemplateData with two rules — one holding
// twelve groups (overflowing the ten-row display cap) and one holding three.
// Timestamps are fixed so rendering is reproducible.
func Sample() TemplateData {
	base := time.Date(2026, time.March, 14, 9, 26, 53, 0, time.FixedZone("", -7*3600))
	project := Project{
		Slug:        "backend-api",
		AbsoluteURL: "https://app.example.com/projects/backend-api",
	}

	bigRule := Rule{
		ID:        "rule-errors",
		Label:     "High error volume",
		StatusURL: "https://app.example.com/projects/backend-api/rules/rule-errors",
	}
	smallRule := Rule{
		ID:        "rule-payments",
		Label:     "Payment pipeline failures",
		StatusURL: "https://app.example.com/projects/backend-api/rules/rule-payments",
	}

	bigGroups := make([]GroupDigest, 0, 12)
	for i := 1; i <= 12; i++ {
		bigGroups = append(bigGroups, GroupDigest{
			Group: Group{
				ID:      fmt.Sprintf("grp-%d", i),
				Level:   "error",
				ShortID: fmt.Sprintf("BACKEND-%d", 100+i),
				Title:   fmt.Sprintf("TypeError: cannot read property %d of undefined", i),
				Culprit: "api/handlers/checkout.go in HandleCheckout",
				URL:     fmt.Sprintf("https://app.example.com/projects/backend-api/issues/grp-%d", i),
			},
			Records: []Record{
				{Datetime: base.Add(time.Duration(i) * time.Minute), Message: "unhandled exception"},
				{Datetime: base.Add(time.Duration(i)*time.Minute + 30*time.Second)},
			},
		})
	}

	smallGroups := []GroupDigest{
		{
			Group: Group{
				ID: "grp-pay-1", Level: "warning", ShortID: "BACKEND-201",
				Title: "Payment gateway timeout",
				URL:   "https://app.example.com/projects/backend-api/issues/grp-pay-1",
			},
			Records: []Record{{Datetime: base.Add(2 * time.Hour)}},
		},
		{
			Group: Group{
				ID: "grp-pay-2", Level: "error", ShortID: "BACKEND-202",
				Title:   "Declined card retried in a loop",
				Culprit: "billing/retry.go in nextAttempt",
				URL:     "https://app.example.com/projects/backend-api/issues/grp-pay-2",
			},
			Records: []Record{{Datetime: base.Add(3 * time.Hour)}},
		},
		{
			Group: Group{
				ID: "grp-pay-3", Level: "info", ShortID: "BACKEND-203",
				Title: "Fallback provider engaged",
				URL:   "https://app.example.com/projects/backend-api/issues/grp-pay-3",
			},
			Records: []Record{{Datetime: base.Add(4 * time.Hour)}},
		},
	}

	return TemplateData{
		Digest: Digest{
			Project: project,
			Start:   base,
			End:     base.Add(6 * time.Hour),
			Rules: []RuleDigest{
				{Rule: bigRule, Groups: bigGroups},
				{Rule: smallRule, Groups: smallGroups},
			},
		},
		HasAlertIntegration: false,
		SlackLink:           "https://app.example.com/settings/backend-api/integrations/slack",
		RulesDetails: map[string]RuleDetails{
			"rule-errors":   {Label: bigRule.Label, StatusURL: bigRule.StatusURL},
			"rule-payments": {Label: smallRule.Label, StatusURL: smallRule.StatusURL},
		},
		SnoozeAlertURLs: map[string]string{
			"rule-errors":   "https://app.example.com/snooze?token=sample-errors",
			"rule-payments": "https://app.example.com/snooze?token=sample-payments",
		},
		SnoozeAlert: true,
	}
}
