// ABOUTME: Pure helper functions backing the digest template funcMap.
// ABOUTME: Pluralization, fixed datetime formats, level badges, remainder math.
package digest

import (
	"strings"
	"time"
)

// maxIssuesPerRule caps the visible rows in each rule's issue table. Groups
// past the cap collapse into a single "and N more issues" row.
const maxIssuesPerRule = 10

// Fixed human-readable datetime patterns. The seconds variant is used for
// per-event timestamps; the short variant for the digest window line.
const (
	dateTimeFormat        = "Jan 2, 2006, 3:04 PM -07:00"
	dateTimeSecondsFormat = "Jan 2, 2006, 3:04:05 PM -07:00"
)

func formatDateTime(t time.Time) string {
	return t.Format(dateTimeFormat)
}

func formatDateTimeSeconds(t time.Time) string {
	return t.Format(dateTimeSecondsFormat)
}

// pluralize returns singular when n == 1, plural otherwise (including zero
// and negative n).
func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

// issueCount returns the total number of groups (issues) across all rules.
func issueCount(d Digest) int {
	n := 0
	for _, r := range d.Rules {
		n += len(r.Groups)
	}
	return n
}

// remainder returns how many groups overflow the per-rule display cap.
// Never negative: a rule with maxIssuesPerRule or fewer groups has no
// remainder row.
func remainder(groupCount int) int {
	if groupCount <= maxIssuesPerRule {
		return 0
	}
	return groupCount - maxIssuesPerRule
}

// withinCap reports whether the zero-based group index i is inside the
// per-rule display cap. Templates gate rows on this so the cap and the
// remainder math share one constant.
func withinCap(i int) bool {
	return i < maxIssuesPerRule
}

// knownLevels maps severity enum values to their badge display labels.
var knownLevels = map[string]string{
	"fatal":   "Fatal",
	"error":   "Error",
	"warning": "Warning",
	"info":    "Info",
	"debug":   "Debug",
}

// levelLabel returns the badge text for a severity level. Unrecognized levels
// render as "Unknown" rather than erroring.
func levelLabel(level string) string {
	if label, ok := knownLevels[strings.ToLower(level)]; ok {
		return label
	}
	return "Unknown"
}

// levelClass returns the CSS class for a severity badge.
func levelClass(level string) string {
	l := strings.ToLower(level)
	if _, ok := knownLevels[l]; ok {
		return "level-" + l
	}
	return "level-unknown"
}

// AbsoluteURL joins a base URL with a possibly-relative reference. Already
// absolute references are returned unchanged. Used by callers assembling
// template data (snooze links, issue URLs) from project-relative paths.
func AbsoluteURL(base, ref string) string {
	if ref == "" {
		return base
	}
	if strings.Contains(ref, "://") {
		return ref
	}
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return base + ref
}
