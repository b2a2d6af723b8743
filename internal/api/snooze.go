// ABOUTME: One-click snooze (mute) endpoint hit from links in digest emails.
// ABOUTME: Plain chi handler returning a small HTML page, not part of the JSON API.
package api

import (
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/mfaller/digestd/internal/auth"
)

var snoozePage = template.Must(template.New("snooze").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Alerts muted</title></head>
<body style="font-family: Helvetica, Arial, sans-serif; margin: 40px auto; max-width: 480px;">
  <h2>Alerts muted</h2>
  <p>Notifications for this alert rule are muted until {{.Until}}.</p>
</body>
</html>
`))

// snoozeHandler validates the signed token from a digest email mute link and
// snoozes the rule it names. GET is deliberate: the link must work from an
// email client with a single click.
func (srv *Server) snoozeHandler(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}
	claims, err := auth.ParseSnoozeToken(tokenStr, []byte(srv.cfg.SnoozeSigningSecret))
	if err != nil {
		slog.WarnContext(r.Context(), "snooze: invalid token", "error", err)
		http.Error(w, "invalid or expired link", http.StatusBadRequest)
		return
	}

	until := time.Now().Add(srv.cfg.SnoozeDuration)
	if err := srv.store.SnoozeRule(r.Context(), claims.ProjectID, claims.RuleID, until); err != nil {
		slog.ErrorContext(r.Context(), "snooze: persist failed",
			"project_id", claims.ProjectID, "rule_id", claims.RuleID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(r.Context(), "rule snoozed via email link",
		"project_id", claims.ProjectID, "rule_id", claims.RuleID, "until", until)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := snoozePage.Execute(w, map[string]string{
		"Until": until.UTC().Format("Jan 2, 2006, 3:04 PM MST"),
	}); err != nil {
		slog.ErrorContext(r.Context(), "snooze: render page failed", "error", err)
	}
}
