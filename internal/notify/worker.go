// ABOUTME: Delivery worker: polls digest_deliveries, claims rows, renders, sends.
// ABOUTME: Per-project semaphore caps concurrent deliveries. sync.WaitGroup for graceful shutdown.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mfaller/digestd/internal/digest"
	"github.com/mfaller/digestd/internal/store"
)

// WorkerConfig holds delivery worker tuning parameters (sourced from config.Config).
type WorkerConfig struct {
	ClaimBatchSize          int
	MaxAttempts             int
	BackoffBaseSeconds      int
	MaxConcurrentPerProject int
	StuckThreshold          time.Duration // default 2 minutes if zero
	SMTP                    SmtpConfig
}

// Worker polls digest_deliveries and executes outbound email and webhook deliveries.
type Worker struct {
	store  *store.Store
	client *http.Client
	cfg    WorkerConfig
	log    *slog.Logger
	sems   map[uuid.UUID]chan struct{} // per-project semaphores, lazy-init
	semsMu sync.Mutex
	wg     sync.WaitGroup
}

// NewWorker creates a Worker. client should be the production safeurl-wrapped client.
func NewWorker(st *store.Store, client *http.Client, cfg WorkerConfig) *Worker {
	if cfg.StuckThreshold == 0 {
		cfg.StuckThreshold = 2 * time.Minute
	}
	return &Worker{
		store:  st,
		client: client,
		cfg:    cfg,
		log:    slog.Default(),
		sems:   make(map[uuid.UUID]chan struct{}),
	}
}

// Start runs the worker until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	claimTicker := time.NewTicker(5 * time.Second)
	stuckTicker := time.NewTicker(60 * time.Second)
	snoozeSweepTicker := time.NewTicker(5 * time.Minute)
	defer claimTicker.Stop()
	defer stuckTicker.Stop()
	defer snoozeSweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return
		case <-claimTicker.C:
			w.runClaim(ctx)
		case <-stuckTicker.C:
			w.runStuckReset(ctx)
		case <-snoozeSweepTicker.C:
			w.runSnoozeSweep(ctx)
		}
	}
}

// RunOnce executes one claim tick and waits for all goroutines to finish. Used in tests only.
func (w *Worker) RunOnce(ctx context.Context) {
	w.runClaim(ctx)
	w.wg.Wait()
}

func (w *Worker) runClaim(ctx context.Context) {
	rows, err := w.store.ClaimPendingDeliveries(ctx, w.cfg.ClaimBatchSize)
	if err != nil {
		w.log.Error("claim pending deliveries", "err", err)
		return
	}

	for _, row := range rows {
		sem := w.semaphore(row.ProjectID)
		sem <- struct{}{} // acquire per-project slot
		w.wg.Add(1)
		go func() {
			defer func() { <-sem }()
			defer w.wg.Done()
			w.deliver(ctx, row)
		}()
	}
}

func (w *Worker) deliver(ctx context.Context, row store.ClaimedDelivery) {
	ch, err := w.store.GetChannel(ctx, row.ChannelID)
	if err != nil || ch == nil {
		msg := "channel lookup failed"
		if err != nil {
			msg = fmt.Sprintf("channel lookup failed: %v", err)
		}
		w.log.Error("get channel for delivery", "channel_id", row.ChannelID, "err", err)
		w.exhaust(ctx, row.ID, "", msg)
		return
	}

	sendErr := w.send(ctx, ch, row.Payload)
	if sendErr == nil {
		deliveriesTotal.WithLabelValues(ch.Kind, "sent").Inc()
		if err := w.store.CompleteDelivery(ctx, row.ID); err != nil {
			w.log.Error("complete delivery", "id", row.ID, "err", err)
		}
		return
	}

	nextAttempt := int(row.AttemptCount) + 1
	w.log.Warn("delivery failed", "id", row.ID, "err", sendErr, "attempt", nextAttempt)
	if nextAttempt >= w.cfg.MaxAttempts {
		w.exhaust(ctx, row.ID, ch.Kind, sendErr.Error())
		return
	}

	deliveriesTotal.WithLabelValues(ch.Kind, "retried").Inc()
	backoff := w.backoffSeconds(nextAttempt)
	if err := w.store.RetryDelivery(ctx, row.ID, backoff, sendErr.Error()); err != nil {
		w.log.Error("retry delivery", "id", row.ID, "err", err)
	}
}

// send renders and delivers the payload over the channel. Email channels get
// the rendered digest; webhook channels get the raw template-data JSON.
func (w *Worker) send(ctx context.Context, ch *store.NotificationChannel, payload json.RawMessage) error {
	switch ch.Kind {
	case store.ChannelEmail:
		var data digest.TemplateData
		if err := json.Unmarshal(payload, &data); err != nil {
			return fmt.Errorf("unmarshal digest payload: %w", err)
		}
		subject, htmlBody, textBody, err := digest.Render(data)
		if err != nil {
			return fmt.Errorf("render digest: %w", err)
		}
		var cfg struct {
			Recipients []string `json:"recipients"`
		}
		if err := json.Unmarshal(ch.Config, &cfg); err != nil {
			return fmt.Errorf("unmarshal email channel config: %w", err)
		}
		return EmailSend(ctx, w.cfg.SMTP, cfg.Recipients, subject, htmlBody, textBody)

	case store.ChannelWebhook:
		var cfg struct {
			URL           string            `json:"url"`
			CustomHeaders map[string]string `json:"custom_headers"`
		}
		if err := json.Unmarshal(ch.Config, &cfg); err != nil {
			return fmt.Errorf("unmarshal webhook channel config: %w", err)
		}
		return Send(ctx, w.client, WebhookConfig{
			URL:           cfg.URL,
			SigningSecret: ch.SigningSecret,
			CustomHeaders: cfg.CustomHeaders,
		}, payload)

	default:
		return fmt.Errorf("unknown channel kind %q", ch.Kind)
	}
}

func (w *Worker) exhaust(ctx context.Context, id uuid.UUID, kind, lastError string) {
	if kind != "" {
		deliveriesTotal.WithLabelValues(kind, "failed").Inc()
	}
	if err := w.store.ExhaustDelivery(ctx, id, lastError); err != nil {
		w.log.Error("exhaust delivery", "id", id, "err", err)
	}
}

func (w *Worker) backoffSeconds(attempt int) int {
	base := float64(w.cfg.BackoffBaseSeconds)
	delay := base * math.Pow(2, float64(attempt-1))
	jitter := 0.5 + rand.Float64() //nolint:gosec // G404: jitter for backoff is not a security-sensitive operation
	return int(delay * jitter)
}

func (w *Worker) semaphore(projectID uuid.UUID) chan struct{} {
	w.semsMu.Lock()
	defer w.semsMu.Unlock()
	if _, ok := w.sems[projectID]; !ok {
		w.sems[projectID] = make(chan struct{}, w.cfg.MaxConcurrentPerProject)
	}
	return w.sems[projectID]
}

func (w *Worker) runStuckReset(ctx context.Context) {
	if err := w.store.ResetStuckDeliveries(ctx, w.cfg.StuckThreshold); err != nil {
		w.log.Error("reset stuck deliveries", "err", err)
	}
}

// runSnoozeSweep clears expired rule snoozes so muted rules resume delivery
// once their window passes.
func (w *Worker) runSnoozeSweep(ctx context.Context) {
	n, err := w.store.ClearExpiredSnoozes(ctx)
	if err != nil {
		w.log.Error("clear expired snoozes", "err", err)
		return
	}
	if n > 0 {
		w.log.Info("cleared expired snoozes", "count", n)
	}
}
