// ABOUTME: Store methods for the digest_deliveries delivery job queue.
// ABOUTME: Claiming uses FOR UPDATE SKIP LOCKED inside a single UPDATE…RETURNING.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Delivery statuses.
const (
	DeliveryPending    = "pending"
	DeliveryProcessing = "processing"
	DeliverySent       = "sent"
	DeliveryFailed     = "failed"
)

// ClaimedDelivery is the row returned by ClaimPendingDeliveries.
type ClaimedDelivery struct {
	ID           uuid.UUID
	ProjectID    uuid.UUID
	ChannelID    uuid.UUID
	Payload      json.RawMessage
	AttemptCount int32
}

// Delivery is the full view of a digest_deliveries row.
type Delivery struct {
	ID           uuid.UUID
	ProjectID    uuid.UUID
	ChannelID    uuid.UUID
	Payload      json.RawMessage
	Status       string
	AttemptCount int32
	SendAfter    time.Time
	LastError    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateDelivery enqueues a digest payload for delivery over a channel.
// Returns the new delivery id.
func (s *Store) CreateDelivery(ctx context.Context, projectID, channelID uuid.UUID, payload json.RawMessage) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO digest_deliveries (project_id, channel_id, payload)
		VALUES ($1, $2, $3)
		RETURNING id`,
		projectID, channelID, payload,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create delivery: %w", err)
	}
	return id, nil
}

// ClaimPendingDeliveries atomically claims up to limit pending deliveries that
// are ready to send (send_after <= now()) and transitions them to processing.
// SKIP LOCKED keeps concurrent workers from claiming the same rows.
func (s *Store) ClaimPendingDeliveries(ctx context.Context, limit int) ([]ClaimedDelivery, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE digest_deliveries d
		SET status = 'processing', updated_at = now()
		FROM (
			SELECT id FROM digest_deliveries
			WHERE status = 'pending' AND send_after <= now()
			ORDER BY send_after
			FOR UPDATE SKIP LOCKED
			LIMIT $1
		) ready
		WHERE d.id = ready.id
		RETURNING d.id, d.project_id, d.channel_id, d.payload, d.attempt_count`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim pending deliveries: %w", err)
	}
	defer rows.Close()

	var out []ClaimedDelivery
	for rows.Next() {
		var c ClaimedDelivery
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.ChannelID, &c.Payload, &c.AttemptCount); err != nil {
			return nil, fmt.Errorf("scan claimed delivery: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim pending deliveries: %w", err)
	}
	return out, nil
}

// CompleteDelivery marks a delivery as sent.
func (s *Store) CompleteDelivery(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE digest_deliveries
		SET status = 'sent', updated_at = now()
		WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("complete delivery: %w", err)
	}
	return nil
}

// RetryDelivery moves a delivery back to pending with an incremented
// attempt_count and a backoff delay. lastError records the latest failure.
func (s *Store) RetryDelivery(ctx context.Context, id uuid.UUID, backoffSeconds int, lastError string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE digest_deliveries
		SET status = 'pending',
		    attempt_count = attempt_count + 1,
		    send_after = now() + ($2 * interval '1 second'),
		    last_error = $3,
		    updated_at = now()
		WHERE id = $1`,
		id, backoffSeconds, lastError,
	)
	if err != nil {
		return fmt.Errorf("retry delivery: %w", err)
	}
	return nil
}

// ExhaustDelivery marks a delivery as permanently failed (max attempts reached).
func (s *Store) ExhaustDelivery(ctx context.Context, id uuid.UUID, lastError string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE digest_deliveries
		SET status = 'failed',
		    attempt_count = attempt_count + 1,
		    last_error = $2,
		    updated_at = now()
		WHERE id = $1`,
		id, lastError,
	)
	if err != nil {
		return fmt.Errorf("exhaust delivery: %w", err)
	}
	return nil
}

// ResetStuckDeliveries resets processing rows that have not been updated within
// stuckThreshold back to pending so a healthy worker can reclaim them.
func (s *Store) ResetStuckDeliveries(ctx context.Context, stuckThreshold time.Duration) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE digest_deliveries
		SET status = 'pending', updated_at = now()
		WHERE status = 'processing'
		  AND updated_at < now() - ($1 * interval '1 second')`,
		int(stuckThreshold.Seconds()),
	)
	if err != nil {
		return fmt.Errorf("reset stuck deliveries: %w", err)
	}
	return nil
}

// GetDelivery returns the delivery with the given id scoped to projectID, or
// nil if not found.
func (s *Store) GetDelivery(ctx context.Context, id, projectID uuid.UUID) (*Delivery, error) {
	var d Delivery
	err := s.pool.QueryRow(ctx, `
		SELECT id, project_id, channel_id, payload, status, attempt_count,
		       send_after, last_error, created_at, updated_at
		FROM digest_deliveries
		WHERE id = $1 AND project_id = $2`,
		id, projectID,
	).Scan(&d.ID, &d.ProjectID, &d.ChannelID, &d.Payload, &d.Status, &d.AttemptCount,
		&d.SendAfter, &d.LastError, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	return &d, nil
}
