// ABOUTME: Request context key types and constants for the api package.
// ABOUTME: Used by middleware to inject auth state and by handlers to read it.
package api

import (
	"context"

	"github.com/google/uuid"
)

type contextKey int

const (
	ctxProjectID contextKey = iota // uuid.UUID — project resolved from the API key
)

// projectIDFromContext returns the authenticated project ID, or uuid.Nil when
// the request did not pass API-key auth.
func projectIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxProjectID).(uuid.UUID)
	return id
}
