// ABOUTME: Notification channel management endpoints, scoped to the caller's project.
// ABOUTME: Webhook signing secrets are generated server-side and returned only on create.
package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/mfaller/digestd/internal/store"
)

// registerChannelRoutes wires up the channel management endpoints on the huma API.
//
//	POST   /channels       — create an email or webhook channel
//	GET    /channels       — list active channels
//	DELETE /channels/{id}  — deactivate a channel
func registerChannelRoutes(api huma.API, srv *Server) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-channel",
		Method:        http.MethodPost,
		Path:          "/channels",
		Summary:       "Create a notification channel",
		Description:   "Creates an email or webhook channel for the caller's project. Webhook channels get a server-generated signing secret, returned only in this response.",
		Tags:          []string{"Channels"},
		DefaultStatus: http.StatusCreated,
	}, srv.createChannelHandler)

	huma.Register(api, huma.Operation{
		OperationID: "list-channels",
		Method:      http.MethodGet,
		Path:        "/channels",
		Summary:     "List notification channels",
		Description: "Returns the active channels for the caller's project, oldest first.",
		Tags:        []string{"Channels"},
	}, srv.listChannelsHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "deactivate-channel",
		Method:        http.MethodDelete,
		Path:          "/channels/{id}",
		Summary:       "Deactivate a notification channel",
		Description:   "Stops future deliveries over the channel. Deliveries already queued are unaffected.",
		Tags:          []string{"Channels"},
		DefaultStatus: http.StatusNoContent,
	}, srv.deactivateChannelHandler)
}

// ── POST /channels ────────────────────────────────────────────────────────────

// CreateChannelInput is the request body for channel creation.
type CreateChannelInput struct {
	Body struct {
		Kind   string          `json:"kind" enum:"email,webhook" doc:"Channel kind"`
		Config json.RawMessage `json:"config" doc:"email: {\"recipients\": [...]}; webhook: {\"url\": \"...\", \"custom_headers\": {...}}"`
	}
}

// CreateChannelOutput is the 201 response body.
type CreateChannelOutput struct {
	Body ChannelCreateResponse
}

// ChannelResponse is the API representation of a notification_channels row.
// Signing secrets are never included here.
type ChannelResponse struct {
	ID        uuid.UUID       `json:"id"`
	Kind      string          `json:"kind"`
	Config    json.RawMessage `json:"config"`
	Active    bool            `json:"active"`
	CreatedAt string          `json:"created_at"` // RFC3339
}

// ChannelCreateResponse extends ChannelResponse with the signing secret,
// returned only at creation.
type ChannelCreateResponse struct {
	ChannelResponse
	SigningSecret string `json:"signing_secret,omitempty"`
}

func (srv *Server) createChannelHandler(ctx context.Context, input *CreateChannelInput) (*CreateChannelOutput, error) {
	if err := validateChannelConfig(input.Body.Kind, input.Body.Config); err != nil {
		return nil, err
	}

	secret := ""
	if input.Body.Kind == store.ChannelWebhook {
		s, err := newSigningSecret()
		if err != nil {
			return nil, huma.Error500InternalServerError("generate signing secret", err)
		}
		secret = s
	}

	ch, err := srv.store.CreateChannel(ctx, projectIDFromContext(ctx), input.Body.Kind, input.Body.Config, secret)
	if err != nil {
		return nil, huma.Error500InternalServerError("create channel failed", err)
	}
	return &CreateChannelOutput{Body: ChannelCreateResponse{
		ChannelResponse: channelResponse(ch),
		SigningSecret:   secret,
	}}, nil
}

// validateChannelConfig rejects configs the delivery worker cannot act on.
func validateChannelConfig(kind string, config json.RawMessage) error {
	switch kind {
	case store.ChannelEmail:
		var cfg struct {
			Recipients []string `json:"recipients"`
		}
		if err := json.Unmarshal(config, &cfg); err != nil || len(cfg.Recipients) == 0 {
			return huma.Error422UnprocessableEntity("email config must include at least one recipient")
		}
	case store.ChannelWebhook:
		var cfg struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(config, &cfg); err != nil || strings.TrimSpace(cfg.URL) == "" {
			return huma.Error422UnprocessableEntity("webhook config must include a non-empty url")
		}
	default:
		return huma.Error422UnprocessableEntity(fmt.Sprintf("unknown channel kind %q", kind))
	}
	return nil
}

// newSigningSecret generates a 32-byte hex signing secret for webhook HMACs.
func newSigningSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate signing secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ── GET /channels ─────────────────────────────────────────────────────────────

// ListChannelsInput has no parameters; the project comes from the API key.
type ListChannelsInput struct{}

// ListChannelsOutput is the response body for the channel list.
type ListChannelsOutput struct {
	Body ChannelListBody
}

// ChannelListBody wraps the channel items.
type ChannelListBody struct {
	Items []ChannelResponse `json:"items"`
}

func (srv *Server) listChannelsHandler(ctx context.Context, _ *ListChannelsInput) (*ListChannelsOutput, error) {
	rows, err := srv.store.ListActiveChannels(ctx, projectIDFromContext(ctx))
	if err != nil {
		return nil, huma.Error500InternalServerError("list channels failed", err)
	}
	items := make([]ChannelResponse, len(rows))
	for i := range rows {
		items[i] = channelResponse(&rows[i])
	}
	return &ListChannelsOutput{Body: ChannelListBody{Items: items}}, nil
}

// ── DELETE /channels/{id} ─────────────────────────────────────────────────────

// DeactivateChannelInput carries the channel ID path parameter.
type DeactivateChannelInput struct {
	ID uuid.UUID `path:"id" doc:"Channel ID"`
}

// DeactivateChannelOutput is an empty 204 response.
type DeactivateChannelOutput struct{}

func (srv *Server) deactivateChannelHandler(ctx context.Context, input *DeactivateChannelInput) (*DeactivateChannelOutput, error) {
	found, err := srv.store.DeactivateChannel(ctx, projectIDFromContext(ctx), input.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("deactivate channel failed", err)
	}
	if !found {
		return nil, huma.Error404NotFound("channel not found")
	}
	return &DeactivateChannelOutput{}, nil
}

func channelResponse(ch *store.NotificationChannel) ChannelResponse {
	return ChannelResponse{
		ID:        ch.ID,
		Kind:      ch.Kind,
		Config:    ch.Config,
		Active:    ch.Active,
		CreatedAt: ch.CreatedAt.UTC().Format(time.RFC3339),
	}
}
