// ABOUTME: Digest API endpoints: submit a digest for delivery, check a delivery, preview rendering.
// ABOUTME: All routes require API-key auth; the project comes from the request context.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/mfaller/digestd/internal/digest"
)

// registerDigestRoutes wires up the digest endpoints on the huma API.
//
//	POST /digests          — accept a digest and enqueue deliveries
//	GET  /digests/{id}     — delivery status
//	POST /digests/preview  — render a digest without enqueuing anything
func registerDigestRoutes(api huma.API, srv *Server) {
	huma.Register(api, huma.Operation{
		OperationID:   "submit-digest",
		Method:        http.MethodPost,
		Path:          "/digests",
		Summary:       "Submit a digest",
		Description:   "Accepts a precomputed alert digest and enqueues one delivery per active channel. Snoozed rules are suppressed.",
		Tags:          []string{"Digests"},
		DefaultStatus: http.StatusAccepted,
	}, srv.submitDigestHandler)

	huma.Register(api, huma.Operation{
		OperationID: "get-delivery",
		Method:      http.MethodGet,
		Path:        "/digests/{id}",
		Summary:     "Get delivery status",
		Description: "Returns the delivery row for a previously submitted digest, scoped to the caller's project.",
		Tags:        []string{"Digests"},
	}, srv.getDeliveryHandler)

	huma.Register(api, huma.Operation{
		OperationID: "preview-digest",
		Method:      http.MethodPost,
		Path:        "/digests/preview",
		Summary:     "Preview a digest",
		Description: "Renders the digest email without creating deliveries. Useful for template debugging.",
		Tags:        []string{"Digests"},
	}, srv.previewDigestHandler)
}

// ── POST /digests ─────────────────────────────────────────────────────────────

// SubmitDigestInput is the request body for digest submission.
type SubmitDigestInput struct {
	Body digest.Digest
}

// SubmitDigestOutput is the 202 response body.
type SubmitDigestOutput struct {
	Body SubmitDigestBody
}

// SubmitDigestBody lists the deliveries created for the digest. An empty list
// means every rule was snoozed or the project has no active channels.
type SubmitDigestBody struct {
	DeliveryIDs []uuid.UUID `json:"delivery_ids"`
}

func (srv *Server) submitDigestHandler(ctx context.Context, input *SubmitDigestInput) (*SubmitDigestOutput, error) {
	if err := validateDigest(input.Body); err != nil {
		return nil, err
	}
	project, err := srv.store.GetProject(ctx, projectIDFromContext(ctx))
	if err != nil {
		return nil, huma.Error500InternalServerError("project lookup failed", err)
	}
	if project == nil {
		return nil, huma.Error401Unauthorized("unknown project")
	}

	ids, err := srv.dispatcher.Fanout(ctx, project, input.Body)
	if err != nil {
		return nil, huma.Error500InternalServerError("digest fanout failed", err)
	}
	if ids == nil {
		ids = []uuid.UUID{} // never return null for arrays in JSON
	}
	return &SubmitDigestOutput{Body: SubmitDigestBody{DeliveryIDs: ids}}, nil
}

// validateDigest rejects digests the renderer cannot produce sensible output for.
func validateDigest(d digest.Digest) error {
	if len(d.Rules) == 0 {
		return huma.Error422UnprocessableEntity("digest has no rules")
	}
	if d.Start.IsZero() || d.End.IsZero() {
		return huma.Error422UnprocessableEntity("digest window start and end are required")
	}
	if d.End.Before(d.Start) {
		return huma.Error422UnprocessableEntity("digest window end precedes start")
	}
	for _, r := range d.Rules {
		if r.Rule.ID == "" {
			return huma.Error422UnprocessableEntity("every rule needs an id")
		}
		for _, g := range r.Groups {
			if len(g.Records) == 0 {
				return huma.Error422UnprocessableEntity("every group needs at least one record")
			}
		}
	}
	return nil
}

// ── GET /digests/{id} ─────────────────────────────────────────────────────────

// GetDeliveryInput carries the delivery ID path parameter.
type GetDeliveryInput struct {
	ID uuid.UUID `path:"id" doc:"Delivery ID returned by digest submission"`
}

// GetDeliveryOutput is the response body for a delivery lookup.
type GetDeliveryOutput struct {
	Body DeliveryResponse
}

// DeliveryResponse is the API representation of a digest_deliveries row.
type DeliveryResponse struct {
	ID           uuid.UUID `json:"id"`
	ChannelID    uuid.UUID `json:"channel_id"`
	Status       string    `json:"status"`
	AttemptCount int32     `json:"attempt_count"`
	SendAfter    string    `json:"send_after"` // RFC3339
	LastError    *string   `json:"last_error,omitempty"`
	CreatedAt    string    `json:"created_at"` // RFC3339
}

func (srv *Server) getDeliveryHandler(ctx context.Context, input *GetDeliveryInput) (*GetDeliveryOutput, error) {
	d, err := srv.store.GetDelivery(ctx, input.ID, projectIDFromContext(ctx))
	if err != nil {
		return nil, huma.Error500InternalServerError("delivery lookup failed", err)
	}
	if d == nil {
		return nil, huma.Error404NotFound("delivery not found")
	}
	return &GetDeliveryOutput{Body: DeliveryResponse{
		ID:           d.ID,
		ChannelID:    d.ChannelID,
		Status:       d.Status,
		AttemptCount: d.AttemptCount,
		SendAfter:    d.SendAfter.UTC().Format(time.RFC3339),
		LastError:    d.LastError,
		CreatedAt:    d.CreatedAt.UTC().Format(time.RFC3339),
	}}, nil
}

// ── POST /digests/preview ─────────────────────────────────────────────────────

// PreviewDigestInput is the request body for a render preview.
type PreviewDigestInput struct {
	Body digest.Digest
}

// PreviewDigestOutput is the rendered email, nothing is persisted.
type PreviewDigestOutput struct {
	Body PreviewDigestBody
}

// PreviewDigestBody holds the rendered subject and both bodies.
type PreviewDigestBody struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

func (srv *Server) previewDigestHandler(ctx context.Context, input *PreviewDigestInput) (*PreviewDigestOutput, error) {
	if err := validateDigest(input.Body); err != nil {
		return nil, err
	}
	project, err := srv.store.GetProject(ctx, projectIDFromContext(ctx))
	if err != nil {
		return nil, huma.Error500InternalServerError("project lookup failed", err)
	}
	if project == nil {
		return nil, huma.Error401Unauthorized("unknown project")
	}

	dg := input.Body
	dg.Project = digest.Project{Slug: project.Slug, AbsoluteURL: project.AbsoluteURL}

	// Previews render without mute links — those are only signed at fanout time.
	details := make(map[string]digest.RuleDetails, len(dg.Rules))
	for _, r := range dg.Rules {
		details[r.Rule.ID] = digest.RuleDetails{Label: r.Rule.Label, StatusURL: r.Rule.StatusURL}
	}
	subject, htmlBody, textBody, err := digest.Render(digest.TemplateData{
		Digest:              dg,
		HasAlertIntegration: project.HasAlertIntegration,
		SlackLink:           project.SlackLink,
		RulesDetails:        details,
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("render failed", err)
	}
	return &PreviewDigestOutput{Body: PreviewDigestBody{Subject: subject, HTML: htmlBody, Text: textBody}}, nil
}
