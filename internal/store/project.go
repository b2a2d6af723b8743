// ABOUTME: Store methods for projects — the tenant unit digests are delivered for.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Project is the digest-delivery view of a project row.
type Project struct {
	ID                  uuid.UUID
	Slug                string
	Name                string
	AbsoluteURL         string
	HasAlertIntegration bool
	SlackLink           string
	CreatedAt           time.Time
}

// CreateProjectParams are the caller-supplied fields for a new project.
type CreateProjectParams struct {
	Slug                string
	Name                string
	AbsoluteURL         string
	HasAlertIntegration bool
	SlackLink           string
}

// CreateProject inserts a project and returns the stored row.
func (s *Store) CreateProject(ctx context.Context, p CreateProjectParams) (*Project, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO projects (slug, name, absolute_url, has_alert_integration, slack_link)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, slug, name, absolute_url, has_alert_integration, slack_link, created_at`,
		p.Slug, p.Name, p.AbsoluteURL, p.HasAlertIntegration, p.SlackLink,
	)
	return scanProject(row)
}

// GetProject returns the project with the given id, or nil if not found.
func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, slug, name, absolute_url, has_alert_integration, slack_link, created_at
		FROM projects WHERE id = $1`, id)
	p, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// GetProjectBySlug returns the project with the given slug, or nil if not found.
func (s *Store) GetProjectBySlug(ctx context.Context, slug string) (*Project, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, slug, name, absolute_url, has_alert_integration, slack_link, created_at
		FROM projects WHERE slug = $1`, slug)
	p, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.AbsoluteURL, &p.HasAlertIntegration, &p.SlackLink, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	return &p, nil
}
