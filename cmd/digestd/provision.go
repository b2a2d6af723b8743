// Provisioning subcommands for bootstrapping a deployment: projects and API
// keys are created from the shell, since the API itself requires a key.
// Channels can then be managed over /api/v1/channels.
package main

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mfaller/digestd/internal/auth"
	"github.com/mfaller/digestd/internal/config"
	"github.com/mfaller/digestd/internal/store"
)

// withStore loads config, connects, and hands the caller a store. Used by the
// one-shot provisioning commands.
func withStore(cmd *cobra.Command, fn func(st *store.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	slog.SetDefault(newLogger(cfg))

	db, err := newPool(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	return fn(store.New(db))
}

// ── create-project ────────────────────────────────────────────────────────────

func createProjectCmd() *cobra.Command {
	var (
		slug, name, url, slackLink string
		hasAlertIntegration        bool
	)
	cmd := &cobra.Command{
		Use:   "create-project",
		Short: "Create a project and print its id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(st *store.Store) error {
				p, err := st.CreateProject(cmd.Context(), store.CreateProjectParams{
					Slug:                slug,
					Name:                name,
					AbsoluteURL:         url,
					HasAlertIntegration: hasAlertIntegration,
					SlackLink:           slackLink,
				})
				if err != nil {
					return fmt.Errorf("create project: %w", err)
				}
				fmt.Printf("project %s created (id %s)\n", p.Slug, p.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&slug, "slug", "", "project slug (required)")
	cmd.Flags().StringVar(&name, "name", "", "project display name (required)")
	cmd.Flags().StringVar(&url, "url", "", "project dashboard URL (required)")
	cmd.Flags().StringVar(&slackLink, "slack-link", "", "link to the message-integration setup page")
	cmd.Flags().BoolVar(&hasAlertIntegration, "has-alert-integration", false, "project already has a message integration")
	_ = cmd.MarkFlagRequired("slug")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

// ── create-api-key ────────────────────────────────────────────────────────────

func createAPIKeyCmd() *cobra.Command {
	var projectSlug, name string
	cmd := &cobra.Command{
		Use:   "create-api-key",
		Short: "Create an API key for a project and print it once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(st *store.Store) error {
				p, err := st.GetProjectBySlug(cmd.Context(), projectSlug)
				if err != nil {
					return fmt.Errorf("look up project: %w", err)
				}
				if p == nil {
					return fmt.Errorf("no project with slug %q", projectSlug)
				}

				rawKey, keyHash, err := auth.GenerateAPIKey()
				if err != nil {
					return fmt.Errorf("generate key: %w", err)
				}
				id, err := st.CreateAPIKey(cmd.Context(), p.ID, name, keyHash)
				if err != nil {
					return fmt.Errorf("store key: %w", err)
				}

				// The raw key is shown here and nowhere else; only its hash is stored.
				fmt.Printf("api key %s created for project %s\n%s\n", id, p.Slug, rawKey)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectSlug, "project-slug", "", "slug of the owning project (required)")
	cmd.Flags().StringVar(&name, "name", "", "key name, e.g. the calling service (required)")
	_ = cmd.MarkFlagRequired("project-slug")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// ── revoke-api-key ────────────────────────────────────────────────────────────

func revokeAPIKeyCmd() *cobra.Command {
	var projectSlug, keyID string
	cmd := &cobra.Command{
		Use:   "revoke-api-key",
		Short: "Permanently revoke an API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.Parse(keyID)
			if err != nil {
				return fmt.Errorf("invalid key id %q: %w", keyID, err)
			}
			return withStore(cmd, func(st *store.Store) error {
				p, err := st.GetProjectBySlug(cmd.Context(), projectSlug)
				if err != nil {
					return fmt.Errorf("look up project: %w", err)
				}
				if p == nil {
					return fmt.Errorf("no project with slug %q", projectSlug)
				}
				if err := st.RevokeAPIKey(cmd.Context(), id, p.ID); err != nil {
					return err
				}
				fmt.Printf("api key %s revoked\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectSlug, "project-slug", "", "slug of the owning project (required)")
	cmd.Flags().StringVar(&keyID, "id", "", "id of the key to revoke (required)")
	_ = cmd.MarkFlagRequired("project-slug")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
