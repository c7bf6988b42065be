// Package registry resolves the set of companies the pipeline scrapes.
// The default source is a JSON file; a Postgres table serves shared
// deployments.
package registry

import (
	"context"
	"fmt"
	"strings"

	"ats-job-pipeline/internal/config"
	"ats-job-pipeline/internal/models"
)

// Source lists the companies to scrape.
type Source interface {
	Companies(ctx context.Context) ([]models.Company, error)
}

// ForConfig selects the registry source: "file" (default) or
// "postgres".
func ForConfig(ctx context.Context, cfg config.Config) (Source, error) {
	switch strings.ToLower(cfg.RegistrySource) {
	case "", "file":
		return &FileSource{Path: cfg.RegistryFile}, nil
	case "postgres":
		return NewPostgresSource(ctx, cfg.PostgresDSN)
	}
	return nil, fmt.Errorf("unknown registry source %q", cfg.RegistrySource)
}

// validate rejects entries that would silently produce empty scrapes.
func validate(companies []models.Company) error {
	for i, c := range companies {
		if c.Slug == "" {
			return fmt.Errorf("company %d: missing slug", i)
		}
		if !models.KnownATS(c.ATS) {
			return fmt.Errorf("company %q: unknown ats %q", c.Slug, c.ATS)
		}
	}
	return nil
}
