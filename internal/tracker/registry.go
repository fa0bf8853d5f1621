package tracker

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/grokify/releaseconductor/pkg/model"
)

// Registry creates tracker versions exactly once per project and name.
// Calls must not run concurrently for the same project.
type Registry struct {
	client Client
	dryRun bool
	logger *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDryRun makes EnsureVersion report missing versions without creating
// them. The returned record then has an empty ID.
func WithDryRun(dryRun bool) RegistryOption {
	return func(r *Registry) {
		r.dryRun = dryRun
	}
}

// NewRegistry creates a version registry backed by client.
func NewRegistry(client Client, opts ...RegistryOption) *Registry {
	r := &Registry{
		client: client,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureVersion returns the version called name in project, creating an
// unarchived, unreleased version when none exists. The boolean reports
// whether a version was created.
func (r *Registry) EnsureVersion(ctx context.Context, project model.Project, name string) (*model.TrackerVersion, bool, error) {
	versions, err := r.client.ListVersions(ctx, project.Key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list versions of %s: %w", project.Key, err)
	}

	for _, v := range versions {
		if v.Name == name {
			r.logger.Debug("version found", "project", project.Key, "version", name, "id", v.ID)
			found := v
			return &found, false, nil
		}
	}

	requested := model.TrackerVersion{
		Name:      name,
		ProjectID: project.ID,
		Archived:  false,
		Released:  false,
	}

	if r.dryRun {
		r.logger.Info("dry run: would create version", "project", project.Key, "version", name)
		return &requested, false, nil
	}

	created, err := r.client.CreateVersion(ctx, requested)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create version %s in %s: %w", name, project.Key, err)
	}
	r.logger.Info("version created", "project", project.Key, "version", name, "id", created.ID)

	return created, true, nil
}
