// Package tracker defines the issue tracker operations used by the
// reconciler, a Jira implementation and the idempotent version registry.
package tracker

import (
	"context"

	"github.com/grokify/releaseconductor/pkg/model"
)

// Client defines the issue tracker operations used during reconciliation.
type Client interface {
	// SearchIssues returns every issue matching the query. The fields list
	// names the issue fields to load, e.g., "summary" or "issuelinks".
	SearchIssues(ctx context.Context, query string, fields []string) ([]model.Issue, error)

	// ListVersions returns all versions of a project.
	ListVersions(ctx context.Context, projectKey string) ([]model.TrackerVersion, error)

	// CreateVersion creates a version and returns the stored record.
	CreateVersion(ctx context.Context, v model.TrackerVersion) (*model.TrackerVersion, error)

	// UpdateIssue applies an update to an existing issue.
	UpdateIssue(ctx context.Context, issueKey string, update model.IssueUpdate) error

	// CreateIssueLink links two issues.
	CreateIssueLink(ctx context.Context, link model.IssueLink) error

	// CreateIssue creates an issue and returns its key.
	CreateIssue(ctx context.Context, issue model.NewIssue) (*model.Issue, error)
}

// Fields requested by the reconciler searches.
const (
	FieldSummary    = "summary"
	FieldIssueLinks = "issuelinks"
)
