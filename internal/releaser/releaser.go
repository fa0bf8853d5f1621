package releaser

import (
	"context"

	"github.com/grokify/releaseconductor/pkg/model"
)

// Releaser defines the source-control operations used during reconciliation.
type Releaser interface {
	// FindTags returns one page of tag names starting with query, newest
	// first. Pages are numbered from 1; TagPage.NextPage is 0 on the last page.
	FindTags(ctx context.Context, query string, page int) (*model.TagPage, error)

	// GetRelease returns the release, draft or published, for a tag name.
	// It returns nil without error when no such release exists.
	GetRelease(ctx context.Context, tagName string) (*model.Release, error)

	// CreateRelease creates a new release.
	CreateRelease(ctx context.Context, req *model.ReleaseRequest) (*model.Release, error)

	// UpdateRelease edits an existing release.
	UpdateRelease(ctx context.Context, id int64, req *model.ReleaseRequest) error

	// CompareRefs compares two refs, e.g., two tags.
	CompareRefs(ctx context.Context, base, head string) (*model.Comparison, error)
}

// DefaultTagPageSize is the number of tag names returned per FindTags page.
const DefaultTagPageSize = 100
