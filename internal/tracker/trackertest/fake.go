// Package trackertest provides an in-memory tracker.Client for tests.
package trackertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/grokify/releaseconductor/pkg/model"
)

// Search is a recorded SearchIssues call.
type Search struct {
	Query  string
	Fields []string
}

// Update is a recorded UpdateIssue call.
type Update struct {
	IssueKey string
	Update   model.IssueUpdate
}

// Fake is an in-memory tracker. Versions are stored per project key; project
// IDs are mapped to keys with ProjectKeys. Searches are answered by
// SearchFunc. Errors can be injected per operation and item.
type Fake struct {
	mu sync.Mutex

	// ProjectKeys maps project IDs to keys for CreateVersion.
	ProjectKeys map[string]string
	// SearchFunc answers SearchIssues. A nil SearchFunc returns no issues.
	SearchFunc func(query string, fields []string) ([]model.Issue, error)

	// UpdateErrors fails UpdateIssue for the given issue keys.
	UpdateErrors map[string]error
	// LinkErrors fails CreateIssueLink for the given inward issue keys.
	LinkErrors map[string]error
	// ListVersionsErr fails every ListVersions call.
	ListVersionsErr error

	Versions       map[string][]model.TrackerVersion
	Searches       []Search
	VersionLists   []string
	CreatedVersion []model.TrackerVersion
	Updates        []Update
	Links          []model.IssueLink
	CreatedIssues  []model.NewIssue

	nextID int
}

// New returns an empty fake tracker.
func New(projects ...model.Project) *Fake {
	f := &Fake{
		ProjectKeys: map[string]string{},
		Versions:    map[string][]model.TrackerVersion{},
	}
	for _, p := range projects {
		f.ProjectKeys[p.ID] = p.Key
	}
	return f
}

// AddVersion seeds an existing version in a project.
func (f *Fake) AddVersion(projectKey string, v model.TrackerVersion) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Versions[projectKey] = append(f.Versions[projectKey], v)
}

// SearchIssues implements tracker.Client.
func (f *Fake) SearchIssues(_ context.Context, query string, fields []string) ([]model.Issue, error) {
	f.mu.Lock()
	f.Searches = append(f.Searches, Search{Query: query, Fields: fields})
	fn := f.SearchFunc
	f.mu.Unlock()

	if fn == nil {
		return nil, nil
	}
	return fn(query, fields)
}

// ListVersions implements tracker.Client.
func (f *Fake) ListVersions(_ context.Context, projectKey string) ([]model.TrackerVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.VersionLists = append(f.VersionLists, projectKey)
	if f.ListVersionsErr != nil {
		return nil, f.ListVersionsErr
	}
	return append([]model.TrackerVersion(nil), f.Versions[projectKey]...), nil
}

// CreateVersion implements tracker.Client.
func (f *Fake) CreateVersion(_ context.Context, v model.TrackerVersion) (*model.TrackerVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key, ok := f.ProjectKeys[v.ProjectID]
	if !ok {
		return nil, fmt.Errorf("unknown project id %q", v.ProjectID)
	}
	f.nextID++
	v.ID = fmt.Sprintf("%d", 10000+f.nextID)
	f.Versions[key] = append(f.Versions[key], v)
	f.CreatedVersion = append(f.CreatedVersion, v)
	return &v, nil
}

// UpdateIssue implements tracker.Client.
func (f *Fake) UpdateIssue(_ context.Context, issueKey string, update model.IssueUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.UpdateErrors[issueKey]; err != nil {
		return err
	}
	f.Updates = append(f.Updates, Update{IssueKey: issueKey, Update: update})
	return nil
}

// CreateIssueLink implements tracker.Client.
func (f *Fake) CreateIssueLink(_ context.Context, link model.IssueLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.LinkErrors[link.InwardKey]; err != nil {
		return err
	}
	f.Links = append(f.Links, link)
	return nil
}

// CreateIssue implements tracker.Client.
func (f *Fake) CreateIssue(_ context.Context, issue model.NewIssue) (*model.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.CreatedIssues = append(f.CreatedIssues, issue)
	key := fmt.Sprintf("%s-%d", f.ProjectKeys[issue.ProjectID], f.nextID)
	return &model.Issue{Key: key, Summary: issue.Summary}, nil
}
