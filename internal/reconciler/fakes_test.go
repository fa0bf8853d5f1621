package reconciler_test

import (
	"context"
	"strings"

	"github.com/grokify/releaseconductor/internal/miner"
	"github.com/grokify/releaseconductor/pkg/model"
)

type releaseUpdate struct {
	ID      int64
	Request model.ReleaseRequest
}

// fakeReleaser serves tags (newest first) and releases from memory.
type fakeReleaser struct {
	tags       []string
	pageSize   int
	releases   map[string]*model.Release
	comparison model.Comparison
	getErr     error

	tagQueries []string
	created    []model.ReleaseRequest
	updated    []releaseUpdate
	compared   []string
}

func newFakeReleaser(tags ...string) *fakeReleaser {
	return &fakeReleaser{
		tags:     tags,
		pageSize: 2,
		releases: map[string]*model.Release{},
	}
}

func (f *fakeReleaser) FindTags(_ context.Context, query string, page int) (*model.TagPage, error) {
	f.tagQueries = append(f.tagQueries, query)
	var matching []string
	for _, t := range f.tags {
		if strings.HasPrefix(t, query) {
			matching = append(matching, t)
		}
	}
	start := (page - 1) * f.pageSize
	if start >= len(matching) {
		return &model.TagPage{}, nil
	}
	end := min(start+f.pageSize, len(matching))
	tp := &model.TagPage{Names: matching[start:end]}
	if end < len(matching) {
		tp.NextPage = page + 1
	}
	return tp, nil
}

func (f *fakeReleaser) GetRelease(_ context.Context, tagName string) (*model.Release, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.releases[tagName], nil
}

func (f *fakeReleaser) CreateRelease(_ context.Context, req *model.ReleaseRequest) (*model.Release, error) {
	f.created = append(f.created, *req)
	rel := &model.Release{ID: int64(100 + len(f.created)), TagName: req.TagName, Draft: req.Draft}
	f.releases[req.TagName] = rel
	return rel, nil
}

func (f *fakeReleaser) UpdateRelease(_ context.Context, id int64, req *model.ReleaseRequest) error {
	f.updated = append(f.updated, releaseUpdate{ID: id, Request: *req})
	return nil
}

func (f *fakeReleaser) CompareRefs(_ context.Context, base, head string) (*model.Comparison, error) {
	f.compared = append(f.compared, base+"..."+head)
	c := f.comparison
	c.Base, c.Head = base, head
	return &c, nil
}

// fakeMiner returns a fixed raw key list.
type fakeMiner struct {
	out      string
	err      error
	requests []miner.Request
}

func (f *fakeMiner) Mine(_ context.Context, req miner.Request) (string, error) {
	f.requests = append(f.requests, req)
	return f.out, f.err
}
