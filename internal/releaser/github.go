package releaser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"unicode"

	"github.com/Masterminds/semver/v3"
	"github.com/google/go-github/v84/github"
	"github.com/grokify/gogithub/release"
	"github.com/grokify/gogithub/tag"

	"github.com/grokify/releaseconductor/pkg/model"
)

// GitHubConfig configures a GitHubReleaser.
type GitHubConfig struct {
	Token       string
	Repo        model.RepoRef
	BaseURL     string            // optional API base URL, e.g., for GitHub Enterprise or tests
	Transport   http.RoundTripper // optional, e.g., a retry transport
	TagPageSize int               // 0 uses DefaultTagPageSize
	Logger      *slog.Logger
}

// GitHubReleaser implements Releaser for one GitHub repository.
type GitHubReleaser struct {
	client      *github.Client
	repo        model.RepoRef
	tagPageSize int
	logger      *slog.Logger

	tags []string // all tag names, loaded once
}

var _ Releaser = (*GitHubReleaser)(nil)

// NewGitHubReleaser creates a new GitHub releaser.
func NewGitHubReleaser(cfg GitHubConfig) (*GitHubReleaser, error) {
	if cfg.Repo.Owner == "" || cfg.Repo.Name == "" {
		return nil, fmt.Errorf("repository owner and name required")
	}

	client := github.NewClient(&http.Client{Transport: cfg.Transport})
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL: %w", err)
		}
		client.BaseURL = u
	}

	pageSize := cfg.TagPageSize
	if pageSize <= 0 {
		pageSize = DefaultTagPageSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &GitHubReleaser{
		client:      client,
		repo:        cfg.Repo,
		tagPageSize: pageSize,
		logger:      logger,
	}, nil
}

// FindTags returns one page of tag names starting with query, ordered by
// descending semantic version.
func (r *GitHubReleaser) FindTags(ctx context.Context, query string, page int) (*model.TagPage, error) {
	all, err := r.listTagNames(ctx)
	if err != nil {
		return nil, err
	}

	var matching []string
	for _, name := range all {
		if strings.HasPrefix(name, query) {
			matching = append(matching, name)
		}
	}
	sortNewestFirst(matching)

	if page < 1 {
		page = 1
	}
	start := (page - 1) * r.tagPageSize
	if start >= len(matching) {
		return &model.TagPage{}, nil
	}
	end := min(start+r.tagPageSize, len(matching))

	result := &model.TagPage{Names: matching[start:end]}
	if end < len(matching) {
		result.NextPage = page + 1
	}
	return result, nil
}

func (r *GitHubReleaser) listTagNames(ctx context.Context) ([]string, error) {
	if r.tags != nil {
		return r.tags, nil
	}

	names, err := tag.GetTagNames(ctx, r.client, r.repo.Owner, r.repo.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	if names == nil {
		names = []string{}
	}

	r.logger.Debug("loaded tags", "repo", r.repo.FullName(), "count", len(names))
	r.tags = names
	return names, nil
}

// sortNewestFirst orders tag names by descending semantic version. Names that
// do not parse keep their relative order after all parsable names.
func sortNewestFirst(names []string) {
	parsed := make(map[string]*semver.Version, len(names))
	for _, n := range names {
		if v, err := semver.NewVersion(strings.TrimLeftFunc(n, notDigit)); err == nil {
			parsed[n] = v
		}
	}

	sort.SliceStable(names, func(i, j int) bool {
		vi, vj := parsed[names[i]], parsed[names[j]]
		switch {
		case vi == nil:
			return false
		case vj == nil:
			return true
		default:
			return vi.GreaterThan(vj)
		}
	})
}

func notDigit(r rune) bool {
	return !unicode.IsDigit(r)
}

// GetRelease returns the release for tagName, including drafts, which the
// tag lookup endpoint does not return.
func (r *GitHubReleaser) GetRelease(ctx context.Context, tagName string) (*model.Release, error) {
	opts := &github.ListOptions{PerPage: 100}
	for {
		releases, resp, err := r.client.Repositories.ListReleases(ctx, r.repo.Owner, r.repo.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list releases: %w", err)
		}
		for _, rel := range releases {
			if rel.GetTagName() == tagName {
				return convertRelease(rel), nil
			}
		}
		if resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}

// CreateRelease creates a new release for the repository.
func (r *GitHubReleaser) CreateRelease(ctx context.Context, req *model.ReleaseRequest) (*model.Release, error) {
	created, err := release.CreateRelease(ctx, r.client, r.repo.Owner, r.repo.Name, toGitHubRelease(req))
	if err != nil {
		return nil, fmt.Errorf("failed to create release: %w", err)
	}
	return convertRelease(created), nil
}

// UpdateRelease edits an existing release.
func (r *GitHubReleaser) UpdateRelease(ctx context.Context, id int64, req *model.ReleaseRequest) error {
	_, _, err := r.client.Repositories.EditRelease(ctx, r.repo.Owner, r.repo.Name, id, toGitHubRelease(req))
	if err != nil {
		return fmt.Errorf("failed to update release %d: %w", id, err)
	}
	return nil
}

// CompareRefs compares base...head.
func (r *GitHubReleaser) CompareRefs(ctx context.Context, base, head string) (*model.Comparison, error) {
	comp, _, err := r.client.Repositories.CompareCommits(ctx, r.repo.Owner, r.repo.Name, base, head, &github.ListOptions{PerPage: 100})
	if err != nil {
		return nil, fmt.Errorf("failed to compare %s...%s: %w", base, head, err)
	}

	return &model.Comparison{
		Base:        base,
		Head:        head,
		CommitCount: comp.GetTotalCommits(),
		FileCount:   len(comp.Files),
		HTMLURL:     comp.GetHTMLURL(),
	}, nil
}

func toGitHubRelease(req *model.ReleaseRequest) *github.RepositoryRelease {
	name := req.Name
	if name == "" {
		name = req.TagName
	}
	ghRelease := &github.RepositoryRelease{
		TagName:    github.Ptr(req.TagName),
		Name:       github.Ptr(name),
		Draft:      github.Ptr(req.Draft),
		Prerelease: github.Ptr(req.Prerelease),
	}
	if req.Body != "" {
		ghRelease.Body = github.Ptr(req.Body)
	}
	if req.TargetCommitish != "" {
		ghRelease.TargetCommitish = github.Ptr(req.TargetCommitish)
	}
	return ghRelease
}

// convertRelease converts a GitHub release to our model.
func convertRelease(rel *github.RepositoryRelease) *model.Release {
	return &model.Release{
		ID:              rel.GetID(),
		TagName:         rel.GetTagName(),
		Name:            rel.GetName(),
		Body:            rel.GetBody(),
		TargetCommitish: rel.GetTargetCommitish(),
		Draft:           rel.GetDraft(),
		Prerelease:      rel.GetPrerelease(),
		HTMLURL:         rel.GetHTMLURL(),
	}
}
