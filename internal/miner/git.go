package miner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// GitMiner walks the commit history of a local repository and collects the
// issue keys mentioned in commit messages.
type GitMiner struct {
	repo   *git.Repository
	logger *slog.Logger
}

// NewGitMiner creates a git miner. Without WithRepository the repository is
// opened from Request.Workspace on every call.
func NewGitMiner(opts ...Option) *GitMiner {
	o := applyOptions(opts)
	return &GitMiner{repo: o.repo, logger: o.logger}
}

// Mine implements Miner. Commits reachable from Until but not from Since
// are scanned newest first; the keys are returned comma-separated in
// first-seen order.
func (m *GitMiner) Mine(ctx context.Context, req Request) (string, error) {
	if len(req.ProjectKeys) == 0 {
		return "", nil
	}

	repo, err := m.open(req.Workspace)
	if err != nil {
		return "", err
	}

	head, err := m.resolveHead(repo, req.Until)
	if err != nil {
		return "", err
	}

	exclude := map[plumbing.Hash]struct{}{}
	if req.Since != "" {
		base, err := repo.ResolveRevision(plumbing.Revision(req.Since))
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", req.Since, err)
		}
		if err := walk(ctx, repo, *base, func(c *object.Commit) error {
			exclude[c.Hash] = struct{}{}
			return nil
		}); err != nil {
			return "", err
		}
	}

	re := keyPattern(req.ProjectKeys)
	var keys []string
	scanned := 0
	err = walk(ctx, repo, head, func(c *object.Commit) error {
		if _, ok := exclude[c.Hash]; ok {
			return nil
		}
		scanned++
		keys = append(keys, re.FindAllString(c.Message, -1)...)
		return nil
	})
	if err != nil {
		return "", err
	}

	keys = Unique(keys)
	m.logger.Debug("mined issue keys",
		"since", req.Since, "until", req.Until, "commits", scanned, "keys", len(keys))

	return strings.Join(keys, ","), nil
}

func (m *GitMiner) open(workspace string) (*git.Repository, error) {
	if m.repo != nil {
		return m.repo, nil
	}
	if workspace == "" {
		workspace = "."
	}
	repo, err := git.PlainOpenWithOptions(workspace, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %s: %w", workspace, err)
	}
	return repo, nil
}

// resolveHead resolves until, falling back to the remote-tracking branch and
// finally HEAD, which covers CI checkouts without a local release branch.
func (m *GitMiner) resolveHead(repo *git.Repository, until string) (plumbing.Hash, error) {
	var candidates []string
	if until != "" {
		candidates = append(candidates, until)
		if short, ok := strings.CutPrefix(until, "refs/heads/"); ok {
			candidates = append(candidates, "refs/remotes/origin/"+short)
		}
	}
	candidates = append(candidates, "HEAD")

	var lastErr error
	for _, rev := range candidates {
		h, err := repo.ResolveRevision(plumbing.Revision(rev))
		if err == nil {
			if rev != until {
				m.logger.Debug("resolved fallback revision", "requested", until, "used", rev)
			}
			return *h, nil
		}
		lastErr = err
	}
	return plumbing.ZeroHash, fmt.Errorf("failed to resolve %q: %w", until, lastErr)
}

func walk(ctx context.Context, repo *git.Repository, from plumbing.Hash, fn func(*object.Commit) error) error {
	iter, err := repo.Log(&git.LogOptions{From: from})
	if err != nil {
		return fmt.Errorf("failed to read log from %s: %w", from, err)
	}
	defer iter.Close()

	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(c)
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return err
	}
	return nil
}

// keyPattern matches <KEY>-<number> for any of the project keys. Longer keys
// are tried first so that "XXY-1" is not read as "XX".
func keyPattern(projectKeys []string) *regexp.Regexp {
	keys := make([]string, len(projectKeys))
	for i, k := range projectKeys {
		keys[i] = regexp.QuoteMeta(k)
	}
	sort.SliceStable(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	return regexp.MustCompile(`\b(?:` + strings.Join(keys, "|") + `)-\d+\b`)
}
