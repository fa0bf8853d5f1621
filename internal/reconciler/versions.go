package reconciler

import (
	"context"
	"fmt"

	"github.com/grokify/releaseconductor/internal/version"
	"github.com/grokify/releaseconductor/pkg/model"
)

// latestTag returns the newest tag of a release line, or "" when the line
// has no tag yet.
func (r *Reconciler) latestTag(ctx context.Context, line string) (string, error) {
	query := r.cfg.TagPrefix + line
	for page := 1; ; {
		tags, err := r.releaser.FindTags(ctx, query, page)
		if err != nil {
			return "", fmt.Errorf("failed to find tags %s: %w", query, err)
		}
		for _, name := range tags.Names {
			if version.MatchesReleaseLine(name, r.cfg.TagPrefix, line) {
				return name, nil
			}
		}
		if tags.NextPage == 0 {
			return "", nil
		}
		page = tags.NextPage
	}
}

// previousLineTag returns the newest tag of the line before line, used as
// the lower bound of a major release.
func (r *Reconciler) previousLineTag(ctx context.Context, line string) (string, error) {
	prev, ok := version.PreviousReleaseLine(line)
	if !ok {
		return "", nil
	}
	return r.latestTag(ctx, prev)
}

// previousTag returns the tag a published release is compared against.
func (r *Reconciler) previousTag(ctx context.Context, line, tag string, major bool) (string, error) {
	if major {
		return r.previousLineTag(ctx, line)
	}
	return version.PreviousPatch(tag)
}

// pushTarget picks the fix-version of a push. An existing release for the
// next patch wins over one for the next minor. Without such a release, or
// without any tag on the line, the target is the line's first release.
func (r *Reconciler) pushTarget(ctx context.Context, line, lastTag string) (string, *model.Release, error) {
	first := r.cfg.TagPrefix + line + ".0"
	if lastTag == "" {
		return first, nil, nil
	}

	nextPatch, err := version.NextPatch(lastTag)
	if err != nil {
		return "", nil, err
	}
	nextMinor, err := version.NextMinor(lastTag)
	if err != nil {
		return "", nil, err
	}

	for _, candidate := range []string{nextPatch, nextMinor} {
		rel, err := r.releaser.GetRelease(ctx, candidate)
		if err != nil {
			return "", nil, &CollaboratorError{
				Step: model.StateVersionResolved,
				Err:  fmt.Errorf("failed to get release %s: %w", candidate, err),
			}
		}
		if rel != nil {
			return rel.TagName, rel, nil
		}
	}

	r.logger.Warn("no release for next version", "nextPatch", nextPatch, "nextMinor", nextMinor, "fixVersion", first)
	return first, nil, nil
}
