// Package reconciler brings tracker fix-versions, master tickets and
// releases in line with a release branch push or a published release.
package reconciler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/grokify/releaseconductor/internal/miner"
	"github.com/grokify/releaseconductor/internal/releaser"
	"github.com/grokify/releaseconductor/internal/tracker"
	"github.com/grokify/releaseconductor/internal/version"
	"github.com/grokify/releaseconductor/pkg/model"
)

// Reconciler handles release events. Runs are sequential; a Reconciler
// must not handle two events at the same time.
type Reconciler struct {
	cfg      Config
	releaser releaser.Releaser
	tracker  tracker.Client
	miner    miner.Miner
	registry *tracker.Registry
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger. The default discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source used for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a Reconciler.
func New(cfg Config, rel releaser.Releaser, tc tracker.Client, m miner.Miner, opts ...Option) (*Reconciler, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rel == nil || tc == nil || m == nil {
		return nil, fmt.Errorf("releaser, tracker and miner required")
	}

	r := &Reconciler{
		cfg:      cfg,
		releaser: rel,
		tracker:  tc,
		miner:    m,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.registry = tracker.NewRegistry(tc,
		tracker.WithRegistryLogger(r.logger),
		tracker.WithDryRun(cfg.DryRun))

	return r, nil
}

// Handle dispatches an event to OnPush or OnPublished.
func (r *Reconciler) Handle(ctx context.Context, ev model.ReleaseEvent) (*model.ReconcileResult, error) {
	switch ev.Kind() {
	case model.EventPush:
		return r.OnPush(ctx, *ev.Push)
	case model.EventPublished:
		return r.OnPublished(ctx, *ev.Published)
	default:
		return nil, ErrUnsupportedEvent
	}
}

// OnPush reconciles the issues pushed to a release branch with the next
// release of that branch.
func (r *Reconciler) OnPush(ctx context.Context, ev model.PushEvent) (*model.ReconcileResult, error) {
	res := r.newResult(model.EventPush)
	log := r.logger.With("event", model.EventPush, "ref", ev.Ref)

	line, err := r.releaseLine(ev.Ref)
	if err != nil {
		return r.fail(res, err)
	}
	res.ReleaseLine = line

	lastTag, err := r.latestTag(ctx, line)
	if err != nil {
		return r.fail(res, &CollaboratorError{Step: model.StateVersionResolved, Err: err})
	}
	res.LastTag = lastTag

	target, rel, err := r.pushTarget(ctx, line, lastTag)
	if err != nil {
		return r.fail(res, err)
	}
	res.FixVersion = target
	res.MajorVersion = version.IsMajorVersion(target)
	res.Enter(model.StateVersionResolved)
	log.Info("version resolved", "line", line, "lastTag", lastTag, "fixVersion", target, "major", res.MajorVersion)

	since := lastTag
	if res.MajorVersion {
		if since, err = r.previousLineTag(ctx, line); err != nil {
			return r.fail(res, &CollaboratorError{Step: model.StateVersionResolved, Err: err})
		}
	}

	filtered, done, err := r.reconcileIssues(ctx, res, miner.Request{
		ReleaseLine: line,
		ProjectKeys: r.cfg.projectKeys(),
		Workspace:   r.cfg.Workspace,
		TagPrefix:   r.cfg.TagPrefix,
		Since:       since,
		Until:       ev.Ref,
	})
	if err != nil {
		return r.fail(res, err)
	}
	if done {
		return r.finish(res)
	}

	if _, err := r.linkToMaster(ctx, res, filtered); err != nil {
		return r.fail(res, err)
	}

	if !res.MajorVersion && rel != nil {
		r.updateReleaseNote(ctx, res, rel.ID, model.ReleaseRequest{
			TagName:         target,
			TargetCommitish: r.cfg.releaseBranch(line),
			Name:            rel.Name,
			Draft:           rel.Draft,
			Prerelease:      rel.Prerelease,
		})
	}

	return r.finish(res)
}

// OnPublished reconciles the issues of a published release, records the
// release on its master ticket and prepares the next patch release.
func (r *Reconciler) OnPublished(ctx context.Context, ev model.PublishedEvent) (*model.ReconcileResult, error) {
	res := r.newResult(model.EventPublished)
	log := r.logger.With("event", model.EventPublished, "tag", ev.TagName, "target", ev.TargetBranch)

	line, err := r.releaseLine(ev.TargetBranch)
	if err != nil {
		return r.fail(res, err)
	}
	res.ReleaseLine = line
	if ev.Prerelease {
		return r.fail(res, fmt.Errorf("%w: %s", ErrPrerelease, ev.TagName))
	}
	if !version.MatchesReleaseLine(ev.TagName, r.cfg.TagPrefix, line) {
		return r.fail(res, fmt.Errorf("%w: %s is not %s%s.x", ErrTagMismatch, ev.TagName, r.cfg.TagPrefix, line))
	}

	res.FixVersion = ev.TagName
	res.MajorVersion = version.IsMajorVersion(ev.TagName)

	previous, err := r.previousTag(ctx, line, ev.TagName, res.MajorVersion)
	if err != nil {
		return r.fail(res, &CollaboratorError{Step: model.StateVersionResolved, Err: err})
	}
	res.LastTag = previous
	res.Enter(model.StateVersionResolved)
	log.Info("version resolved", "line", line, "previous", previous, "major", res.MajorVersion)

	filtered, done, err := r.reconcileIssues(ctx, res, miner.Request{
		ReleaseLine: line,
		ProjectKeys: r.cfg.projectKeys(),
		Workspace:   r.cfg.Workspace,
		TagPrefix:   r.cfg.TagPrefix,
		Since:       previous,
		Until:       ev.TagName,
	})
	if err != nil {
		return r.fail(res, err)
	}
	if done {
		return r.finish(res)
	}

	master, err := r.linkToMaster(ctx, res, filtered)
	if err != nil {
		return r.fail(res, err)
	}

	if !res.MajorVersion && ev.ReleaseID != 0 {
		r.updateReleaseNote(ctx, res, ev.ReleaseID, model.ReleaseRequest{
			TagName:         ev.TagName,
			TargetCommitish: ev.TargetBranch,
			Draft:           ev.Draft,
		})
	}

	if previous != "" {
		comp, err := r.releaser.CompareRefs(ctx, previous, ev.TagName)
		if err != nil {
			res.AddFailure(res.State(), previous+"..."+ev.TagName, err)
		} else {
			res.Comparison = comp
		}
	}

	if master == "" && res.MajorVersion {
		if master, err = r.findMasterTicket(ctx, ev.TagName); err != nil {
			return r.fail(res, &CollaboratorError{Step: res.State(), Err: err})
		}
	}
	if master != "" {
		r.describeMasterTicket(ctx, res, master, line, ev)
	}

	if err := r.prepareNextVersion(ctx, res, ev); err != nil {
		return r.fail(res, err)
	}

	return r.finish(res)
}

func (r *Reconciler) newResult(kind model.EventKind) *model.ReconcileResult {
	res := &model.ReconcileResult{
		Timestamp: r.now(),
		DryRun:    r.cfg.DryRun,
		Event:     kind,
	}
	res.Enter(model.StateStarted)
	return res
}

func (r *Reconciler) fail(res *model.ReconcileResult, err error) (*model.ReconcileResult, error) {
	res.Enter(model.StateFailed)
	res.Error = err.Error()
	r.logger.Error("reconciliation failed", "event", res.Event, "error", err)
	return res, err
}

func (r *Reconciler) finish(res *model.ReconcileResult) (*model.ReconcileResult, error) {
	res.Enter(model.StateDone)
	r.logger.Info("reconciliation done",
		"event", res.Event,
		"fixVersion", res.FixVersion,
		"updated", len(res.Updated),
		"linked", len(res.Linked),
		"failures", len(res.Failures))
	return res, nil
}

// releaseLine extracts the release line from a branch ref such as
// "refs/heads/release/10.0".
func (r *Reconciler) releaseLine(ref string) (string, error) {
	if !strings.Contains(ref, r.cfg.BranchType) {
		return "", fmt.Errorf("%w: %s", ErrWrongBranch, ref)
	}
	line := version.FromBranch(ref, r.cfg.BranchType)
	if !version.IsReleaseLine(line) {
		return "", fmt.Errorf("%w: %s has no release line", ErrWrongBranch, ref)
	}
	return line, nil
}
