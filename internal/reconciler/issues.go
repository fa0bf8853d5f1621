package reconciler

import (
	"context"
	"fmt"

	"github.com/grokify/releaseconductor/internal/batch"
	"github.com/grokify/releaseconductor/internal/jql"
	"github.com/grokify/releaseconductor/internal/miner"
	"github.com/grokify/releaseconductor/internal/report"
	"github.com/grokify/releaseconductor/internal/tracker"
	"github.com/grokify/releaseconductor/pkg/model"
)

// reconcileIssues runs discovery, filtering and fix-version updates. The
// boolean reports that no issue keys were found and the run is complete.
func (r *Reconciler) reconcileIssues(ctx context.Context, res *model.ReconcileResult, req miner.Request) ([]model.Issue, bool, error) {
	raw, err := r.miner.Mine(ctx, req)
	if err != nil {
		return nil, false, &CollaboratorError{Step: model.StateIssuesDiscovered, Err: err}
	}
	keys := miner.Unique(miner.ParseIssueKeys(raw))
	res.DiscoveredKeys = keys
	res.Enter(model.StateIssuesDiscovered)
	r.logger.Info("issues discovered", "count", len(keys), "since", req.Since, "until", req.Until)

	if len(keys) == 0 {
		return nil, true, nil
	}

	issues, err := r.filterIssues(ctx, res.FixVersion, keys)
	if err != nil {
		return nil, false, &CollaboratorError{Step: model.StateIssuesFiltered, Err: err}
	}
	res.FilteredKeys = make([]string, len(issues))
	for i, is := range issues {
		res.FilteredKeys[i] = is.Key
	}
	res.Enter(model.StateIssuesFiltered)
	r.logger.Info("issues filtered", "count", len(issues))

	r.applyFixVersion(ctx, res, issues)
	res.Enter(model.StateFixVersionApplied)

	return issues, false, nil
}

// filterIssues returns the issues among keys that belong to a configured
// project and do not carry fixVersion yet.
func (r *Reconciler) filterIssues(ctx context.Context, fixVersion string, keys []string) ([]model.Issue, error) {
	fields := []string{tracker.FieldSummary, tracker.FieldIssueLinks}
	return batch.Collect(ctx, keys, r.cfg.BatchSize, func(ctx context.Context, chunk []string) ([]model.Issue, error) {
		query := jql.New().
			ProjectIn(r.cfg.projectKeys()...).
			FixVersionNotInOrEmpty(fixVersion).
			IssueKeyIn(chunk...)
		return r.tracker.SearchIssues(ctx, query.String(), fields)
	})
}

// applyFixVersion binds every issue to the fix-version of its project.
// Versions are ensured once per project, serially. An issue whose project
// version could not be ensured is recorded as failed.
func (r *Reconciler) applyFixVersion(ctx context.Context, res *model.ReconcileResult, issues []model.Issue) {
	type ensured struct {
		version *model.TrackerVersion
		err     error
	}
	versions := map[string]ensured{}

	for _, is := range issues {
		project, ok := model.ProjectForKey(r.cfg.Projects, is.Key)
		if !ok {
			res.AddFailure(model.StateFixVersionApplied, is.Key, fmt.Errorf("no configured project for %s", is.Key))
			continue
		}

		e, seen := versions[project.Key]
		if !seen {
			v, created, err := r.registry.EnsureVersion(ctx, project, res.FixVersion)
			e = ensured{version: v, err: err}
			versions[project.Key] = e
			if err != nil {
				res.AddFailure(model.StateFixVersionApplied, project.Key, err)
			} else {
				res.Versions = append(res.Versions, model.EnsuredVersion{
					ProjectKey: project.Key,
					Name:       v.Name,
					ID:         v.ID,
					Created:    created,
				})
			}
		}
		if e.err != nil {
			res.AddFailure(model.StateFixVersionApplied, is.Key,
				fmt.Errorf("fix version %s unavailable in %s: %w", res.FixVersion, project.Key, e.err))
			continue
		}

		if !r.cfg.DryRun {
			err := r.tracker.UpdateIssue(ctx, is.Key, model.IssueUpdate{AddFixVersionID: e.version.ID})
			if err != nil {
				r.logger.Warn("fix version update failed", "issue", is.Key, "error", err)
				res.AddFailure(model.StateFixVersionApplied, is.Key, err)
				continue
			}
		}
		res.Updated = append(res.Updated, model.FixVersionUpdate{IssueKey: is.Key, VersionID: e.version.ID})
	}
}

// linkToMaster links issues to the master ticket of a patch release and
// returns the master ticket key. Major releases and fix-versions without
// exactly one master ticket are skipped.
func (r *Reconciler) linkToMaster(ctx context.Context, res *model.ReconcileResult, issues []model.Issue) (string, error) {
	if res.MajorVersion {
		r.logger.Info("major version, linking skipped", "fixVersion", res.FixVersion)
		return "", nil
	}

	master, err := r.findMasterTicket(ctx, res.FixVersion)
	if err != nil {
		return "", &CollaboratorError{Step: model.StateLinked, Err: err}
	}
	if master == "" {
		r.logger.Info("no master ticket, linking skipped", "fixVersion", res.FixVersion)
		return "", nil
	}
	res.MasterTicket = master

	for _, is := range issues {
		if is.HasOutwardLinkTo(master) {
			res.AlreadyLinked = append(res.AlreadyLinked, is.Key)
			continue
		}
		if !r.cfg.DryRun {
			err := r.tracker.CreateIssueLink(ctx, model.IssueLink{
				Type:       r.cfg.LinkType,
				InwardKey:  is.Key,
				OutwardKey: master,
			})
			if err != nil {
				r.logger.Warn("link failed", "issue", is.Key, "master", master, "error", err)
				res.AddFailure(model.StateLinked, is.Key, err)
				continue
			}
		}
		res.Linked = append(res.Linked, is.Key)
	}
	res.Enter(model.StateLinked)

	return master, nil
}

// findMasterTicket returns the key of the only master ticket carrying
// fixVersion, or "" when there is none or more than one.
func (r *Reconciler) findMasterTicket(ctx context.Context, fixVersion string) (string, error) {
	query := jql.New().ProjectEquals(r.cfg.Master.Key).FixVersionIn(fixVersion)
	issues, err := r.tracker.SearchIssues(ctx, query.String(), []string{tracker.FieldSummary})
	if err != nil {
		return "", fmt.Errorf("failed to find master ticket for %s: %w", fixVersion, err)
	}
	if len(issues) != 1 {
		if len(issues) > 1 {
			r.logger.Warn("ambiguous master ticket", "fixVersion", fixVersion, "matches", len(issues))
		}
		return "", nil
	}
	return issues[0].Key, nil
}

// updateReleaseNote writes the list of issues carrying the fix-version
// into the release body.
func (r *Reconciler) updateReleaseNote(ctx context.Context, res *model.ReconcileResult, releaseID int64, req model.ReleaseRequest) {
	query := jql.New().ProjectIn(r.cfg.projectKeys()...).FixVersionIn(res.FixVersion)
	issues, err := r.tracker.SearchIssues(ctx, query.String(), []string{tracker.FieldSummary})
	if err != nil {
		res.AddFailure(res.State(), "release-note", err)
		return
	}

	req.Body = report.ReleaseNote(issues)
	res.ReleaseNote = req.Body
	if r.cfg.DryRun {
		return
	}
	if err := r.releaser.UpdateRelease(ctx, releaseID, &req); err != nil {
		res.AddFailure(res.State(), "release-note", err)
		return
	}
	r.logger.Info("release note updated", "release", releaseID, "issues", len(issues))
}
