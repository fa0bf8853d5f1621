package reconciler

import (
	"context"
	"fmt"
	"strings"

	"github.com/grokify/releaseconductor/internal/version"
	"github.com/grokify/releaseconductor/pkg/model"
)

// MasterTicketDescription is the description of a master ticket created
// ahead of its release.
const MasterTicketDescription = "Not released yet."

// describeMasterTicket records the published release on its master ticket.
func (r *Reconciler) describeMasterTicket(ctx context.Context, res *model.ReconcileResult, master, line string, ev model.PublishedEvent) {
	desc := masterDescription(r.cfg.Repo, r.cfg.releaseBranch(line), ev, res.Comparison)
	if r.cfg.DryRun {
		r.logger.Info("dry run: would update master ticket", "issue", master)
		return
	}
	if err := r.tracker.UpdateIssue(ctx, master, model.IssueUpdate{Description: desc}); err != nil {
		res.AddFailure(res.State(), master, err)
		return
	}
	r.logger.Info("master ticket updated", "issue", master, "tag", ev.TagName)
}

func masterDescription(repo model.RepoRef, branch string, ev model.PublishedEvent, comp *model.Comparison) string {
	var sb strings.Builder
	if repo.IsZero() {
		fmt.Fprintf(&sb, "GitHub Tag: %s\n", ev.TagName)
		fmt.Fprintf(&sb, "Release Branch: %s\n", branch)
	} else {
		fmt.Fprintf(&sb, "GitHub Tag: %s/releases/tag/%s\n", repo.HTMLURL(), ev.TagName)
		fmt.Fprintf(&sb, "Release Branch: %s/tree/%s\n", repo.HTMLURL(), branch)
	}
	if ev.Revision != "" {
		fmt.Fprintf(&sb, "Revision: %s\n", ev.Revision)
	}
	if comp != nil {
		if comp.HTMLURL != "" {
			fmt.Fprintf(&sb, "Diff: %s\n", comp.HTMLURL)
		} else {
			fmt.Fprintf(&sb, "Diff: %s...%s\n", comp.Base, comp.Head)
		}
		fmt.Fprintf(&sb, "Commits: %d\n", comp.CommitCount)
		fmt.Fprintf(&sb, "Files: %d", comp.FileCount)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// prepareNextVersion creates the draft release, tracker versions and
// master ticket of the patch following a published release.
func (r *Reconciler) prepareNextVersion(ctx context.Context, res *model.ReconcileResult, ev model.PublishedEvent) error {
	next, err := version.NextPatch(ev.TagName)
	if err != nil {
		return err
	}
	res.NextVersion = next
	log := r.logger.With("nextVersion", next)

	rel, err := r.releaser.GetRelease(ctx, next)
	if err != nil {
		return &CollaboratorError{Step: model.StateNextVersionPrepared, Err: fmt.Errorf("failed to get release %s: %w", next, err)}
	}
	switch {
	case rel != nil:
		log.Debug("next release exists", "release", rel.ID)
	case r.cfg.DryRun:
		log.Info("dry run: would create draft release", "target", ev.TargetBranch)
	default:
		created, err := r.releaser.CreateRelease(ctx, &model.ReleaseRequest{
			TagName:         next,
			TargetCommitish: ev.TargetBranch,
			Draft:           true,
		})
		if err != nil {
			res.AddFailure(model.StateNextVersionPrepared, next, err)
		} else {
			log.Info("draft release created", "release", created.ID)
		}
	}

	for _, p := range r.cfg.Projects {
		r.ensureNextVersion(ctx, res, p, next)
	}
	masterVersion := r.ensureNextVersion(ctx, res, r.cfg.Master.Project, next)

	existing, err := r.findMasterTicket(ctx, next)
	if err != nil {
		return &CollaboratorError{Step: model.StateNextVersionPrepared, Err: err}
	}
	switch {
	case existing != "":
		res.NextMasterTicket = existing
	case masterVersion == nil:
		// version missing; failure already recorded
	case r.cfg.DryRun:
		log.Info("dry run: would create master ticket", "project", r.cfg.Master.Key)
	default:
		issue, err := r.tracker.CreateIssue(ctx, model.NewIssue{
			ProjectID:     r.cfg.Master.ID,
			IssueTypeID:   r.cfg.Master.IssueType,
			Summary:       next + " Master Ticket",
			Description:   MasterTicketDescription,
			FixVersionIDs: []string{masterVersion.ID},
		})
		if err != nil {
			res.AddFailure(model.StateNextVersionPrepared, r.cfg.Master.Key, err)
		} else {
			res.NextMasterTicket = issue.Key
			log.Info("master ticket created", "issue", issue.Key)
		}
	}

	res.Enter(model.StateNextVersionPrepared)
	return nil
}

func (r *Reconciler) ensureNextVersion(ctx context.Context, res *model.ReconcileResult, p model.Project, name string) *model.TrackerVersion {
	v, created, err := r.registry.EnsureVersion(ctx, p, name)
	if err != nil {
		res.AddFailure(model.StateNextVersionPrepared, p.Key, err)
		return nil
	}
	res.Versions = append(res.Versions, model.EnsuredVersion{
		ProjectKey: p.Key,
		Name:       v.Name,
		ID:         v.ID,
		Created:    created,
	})
	return v
}
