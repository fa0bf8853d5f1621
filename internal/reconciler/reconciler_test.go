package reconciler_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/grokify/releaseconductor/internal/jql"
	"github.com/grokify/releaseconductor/internal/miner"
	"github.com/grokify/releaseconductor/internal/reconciler"
	"github.com/grokify/releaseconductor/internal/tracker/trackertest"
	"github.com/grokify/releaseconductor/pkg/model"
)

var (
	projXX = model.Project{ID: "1", Key: "XX"}
	projYY = model.Project{ID: "2", Key: "YY"}
	master = model.MasterProject{Project: model.Project{ID: "9", Key: "RM"}, IssueType: "3"}
)

func testConfig() reconciler.Config {
	return reconciler.Config{
		Repo:     model.RepoRef{Owner: "acme", Name: "app"},
		Projects: []model.Project{projXX, projYY},
		Master:   master,
	}
}

func newReconciler(t *testing.T, cfg reconciler.Config, rel *fakeReleaser, tc *trackertest.Fake, m *fakeMiner) *reconciler.Reconciler {
	t.Helper()
	clock := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	r, err := reconciler.New(cfg, rel, tc, m, reconciler.WithClock(clock))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func newTracker() *trackertest.Fake {
	return trackertest.New(projXX, projYY, master.Project)
}

// router answers filter searches with filtered, master ticket searches with
// masters (fix-version to key) and all other searches with note.
func router(filtered []model.Issue, masters map[string]string, note []model.Issue) func(string, []string) ([]model.Issue, error) {
	return func(query string, _ []string) ([]model.Issue, error) {
		switch {
		case strings.Contains(query, "issuekey in"):
			return filtered, nil
		case strings.HasPrefix(query, `project = "RM"`):
			for v, key := range masters {
				if strings.Contains(query, jql.Quote(v)) {
					return []model.Issue{{Key: key}}, nil
				}
			}
			return nil, nil
		default:
			return note, nil
		}
	}
}

func linkedTo(key, master string) model.Issue {
	return model.Issue{Key: key, Links: []model.IssueLink{{Type: "Drives", InwardKey: key, OutwardKey: master}}}
}

func searchCount(tc *trackertest.Fake, substr string) int {
	n := 0
	for _, s := range tc.Searches {
		if strings.Contains(s.Query, substr) {
			n++
		}
	}
	return n
}

func TestOnPush_PatchRelease(t *testing.T) {
	rel := newFakeReleaser("v1.0.1", "v1.0.0", "v0.9.4")
	rel.releases["v1.0.2"] = &model.Release{ID: 7, TagName: "v1.0.2", Name: "v1.0.2", Draft: true}

	tc := newTracker()
	tc.SearchFunc = router(
		[]model.Issue{linkedTo("XX-1", "RM-1"), {Key: "XX-2"}, {Key: "YY-3"}},
		map[string]string{"v1.0.2": "RM-1"},
		[]model.Issue{{Key: "XX-1", Summary: "First"}, {Key: "XX-2", Summary: "Second"}},
	)
	m := &fakeMiner{out: "XX-1, XX-2\nYY-3, XX-1\n"}

	res, err := newReconciler(t, testConfig(), rel, tc, m).
		Handle(context.Background(), model.NewPushEvent("refs/heads/release/1.0"))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	wantStates := []model.State{
		model.StateStarted,
		model.StateVersionResolved,
		model.StateIssuesDiscovered,
		model.StateIssuesFiltered,
		model.StateFixVersionApplied,
		model.StateLinked,
		model.StateDone,
	}
	if diff := cmp.Diff(wantStates, res.States); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
	if res.FixVersion != "v1.0.2" || res.MajorVersion || res.LastTag != "v1.0.1" {
		t.Errorf("unexpected version: fix=%s major=%v last=%s", res.FixVersion, res.MajorVersion, res.LastTag)
	}

	wantReq := miner.Request{
		ReleaseLine: "1.0",
		ProjectKeys: []string{"XX", "YY"},
		Workspace:   ".",
		TagPrefix:   "v",
		Since:       "v1.0.1",
		Until:       "refs/heads/release/1.0",
	}
	if diff := cmp.Diff([]miner.Request{wantReq}, m.requests); diff != "" {
		t.Errorf("miner request mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"XX-1", "XX-2", "YY-3"}, res.DiscoveredKeys); diff != "" {
		t.Errorf("discovered keys mismatch (-want +got):\n%s", diff)
	}

	wantUpdates := []trackertest.Update{
		{IssueKey: "XX-1", Update: model.IssueUpdate{AddFixVersionID: "10001"}},
		{IssueKey: "XX-2", Update: model.IssueUpdate{AddFixVersionID: "10001"}},
		{IssueKey: "YY-3", Update: model.IssueUpdate{AddFixVersionID: "10002"}},
	}
	if diff := cmp.Diff(wantUpdates, tc.Updates); diff != "" {
		t.Errorf("updates mismatch (-want +got):\n%s", diff)
	}

	wantLinks := []model.IssueLink{
		{Type: "Drives", InwardKey: "XX-2", OutwardKey: "RM-1"},
		{Type: "Drives", InwardKey: "YY-3", OutwardKey: "RM-1"},
	}
	if diff := cmp.Diff(wantLinks, tc.Links); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"XX-1"}, res.AlreadyLinked); diff != "" {
		t.Errorf("already linked mismatch (-want +got):\n%s", diff)
	}

	wantRelease := []releaseUpdate{{
		ID: 7,
		Request: model.ReleaseRequest{
			TagName:         "v1.0.2",
			TargetCommitish: "release/1.0",
			Name:            "v1.0.2",
			Body:            "- XX-1 First\n- XX-2 Second",
			Draft:           true,
		},
	}}
	if diff := cmp.Diff(wantRelease, rel.updated); diff != "" {
		t.Errorf("release update mismatch (-want +got):\n%s", diff)
	}
	if !res.Succeeded() {
		t.Errorf("expected success, failures: %v", res.Failures)
	}
}

func TestOnPush_FilterQuery(t *testing.T) {
	rel := newFakeReleaser("v1.0.0")
	rel.releases["v1.0.1"] = &model.Release{ID: 3, TagName: "v1.0.1"}
	tc := newTracker()
	m := &fakeMiner{out: "XX-1,YY-2"}

	if _, err := newReconciler(t, testConfig(), rel, tc, m).
		OnPush(context.Background(), model.PushEvent{Ref: "refs/heads/release/1.0"}); err != nil {
		t.Fatalf("OnPush failed: %v", err)
	}

	want := `project in ("XX", "YY") AND (fixVersion not in ("v1.0.1") OR fixVersion is EMPTY) AND issuekey in ("XX-1", "YY-2")`
	if len(tc.Searches) == 0 || tc.Searches[0].Query != want {
		t.Fatalf("unexpected filter query: %+v", tc.Searches)
	}
	if diff := cmp.Diff([]string{"summary", "issuelinks"}, tc.Searches[0].Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestOnPush_MajorReleaseNeverLinks(t *testing.T) {
	rel := newFakeReleaser("v1.0.3", "v1.0.2")
	tc := newTracker()
	tc.SearchFunc = router(
		[]model.Issue{{Key: "XX-1"}, linkedTo("XX-2", "RM-5")},
		map[string]string{"v1.1.0": "RM-5"},
		nil,
	)
	m := &fakeMiner{out: "XX-1,XX-2"}

	res, err := newReconciler(t, testConfig(), rel, tc, m).
		OnPush(context.Background(), model.PushEvent{Ref: "refs/heads/release/1.1"})
	if err != nil {
		t.Fatalf("OnPush failed: %v", err)
	}

	if res.FixVersion != "v1.1.0" || !res.MajorVersion {
		t.Errorf("expected major v1.1.0, got %s (major=%v)", res.FixVersion, res.MajorVersion)
	}
	if len(tc.Links) != 0 {
		t.Errorf("major release must not link, got %v", tc.Links)
	}
	if n := searchCount(tc, `project = "RM"`); n != 0 {
		t.Errorf("major release must not look up the master ticket, got %d searches", n)
	}
	if res.Reached(model.StateLinked) {
		t.Error("major release must skip the Linked state")
	}
	if len(rel.updated) != 0 {
		t.Errorf("major release must not update the release note, got %v", rel.updated)
	}
	if m.requests[0].Since != "v1.0.3" {
		t.Errorf("expected mining from the previous line's latest tag, got %q", m.requests[0].Since)
	}
	if len(tc.Updates) != 2 {
		t.Errorf("expected 2 fix version updates, got %d", len(tc.Updates))
	}
}

func TestOnPush_NoReleaseFallsBackToFirstRelease(t *testing.T) {
	rel := newFakeReleaser("v2.3.4", "v2.2.7")
	tc := newTracker()
	tc.SearchFunc = router(
		[]model.Issue{{Key: "XX-1"}},
		map[string]string{"v2.3.5": "RM-9"},
		nil,
	)
	m := &fakeMiner{out: "XX-1"}

	res, err := newReconciler(t, testConfig(), rel, tc, m).
		OnPush(context.Background(), model.PushEvent{Ref: "refs/heads/release/2.3"})
	if err != nil {
		t.Fatalf("OnPush failed: %v", err)
	}
	if res.FixVersion != "v2.3.0" || !res.MajorVersion {
		t.Errorf("expected major v2.3.0, got %s (major=%v)", res.FixVersion, res.MajorVersion)
	}
	if len(tc.Links) != 0 || res.Reached(model.StateLinked) {
		t.Errorf("expected no links without a next release, got %v", tc.Links)
	}
	if len(rel.updated) != 0 {
		t.Error("release note must not be written without a release")
	}
	if m.requests[0].Since != "v2.2.7" {
		t.Errorf("expected mining from the previous line's latest tag, got %q", m.requests[0].Since)
	}
	if len(tc.Updates) != 1 || tc.Updates[0].IssueKey != "XX-1" {
		t.Errorf("expected XX-1 to get the fix version, got %v", tc.Updates)
	}
}

func TestOnPush_PrefersPatchOverMinor(t *testing.T) {
	rel := newFakeReleaser("v3.0.1")
	rel.releases["v3.0.2"] = &model.Release{ID: 1, TagName: "v3.0.2"}
	rel.releases["v3.1.1"] = &model.Release{ID: 2, TagName: "v3.1.1"}

	res, err := newReconciler(t, testConfig(), rel, newTracker(), &fakeMiner{}).
		OnPush(context.Background(), model.PushEvent{Ref: "refs/heads/release/3.0"})
	if err != nil {
		t.Fatalf("OnPush failed: %v", err)
	}
	if res.FixVersion != "v3.0.2" {
		t.Errorf("expected v3.0.2, got %s", res.FixVersion)
	}

	delete(rel.releases, "v3.0.2")
	res, err = newReconciler(t, testConfig(), rel, newTracker(), &fakeMiner{}).
		OnPush(context.Background(), model.PushEvent{Ref: "refs/heads/release/3.0"})
	if err != nil {
		t.Fatalf("OnPush failed: %v", err)
	}
	if res.FixVersion != "v3.1.1" {
		t.Errorf("expected v3.1.1, got %s", res.FixVersion)
	}
}

func TestOnPush_SkipsNonConformingTags(t *testing.T) {
	rel := newFakeReleaser("v1.0.9-rc1", "v1.0.x", "v1.0.8")
	res, err := newReconciler(t, testConfig(), rel, newTracker(), &fakeMiner{}).
		OnPush(context.Background(), model.PushEvent{Ref: "refs/heads/release/1.0"})
	if err != nil {
		t.Fatalf("OnPush failed: %v", err)
	}
	if res.LastTag != "v1.0.8" {
		t.Errorf("expected v1.0.8 from the second page, got %q", res.LastTag)
	}
}

func TestOnPush_NoIssueKeys(t *testing.T) {
	for _, raw := range []string{"", " \n ", "\r\n"} {
		rel := newFakeReleaser("v1.0.0")
		rel.releases["v1.0.1"] = &model.Release{ID: 1, TagName: "v1.0.1"}
		tc := newTracker()

		res, err := newReconciler(t, testConfig(), rel, tc, &fakeMiner{out: raw}).
			OnPush(context.Background(), model.PushEvent{Ref: "refs/heads/release/1.0"})
		if err != nil {
			t.Fatalf("OnPush(%q) failed: %v", raw, err)
		}

		want := []model.State{
			model.StateStarted,
			model.StateVersionResolved,
			model.StateIssuesDiscovered,
			model.StateDone,
		}
		if diff := cmp.Diff(want, res.States); diff != "" {
			t.Errorf("states mismatch for %q (-want +got):\n%s", raw, diff)
		}
		if len(tc.Searches) != 0 || len(tc.Updates) != 0 || len(rel.updated) != 0 {
			t.Errorf("expected no side effects for %q", raw)
		}
	}
}

func TestOnPush_WrongBranch(t *testing.T) {
	rel := newFakeReleaser("v1.0.0")
	tc := newTracker()
	m := &fakeMiner{out: "XX-1"}

	res, err := newReconciler(t, testConfig(), rel, tc, m).
		OnPush(context.Background(), model.PushEvent{Ref: "refs/heads/main"})
	if !errors.Is(err, reconciler.ErrWrongBranch) {
		t.Fatalf("expected ErrWrongBranch, got %v", err)
	}
	if res.State() != model.StateFailed {
		t.Errorf("expected Failed, got %s", res.State())
	}
	if len(rel.tagQueries) != 0 || len(m.requests) != 0 || len(tc.Searches) != 0 {
		t.Error("wrong branch must abort before any collaborator call")
	}
}

func TestOnPublished_Aborts(t *testing.T) {
	tests := []struct {
		name  string
		event model.PublishedEvent
		want  error
	}{
		{
			name:  "wrong branch",
			event: model.PublishedEvent{TagName: "v1.0.1", TargetBranch: "main"},
			want:  reconciler.ErrWrongBranch,
		},
		{
			name:  "prerelease",
			event: model.PublishedEvent{TagName: "v1.0.1", TargetBranch: "release/1.0", Prerelease: true},
			want:  reconciler.ErrPrerelease,
		},
		{
			name:  "tag of another line",
			event: model.PublishedEvent{TagName: "v1.1.1", TargetBranch: "release/1.0"},
			want:  reconciler.ErrTagMismatch,
		},
		{
			name:  "suffixed tag",
			event: model.PublishedEvent{TagName: "v1.0.1-alpha", TargetBranch: "release/1.0"},
			want:  reconciler.ErrTagMismatch,
		},
		{
			name:  "missing prefix",
			event: model.PublishedEvent{TagName: "1.0.1", TargetBranch: "release/1.0"},
			want:  reconciler.ErrTagMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel := newFakeReleaser("v1.0.0")
			tc := newTracker()
			m := &fakeMiner{out: "XX-1"}

			res, err := newReconciler(t, testConfig(), rel, tc, m).
				Handle(context.Background(), model.NewPublishedEvent(tt.event))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if res.State() != model.StateFailed || res.Error == "" {
				t.Errorf("expected recorded failure, got state %s error %q", res.State(), res.Error)
			}
			if len(m.requests) != 0 || len(tc.Searches) != 0 || len(rel.created) != 0 || len(tc.CreatedVersion) != 0 {
				t.Error("aborted run must not call collaborators")
			}
		})
	}
}

func TestOnPublished_PatchPreparesNextVersion(t *testing.T) {
	rel := newFakeReleaser("v1.0.2", "v1.0.1")
	rel.comparison = model.Comparison{CommitCount: 4, FileCount: 2, HTMLURL: "https://github.com/acme/app/compare/v1.0.1...v1.0.2"}

	tc := newTracker()
	tc.AddVersion("XX", model.TrackerVersion{ID: "500", Name: "v1.0.2", ProjectID: "1"})
	tc.SearchFunc = router(
		[]model.Issue{{Key: "XX-1"}},
		map[string]string{"v1.0.2": "RM-1"},
		[]model.Issue{{Key: "XX-1", Summary: "Fix"}},
	)
	m := &fakeMiner{out: "XX-1"}

	res, err := newReconciler(t, testConfig(), rel, tc, m).OnPublished(context.Background(), model.PublishedEvent{
		TagName:      "v1.0.2",
		TargetBranch: "release/1.0",
		ReleaseID:    9,
		Revision:     "abc123",
	})
	if err != nil {
		t.Fatalf("OnPublished failed: %v", err)
	}

	wantStates := []model.State{
		model.StateStarted,
		model.StateVersionResolved,
		model.StateIssuesDiscovered,
		model.StateIssuesFiltered,
		model.StateFixVersionApplied,
		model.StateLinked,
		model.StateNextVersionPrepared,
		model.StateDone,
	}
	if diff := cmp.Diff(wantStates, res.States); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
	if m.requests[0].Since != "v1.0.1" || m.requests[0].Until != "v1.0.2" {
		t.Errorf("unexpected mining range %s..%s", m.requests[0].Since, m.requests[0].Until)
	}
	if diff := cmp.Diff([]string{"v1.0.1...v1.0.2"}, rel.compared); diff != "" {
		t.Errorf("compare mismatch (-want +got):\n%s", diff)
	}

	var masterDesc string
	for _, u := range tc.Updates {
		if u.IssueKey == "RM-1" {
			masterDesc = u.Update.Description
		}
	}
	wantDesc := strings.Join([]string{
		"GitHub Tag: https://github.com/acme/app/releases/tag/v1.0.2",
		"Release Branch: https://github.com/acme/app/tree/release/1.0",
		"Revision: abc123",
		"Diff: https://github.com/acme/app/compare/v1.0.1...v1.0.2",
		"Commits: 4",
		"Files: 2",
	}, "\n")
	if diff := cmp.Diff(wantDesc, masterDesc); diff != "" {
		t.Errorf("master description mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]model.ReleaseRequest{{TagName: "v1.0.3", TargetCommitish: "release/1.0", Draft: true}}, rel.created); diff != "" {
		t.Errorf("created release mismatch (-want +got):\n%s", diff)
	}

	var nextVersions []string
	for _, v := range tc.CreatedVersion {
		if v.Name == "v1.0.3" {
			nextVersions = append(nextVersions, v.ProjectID)
		}
	}
	if diff := cmp.Diff([]string{"1", "2", "9"}, nextVersions); diff != "" {
		t.Errorf("next version projects mismatch (-want +got):\n%s", diff)
	}

	if len(tc.CreatedIssues) != 1 {
		t.Fatalf("expected one master ticket, got %d", len(tc.CreatedIssues))
	}
	created := tc.CreatedIssues[0]
	masterVersionID := tc.CreatedVersion[len(tc.CreatedVersion)-1].ID
	want := model.NewIssue{
		ProjectID:     "9",
		IssueTypeID:   "3",
		Summary:       "v1.0.3 Master Ticket",
		Description:   reconciler.MasterTicketDescription,
		FixVersionIDs: []string{masterVersionID},
	}
	if diff := cmp.Diff(want, created); diff != "" {
		t.Errorf("master ticket mismatch (-want +got):\n%s", diff)
	}
	if res.NextVersion != "v1.0.3" || !strings.HasPrefix(res.NextMasterTicket, "RM-") {
		t.Errorf("unexpected next version %s / %s", res.NextVersion, res.NextMasterTicket)
	}
	if len(rel.updated) != 1 || rel.updated[0].ID != 9 || rel.updated[0].Request.Body != "- XX-1 Fix" {
		t.Errorf("unexpected release note update: %+v", rel.updated)
	}
	if !res.Succeeded() {
		t.Errorf("expected success, failures: %v", res.Failures)
	}
}

func TestOnPublished_ExistingNextVersionIsReused(t *testing.T) {
	rel := newFakeReleaser("v1.0.1", "v1.0.0")
	rel.releases["v1.0.2"] = &model.Release{ID: 5, TagName: "v1.0.2", Draft: true}
	tc := newTracker()
	tc.SearchFunc = router(
		[]model.Issue{{Key: "XX-1"}},
		map[string]string{"v1.0.1": "RM-1", "v1.0.2": "RM-2"},
		nil,
	)

	res, err := newReconciler(t, testConfig(), rel, tc, &fakeMiner{out: "XX-1"}).OnPublished(context.Background(), model.PublishedEvent{
		TagName:      "v1.0.1",
		TargetBranch: "release/1.0",
	})
	if err != nil {
		t.Fatalf("OnPublished failed: %v", err)
	}
	if len(rel.created) != 0 {
		t.Errorf("existing release must be reused, got %v", rel.created)
	}
	if len(tc.CreatedIssues) != 0 || res.NextMasterTicket != "RM-2" {
		t.Errorf("existing master ticket must be reused, got %v / %s", tc.CreatedIssues, res.NextMasterTicket)
	}
}

func TestOnPublished_MajorComparesWithPreviousLine(t *testing.T) {
	rel := newFakeReleaser("v2.1.0", "v2.0.7", "v2.0.6")
	tc := newTracker()
	tc.SearchFunc = router(
		[]model.Issue{{Key: "XX-1"}},
		map[string]string{"v2.1.0": "RM-3"},
		nil,
	)
	m := &fakeMiner{out: "XX-1"}

	res, err := newReconciler(t, testConfig(), rel, tc, m).OnPublished(context.Background(), model.PublishedEvent{
		TagName:      "v2.1.0",
		TargetBranch: "refs/heads/release/2.1",
	})
	if err != nil {
		t.Fatalf("OnPublished failed: %v", err)
	}
	if !res.MajorVersion || res.LastTag != "v2.0.7" {
		t.Errorf("expected major with previous v2.0.7, got major=%v last=%s", res.MajorVersion, res.LastTag)
	}
	if len(tc.Links) != 0 {
		t.Errorf("major release must not link, got %v", tc.Links)
	}
	if diff := cmp.Diff([]string{"v2.0.7...v2.1.0"}, rel.compared); diff != "" {
		t.Errorf("compare mismatch (-want +got):\n%s", diff)
	}

	described := false
	for _, u := range tc.Updates {
		if u.IssueKey == "RM-3" && u.Update.Description != "" {
			described = true
		}
	}
	if !described {
		t.Error("expected master ticket description update for the major release")
	}
	if res.NextVersion != "v2.1.1" {
		t.Errorf("expected next version v2.1.1, got %s", res.NextVersion)
	}
}

func TestReconciler_CollectsPerItemFailures(t *testing.T) {
	rel := newFakeReleaser("v1.0.0")
	rel.releases["v1.0.1"] = &model.Release{ID: 1, TagName: "v1.0.1"}
	tc := newTracker()
	tc.SearchFunc = router(
		[]model.Issue{{Key: "XX-1"}, {Key: "XX-2"}, {Key: "YY-3"}, {Key: "ZZ-4"}},
		map[string]string{"v1.0.1": "RM-1"},
		nil,
	)
	tc.UpdateErrors = map[string]error{"XX-2": errors.New("forbidden")}
	tc.LinkErrors = map[string]error{"YY-3": errors.New("link type missing")}

	res, err := newReconciler(t, testConfig(), rel, tc, &fakeMiner{out: "XX-1,XX-2,YY-3,ZZ-4"}).
		OnPush(context.Background(), model.PushEvent{Ref: "refs/heads/release/1.0"})
	if err != nil {
		t.Fatalf("per-item failures must not fail the run: %v", err)
	}
	if res.State() != model.StateDone || res.Succeeded() {
		t.Errorf("expected Done with failures, got %s", res.State())
	}

	got := map[string]model.State{}
	for _, f := range res.Failures {
		got[f.Item] = f.Step
	}
	want := map[string]model.State{
		"XX-2": model.StateFixVersionApplied,
		"ZZ-4": model.StateFixVersionApplied,
		"YY-3": model.StateLinked,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("failures mismatch (-want +got):\n%s", diff)
	}

	var updated []string
	for _, u := range tc.Updates {
		updated = append(updated, u.IssueKey)
	}
	if diff := cmp.Diff([]string{"XX-1", "YY-3"}, updated); diff != "" {
		t.Errorf("updated mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"XX-1", "XX-2", "ZZ-4"}, res.Linked); diff != "" {
		t.Errorf("linked mismatch (-want +got):\n%s", diff)
	}
}

func TestReconciler_VersionFailureFailsEachIssue(t *testing.T) {
	rel := newFakeReleaser("v1.0.0")
	rel.releases["v1.0.1"] = &model.Release{ID: 1, TagName: "v1.0.1"}
	tc := newTracker()
	tc.SearchFunc = router([]model.Issue{{Key: "XX-1"}, {Key: "XX-2"}, {Key: "YY-3"}}, nil, nil)
	errVersions := errors.New("versions unavailable")
	tc.ListVersionsErr = errVersions

	res, err := newReconciler(t, testConfig(), rel, tc, &fakeMiner{out: "XX-1,XX-2,YY-3"}).
		OnPush(context.Background(), model.PushEvent{Ref: "refs/heads/release/1.0"})
	if err != nil {
		t.Fatalf("version failures must not fail the run: %v", err)
	}

	var items []string
	for _, f := range res.Failures {
		if f.Step != model.StateFixVersionApplied {
			t.Errorf("unexpected step %s for %s", f.Step, f.Item)
		}
		items = append(items, f.Item)
	}
	if diff := cmp.Diff([]string{"XX", "XX-1", "XX-2", "YY", "YY-3"}, items); diff != "" {
		t.Errorf("failures mismatch (-want +got):\n%s", diff)
	}
	if len(res.Updated) != 0 || len(tc.Updates) != 0 {
		t.Errorf("expected no updates, got %v", res.Updated)
	}
}

func TestReconciler_FilterErrorIsFatal(t *testing.T) {
	rel := newFakeReleaser("v1.0.0")
	tc := newTracker()
	errDown := errors.New("tracker down")
	tc.SearchFunc = func(string, []string) ([]model.Issue, error) { return nil, errDown }

	res, err := newReconciler(t, testConfig(), rel, tc, &fakeMiner{out: "XX-1"}).
		OnPush(context.Background(), model.PushEvent{Ref: "refs/heads/release/1.0"})

	var ce *reconciler.CollaboratorError
	if !errors.As(err, &ce) || ce.Step != model.StateIssuesFiltered {
		t.Fatalf("expected CollaboratorError at IssuesFiltered, got %v", err)
	}
	if !errors.Is(err, errDown) {
		t.Errorf("expected cause to be wrapped, got %v", err)
	}
	if res.State() != model.StateFailed || len(tc.Updates) != 0 {
		t.Errorf("expected Failed without updates, got %s", res.State())
	}
}

func TestReconciler_MinerErrorIsFatal(t *testing.T) {
	rel := newFakeReleaser("v1.0.0")
	_, err := newReconciler(t, testConfig(), rel, newTracker(), &fakeMiner{err: errors.New("exit status 1")}).
		OnPush(context.Background(), model.PushEvent{Ref: "refs/heads/release/1.0"})

	var ce *reconciler.CollaboratorError
	if !errors.As(err, &ce) || ce.Step != model.StateIssuesDiscovered {
		t.Fatalf("expected CollaboratorError at IssuesDiscovered, got %v", err)
	}
}

func TestReconciler_BatchesFilterQueries(t *testing.T) {
	keys := make([]string, 250)
	for i := range keys {
		keys[i] = fmt.Sprintf("XX-%d", i+1)
	}

	rel := newFakeReleaser()
	tc := newTracker()
	tc.SearchFunc = func(query string, _ []string) ([]model.Issue, error) {
		var out []model.Issue
		for _, k := range keys {
			if strings.Contains(query, jql.Quote(k)) {
				out = append(out, model.Issue{Key: k})
			}
		}
		return out, nil
	}

	cfg := testConfig()
	cfg.BatchSize = 100
	res, err := newReconciler(t, cfg, rel, tc, &fakeMiner{out: strings.Join(keys, ",")}).
		OnPush(context.Background(), model.PushEvent{Ref: "refs/heads/release/1.0"})
	if err != nil {
		t.Fatalf("OnPush failed: %v", err)
	}

	if n := searchCount(tc, "issuekey in"); n != 3 {
		t.Errorf("expected 3 batched searches, got %d", n)
	}
	if diff := cmp.Diff(keys, res.FilteredKeys); diff != "" {
		t.Errorf("filtered keys mismatch (-want +got):\n%s", diff)
	}
	if len(tc.Updates) != 250 {
		t.Errorf("expected 250 updates, got %d", len(tc.Updates))
	}
}

func TestReconciler_VersionsCreatedOnce(t *testing.T) {
	rel := newFakeReleaser("v1.0.0")
	rel.releases["v1.0.1"] = &model.Release{ID: 1, TagName: "v1.0.1"}
	tc := newTracker()
	tc.SearchFunc = router([]model.Issue{{Key: "XX-1"}, {Key: "XX-2"}, {Key: "YY-1"}}, nil, nil)
	r := newReconciler(t, testConfig(), rel, tc, &fakeMiner{out: "XX-1,XX-2,YY-1"})

	for i := range 2 {
		if _, err := r.OnPush(context.Background(), model.PushEvent{Ref: "refs/heads/release/1.0"}); err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
	}

	var created []string
	for _, v := range tc.CreatedVersion {
		created = append(created, v.ProjectID+":"+v.Name)
	}
	if diff := cmp.Diff([]string{"1:v1.0.1", "2:v1.0.1"}, created); diff != "" {
		t.Errorf("created versions mismatch (-want +got):\n%s", diff)
	}
}

func TestReconciler_DryRun(t *testing.T) {
	rel := newFakeReleaser("v1.0.1", "v1.0.0")
	rel.releases["v1.0.2"] = &model.Release{ID: 7, TagName: "v1.0.2"}
	tc := newTracker()
	tc.SearchFunc = router(
		[]model.Issue{{Key: "XX-1"}},
		map[string]string{"v1.0.2": "RM-1"},
		[]model.Issue{{Key: "XX-1", Summary: "Fix"}},
	)

	cfg := testConfig()
	cfg.DryRun = true
	r := newReconciler(t, cfg, rel, tc, &fakeMiner{out: "XX-1"})

	push, err := r.OnPush(context.Background(), model.PushEvent{Ref: "refs/heads/release/1.0"})
	if err != nil {
		t.Fatalf("OnPush failed: %v", err)
	}
	published, err := r.OnPublished(context.Background(), model.PublishedEvent{TagName: "v1.0.2", TargetBranch: "release/1.0", ReleaseID: 7})
	if err != nil {
		t.Fatalf("OnPublished failed: %v", err)
	}

	if len(tc.Updates) != 0 || len(tc.Links) != 0 || len(tc.CreatedVersion) != 0 || len(tc.CreatedIssues) != 0 {
		t.Error("dry run must not mutate the tracker")
	}
	if len(rel.updated) != 0 || len(rel.created) != 0 {
		t.Error("dry run must not mutate releases")
	}
	if !push.DryRun || len(push.Updated) != 1 || len(push.Linked) != 1 || push.ReleaseNote != "- XX-1 Fix" {
		t.Errorf("expected planned actions in the result, got %+v", push)
	}
	if published.NextVersion != "v1.0.3" || !published.Reached(model.StateNextVersionPrepared) {
		t.Errorf("expected next version planned, got %+v", published)
	}
}

func TestHandle_EmptyEvent(t *testing.T) {
	r := newReconciler(t, testConfig(), newFakeReleaser(), newTracker(), &fakeMiner{})
	if _, err := r.Handle(context.Background(), model.ReleaseEvent{}); !errors.Is(err, reconciler.ErrUnsupportedEvent) {
		t.Fatalf("expected ErrUnsupportedEvent, got %v", err)
	}
}

func TestNew_Validates(t *testing.T) {
	cfg := testConfig()
	cfg.Projects = nil
	if _, err := reconciler.New(cfg, newFakeReleaser(), newTracker(), &fakeMiner{}); err == nil {
		t.Error("expected error without projects")
	}

	cfg = testConfig()
	cfg.Master = model.MasterProject{}
	if _, err := reconciler.New(cfg, newFakeReleaser(), newTracker(), &fakeMiner{}); err == nil {
		t.Error("expected error without master project")
	}
}
