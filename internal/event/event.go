// Package event converts GitHub webhook payloads into release events.
package event

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/go-github/v84/github"

	"github.com/grokify/releaseconductor/pkg/model"
)

// ErrIgnored is returned for payloads that do not trigger a reconciliation,
// such as release actions other than "published".
var ErrIgnored = errors.New("event ignored")

// Parse converts a webhook payload of the named event type. The revision
// is the commit SHA of the triggering workflow, if known.
func Parse(eventName string, payload []byte, revision string) (model.ReleaseEvent, error) {
	parsed, err := github.ParseWebHook(eventName, payload)
	if err != nil {
		return model.ReleaseEvent{}, fmt.Errorf("failed to parse %s payload: %w", eventName, err)
	}

	switch e := parsed.(type) {
	case *github.PushEvent:
		if e.GetRef() == "" {
			return model.ReleaseEvent{}, fmt.Errorf("push payload has no ref")
		}
		return model.NewPushEvent(e.GetRef()), nil

	case *github.ReleaseEvent:
		if e.GetAction() != "published" {
			return model.ReleaseEvent{}, fmt.Errorf("%w: release action %q", ErrIgnored, e.GetAction())
		}
		rel := e.GetRelease()
		if rel == nil {
			return model.ReleaseEvent{}, fmt.Errorf("release payload has no release")
		}
		return model.NewPublishedEvent(model.PublishedEvent{
			TagName:      rel.GetTagName(),
			TargetBranch: rel.GetTargetCommitish(),
			Prerelease:   rel.GetPrerelease(),
			Draft:        rel.GetDraft(),
			ReleaseID:    rel.GetID(),
			Revision:     revision,
		}), nil

	default:
		return model.ReleaseEvent{}, fmt.Errorf("%w: %s", ErrIgnored, eventName)
	}
}

// FromActions reads the event of a GitHub Actions run from GITHUB_EVENT_NAME,
// GITHUB_EVENT_PATH and GITHUB_SHA.
func FromActions() (model.ReleaseEvent, error) {
	name := os.Getenv("GITHUB_EVENT_NAME")
	path := os.Getenv("GITHUB_EVENT_PATH")
	if name == "" || path == "" {
		return model.ReleaseEvent{}, fmt.Errorf("GITHUB_EVENT_NAME and GITHUB_EVENT_PATH required")
	}
	return FromFile(name, path, os.Getenv("GITHUB_SHA"))
}

// FromFile reads a webhook payload from path.
func FromFile(eventName, path, revision string) (model.ReleaseEvent, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return model.ReleaseEvent{}, fmt.Errorf("failed to read event payload: %w", err)
	}
	return Parse(eventName, payload, revision)
}
