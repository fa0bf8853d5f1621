package model

// EventKind identifies the trigger of a reconciliation run.
type EventKind string

const (
	EventPush      EventKind = "push"
	EventPublished EventKind = "published"
)

// ReleaseEvent is a push to a release branch or a published release.
// Exactly one of Push and Published is set.
type ReleaseEvent struct {
	Push      *PushEvent      `json:"push,omitempty"`
	Published *PublishedEvent `json:"published,omitempty"`
}

// PushEvent is a push to a branch.
type PushEvent struct {
	Ref string `json:"ref"` // e.g., "refs/heads/release/10.0"
}

// PublishedEvent is a release published on the source-control host.
type PublishedEvent struct {
	TagName      string `json:"tagName"`
	TargetBranch string `json:"targetBranch"` // target_commitish of the release
	Prerelease   bool   `json:"prerelease"`
	Draft        bool   `json:"draft"`
	ReleaseID    int64  `json:"releaseId,omitempty"`
	Revision     string `json:"revision,omitempty"` // commit SHA of the tag
}

// NewPushEvent wraps a push to ref.
func NewPushEvent(ref string) ReleaseEvent {
	return ReleaseEvent{Push: &PushEvent{Ref: ref}}
}

// NewPublishedEvent wraps a published release.
func NewPublishedEvent(e PublishedEvent) ReleaseEvent {
	return ReleaseEvent{Published: &e}
}

// Kind returns the event kind, or "" for an empty event.
func (e ReleaseEvent) Kind() EventKind {
	switch {
	case e.Push != nil:
		return EventPush
	case e.Published != nil:
		return EventPublished
	default:
		return ""
	}
}
