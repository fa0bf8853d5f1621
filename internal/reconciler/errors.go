package reconciler

import (
	"errors"
	"fmt"

	"github.com/grokify/releaseconductor/pkg/model"
)

var (
	// ErrTagMismatch is returned when a published tag does not follow the
	// numbering of its release line.
	ErrTagMismatch = errors.New("tag does not match release numbering")

	// ErrWrongBranch is returned when an event does not target a release
	// branch.
	ErrWrongBranch = errors.New("event does not target a release branch")

	// ErrPrerelease is returned for published prereleases.
	ErrPrerelease = errors.New("prereleases are not reconciled")

	// ErrUnsupportedEvent is returned for an empty event.
	ErrUnsupportedEvent = errors.New("unsupported event")
)

// CollaboratorError is a tracker, source-control or miner failure that ended
// a run.
type CollaboratorError struct {
	Step model.State
	Err  error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
