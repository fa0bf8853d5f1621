package model

import "time"

// State is a step of the release reconciliation state machine.
type State string

const (
	StateStarted             State = "Started"
	StateVersionResolved     State = "VersionResolved"
	StateIssuesDiscovered    State = "IssuesDiscovered"
	StateIssuesFiltered      State = "IssuesFiltered"
	StateFixVersionApplied   State = "FixVersionApplied"
	StateLinked              State = "Linked"
	StateNextVersionPrepared State = "NextVersionPrepared"
	StateDone                State = "Done"
	StateFailed              State = "Failed"
)

// ReconcileResult contains the outcome of one reconciliation run.
type ReconcileResult struct {
	Timestamp        time.Time          `json:"timestamp" yaml:"timestamp"`
	DryRun           bool               `json:"dryRun" yaml:"dryRun"`
	Event            EventKind          `json:"event" yaml:"event"`
	ReleaseLine      string             `json:"releaseLine" yaml:"releaseLine"`
	FixVersion       string             `json:"fixVersion" yaml:"fixVersion"`
	MajorVersion     bool               `json:"majorVersion" yaml:"majorVersion"`
	LastTag          string             `json:"lastTag,omitempty" yaml:"lastTag,omitempty"`
	States           []State            `json:"states" yaml:"states"`
	DiscoveredKeys   []string           `json:"discoveredKeys,omitempty" yaml:"discoveredKeys,omitempty"`
	FilteredKeys     []string           `json:"filteredKeys,omitempty" yaml:"filteredKeys,omitempty"`
	Versions         []EnsuredVersion   `json:"versions,omitempty" yaml:"versions,omitempty"`
	Updated          []FixVersionUpdate `json:"updated,omitempty" yaml:"updated,omitempty"`
	MasterTicket     string             `json:"masterTicket,omitempty" yaml:"masterTicket,omitempty"`
	Linked           []string           `json:"linked,omitempty" yaml:"linked,omitempty"`
	AlreadyLinked    []string           `json:"alreadyLinked,omitempty" yaml:"alreadyLinked,omitempty"`
	ReleaseNote      string             `json:"releaseNote,omitempty" yaml:"releaseNote,omitempty"`
	Comparison       *Comparison        `json:"comparison,omitempty" yaml:"comparison,omitempty"`
	NextVersion      string             `json:"nextVersion,omitempty" yaml:"nextVersion,omitempty"`
	NextMasterTicket string             `json:"nextMasterTicket,omitempty" yaml:"nextMasterTicket,omitempty"`
	Failures         []Failure          `json:"failures,omitempty" yaml:"failures,omitempty"`
	Error            string             `json:"error,omitempty" yaml:"error,omitempty"`
}

// EnsuredVersion records a tracker version looked up or created in a run.
type EnsuredVersion struct {
	ProjectKey string `json:"projectKey" yaml:"projectKey"`
	Name       string `json:"name" yaml:"name"`
	ID         string `json:"id,omitempty" yaml:"id,omitempty"`
	Created    bool   `json:"created" yaml:"created"`
}

// Failure is a per-item error collected without aborting the run.
type Failure struct {
	Step  State  `json:"step" yaml:"step"`
	Item  string `json:"item" yaml:"item"`
	Error string `json:"error" yaml:"error"`
}

// Enter records a state transition.
func (r *ReconcileResult) Enter(s State) {
	r.States = append(r.States, s)
}

// State returns the most recent state, or "" before the run started.
func (r *ReconcileResult) State() State {
	if len(r.States) == 0 {
		return ""
	}
	return r.States[len(r.States)-1]
}

// Reached reports whether the run entered state s.
func (r *ReconcileResult) Reached(s State) bool {
	for _, st := range r.States {
		if st == s {
			return true
		}
	}
	return false
}

// AddFailure collects a per-item failure.
func (r *ReconcileResult) AddFailure(step State, item string, err error) {
	r.Failures = append(r.Failures, Failure{Step: step, Item: item, Error: err.Error()})
}

// Succeeded reports whether the run reached Done without collected failures.
func (r *ReconcileResult) Succeeded() bool {
	return r.State() == StateDone && len(r.Failures) == 0
}
