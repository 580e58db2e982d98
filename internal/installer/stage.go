package installer

import "fmt"

// Stage is a step of a single install, in execution order.
type Stage int

const (
	Fetching Stage = iota
	Validating
	Recording
	Merging
	EnvRegistering
	Integrating
	Migrating
	Done
)

var stageNames = [...]string{
	Fetching:       "fetching",
	Validating:     "validating",
	Recording:      "recording",
	Merging:        "merging",
	EnvRegistering: "env-registering",
	Integrating:    "integrating",
	Migrating:      "migrating",
	Done:           "done",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// MarshalText renders the stage by name in JSON and YAML reports.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Failure is a stage that failed and stopped the install.
type Failure struct {
	Stage  Stage  `json:"stage" yaml:"stage"`
	Reason string `json:"reason" yaml:"reason"`
	Err    error  `json:"-" yaml:"-"`
}

func newFailure(stage Stage, err error) *Failure {
	return &Failure{Stage: stage, Reason: err.Error(), Err: err}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed: %s", f.Stage, f.Reason)
}

func (f *Failure) Unwrap() error { return f.Err }

// Partial reports whether the failure happened after the spark was recorded,
// leaving earlier side effects in place.
func (f *Failure) Partial() bool {
	return f.Stage > Recording
}
