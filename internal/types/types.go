package types

import "fmt"

// Status is the verdict of a single-file check.
type Status int

const (
	// Clean means the file was inspected and nothing disallowed was found.
	Clean Status = iota
	// Skipped means the file was not (fully) inspected: unchanged per the
	// fingerprint cache, unreadable, or malformed.
	Skipped
	// Violation means the file carries disallowed content.
	Violation
)

func (s Status) String() string {
	switch s {
	case Clean:
		return "clean"
	case Skipped:
		return "skipped"
	case Violation:
		return "violation"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Kind selects which directory tree a scan covers.
type Kind string

const (
	KindAsset Kind = "asset"
	KindMod   Kind = "mod"
)

// Outcome is the result of checking one file. Reason is empty for Clean.
type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
	Path   string `json:"path"`
}

// Err returns the outcome as a *PolicyViolation when it is one, nil otherwise.
func (o Outcome) Err() error {
	if o.Status != Violation {
		return nil
	}
	return &PolicyViolation{Reason: o.Reason, Path: o.Path}
}

// CleanOutcome builds a Clean outcome for path.
func CleanOutcome(path string) Outcome {
	return Outcome{Status: Clean, Path: path}
}

// SkipOutcome builds a Skipped outcome with the given reason.
func SkipOutcome(path, reason string) Outcome {
	return Outcome{Status: Skipped, Reason: reason, Path: path}
}

// ViolationOutcome builds a Violation outcome. The reason is shown to the
// user verbatim.
func ViolationOutcome(path, reason string) Outcome {
	return Outcome{Status: Violation, Reason: reason, Path: path}
}

// PolicyViolation is the only error kind that crosses component boundaries.
// Its message is suitable for direct display to the user.
type PolicyViolation struct {
	Reason string `json:"reason"`
	Path   string `json:"path"`
}

func (v *PolicyViolation) Error() string { return v.Reason }
