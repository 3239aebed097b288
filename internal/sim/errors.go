package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/geomech/internal/contact"
)

// Domain errors for simulation runs.
var (
	// ErrInvalidConfig indicates a run configuration violating an
	// invariant (non-positive dt, bad cell size, unknown enum).
	ErrInvalidConfig = errors.New("sim: invalid configuration")

	// ErrDegenerateGeometry indicates NaN/Inf appearing in a distance
	// or stiffness computation. Always fatal for the run.
	ErrDegenerateGeometry = contact.ErrDegenerate

	// ErrNonConvergence indicates an implicit solve exhausting its
	// iteration cap. Fatal for the run.
	ErrNonConvergence = errors.New("sim: implicit solve did not converge")

	// ErrCanceled indicates the run was stopped between steps.
	ErrCanceled = errors.New("sim: run canceled")
)

// StepError wraps a failure with the step where it happened.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.6f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error { return e.Wrapped }
