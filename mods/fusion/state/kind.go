package state

import (
	"fmt"
	"strings"
)

// Kind classifies a state variable. It decides which of the aggregate
// dimensions the variable contributes to.
type Kind int

const (
	// CorePropagated core states are integrated forward with the inertial inputs.
	CorePropagated Kind = iota
	// CoreStatic core states are present in every configuration but held
	// constant between updates, e.g. a fixed physical scale.
	CoreStatic
	// Auxiliary states are deployment specific calibration states.
	Auxiliary
)

var kindNames = []string{"propagated", "static", "auxiliary"}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsCore reports whether the variable counts in the core dimensions.
func (k Kind) IsCore() bool { return k == CorePropagated || k == CoreStatic }

// IsPropagated reports whether the variable counts in the propagated dimensions.
func (k Kind) IsPropagated() bool { return k == CorePropagated }

// ParseKind accepts the names used in configuration files.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "propagated", "core_propagated", "core-propagated":
		return CorePropagated, nil
	case "static", "core_static", "core-static", "core":
		return CoreStatic, nil
	case "auxiliary", "aux":
		return Auxiliary, nil
	default:
		return 0, fmt.Errorf("unknown state kind %q", name)
	}
}

// Dims are the aggregate dimensions of a layout, computed once by Build.
type Dims struct {
	Vars            int // number of state variables
	Full            int // stored numbers
	Error           int // error-state (correction, covariance) size
	CoreFull        int
	CoreError       int
	PropagatedFull  int
	PropagatedError int
}

func (d Dims) AuxiliaryFull() int  { return d.Full - d.CoreFull }
func (d Dims) AuxiliaryError() int { return d.Error - d.CoreError }

func (d *Dims) add(k Kind, full, errDim int) {
	d.Vars++
	d.Full += full
	d.Error += errDim
	if k.IsCore() {
		d.CoreFull += full
		d.CoreError += errDim
	}
	if k.IsPropagated() {
		d.PropagatedFull += full
		d.PropagatedError += errDim
	}
}
