// Package convert extracts parts of a filter state for output.
// Every function is a pure read. Handles that do not belong to the layout
// of the state panic with a *state.ConfigurationError.
// None of the outputs carry framing (sequence, frame id); callers add it.
package convert

import (
	"github.com/machbase/neo-fusion/mods/fusion/state"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Pose is a position and an orientation.
type Pose struct {
	Position    r3.Vec      `json:"position"`
	Orientation quat.Number `json:"orientation"`
}

// PoseWithCovariance is a pose and the row-major 6x6 covariance of
// position and orientation error, in that order.
type PoseWithCovariance struct {
	Pose
	Covariance [36]float64 `json:"covariance"`
}

// ExtState is the pose and the velocity, used by controllers.
type ExtState struct {
	Pose
	Velocity r3.Vec `json:"velocity"`
}

// DoubleArray is a flattened state.
type DoubleArray struct {
	Time float64   `json:"time"`
	Data []float64 `json:"data"`
}

// PoseCovariance slices the position and orientation blocks out of P:
//
//	[ Ppp Ppq ]
//	[ Pqp Pqq ]
func PoseCovariance(s *state.State, p state.Handle[state.Vec3], q state.Handle[state.Quat]) [36]float64 {
	// reading through the handles validates them against the state
	p.Get(s)
	q.Get(s)

	var ret [36]float64
	l := s.Layout()
	idx := [2]int{l.Var(p.Index()).ErrorOffset, l.Var(q.Index()).ErrorOffset}
	for bi := 0; bi < 2; bi++ {
		for bj := 0; bj < 2; bj++ {
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					ret[(bi*3+i)*6+bj*3+j] = s.P.At(idx[bi]+i, idx[bj]+j)
				}
			}
		}
	}
	return ret
}

// ToPose returns position, orientation and their covariance.
func ToPose(s *state.State, p state.Handle[state.Vec3], q state.Handle[state.Quat]) PoseWithCovariance {
	return PoseWithCovariance{
		Pose:       pose(s, p, q),
		Covariance: PoseCovariance(s, p, q),
	}
}

// ToExtState returns position, orientation and velocity.
func ToExtState(s *state.State, p state.Handle[state.Vec3], q state.Handle[state.Quat], v state.Handle[state.Vec3]) ExtState {
	return ExtState{
		Pose:     pose(s, p, q),
		Velocity: v.Get(s).V(),
	}
}

// FullState flattens every variable in layout order.
func FullState(s *state.State) DoubleArray {
	return DoubleArray{
		Time: s.Time,
		Data: s.AppendValues(make([]float64, 0, s.Layout().Dims().Full), nil),
	}
}

// CoreState flattens the core variables, propagated and static.
func CoreState(s *state.State) DoubleArray {
	return DoubleArray{
		Time: s.Time,
		Data: s.AppendValues(make([]float64, 0, s.Layout().Dims().CoreFull), state.Kind.IsCore),
	}
}

func pose(s *state.State, p state.Handle[state.Vec3], q state.Handle[state.Quat]) Pose {
	return Pose{
		Position:    p.Get(s).V(),
		Orientation: q.Get(s).Q(),
	}
}
