// Package state is the state vector of the multi-sensor fusion EKF.
//
// A filter configuration is a Layout: an ordered list of typed variables,
// each one a core state (propagated or static) or an auxiliary calibration
// state. A State holds one estimate for a layout: the variable values
// with their noise covariance blocks, the error-state covariance P,
// the timestamp and the inertial inputs used to propagate it.
//
// The package has no internal locking. A State has one owner at a time;
// snapshots for output are taken under the same discipline as writes.
package state

import (
	"github.com/machbase/neo-fusion/mods/fusion/internal/grant"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Unset is the timestamp of a state that holds no estimate yet.
const Unset = -1.0

// State is one discrete-time estimate.
type State struct {
	layout *Layout
	slots  []slot

	AngularVelocity r3.Vec // measured by the IMU
	Acceleration    r3.Vec // measured by the IMU

	// Time of the estimate in seconds, Unset before the first one.
	Time float64
	// P is the error-state covariance, Dims().Error square.
	P *mat.SymDense
}

// New returns a zero initialized state of a built layout.
// Values are zero (not the reset values), Q blocks and P are zero.
func New(l *Layout) *State {
	if !l.built {
		panic(configErrorf("new", "layout is not built"))
	}
	s := &State{
		layout: l,
		slots:  make([]slot, len(l.vars)),
		Time:   Unset,
		P:      mat.NewSymDense(l.dims.Error, nil),
	}
	for i, v := range l.vars {
		s.slots[i] = v.newSlot()
	}
	return s
}

func (s *State) Layout() *Layout { return s.layout }

// Clone returns a deep copy, history buffers keep states by value.
func (s *State) Clone() *State {
	ret := &State{
		layout:          s.layout,
		slots:           make([]slot, len(s.slots)),
		AngularVelocity: s.AngularVelocity,
		Acceleration:    s.Acceleration,
		Time:            s.Time,
		P:               symCopy(s.P),
	}
	for i, c := range s.slots {
		ret.slots[i] = c.clone()
	}
	return ret
}

// HasResetValue reports whether the customizer of the last Reset
// supplied the value of the variable at index i.
func (s *State) HasResetValue(i int) bool {
	return s.slotAt("has reset value", i).resetValue()
}

func (s *State) slotAt(op string, i int) slot {
	if i < 0 || i >= len(s.slots) {
		panic(configErrorf(op, "index %d out of range, layout has %d variables", i, len(s.slots)))
	}
	return s.slots[i]
}

// Customizer is called at the end of Reset to override reset values.
// It must only assign values through the Seed.
type Customizer func(sd *Seed)

// Reset sets 3-vectors and scalars to zero, scales to one, orientations to
// identity, P to zero and the time to Unset. Then c, if not nil,
// overrides the values it wants; its assignments win over the defaults.
// The Q blocks are kept.
func (s *State) Reset(c Customizer) {
	for _, sl := range s.slots {
		sl.reset()
	}
	s.P.Zero()
	s.Time = Unset
	if c != nil {
		sd := &Seed{s: s}
		c(sd)
		sd.s = nil
	}
}

// Seed is the write access given to a Customizer during Reset.
// It is invalid once the customizer returns.
type Seed struct {
	s *State
}

// State returns the state being reset, for reading.
func (sd *Seed) State() *State { return sd.target("state") }

func (sd *Seed) target(op string) *State {
	if sd == nil || sd.s == nil {
		panic(configErrorf(op, "seed used outside of reset"))
	}
	return sd.s
}

// Override assigns the reset value of any variable, core states included,
// and marks it as supplied.
func Override[T Value[T], H Handle[T]](sd *Seed, h H, v T) {
	c := cellOf[T](sd.target("override"), h.at())
	c.value = v
	c.hasResetValue = true
}

// OverrideValues assigns the reset value of the named variable from its
// flattened representation (a quaternion is w, x, y, z).
func (sd *Seed) OverrideValues(name string, values []float64) error {
	s := sd.target("override")
	i := s.layout.Index(name)
	if i < 0 {
		return configErrorf("override", "no variable %q", name)
	}
	if v := s.layout.vars[i]; len(values) != v.full {
		return configErrorf("override", "%q takes %d values, got %d", name, v.full, len(values))
	}
	s.slots[i].assign(values)
	s.slots[i].setResetValue(true)
	return nil
}

// Correct applies an error-state correction to every variable.
// delta is Dims().Error long, laid out variable after variable in layout
// order. Vectors, scalars and scales are corrected additively,
// orientations are rotated by the small angle and normalized.
// P is not touched. A delta of the wrong length panics.
func (s *State) Correct(delta mat.Vector) {
	if n := delta.Len(); n != s.layout.dims.Error {
		panic(configErrorf("correct", "correction has %d entries, layout error state is %d", n, s.layout.dims.Error))
	}
	d := rawVector(delta)
	for i, sl := range s.slots {
		v := &s.layout.vars[i]
		sl.correct(d[v.errOff : v.errOff+v.errDim])
	}
}

// AppendValues flattens the values of the variables accepted by filter,
// every variable if filter is nil, in layout order.
func (s *State) AppendValues(dst []float64, filter func(Kind) bool) []float64 {
	for i, sl := range s.slots {
		if filter == nil || filter(s.layout.vars[i].kind) {
			dst = sl.appendTo(dst)
		}
	}
	return dst
}

// QBlockAt returns the noise covariance block of the variable at index i.
// Engine only, used by tuning.
func (s *State) QBlockAt(i int, k grant.Key) *mat.SymDense {
	checkKey("q block", k)
	return s.slotAt("q block", i).qblock()
}

// CopyNonPropagated copies the values and Q blocks of the variables that
// are not propagated (core static and auxiliary) from src. Engine only,
// it carries them into the state produced by a propagation step.
func (s *State) CopyNonPropagated(src *State, k grant.Key) {
	checkKey("copy", k)
	if src.layout != s.layout {
		panic(configErrorf("copy", "states of different layouts"))
	}
	for i, v := range s.layout.vars {
		if !v.kind.IsPropagated() {
			s.slots[i].copyFrom(src.slots[i])
		}
	}
}

func rawVector(v mat.Vector) []float64 {
	if rv, ok := v.(mat.RawVectorer); ok {
		if raw := rv.RawVector(); raw.Inc == 1 {
			return raw.Data[:raw.N]
		}
	}
	ret := make([]float64, v.Len())
	for i := range ret {
		ret[i] = v.AtVec(i)
	}
	return ret
}
