// Package engine holds the operations of the filter engine that need write
// access to core states: noise tuning, carrying non-propagated states
// across a propagation step and seeding the initial covariance.
package engine

import (
	"fmt"

	"github.com/machbase/neo-fusion/mods/fusion/internal/grant"
	"github.com/machbase/neo-fusion/mods/fusion/state"
	"github.com/machbase/neo-fusion/mods/logging"
)

// Tuning is the process noise of a layout: the diagonal of the Q block
// of each named variable, one entry per error-state dimension.
type Tuning struct {
	layout *state.Layout
	diag   map[int][]float64
	log    logging.Log
}

func NewTuning(l *state.Layout) *Tuning {
	return &Tuning{
		layout: l,
		diag:   map[int][]float64{},
		log:    logging.GetLog("fusion-tuning"),
	}
}

// SetNoise records the Q diagonal of the named variable.
func (t *Tuning) SetNoise(name string, diag []float64) error {
	i := t.layout.Index(name)
	if i < 0 {
		return fmt.Errorf("tuning: no variable %q", name)
	}
	if v := t.layout.Var(i); len(diag) != v.ErrorDim {
		return fmt.Errorf("tuning: %q has %d error states, got %d noise values", name, v.ErrorDim, len(diag))
	}
	for _, d := range diag {
		if d < 0 {
			return fmt.Errorf("tuning: %q has negative noise %g", name, d)
		}
	}
	t.diag[i] = append([]float64(nil), diag...)
	return nil
}

// Noise returns the recorded diagonal of the named variable.
func (t *Tuning) Noise(name string) ([]float64, bool) {
	d, ok := t.diag[t.layout.Index(name)]
	return d, ok
}

// Apply writes the Q blocks of s. Variables without recorded noise keep
// their block; off-diagonal entries of tuned blocks are cleared.
func (t *Tuning) Apply(s *state.State) {
	if s.Layout() != t.layout {
		panic(&state.ConfigurationError{Op: "tuning", Msg: "state of another layout"})
	}
	for i, diag := range t.diag {
		q := s.QBlockAt(i, grant.Engine)
		q.Zero()
		for k, d := range diag {
			q.SetSym(k, k, d)
		}
		if t.log.TraceEnabled() {
			t.log.Tracef("Q %s %v", t.layout.Var(i).Name, diag)
		}
	}
}

// CarryOver copies the core static and auxiliary states, with their Q
// blocks, from the previous estimate into the propagated one.
// Propagated states, P, the time and the inputs of dst are kept.
func CarryOver(dst, prev *state.State) {
	dst.CopyNonPropagated(prev, grant.Engine)
}

// InitialCovariance sets P to a diagonal matrix. diag is the full
// error-state length.
func InitialCovariance(s *state.State, diag []float64) error {
	n := s.Layout().Dims().Error
	if len(diag) != n {
		return fmt.Errorf("initial covariance has %d entries, error state is %d", len(diag), n)
	}
	s.P.Zero()
	for i, d := range diag {
		s.P.SetSym(i, i, d)
	}
	return nil
}
