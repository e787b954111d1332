package state

import (
	"github.com/machbase/neo-fusion/mods/fusion/internal/grant"
	"gonum.org/v1/gonum/mat"
)

// Handle identifies a typed variable of a layout.
// Core and Aux are the two implementations.
type Handle[T Value[T]] interface {
	Name() string
	Kind() Kind
	Index() int
	Get(s *State) T
	QBlock(s *State) mat.Symmetric
	at() ref
	typed(T)
}

type ref struct {
	layout *Layout
	index  int
}

func (r ref) Name() string { return r.layout.vars[r.index].name }
func (r ref) Kind() Kind   { return r.layout.vars[r.index].kind }
func (r ref) Index() int   { return r.index }
func (r ref) at() ref      { return r }

// Core is the handle of a core state, propagated or static.
// Core states are read through the handle; they change only through
// State.Correct, State.Reset and the engine.
type Core[T Value[T]] struct {
	ref
}

func (h Core[T]) typed(T) {}

// Get returns the current value.
func (h Core[T]) Get(s *State) T { return cellOf[T](s, h.ref).value }

// QBlock returns a read-only view of the noise covariance block.
func (h Core[T]) QBlock(s *State) mat.Symmetric { return symView{cellOf[T](s, h.ref).q} }

// Aux is the handle of an auxiliary (calibration) state.
type Aux[T Value[T]] struct {
	ref
}

func (h Aux[T]) typed(T) {}

// Get returns the current value.
func (h Aux[T]) Get(s *State) T { return cellOf[T](s, h.ref).value }

// Set assigns the value, used to initialize calibrations.
func (h Aux[T]) Set(s *State, v T) { cellOf[T](s, h.ref).value = v }

// QBlock returns a read-only view of the noise covariance block.
func (h Aux[T]) QBlock(s *State) mat.Symmetric { return symView{cellOf[T](s, h.ref).q} }

// MutableQBlock returns the noise covariance block for tuning.
func (h Aux[T]) MutableQBlock(s *State) *mat.SymDense { return cellOf[T](s, h.ref).q }

// SetCore assigns a core state directly. Engine only.
func SetCore[T Value[T]](s *State, h Core[T], v T, k grant.Key) {
	checkKey("set core", k)
	cellOf[T](s, h.ref).value = v
}

// Mutable returns a pointer to the value of any variable. Engine only.
func Mutable[T Value[T]](s *State, h Handle[T], k grant.Key) *T {
	checkKey("mutable", k)
	return &cellOf[T](s, h.at()).value
}

// MutableQBlock returns the noise covariance block of any variable. Engine only.
func MutableQBlock[T Value[T]](s *State, h Handle[T], k grant.Key) *mat.SymDense {
	checkKey("mutable q block", k)
	return cellOf[T](s, h.at()).q
}

func checkKey(op string, k grant.Key) {
	if !k.Valid() {
		panic(configErrorf(op, "privileged operation without the engine key"))
	}
}

func cellOf[T Value[T]](s *State, r ref) *cell[T] {
	if r.layout != s.layout {
		panic(configErrorf("access", "handle of another layout used on this state"))
	}
	c, ok := s.slots[r.index].(*cell[T])
	if !ok {
		panic(configErrorf("access", "variable %q does not hold %T", r.Name(), *new(T)))
	}
	return c
}
