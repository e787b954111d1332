package state

import (
	"errors"
	"fmt"
)

// Layout is the ordered list of state variables of one filter configuration.
// Variables are added with AddPropagated, AddStatic and AddAuxiliary,
// then Build fixes the order, the offsets and the dimensions.
// A built layout is immutable and may be shared by any number of states.
//
//	l := state.NewLayout()
//	p := state.AddPropagated[state.Vec3](l, "p_wi")
//	q := state.AddPropagated[state.Quat](l, "q_wi")
//	L := state.AddStatic[state.Scale](l, "L")
//	qic := state.AddAuxiliary[state.Quat](l, "q_ic")
//	state.MustBuild(l)
type Layout struct {
	vars   []variable
	names  map[string]int
	dims   Dims
	built  bool
	errs   []error
	sawAux bool
}

type variable struct {
	name     string
	kind     Kind
	typeName string
	full     int
	errDim   int
	fullOff  int
	errOff   int
	newSlot  func() slot
}

// VarInfo describes one variable of a built layout.
type VarInfo struct {
	Index       int
	Name        string
	Kind        Kind
	Type        string
	FullDim     int
	ErrorDim    int
	FullOffset  int
	ErrorOffset int
}

func NewLayout() *Layout {
	return &Layout{names: map[string]int{}}
}

// AddPropagated appends a core state integrated by the propagation.
func AddPropagated[T Value[T]](l *Layout, name string) Core[T] {
	return Core[T]{ref: add[T](l, name, CorePropagated)}
}

// AddStatic appends a core state that is not integrated by the propagation.
func AddStatic[T Value[T]](l *Layout, name string) Core[T] {
	return Core[T]{ref: add[T](l, name, CoreStatic)}
}

// AddAuxiliary appends a calibration state.
func AddAuxiliary[T Value[T]](l *Layout, name string) Aux[T] {
	return Aux[T]{ref: add[T](l, name, Auxiliary)}
}

func add[T Value[T]](l *Layout, name string, kind Kind) ref {
	var zero T
	full, errDim := zero.dims()
	idx := len(l.vars)
	if l.built {
		panic(configErrorf("add", "layout already built, can not add %q", name))
	}
	if name == "" {
		l.errs = append(l.errs, configErrorf("add", "variable #%d has no name", idx))
	} else if _, exists := l.names[name]; exists {
		l.errs = append(l.errs, configErrorf("add", "duplicate variable %q", name))
	} else {
		l.names[name] = idx
	}
	if kind == Auxiliary {
		l.sawAux = true
	} else if l.sawAux {
		l.errs = append(l.errs, configErrorf("add", "core variable %q follows an auxiliary variable", name))
	}
	l.vars = append(l.vars, variable{
		name:     name,
		kind:     kind,
		typeName: zero.typeName(),
		full:     full,
		errDim:   errDim,
		newSlot:  func() slot { return newCell[T](errDim) },
	})
	return ref{layout: l, index: idx}
}

// Build validates the layout and computes offsets and dimensions.
// Calling Build again on a built layout is a no-op.
func (l *Layout) Build() error {
	if l.built {
		return nil
	}
	if len(l.vars) == 0 {
		l.errs = append(l.errs, configErrorf("build", "layout has no variables"))
	}
	if len(l.errs) > 0 {
		return errors.Join(l.errs...)
	}
	var d Dims
	for i := range l.vars {
		v := &l.vars[i]
		v.fullOff, v.errOff = d.Full, d.Error
		d.add(v.kind, v.full, v.errDim)
	}
	l.dims = d
	l.built = true
	return nil
}

// MustBuild builds the layout and panics on a configuration error.
// It suits layouts declared as package level variables.
func MustBuild(l *Layout) *Layout {
	if err := l.Build(); err != nil {
		panic(err)
	}
	return l
}

func (l *Layout) Built() bool { return l.built }

// Dims returns the aggregate dimensions. Zero until built.
func (l *Layout) Dims() Dims { return l.dims }

func (l *Layout) Len() int { return len(l.vars) }

// Var describes the variable at index i.
func (l *Layout) Var(i int) VarInfo {
	v := l.vars[i]
	return VarInfo{
		Index:       i,
		Name:        v.name,
		Kind:        v.kind,
		Type:        v.typeName,
		FullDim:     v.full,
		ErrorDim:    v.errDim,
		FullOffset:  v.fullOff,
		ErrorOffset: v.errOff,
	}
}

// Index returns the position of the named variable or -1.
func (l *Layout) Index(name string) int {
	if i, ok := l.names[name]; ok {
		return i
	}
	return -1
}

// Vars lists every variable in order.
func (l *Layout) Vars() []VarInfo {
	ret := make([]VarInfo, len(l.vars))
	for i := range l.vars {
		ret[i] = l.Var(i)
	}
	return ret
}

// Lookup returns a read/override handle of the named variable of any kind.
// It is meant for set-up code driven by configuration files.
func Lookup[T Value[T]](l *Layout, name string) (Handle[T], error) {
	r, err := lookup[T](l, name)
	if err != nil {
		return nil, err
	}
	if l.vars[r.index].kind == Auxiliary {
		return Aux[T]{ref: r}, nil
	}
	return Core[T]{ref: r}, nil
}

// LookupCore returns the handle of a named core variable.
func LookupCore[T Value[T]](l *Layout, name string) (Core[T], error) {
	r, err := lookup[T](l, name)
	if err != nil {
		return Core[T]{}, err
	}
	if !l.vars[r.index].kind.IsCore() {
		return Core[T]{}, configErrorf("lookup", "%q is %s, not a core state", name, l.vars[r.index].kind)
	}
	return Core[T]{ref: r}, nil
}

// LookupAux returns the handle of a named auxiliary variable.
func LookupAux[T Value[T]](l *Layout, name string) (Aux[T], error) {
	r, err := lookup[T](l, name)
	if err != nil {
		return Aux[T]{}, err
	}
	if l.vars[r.index].kind != Auxiliary {
		return Aux[T]{}, configErrorf("lookup", "%q is %s, not an auxiliary state", name, l.vars[r.index].kind)
	}
	return Aux[T]{ref: r}, nil
}

func lookup[T Value[T]](l *Layout, name string) (ref, error) {
	if !l.built {
		return ref{}, configErrorf("lookup", "layout is not built")
	}
	i, ok := l.names[name]
	if !ok {
		return ref{}, configErrorf("lookup", "no variable %q", name)
	}
	var zero T
	if v := l.vars[i]; v.typeName != zero.typeName() {
		return ref{}, configErrorf("lookup", "%q holds %s, not %s", name, v.typeName, zero.typeName())
	}
	return ref{layout: l, index: i}, nil
}

func (l *Layout) String() string {
	return fmt.Sprintf("layout{vars:%d full:%d error:%d core:%d/%d propagated:%d/%d}",
		l.dims.Vars, l.dims.Full, l.dims.Error,
		l.dims.CoreFull, l.dims.CoreError,
		l.dims.PropagatedFull, l.dims.PropagatedError)
}
