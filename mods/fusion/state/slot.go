package state

import (
	"gonum.org/v1/gonum/mat"
)

// slot is the untyped view of a cell used to iterate a state.
// The per-type behavior behind it is fixed by the generic instantiation
// made when the variable was added to the layout.
type slot interface {
	reset()
	correct(delta []float64)
	appendTo(dst []float64) []float64
	assign(values []float64)
	clone() slot
	copyFrom(src slot)
	qblock() *mat.SymDense
	resetValue() bool
	setResetValue(flag bool)
}

// cell is one typed state variable: its value, the noise covariance
// block of its error state and whether a reset value was supplied.
type cell[T Value[T]] struct {
	value         T
	q             *mat.SymDense
	hasResetValue bool
}

func newCell[T Value[T]](errDim int) *cell[T] {
	return &cell[T]{q: mat.NewSymDense(errDim, nil)}
}

func (c *cell[T]) reset() {
	c.value = c.value.neutral()
	c.hasResetValue = false
}

func (c *cell[T]) correct(delta []float64) {
	c.value = c.value.boxPlus(delta)
}

func (c *cell[T]) appendTo(dst []float64) []float64 {
	return c.value.appendTo(dst)
}

func (c *cell[T]) assign(values []float64) {
	c.value = c.value.fromValues(values)
}

func (c *cell[T]) clone() slot {
	return &cell[T]{
		value:         c.value,
		q:             symCopy(c.q),
		hasResetValue: c.hasResetValue,
	}
}

func (c *cell[T]) copyFrom(src slot) {
	o := src.(*cell[T])
	c.value = o.value
	c.q.CopySym(o.q)
	c.hasResetValue = o.hasResetValue
}

func (c *cell[T]) qblock() *mat.SymDense   { return c.q }
func (c *cell[T]) resetValue() bool        { return c.hasResetValue }
func (c *cell[T]) setResetValue(flag bool) { c.hasResetValue = flag }

func symCopy(src *mat.SymDense) *mat.SymDense {
	ret := mat.NewSymDense(src.SymmetricDim(), nil)
	ret.CopySym(src)
	return ret
}

// symView is a read-only mat.Symmetric over a Q block.
type symView struct {
	m *mat.SymDense
}

func (v symView) Dims() (int, int)    { return v.m.Dims() }
func (v symView) At(i, j int) float64 { return v.m.At(i, j) }
func (v symView) T() mat.Matrix       { return v }
func (v symView) SymmetricDim() int   { return v.m.SymmetricDim() }
