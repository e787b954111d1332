package state

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Value is the constraint satisfied by every type a state variable can hold.
// The methods are unexported, the set of value kinds is closed:
// Scalar, Scale, Vec3 and Quat.
type Value[T any] interface {
	// typeName is the name used in configuration files.
	typeName() string
	// dims returns the stored and the error-state dimension.
	dims() (full int, errDim int)
	// neutral is the reset value: zero, one or the identity rotation.
	neutral() T
	// boxPlus applies a correction of errDim entries.
	boxPlus(delta []float64) T
	// appendTo flattens the value.
	appendTo(dst []float64) []float64
	// fromValues decodes the flattened representation.
	fromValues(v []float64) T
}

// Scalar is an unconstrained real valued state, reset to zero.
type Scalar float64

func (Scalar) typeName() string                   { return "scalar" }
func (Scalar) dims() (int, int)                   { return 1, 1 }
func (Scalar) neutral() Scalar                    { return 0 }
func (s Scalar) boxPlus(d []float64) Scalar       { return s + Scalar(d[0]) }
func (s Scalar) appendTo(dst []float64) []float64 { return append(dst, float64(s)) }
func (Scalar) fromValues(v []float64) Scalar      { return Scalar(v[0]) }

// Scale is a multiplicative factor such as the visual scale, reset to one.
// Corrections are additive.
type Scale float64

func (Scale) typeName() string                   { return "scale" }
func (Scale) dims() (int, int)                   { return 1, 1 }
func (Scale) neutral() Scale                     { return 1 }
func (s Scale) boxPlus(d []float64) Scale        { return s + Scale(d[0]) }
func (s Scale) appendTo(dst []float64) []float64 { return append(dst, float64(s)) }
func (Scale) fromValues(v []float64) Scale       { return Scale(v[0]) }

// Vec3 is a 3-vector state (position, velocity, biases, offsets).
type Vec3 r3.Vec

// V returns the vector as r3.Vec.
func (v Vec3) V() r3.Vec { return r3.Vec(v) }

func (Vec3) typeName() string { return "vec3" }
func (Vec3) dims() (int, int) { return 3, 3 }
func (Vec3) neutral() Vec3    { return Vec3{} }

func (v Vec3) boxPlus(d []float64) Vec3 {
	return Vec3{X: v.X + d[0], Y: v.Y + d[1], Z: v.Z + d[2]}
}

func (v Vec3) appendTo(dst []float64) []float64 { return append(dst, v.X, v.Y, v.Z) }
func (Vec3) fromValues(v []float64) Vec3        { return Vec3{X: v[0], Y: v[1], Z: v[2]} }

func (v Vec3) String() string {
	return fmt.Sprintf("[%g,%g,%g]", v.X, v.Y, v.Z)
}

// Quat is a unit quaternion orientation. It is stored with four numbers
// and corrected with a three element rotation vector.
// Flattened order is w, x, y, z.
type Quat quat.Number

// Identity is the identity rotation.
var Identity = Quat{Real: 1}

// Q returns the quaternion as quat.Number.
func (q Quat) Q() quat.Number { return quat.Number(q) }

func (Quat) typeName() string { return "quat" }
func (Quat) dims() (int, int) { return 4, 3 }
func (Quat) neutral() Quat    { return Identity }

// boxPlus composes the current orientation with the small angle rotation
// delta and normalizes the result. The norm of the product is assumed
// to be well away from zero.
func (q Quat) boxPlus(d []float64) Quat {
	r := quat.Mul(quat.Number(q), SmallAngle(d[0], d[1], d[2]))
	return Quat(quat.Scale(1/quat.Abs(r), r))
}

func (q Quat) appendTo(dst []float64) []float64 {
	return append(dst, q.Real, q.Imag, q.Jmag, q.Kmag)
}

func (Quat) fromValues(v []float64) Quat {
	return Quat{Real: v[0], Imag: v[1], Jmag: v[2], Kmag: v[3]}
}

func (q Quat) String() string {
	return fmt.Sprintf("[%g,%g,%g,%g]", q.Real, q.Imag, q.Jmag, q.Kmag)
}

// SmallAngle returns the quaternion of the rotation vector (x, y, z).
// Rotations whose half angle exceeds one radian are damped so the
// result stays a valid unit quaternion.
func SmallAngle(x, y, z float64) quat.Number {
	x, y, z = x/2, y/2, z/2
	sq := x*x + y*y + z*z
	if sq < 1 {
		return quat.Number{Real: math.Sqrt(1 - sq), Imag: x, Jmag: y, Kmag: z}
	}
	w := 1 / math.Sqrt(1+sq)
	return quat.Number{Real: w, Imag: x * w, Jmag: y * w, Kmag: z * w}
}
