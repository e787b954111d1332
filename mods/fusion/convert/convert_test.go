package convert_test

import (
	"testing"

	"github.com/machbase/neo-fusion/mods/fusion/convert"
	"github.com/machbase/neo-fusion/mods/fusion/state"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

func newState(t *testing.T) (*state.State, state.CoreVars, state.Aux[state.Vec3]) {
	t.Helper()
	l := state.NewLayout()
	core := state.AddCore(l)
	pic := state.AddAuxiliary[state.Vec3](l, "p_ic")
	require.NoError(t, l.Build())

	s := state.New(l)
	s.Reset(func(sd *state.Seed) {
		state.Override(sd, core.Position, state.Vec3{X: 1, Y: 2, Z: 3})
		state.Override(sd, core.Velocity, state.Vec3{X: -1})
		state.Override(sd, core.Scale, state.Scale(0.5))
	})
	pic.Set(s, state.Vec3{X: 7, Y: 8, Z: 9})
	s.Time = 42
	// P(i, j) = 100*i + j on the upper triangle
	n := l.Dims().Error
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.P.SetSym(i, j, float64(100*i+j))
		}
	}
	return s, core, pic
}

func TestPoseCovariance(t *testing.T) {
	s, core, _ := newState(t)
	cov := convert.PoseCovariance(s, core.Position, core.Orientation)

	// position error at 0..2, orientation error at 6..8
	rows := []int{0, 1, 2, 6, 7, 8}
	for i, ri := range rows {
		for j, cj := range rows {
			a, b := ri, cj
			if a > b {
				a, b = b, a
			}
			require.Equal(t, float64(100*a+b), cov[i*6+j], "(%d,%d)", i, j)
		}
	}
	// symmetric
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			require.Equal(t, cov[i*6+j], cov[j*6+i])
		}
	}
}

func TestToPose(t *testing.T) {
	s, core, _ := newState(t)
	before := convert.FullState(s)

	pose := convert.ToPose(s, core.Position, core.Orientation)
	require.Equal(t, r3.Vec{X: 1, Y: 2, Z: 3}, pose.Position)
	require.Equal(t, quat.Number{Real: 1}, pose.Orientation)
	require.Equal(t, convert.PoseCovariance(s, core.Position, core.Orientation), pose.Covariance)

	ext := convert.ToExtState(s, core.Position, core.Orientation, core.Velocity)
	require.Equal(t, pose.Pose, ext.Pose)
	require.Equal(t, r3.Vec{X: -1}, ext.Velocity)

	require.Equal(t, before, convert.FullState(s), "conversion must not mutate")
}

func TestFullAndCoreState(t *testing.T) {
	s, _, _ := newState(t)

	full := convert.FullState(s)
	require.Equal(t, 42.0, full.Time)
	require.Equal(t, []float64{
		1, 2, 3, // p_wi
		-1, 0, 0, // v_wi
		1, 0, 0, 0, // q_wi
		0, 0, 0, // b_w
		0, 0, 0, // b_a
		0.5,     // L
		7, 8, 9, // p_ic
	}, full.Data)

	core := convert.CoreState(s)
	require.Equal(t, 42.0, core.Time)
	require.Equal(t, full.Data[:s.Layout().Dims().CoreFull], core.Data)
}

func TestMismatchedHandles(t *testing.T) {
	s, _, _ := newState(t)
	_, other, _ := newState(t)

	defer func() {
		r := recover()
		err, ok := r.(error)
		require.True(t, ok)
		require.ErrorIs(t, err, state.ErrConfiguration)
	}()
	convert.ToPose(s, other.Position, other.Orientation)
}
