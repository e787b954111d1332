package state_test

import (
	"fmt"

	"github.com/machbase/neo-fusion/mods/fusion/state"
	"gonum.org/v1/gonum/mat"
)

func ExampleLayout() {
	l := state.NewLayout()
	state.AddCore(l)
	state.AddAuxiliary[state.Quat](l, "q_ic")
	state.AddAuxiliary[state.Vec3](l, "p_ic")
	state.MustBuild(l)

	fmt.Println(l)

	// Output:
	// layout{vars:8 full:24 error:22 core:17/16 propagated:16/15}
}

func ExampleState_Reset() {
	l := state.NewLayout()
	core := state.AddCore(l)
	pic := state.AddAuxiliary[state.Vec3](l, "p_ic")
	state.MustBuild(l)

	s := state.New(l)
	s.Reset(func(sd *state.Seed) {
		state.Override(sd, core.Position, state.Vec3{X: 1, Y: 2, Z: 3})
	})
	pic.Set(s, state.Vec3{Z: 0.1})

	fmt.Println(core.Position.Get(s), core.Orientation.Get(s), core.Scale.Get(s), pic.Get(s), s.Time)

	// Output:
	// [1,2,3] [1,0,0,0] 1 [0,0,0.1] -1
}

func ExampleState_Correct() {
	l := state.NewLayout()
	p := state.AddPropagated[state.Vec3](l, "p")
	q := state.AddPropagated[state.Quat](l, "q")
	state.MustBuild(l)

	s := state.New(l)
	s.Reset(nil)
	s.Correct(mat.NewVecDense(6, []float64{0.5, 0, -0.5, 0, 0, 0}))

	fmt.Println(p.Get(s), q.Get(s))

	// Output:
	// [0.5,0,-0.5] [1,0,0,0]
}
