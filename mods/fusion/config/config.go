// Package config loads filter configurations: the state variables with
// their types, kinds, initial values and noise, plus the logging and
// telemetry settings of the process.
//
//	define "imu" {
//	  gyro = 0.0015
//	}
//
//	state "b_w" {
//	  type  = "vec3"
//	  kind  = "propagated"
//	  noise = [imu_gyro, imu_gyro, imu_gyro]
//	}
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/machbase/neo-fusion/mods"
	"github.com/machbase/neo-fusion/mods/fusion/engine"
	"github.com/machbase/neo-fusion/mods/fusion/state"
	"github.com/machbase/neo-fusion/mods/fusion/telemetry"
	"github.com/machbase/neo-fusion/mods/logging"
	"gonum.org/v1/gonum/floats"
)

const unitTolerance = 1e-6

type Filter struct {
	Name      string            `yaml:"name"`
	Requires  string            `yaml:"requires"` // version constraint on the build
	States    []StateDef        `yaml:"states"`
	Logging   *logging.Config   `yaml:"logging"`
	Telemetry *telemetry.Config `yaml:"telemetry"`
}

// StateDef is one variable, in layout order.
type StateDef struct {
	Name     string    `yaml:"name"`
	Type     string    `yaml:"type"`
	Kind     string    `yaml:"kind"`
	Initial  []float64 `yaml:"initial"`  // reset value, flattened
	Noise    []float64 `yaml:"noise"`    // Q diagonal
	Variance []float64 `yaml:"variance"` // initial P diagonal
}

// LoadFile reads a configuration, YAML if the extension says so,
// HCL otherwise.
func LoadFile(path string) (*Filter, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(content)
	default:
		return ParseHCL(content, path)
	}
}

// Bundle is what a filter needs from its configuration.
type Bundle struct {
	Name     string
	Layout   *state.Layout
	Tuning   *engine.Tuning
	Variance []float64 // nil if no state has a variance

	initial []initialValue
}

type initialValue struct {
	name   string
	values []float64
}

// Build checks the definitions against each other and builds the layout.
func (f *Filter) Build() (*Bundle, error) {
	log := logging.GetLog("fusion-config")
	if err := mods.Satisfies(f.Requires); err != nil {
		return nil, fmt.Errorf("filter %q: %w", f.Name, err)
	}

	l := state.NewLayout()
	for i, sd := range f.States {
		kind, err := state.ParseKind(sd.Kind)
		if err != nil {
			return nil, fmt.Errorf("state %q: %w", sd.Name, err)
		}
		if err := addVar(l, sd.Name, sd.Type, kind); err != nil {
			return nil, fmt.Errorf("state[%d] %q: %w", i, sd.Name, err)
		}
	}
	if err := l.Build(); err != nil {
		return nil, fmt.Errorf("filter %q: %w", f.Name, err)
	}

	b := &Bundle{
		Name:   f.Name,
		Layout: l,
		Tuning: engine.NewTuning(l),
	}
	for _, sd := range f.States {
		v := l.Var(l.Index(sd.Name))
		if sd.Initial != nil {
			if len(sd.Initial) != v.FullDim {
				return nil, fmt.Errorf("state %q: initial takes %d values, got %d", sd.Name, v.FullDim, len(sd.Initial))
			}
			if v.Type == "quat" {
				if n := floats.Norm(sd.Initial, 2); math.Abs(n-1) > unitTolerance {
					return nil, fmt.Errorf("state %q: initial quaternion is not unit, norm %g", sd.Name, n)
				}
			}
			b.initial = append(b.initial, initialValue{name: sd.Name, values: sd.Initial})
		}
		if sd.Noise != nil {
			if err := b.Tuning.SetNoise(sd.Name, sd.Noise); err != nil {
				return nil, err
			}
		}
		if sd.Variance != nil {
			if len(sd.Variance) != v.ErrorDim {
				return nil, fmt.Errorf("state %q: variance takes %d values, got %d", sd.Name, v.ErrorDim, len(sd.Variance))
			}
			if b.Variance == nil {
				b.Variance = make([]float64, l.Dims().Error)
			}
			for k, x := range sd.Variance {
				if x < 0 {
					return nil, fmt.Errorf("state %q: negative variance %g", sd.Name, x)
				}
				b.Variance[v.ErrorOffset+k] = x
			}
		}
	}
	log.Debugf("filter %q %s", f.Name, l)
	return b, nil
}

// Customizer overrides the reset values given as initial.
func (b *Bundle) Customizer() state.Customizer {
	if len(b.initial) == 0 {
		return nil
	}
	return func(sd *state.Seed) {
		for _, iv := range b.initial {
			// lengths are checked by Build
			if err := sd.OverrideValues(iv.name, iv.values); err != nil {
				panic(err)
			}
		}
	}
}

// NewState returns a reset state with the Q blocks tuned and P seeded.
func (b *Bundle) NewState() *state.State {
	s := state.New(b.Layout)
	b.Tuning.Apply(s)
	b.Reset(s)
	return s
}

// Reset resets s to the configured initial values and covariance.
func (b *Bundle) Reset(s *state.State) {
	s.Reset(b.Customizer())
	if b.Variance != nil {
		if err := engine.InitialCovariance(s, b.Variance); err != nil {
			panic(err)
		}
	}
}

func addVar(l *state.Layout, name, typ string, kind state.Kind) error {
	switch strings.ToLower(typ) {
	case "scalar":
		addKind[state.Scalar](l, name, kind)
	case "scale":
		addKind[state.Scale](l, name, kind)
	case "vec3", "vector3":
		addKind[state.Vec3](l, name, kind)
	case "quat", "quaternion":
		addKind[state.Quat](l, name, kind)
	default:
		return fmt.Errorf("unknown state type %q", typ)
	}
	return nil
}

func addKind[T state.Value[T]](l *state.Layout, name string, kind state.Kind) {
	switch kind {
	case state.CorePropagated:
		state.AddPropagated[T](l, name)
	case state.CoreStatic:
		state.AddStatic[T](l, name)
	default:
		state.AddAuxiliary[T](l, name)
	}
}
