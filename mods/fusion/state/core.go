package state

// Names of the core states added by AddCore.
const (
	NamePosition    = "p_wi"
	NameVelocity    = "v_wi"
	NameOrientation = "q_wi"
	NameGyroBias    = "b_w"
	NameAccelBias   = "b_a"
	NameScale       = "L"
)

// CoreVars are the handles of the core states shared by every configuration.
type CoreVars struct {
	Position    Core[Vec3] // world frame
	Velocity    Core[Vec3] // world frame
	Orientation Core[Quat] // IMU to world
	GyroBias    Core[Vec3]
	AccelBias   Core[Vec3]
	Scale       Core[Scale] // static, not integrated
}

// AddCore appends the core states to an empty layout.
// Auxiliary states of the deployment are added after it.
func AddCore(l *Layout) CoreVars {
	return CoreVars{
		Position:    AddPropagated[Vec3](l, NamePosition),
		Velocity:    AddPropagated[Vec3](l, NameVelocity),
		Orientation: AddPropagated[Quat](l, NameOrientation),
		GyroBias:    AddPropagated[Vec3](l, NameGyroBias),
		AccelBias:   AddPropagated[Vec3](l, NameAccelBias),
		Scale:       AddStatic[Scale](l, NameScale),
	}
}

// LookupCoreVars finds the core states in a layout built from a
// configuration file.
func LookupCoreVars(l *Layout) (CoreVars, error) {
	var cv CoreVars
	var err error
	if cv.Position, err = LookupCore[Vec3](l, NamePosition); err != nil {
		return cv, err
	}
	if cv.Velocity, err = LookupCore[Vec3](l, NameVelocity); err != nil {
		return cv, err
	}
	if cv.Orientation, err = LookupCore[Quat](l, NameOrientation); err != nil {
		return cv, err
	}
	if cv.GyroBias, err = LookupCore[Vec3](l, NameGyroBias); err != nil {
		return cv, err
	}
	if cv.AccelBias, err = LookupCore[Vec3](l, NameAccelBias); err != nil {
		return cv, err
	}
	if cv.Scale, err = LookupCore[Scale](l, NameScale); err != nil {
		return cv, err
	}
	return cv, nil
}
