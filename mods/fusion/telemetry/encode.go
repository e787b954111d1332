package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/influxdata/line-protocol/v2/lineprotocol"
	"github.com/machbase/neo-fusion/mods/fusion/state"
)

type Encoder interface {
	Encode(r *Record) ([]byte, error)
	ContentType() string
}

func NewEncoder(f Format, measurement string) (Encoder, error) {
	switch f {
	case FormatJSON, "":
		return jsonEncoder{}, nil
	case FormatLine:
		if measurement == "" {
			return nil, errors.New("line protocol requires a measurement")
		}
		return &lineEncoder{measurement: measurement, precision: lineprotocol.Nanosecond}, nil
	default:
		return nil, fmt.Errorf("unknown telemetry format %q", f)
	}
}

type jsonEncoder struct{}

func (jsonEncoder) ContentType() string { return "application/json" }

func (jsonEncoder) Encode(r *Record) ([]byte, error) {
	return json.Marshal(r)
}

// lineEncoder writes one line per record:
//
//	fusion,name=vicon position_x=1,...,p_wi_x=1,... 1700000000000000000
type lineEncoder struct {
	measurement string
	precision   lineprotocol.Precision
}

func (e *lineEncoder) ContentType() string { return "application/octet-stream" }

func (e *lineEncoder) Encode(r *Record) ([]byte, error) {
	if r.Time == state.Unset {
		return nil, errors.New("line protocol: record has no timestamp")
	}
	var enc lineprotocol.Encoder
	enc.SetPrecision(e.precision)
	enc.StartLine(e.measurement)
	if r.Name != "" {
		enc.AddTag("name", r.Name)
	}

	var err error
	add := func(key string, v float64) {
		if err != nil {
			return
		}
		fv, ok := lineprotocol.FloatValue(v)
		if !ok {
			err = fmt.Errorf("line protocol: field %s is not finite", key)
			return
		}
		enc.AddField(key, fv)
	}
	p, q, v := r.Pose.Position, r.Pose.Orientation, r.Velocity
	add("position_x", p.X)
	add("position_y", p.Y)
	add("position_z", p.Z)
	add("orientation_w", q.Real)
	add("orientation_x", q.Imag)
	add("orientation_y", q.Jmag)
	add("orientation_z", q.Kmag)
	add("velocity_x", v.X)
	add("velocity_y", v.Y)
	add("velocity_z", v.Z)
	for i := 0; i < 6; i++ {
		add(fmt.Sprintf("pose_var_%d", i), r.Pose.Covariance[i*6+i])
	}
	for _, f := range r.Fields {
		for i, x := range f.Values {
			add(fieldKey(f, i), x)
		}
	}
	if err != nil {
		return nil, err
	}
	enc.EndLine(secondsToTime(r.Time))
	if err := enc.Err(); err != nil {
		return nil, fmt.Errorf("line protocol: %w", err)
	}
	return enc.Bytes(), nil
}

var componentNames = map[string][]string{
	"vec3": {"x", "y", "z"},
	"quat": {"w", "x", "y", "z"},
}

func fieldKey(f Field, i int) string {
	if len(f.Values) == 1 {
		return f.Name
	}
	if names, ok := componentNames[f.Type]; ok && len(names) == len(f.Values) {
		return f.Name + "_" + names[i]
	}
	return fmt.Sprintf("%s_%d", f.Name, i)
}

func secondsToTime(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(math.Round(frac*1e9)))
}
