// Package telemetry turns filter estimates into messages for other
// processes: a JSON document or an InfluxDB line, published over MQTT.
package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/machbase/neo-fusion/mods/fusion/convert"
	"github.com/machbase/neo-fusion/mods/fusion/state"
	"gonum.org/v1/gonum/spatial/r3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatLine Format = "ilp"
)

func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return FormatJSON, nil
	case "ilp", "line", "lineprotocol":
		return FormatLine, nil
	default:
		return "", fmt.Errorf("unknown telemetry format %q", name)
	}
}

// Config of a Publisher.
type Config struct {
	Broker      string        `json:"broker" yaml:"broker"`
	Topic       string        `json:"topic" yaml:"topic"`
	ClientID    string        `json:"clientId" yaml:"clientId"`
	Username    string        `json:"username" yaml:"username"`
	Password    string        `json:"password" yaml:"password"`
	QoS         byte          `json:"qos" yaml:"qos"`
	Format      Format        `json:"format" yaml:"format"`
	Measurement string        `json:"measurement" yaml:"measurement"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
}

func (c *Config) normalize() error {
	if c.Broker == "" {
		return fmt.Errorf("telemetry: broker is required")
	}
	if c.Topic == "" {
		return fmt.Errorf("telemetry: topic is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("telemetry: invalid qos %d", c.QoS)
	}
	f, err := ParseFormat(string(c.Format))
	if err != nil {
		return err
	}
	c.Format = f
	if c.Measurement == "" {
		c.Measurement = "fusion"
	}
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Second
	}
	return nil
}

// Field is the flattened value of one state variable.
type Field struct {
	Name   string    `json:"name"`
	Type   string    `json:"type"`
	Values []float64 `json:"values"`
}

// Record is one estimate as it leaves the process.
type Record struct {
	Name     string                     `json:"name,omitempty"`
	Time     float64                    `json:"time"`
	Pose     convert.PoseWithCovariance `json:"pose"`
	Velocity r3.Vec                     `json:"velocity"`
	Fields   []Field                    `json:"fields,omitempty"`
}

// Source knows which variables of a layout make up the pose.
type Source struct {
	Name        string
	Position    state.Handle[state.Vec3]
	Orientation state.Handle[state.Quat]
	Velocity    state.Handle[state.Vec3]
	// Fields adds every variable of the layout to the records.
	Fields bool
}

// NewSource finds the pose variables, by their core names, in l.
func NewSource(name string, l *state.Layout) (*Source, error) {
	src := &Source{Name: name, Fields: true}
	var err error
	if src.Position, err = state.Lookup[state.Vec3](l, state.NamePosition); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	if src.Orientation, err = state.Lookup[state.Quat](l, state.NameOrientation); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	if src.Velocity, err = state.Lookup[state.Vec3](l, state.NameVelocity); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	return src, nil
}

// Record reads s. The state is not modified.
func (src *Source) Record(s *state.State) *Record {
	ext := convert.ToExtState(s, src.Position, src.Orientation, src.Velocity)
	r := &Record{
		Name:     src.Name,
		Time:     s.Time,
		Pose:     convert.ToPose(s, src.Position, src.Orientation),
		Velocity: ext.Velocity,
	}
	if src.Fields {
		full := convert.FullState(s)
		for _, v := range s.Layout().Vars() {
			r.Fields = append(r.Fields, Field{
				Name:   v.Name,
				Type:   v.Type,
				Values: full.Data[v.FullOffset : v.FullOffset+v.FullDim],
			})
		}
	}
	return r
}
