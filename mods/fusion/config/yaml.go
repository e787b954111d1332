package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/machbase/neo-fusion/mods/fusion/telemetry"
	"gopkg.in/yaml.v3"
)

// ParseYAML reads a configuration written in YAML.
//
//	name: vicon
//	states:
//	  - name: p_wi
//	    type: vec3
//	    kind: propagated
func ParseYAML(content []byte) (*Filter, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	ret := &Filter{}
	if err := dec.Decode(ret); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if ret.Telemetry != nil {
		f, err := telemetry.ParseFormat(string(ret.Telemetry.Format))
		if err != nil {
			return nil, err
		}
		ret.Telemetry.Format = f
	}
	return ret, nil
}
