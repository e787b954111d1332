package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/machbase/neo-fusion/mods/fusion/telemetry"
	"github.com/machbase/neo-fusion/mods/logging"
	"github.com/zclconf/go-cty/cty"
	ctyconvert "github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

var DefaultFunctions = map[string]function.Function{
	"env":   GetEnvFunc,
	"upper": stdlib.UpperFunc,
	"lower": stdlib.LowerFunc,
	"min":   stdlib.MinFunc,
	"max":   stdlib.MaxFunc,
}

// GetEnvFunc is env("NAME") or env("NAME", "default").
var GetEnvFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "env", Type: cty.String},
	},
	VarParam: &function.Parameter{Name: "default", Type: cty.String},
	Type:     function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		def := ""
		if len(args) > 1 && !args[1].IsNull() {
			def = args[1].AsString()
		}
		out, ok := os.LookupEnv(args[0].AsString())
		if !ok {
			out = def
		}
		return cty.StringVal(out), nil
	},
})

var filterSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "name", Required: false},
		{Name: "requires", Required: false},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "define", LabelNames: []string{"id"}},
		{Type: "state", LabelNames: []string{"name"}},
		{Type: "logging"},
		{Type: "telemetry"},
	},
}

var stateSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "type", Required: true},
		{Name: "kind", Required: true},
		{Name: "initial"},
		{Name: "noise"},
		{Name: "variance"},
	},
}

// ParseHCL reads a configuration written in HCL. Attributes of a
// define block "x" are available to the rest of the file as x_<attr>.
func ParseHCL(content []byte, filename string) (*Filter, error) {
	if filename == "" {
		filename = "nofile.hcl"
	}
	file, diag := hclsyntax.ParseConfig(content, filename, hcl.Pos{Line: 1, Column: 1})
	if diag.HasErrors() {
		return nil, errors.New(diag.Error())
	}
	body, diag := file.Body.Content(filterSchema)
	if diag.HasErrors() {
		return nil, errors.New(diag.Error())
	}

	evalCtx := &hcl.EvalContext{
		Functions: DefaultFunctions,
		Variables: make(map[string]cty.Value),
	}
	for _, d := range body.Blocks.OfType("define") {
		attrs, diag := d.Body.JustAttributes()
		if diag.HasErrors() {
			return nil, errors.New(diag.Error())
		}
		for _, attr := range attrs {
			value, diag := attr.Expr.Value(evalCtx)
			if diag.HasErrors() {
				return nil, errors.New(diag.Error())
			}
			evalCtx.Variables[fmt.Sprintf("%s_%s", d.Labels[0], attr.Name)] = value
		}
	}

	ret := &Filter{}
	for name, attr := range body.Attributes {
		value, diag := attr.Expr.Value(evalCtx)
		if diag.HasErrors() {
			return nil, errors.New(diag.Error())
		}
		var err error
		switch name {
		case "name":
			err = fromCty(name, value, cty.String, &ret.Name)
		case "requires":
			err = fromCty(name, value, cty.String, &ret.Requires)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, block := range body.Blocks {
		var err error
		switch block.Type {
		case "state":
			var sd StateDef
			if sd, err = parseState(block, evalCtx); err == nil {
				ret.States = append(ret.States, sd)
			}
		case "logging":
			ret.Logging, err = parseLogging(block, evalCtx)
		case "telemetry":
			ret.Telemetry, err = parseTelemetry(block, evalCtx)
		}
		if err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func parseState(block *hcl.Block, evalCtx *hcl.EvalContext) (StateDef, error) {
	sd := StateDef{Name: block.Labels[0]}
	content, diag := block.Body.Content(stateSchema)
	if diag.HasErrors() {
		return sd, errors.New(diag.Error())
	}
	for name, attr := range content.Attributes {
		value, diag := attr.Expr.Value(evalCtx)
		if diag.HasErrors() {
			return sd, errors.New(diag.Error())
		}
		ref := fmt.Sprintf("state.%s.%s", sd.Name, name)
		var err error
		switch name {
		case "type":
			err = fromCty(ref, value, cty.String, &sd.Type)
		case "kind":
			err = fromCty(ref, value, cty.String, &sd.Kind)
		case "initial":
			err = fromCty(ref, value, cty.List(cty.Number), &sd.Initial)
		case "noise":
			err = fromCty(ref, value, cty.List(cty.Number), &sd.Noise)
		case "variance":
			err = fromCty(ref, value, cty.List(cty.Number), &sd.Variance)
		}
		if err != nil {
			return sd, err
		}
	}
	return sd, nil
}

func parseLogging(block *hcl.Block, evalCtx *hcl.EvalContext) (*logging.Config, error) {
	attrs, err := evalAttributes(block, evalCtx)
	if err != nil {
		return nil, err
	}
	ret := &logging.Config{}
	for name, value := range attrs {
		ref := "logging." + name
		switch name {
		case "console":
			err = fromCty(ref, value, cty.Bool, &ret.Console)
		case "filename":
			err = fromCty(ref, value, cty.String, &ret.Filename)
		case "append":
			err = fromCty(ref, value, cty.Bool, &ret.Append)
		case "rotate_schedule":
			err = fromCty(ref, value, cty.String, &ret.RotateSchedule)
		case "max_size":
			err = fromCty(ref, value, cty.Number, &ret.MaxSize)
		case "max_backups":
			err = fromCty(ref, value, cty.Number, &ret.MaxBackups)
		case "max_age":
			err = fromCty(ref, value, cty.Number, &ret.MaxAge)
		case "compress":
			err = fromCty(ref, value, cty.Bool, &ret.Compress)
		case "utc":
			err = fromCty(ref, value, cty.Bool, &ret.UTC)
		case "prefix_width":
			err = fromCty(ref, value, cty.Number, &ret.DefaultPrefixWidth)
		case "level":
			err = fromCty(ref, value, cty.String, &ret.DefaultLevel)
		case "levels":
			// levels = { "fusion-*" = "DEBUG" }
			var levels map[string]string
			if err = fromCty(ref, value, cty.Map(cty.String), &levels); err == nil {
				for _, pattern := range slices.Sorted(maps.Keys(levels)) {
					ret.Levels = append(ret.Levels, logging.LevelConfig{Pattern: pattern, Level: levels[pattern]})
				}
			}
		default:
			err = fmt.Errorf("%s is not a logging attribute", name)
		}
		if err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func parseTelemetry(block *hcl.Block, evalCtx *hcl.EvalContext) (*telemetry.Config, error) {
	attrs, err := evalAttributes(block, evalCtx)
	if err != nil {
		return nil, err
	}
	ret := &telemetry.Config{}
	for name, value := range attrs {
		ref := "telemetry." + name
		switch name {
		case "broker":
			err = fromCty(ref, value, cty.String, &ret.Broker)
		case "topic":
			err = fromCty(ref, value, cty.String, &ret.Topic)
		case "client_id":
			err = fromCty(ref, value, cty.String, &ret.ClientID)
		case "username":
			err = fromCty(ref, value, cty.String, &ret.Username)
		case "password":
			err = fromCty(ref, value, cty.String, &ret.Password)
		case "qos":
			err = fromCty(ref, value, cty.Number, &ret.QoS)
		case "format":
			var s string
			if err = fromCty(ref, value, cty.String, &s); err == nil {
				ret.Format, err = telemetry.ParseFormat(s)
			}
		case "measurement":
			err = fromCty(ref, value, cty.String, &ret.Measurement)
		case "timeout":
			var s string
			if err = fromCty(ref, value, cty.String, &s); err == nil {
				if ret.Timeout, err = time.ParseDuration(s); err != nil {
					err = fmt.Errorf("%s should be duration, %w", ref, err)
				}
			}
		default:
			err = fmt.Errorf("%s is not a telemetry attribute", name)
		}
		if err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func evalAttributes(block *hcl.Block, evalCtx *hcl.EvalContext) (map[string]cty.Value, error) {
	attrs, diag := block.Body.JustAttributes()
	if diag.HasErrors() {
		return nil, errors.New(diag.Error())
	}
	ret := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		value, diag := attr.Expr.Value(evalCtx)
		if diag.HasErrors() {
			return nil, errors.New(diag.Error())
		}
		ret[name] = value
	}
	return ret, nil
}

// fromCty converts value to ty, then into the go value pointed by target.
func fromCty(ref string, value cty.Value, ty cty.Type, target any) error {
	if value.IsNull() {
		return fmt.Errorf("%s is null", ref)
	}
	v, err := ctyconvert.Convert(value, ty)
	if err != nil {
		return fmt.Errorf("%s should be %s, %w", ref, ty.FriendlyName(), err)
	}
	if err := gocty.FromCtyValue(v, target); err != nil {
		return fmt.Errorf("%s: %w", ref, err)
	}
	return nil
}
