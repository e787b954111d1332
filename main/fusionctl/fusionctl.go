package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/machbase/neo-fusion/mods"
	"github.com/machbase/neo-fusion/mods/fusion/config"
	"github.com/machbase/neo-fusion/mods/fusion/state"
	"github.com/machbase/neo-fusion/mods/fusion/telemetry"
	"github.com/machbase/neo-fusion/mods/logging"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

func main() {
	cobra.CheckErr(NewCmd().ExecuteContext(context.Background()))
}

func NewCmd() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "fusionctl [command] [flags] [args]",
		Short:         "fusionctl inspects multi-sensor fusion filter configurations",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "`<path>` to the filter configuration (.hcl, .yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "`<level>` overrides the configured log level")

	layoutCmd := &cobra.Command{
		Use:   "layout [flags]",
		Short: "Print the state variables and their offsets",
		RunE:  doLayout,
	}
	layoutCmd.Flags().StringP("format", "f", "box", "`<format>` box, csv or markdown")
	layoutCmd.Flags().String("box-style", "light", "`<style>` default, bold, double, light or round")

	resetCmd := &cobra.Command{
		Use:   "reset [flags]",
		Short: "Print the reset state as JSON",
		RunE:  doReset,
	}

	correctCmd := &cobra.Command{
		Use:   "correct [flags] <dx>...",
		Short: "Apply an error-state correction to the reset state",
		RunE:  doCorrect,
	}
	correctCmd.Args = cobra.MinimumNArgs(1)
	correctCmd.Flags().Float64P("time", "t", state.Unset, "`<seconds>` timestamp of the estimate")

	publishCmd := &cobra.Command{
		Use:   "publish [flags] [dx...]",
		Short: "Publish the reset state, corrected by dx, to the telemetry broker",
		RunE:  doPublish,
	}
	publishCmd.Flags().String("broker", "", "`<url>` overrides the configured broker")
	publishCmd.Flags().String("topic", "", "`<topic>` overrides the configured topic")
	publishCmd.Flags().Float64P("time", "t", 0, "`<seconds>` timestamp of the estimate, now if zero")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "fusionctl", mods.VersionString(), mods.BuildCompiler())
		},
	}

	rootCmd.AddCommand(
		versionCmd,
		layoutCmd,
		resetCmd,
		correctCmd,
		publishCmd,
	)
	return rootCmd
}

func loadFilter(cmd *cobra.Command) (*config.Filter, *config.Bundle, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}
	if path == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	f, err := config.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	logConf := logging.PresetConfigDiscard
	if f.Logging != nil {
		logConf = *f.Logging
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		logConf.DefaultLevel = lvl
	}
	if err := logging.Configure(&logConf); err != nil {
		return nil, nil, err
	}
	b, err := f.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, b, nil
}

func doLayout(cmd *cobra.Command, args []string) error {
	_, b, err := loadFilter(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	boxStyle, _ := cmd.Flags().GetString("box-style")

	w := table.NewWriter()
	w.SetOutputMirror(cmd.OutOrStdout())
	style := table.StyleDefault
	switch boxStyle {
	case "bold":
		style = table.StyleBold
	case "double":
		style = table.StyleDouble
	case "light":
		style = table.StyleLight
	case "round":
		style = table.StyleRounded
	}
	w.SetStyle(style)
	w.SetTitle(b.Name)
	w.AppendHeader(table.Row{"#", "NAME", "TYPE", "KIND", "FULL", "ERROR", "FULL OFFSET", "ERROR OFFSET"})
	for _, v := range b.Layout.Vars() {
		w.AppendRow(table.Row{v.Index, v.Name, v.Type, v.Kind.String(), v.FullDim, v.ErrorDim, v.FullOffset, v.ErrorOffset})
	}
	d := b.Layout.Dims()
	w.AppendFooter(table.Row{"", "", "", "", d.Full, d.Error, "", ""})

	switch format {
	case "csv":
		w.RenderCSV()
	case "markdown", "md":
		w.RenderMarkdown()
	case "box":
		w.Render()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}

type varDump struct {
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Kind       string    `json:"kind"`
	Value      []float64 `json:"value"`
	ResetValue bool      `json:"resetValue"`
}

type stateDump struct {
	Filter string    `json:"filter"`
	Time   float64   `json:"time"`
	Vars   []varDump `json:"vars"`
	PDiag  []float64 `json:"pDiag"`
}

func dump(w io.Writer, name string, s *state.State) error {
	l := s.Layout()
	full := s.AppendValues(nil, nil)
	ret := stateDump{Filter: name, Time: s.Time}
	for _, v := range l.Vars() {
		ret.Vars = append(ret.Vars, varDump{
			Name:       v.Name,
			Type:       v.Type,
			Kind:       v.Kind.String(),
			Value:      full[v.FullOffset : v.FullOffset+v.FullDim],
			ResetValue: s.HasResetValue(v.Index),
		})
	}
	n := l.Dims().Error
	ret.PDiag = make([]float64, n)
	for i := range n {
		ret.PDiag[i] = s.P.At(i, i)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ret)
}

func doReset(cmd *cobra.Command, args []string) error {
	_, b, err := loadFilter(cmd)
	if err != nil {
		return err
	}
	return dump(cmd.OutOrStdout(), b.Name, b.NewState())
}

func doCorrect(cmd *cobra.Command, args []string) error {
	_, b, err := loadFilter(cmd)
	if err != nil {
		return err
	}
	s := b.NewState()
	if err := correct(s, args); err != nil {
		return err
	}
	s.Time, _ = cmd.Flags().GetFloat64("time")
	return dump(cmd.OutOrStdout(), b.Name, s)
}

func doPublish(cmd *cobra.Command, args []string) error {
	f, b, err := loadFilter(cmd)
	if err != nil {
		return err
	}
	conf := telemetry.Config{}
	if f.Telemetry != nil {
		conf = *f.Telemetry
	}
	if broker, _ := cmd.Flags().GetString("broker"); broker != "" {
		conf.Broker = broker
	}
	if topic, _ := cmd.Flags().GetString("topic"); topic != "" {
		conf.Topic = topic
	}
	src, err := telemetry.NewSource(b.Name, b.Layout)
	if err != nil {
		return err
	}
	s := b.NewState()
	if len(args) > 0 {
		if err := correct(s, args); err != nil {
			return err
		}
	}
	if s.Time, _ = cmd.Flags().GetFloat64("time"); s.Time == 0 {
		s.Time = float64(time.Now().UnixNano()) / 1e9
	}

	pub, err := telemetry.NewPublisher(conf)
	if err != nil {
		return err
	}
	defer pub.Close()
	ctx := cmd.Context()
	if err := pub.Connect(ctx); err != nil {
		return err
	}
	if err := pub.Publish(ctx, src.Record(s)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published %s t=%.6f\n", conf.Topic, s.Time)
	return nil
}

// correct parses dx, given as separate arguments or comma separated,
// and applies it to s.
func correct(s *state.State, args []string) error {
	dx := []float64{}
	for _, arg := range args {
		for _, f := range strings.Split(arg, ",") {
			if f = strings.TrimSpace(f); f == "" {
				continue
			}
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return fmt.Errorf("correction %q is not a number", f)
			}
			dx = append(dx, v)
		}
	}
	if n := s.Layout().Dims().Error; len(dx) != n {
		return fmt.Errorf("correction has %d entries, error state is %d", len(dx), n)
	}
	s.Correct(mat.NewVecDense(len(dx), dx))
	return nil
}
