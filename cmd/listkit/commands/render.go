package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/listkit/pkg/listupdate"
	"github.com/Sumatoshi-tech/listkit/pkg/snapshot"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

const outputIndent = 2

// ErrUnknownOutputFormat is returned for a --format outside table, json, yaml.
var ErrUnknownOutputFormat = errors.New("unknown output format")

type renderOptions struct {
	format   string
	colorize bool
	noColor  bool
}

func (r *renderOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&r.format, "format", "f", FormatTable, "output format: table, json or yaml")
	cmd.Flags().BoolVar(&r.colorize, "color", false, "force colored output")
	cmd.Flags().BoolVar(&r.noColor, "no-color", false, "disable colored output")
}

func (r *renderOptions) applyColor() {
	if r.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	} else if r.colorize {
		color.NoColor = false //nolint:reassign // intentional override of library global
	}
}

var kindColors = map[listupdate.Kind]*color.Color{
	listupdate.KindInsert: color.New(color.FgGreen),
	listupdate.KindRemove: color.New(color.FgRed),
	listupdate.KindMove:   color.New(color.FgYellow),
	listupdate.KindChange: color.New(color.FgCyan),
}

func renderReport(out io.Writer, report snapshot.Report, opts renderOptions) error {
	switch opts.format {
	case FormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")

		return encoder.Encode(report)
	case FormatYAML:
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(outputIndent)

		err := encoder.Encode(report)
		if err != nil {
			return fmt.Errorf("yaml encode: %w", err)
		}

		return encoder.Close()
	case FormatTable:
		opts.applyColor()

		_, err := fmt.Fprintln(out, reportTable(report))

		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutputFormat, opts.format)
	}
}

func reportTable(report snapshot.Report) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Format.Footer = text.FormatDefault

	tbl.AppendHeader(table.Row{"#", "Op", "Position", "Count", "To", "Payload"})

	for idx, op := range report.Ops {
		to := ""
		if op.Kind == listupdate.KindMove {
			to = fmt.Sprint(op.To)
		}

		payload := ""
		if op.Payload != nil {
			payload = fmt.Sprint(op.Payload)
		}

		tbl.AppendRow(table.Row{idx + 1, kindColors[op.Kind].Sprint(op.Kind), op.Position, op.Count, to, payload})
	}

	summary := report.Summary
	tbl.AppendFooter(table.Row{
		"", "Total", fmt.Sprintf("%s -> %s items", humanize.Comma(int64(report.OldSize)), humanize.Comma(int64(report.NewSize))),
		fmt.Sprintf("+%d -%d ~%d >%d", summary.Inserted, summary.Removed, summary.Changed, summary.Moved),
		"", "",
	})

	return tbl.Render()
}
