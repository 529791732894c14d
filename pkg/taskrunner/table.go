package taskrunner

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/tyemirov/buildgraph/internal/taskgraph"
)

const (
	columnGapConstant        = "  "
	triggeredMarkerConstant  = " (triggered)"
	headerTaskConstant       = "TASK"
	headerOutcomeConstant    = "OUTCOME"
	headerDurationConstant   = "DURATION"
	headerDetailConstant     = "DETAIL"
	separatorCharacterString = "-"
)

// ResultTable renders run results as an aligned table.
type ResultTable struct {
	colorEnabled bool
}

// NewResultTable returns a table renderer; colors are applied only when colorEnabled is set.
func NewResultTable(colorEnabled bool) ResultTable {
	return ResultTable{colorEnabled: colorEnabled}
}

// Render writes one row per result.
func (table ResultTable) Render(writer io.Writer, report taskgraph.RunReport) {
	headers := []string{headerTaskConstant, headerOutcomeConstant, headerDurationConstant, headerDetailConstant}
	rows := make([][]string, 0, len(report.Results))
	for _, result := range report.Results {
		name := result.TaskName
		if result.Triggered {
			name += triggeredMarkerConstant
		}
		rows = append(rows, []string{name, string(result.Outcome), result.Duration.Round(time.Millisecond).String(), detailOf(result)})
	}

	widths := make([]int, len(headers))
	for index, header := range headers {
		widths[index] = len(header)
	}
	for _, row := range rows {
		for index, cell := range row {
			if len(cell) > widths[index] {
				widths[index] = len(cell)
			}
		}
	}

	headerColor := table.paint(color.FgCyan, color.Bold)
	for index, header := range headers {
		headerColor.Fprintf(writer, "%-*s%s", widths[index], header, columnGapConstant)
	}
	fmt.Fprintln(writer)
	for index := range headers {
		fmt.Fprint(writer, strings.Repeat(separatorCharacterString, widths[index])+columnGapConstant)
	}
	fmt.Fprintln(writer)

	for rowIndex, row := range rows {
		outcomeColor := table.outcomeColor(report.Results[rowIndex].Outcome)
		for index, cell := range row {
			if index == 1 {
				outcomeColor.Fprintf(writer, "%-*s%s", widths[index], cell, columnGapConstant)
				continue
			}
			fmt.Fprintf(writer, "%-*s%s", widths[index], cell, columnGapConstant)
		}
		fmt.Fprintln(writer)
	}
}

func (table ResultTable) outcomeColor(outcome taskgraph.Outcome) *color.Color {
	switch outcome {
	case taskgraph.OutcomeSucceeded:
		return table.paint(color.FgGreen)
	case taskgraph.OutcomeSkipped:
		return table.paint(color.FgYellow)
	default:
		return table.paint(color.FgRed, color.Bold)
	}
}

func (table ResultTable) paint(attributes ...color.Attribute) *color.Color {
	painter := color.New(attributes...)
	if table.colorEnabled {
		painter.EnableColor()
	} else {
		painter.DisableColor()
	}
	return painter
}

func detailOf(result taskgraph.RunResult) string {
	switch {
	case result.Err != nil:
		return result.Err.Error()
	case len(result.SkipReason) > 0:
		return result.SkipReason
	default:
		return ""
	}
}
