package taskrunner

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/buildgraph/internal/buildcontext"
	"github.com/tyemirov/buildgraph/internal/taskgraph"
)

// Executor runs a goal against an execution context.
type Executor interface {
	Execute(ctx context.Context, goal string, executionContext buildcontext.ExecutionContext) (taskgraph.RunReport, error)
}

// SummaryOptions controls what is printed and persisted after a run.
type SummaryOptions struct {
	Output         io.Writer
	Errors         io.Writer
	DisableSummary bool
	ColorEnabled   bool
	ReportPath     string
	Logger         *zap.Logger
}

// Resolve wraps executor so runs end with a printed summary and an optional report file.
func Resolve(executor Executor, options SummaryOptions) Executor {
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	return summaryExecutor{delegate: executor, options: options}
}

type summaryExecutor struct {
	delegate Executor
	options  SummaryOptions
}

func (executor summaryExecutor) Execute(ctx context.Context, goal string, executionContext buildcontext.ExecutionContext) (taskgraph.RunReport, error) {
	report, runError := executor.delegate.Execute(ctx, goal, executionContext)
	executor.printSummary(report)

	if reportPath := strings.TrimSpace(executor.options.ReportPath); len(reportPath) > 0 {
		if writeError := WriteReport(reportPath, report); writeError != nil {
			executor.options.Logger.Error("run report not written", zap.String("path", reportPath), zap.Error(writeError))
			if runError == nil {
				runError = writeError
			}
		} else {
			executor.options.Logger.Info("run report written", zap.String("path", reportPath))
		}
	}
	return report, runError
}

func (executor summaryExecutor) printSummary(report taskgraph.RunReport) {
	if executor.options.DisableSummary || len(report.Results) == 0 {
		return
	}
	writer := executor.summaryWriter()
	if writer == nil {
		return
	}

	NewResultTable(executor.options.ColorEnabled).Render(writer, report)
	fmt.Fprintln(writer, RenderSummaryLine(report))
}

func (executor summaryExecutor) summaryWriter() io.Writer {
	if executor.options.Errors != nil {
		return executor.options.Errors
	}
	if executor.options.Output != nil {
		return executor.options.Output
	}
	return nil
}
