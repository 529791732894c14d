package taskrunner

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tyemirov/buildgraph/internal/taskgraph"
)

const (
	reportDirectoryPermissionsConstant = 0o755
	reportFilePermissionsConstant      = 0o644
)

// ReportDocument is the on-disk form of a run report.
type ReportDocument struct {
	RunID      string         `yaml:"run_id"`
	Goal       string         `yaml:"goal"`
	StartedAt  string         `yaml:"started_at"`
	FinishedAt string         `yaml:"finished_at"`
	DurationMs int64          `yaml:"duration_ms"`
	Succeeded  bool           `yaml:"succeeded"`
	Tasks      []TaskDocument `yaml:"tasks"`
}

// TaskDocument is the on-disk form of one task result.
type TaskDocument struct {
	Name        string `yaml:"name"`
	Outcome     string `yaml:"outcome"`
	DurationMs  int64  `yaml:"duration_ms"`
	SkipReason  string `yaml:"skip_reason,omitempty"`
	Error       string `yaml:"error,omitempty"`
	Triggered   bool   `yaml:"triggered,omitempty"`
	TriggeredBy string `yaml:"triggered_by,omitempty"`
}

// NewReportDocument converts a run report into its serializable form.
func NewReportDocument(report taskgraph.RunReport) ReportDocument {
	document := ReportDocument{
		RunID:      report.RunID,
		Goal:       report.Goal,
		StartedAt:  report.StartTime.UTC().Format(time.RFC3339Nano),
		FinishedAt: report.EndTime.UTC().Format(time.RFC3339Nano),
		DurationMs: report.Duration.Milliseconds(),
		Succeeded:  report.Succeeded(),
		Tasks:      make([]TaskDocument, 0, len(report.Results)),
	}
	for _, result := range report.Results {
		taskDocument := TaskDocument{
			Name:        result.TaskName,
			Outcome:     string(result.Outcome),
			DurationMs:  result.Duration.Milliseconds(),
			SkipReason:  result.SkipReason,
			Triggered:   result.Triggered,
			TriggeredBy: result.TriggeredBy,
		}
		if result.Err != nil {
			taskDocument.Error = result.Err.Error()
		}
		document.Tasks = append(document.Tasks, taskDocument)
	}
	return document
}

// WriteReport stores report as YAML at path, creating parent directories.
func WriteReport(path string, report taskgraph.RunReport) error {
	encoded, encodeError := yaml.Marshal(NewReportDocument(report))
	if encodeError != nil {
		return fmt.Errorf("encode run report: %w", encodeError)
	}
	if mkdirError := os.MkdirAll(filepath.Dir(path), reportDirectoryPermissionsConstant); mkdirError != nil {
		return fmt.Errorf("create report directory: %w", mkdirError)
	}
	if writeError := os.WriteFile(path, encoded, reportFilePermissionsConstant); writeError != nil {
		return fmt.Errorf("write run report: %w", writeError)
	}
	return nil
}
