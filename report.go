package s3pi

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/Kazzer/s3pi/syncer"
)

// Report is the YAML document written with --report, intended for CI
// consumption.
type Report struct {
	RunID    string         `yaml:"run_id"`
	Bucket   string         `yaml:"bucket"`
	Prefix   string         `yaml:"prefix"`
	DryRun   bool           `yaml:"dry_run"`
	Created  int            `yaml:"created"`
	Updated  int            `yaml:"updated"`
	Skipped  int            `yaml:"skipped"`
	Bytes    int64          `yaml:"bytes"`
	Duration string         `yaml:"duration"`
	Objects  []ReportObject `yaml:"objects"`
}

// ReportObject is one synchronized key in the report.
type ReportObject struct {
	Key      string `yaml:"key"`
	Action   string `yaml:"action"`
	Attempts int    `yaml:"attempts,omitempty"`
}

// NewReport builds a Report from a run summary.
func NewReport(runID, bucket, prefix string, summary *syncer.Summary) *Report {
	r := &Report{
		RunID:    runID,
		Bucket:   bucket,
		Prefix:   prefix,
		DryRun:   summary.DryRun,
		Created:  summary.Created,
		Updated:  summary.Updated,
		Skipped:  summary.Skipped,
		Bytes:    summary.Bytes,
		Duration: summary.Duration.Round(time.Millisecond).String(),
	}
	for _, o := range summary.Outcomes {
		r.Objects = append(r.Objects, ReportObject{
			Key:      o.Key,
			Action:   string(o.Action),
			Attempts: o.Attempts,
		})
	}
	return r
}

// WriteReport marshals the report to YAML at path.
func WriteReport(path string, report *Report) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
