package s3pi

import "fmt"

// Stage names the pipeline step a failure came from, so the CLI can report
// which part of the run broke.
type Stage string

const (
	// StageConfiguration covers loading and validating the settings file.
	StageConfiguration Stage = "configuration"
	// StageScan covers the local distribution directory scan.
	StageScan Stage = "scan"
	// StageIndex covers index page generation and object materialization.
	StageIndex Stage = "index"
	// StageSync covers reconciliation against the object store.
	StageSync Stage = "sync"
)

// StageError tags a component failure with the stage it occurred in.
//
// The original underlying error can be accessed via errors.Unwrap.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
