package main

import (
	"errors"

	perrors "github.com/Ramsey-B/camellia/pkg/errors"
	"github.com/Ramsey-B/camellia/pkg/report"
)

const (
	exitOK           = 0
	exitRecordErrors = 1
	exitFatal        = 2
)

// exitError carries the process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return "run finished with per-record errors"
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func exitCodeOf(err error) int {
	if err == nil {
		return exitOK
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return exitFatal
}

// runResult turns a finished run into the command error. Fatal conditions always fail the
// process; per-record errors only with failOnErrors.
func runResult(stats *report.Stats, err error, failOnErrors bool) error {
	if err != nil {
		return &exitError{code: exitFatal, err: err}
	}
	if stats != nil && stats.Fatal != "" {
		return &exitError{code: exitFatal, err: errors.New(stats.Fatal)}
	}
	if failOnErrors && stats != nil && stats.Errored > 0 {
		return &exitError{code: exitRecordErrors}
	}
	return nil
}

// fatalStats is the report of a run that could not start.
func fatalStats(runID, command string, mode report.Mode, fatal *perrors.FatalError) *report.Stats {
	stats := report.NewStats(runID, command, mode)
	stats.Fatal = fatal.Error()
	stats.Finish(report.StopFatal)
	return stats
}
