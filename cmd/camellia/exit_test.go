package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	perrors "github.com/Ramsey-B/camellia/pkg/errors"
	"github.com/Ramsey-B/camellia/pkg/report"
)

func TestRunResult(t *testing.T) {
	clean := report.NewStats("r", "ingest", report.ModeLive)

	withErrors := report.NewStats("r", "ingest", report.ModeLive)
	withErrors.RecordError(string(perrors.StageWrite))

	fatal := perrors.NewFatalError(perrors.FatalTaxonomy, nil, "taxonomy is empty")

	tests := []struct {
		name         string
		stats        *report.Stats
		err          error
		failOnErrors bool
		code         int
	}{
		{name: "clean run", stats: clean, code: exitOK},
		{name: "record errors are tolerated by default", stats: withErrors, code: exitOK},
		{name: "record errors fail when asked", stats: withErrors, failOnErrors: true, code: exitRecordErrors},
		{name: "fatal error", stats: fatalStats("r", "ingest", report.ModeLive, fatal), err: fatal, code: exitFatal},
		{name: "fatal stats without error", stats: fatalStats("r", "ingest", report.ModeLive, fatal), code: exitFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, exitCodeOf(runResult(tt.stats, tt.err, tt.failOnErrors)))
		})
	}
}

func TestExitCodeOf(t *testing.T) {
	assert.Equal(t, exitOK, exitCodeOf(nil))
	assert.Equal(t, exitFatal, exitCodeOf(fmt.Errorf("unknown flag: --nope")))
	assert.Equal(t, exitRecordErrors, exitCodeOf(fmt.Errorf("wrapped: %w", &exitError{code: exitRecordErrors})))
}

func TestFatalStats(t *testing.T) {
	stats := fatalStats("r-1", "promote", report.ModeLive, perrors.NewFatalError(perrors.FatalLock, nil, "lock held"))
	assert.Equal(t, report.StopFatal, stats.Stopped)
	assert.Contains(t, stats.Fatal, "lock")
	assert.False(t, stats.Succeeded())
}
