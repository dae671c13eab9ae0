package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// FatalKind names the class of condition that aborts a whole run.
type FatalKind string

const (
	FatalTaxonomy FatalKind = "taxonomy"
	FatalStore    FatalKind = "store_unreachable"
	FatalConfig   FatalKind = "config"
	FatalLock     FatalKind = "lock"
)

// FatalError aborts a run. Every later decision depends on the state that failed to build.
type FatalError struct {
	Kind    FatalKind
	Message string
	Cause   error
}

func NewFatalError(kind FatalKind, cause error, msg string) *FatalError {
	return &FatalError{Kind: kind, Message: msg, Cause: cause}
}

func NewFatalErrorf(kind FatalKind, cause error, format string, args ...any) *FatalError {
	return NewFatalError(kind, cause, fmt.Sprintf(format, args...))
}

func (e *FatalError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("fatal %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("fatal %s: %s: %v", e.Kind, e.Message, e.Cause)
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}

func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// AsFatal returns the FatalError in err's chain, if any.
func AsFatal(err error) (*FatalError, bool) {
	var fatal *FatalError
	ok := errors.As(err, &fatal)
	return fatal, ok
}

// Stage is the pipeline step a per-record failure happened in.
type Stage string

const (
	StageDecode    Stage = "decode"
	StageNormalize Stage = "normalize"
	StageCategory  Stage = "category"
	StageLookup    Stage = "lookup"
	StageMatch     Stage = "match"
	StageWrite     Stage = "write"
	StageAck       Stage = "ack"
)

// RecordError is a failure scoped to one record. It is counted and logged, never aborts a run.
type RecordError struct {
	SourceID string
	Stage    Stage
	Cause    error
}

func NewRecordError(sourceID string, stage Stage, cause error) *RecordError {
	return &RecordError{SourceID: sourceID, Stage: stage, Cause: cause}
}

func (e *RecordError) Error() string {
	if e.SourceID == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("record '%s' -> %s: %v", e.SourceID, e.Stage, e.Cause)
}

func (e *RecordError) Unwrap() error {
	return e.Cause
}

func IsRecordError(err error) bool {
	var rec *RecordError
	return errors.As(err, &rec)
}

func (e *RecordError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusUnprocessableEntity, e.Error()).
		AddMetaValue("source_id", e.SourceID).
		AddMetaValue("stage", string(e.Stage))
}
