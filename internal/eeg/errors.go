package eeg

import "fmt"

// The pipeline error taxonomy. Any of these aborts the current session
// only; the batch driver logs the failure and moves to the next session.

// FormatError reports malformed input: a channel/column count mismatch or
// a sample column where only some channels are invalid.
type FormatError struct {
	Op  string
	Msg string
}

func (e *FormatError) Error() string { return fmt.Sprintf("format error (%s): %s", e.Op, e.Msg) }

// DataQualityError reports data that cannot be processed further, such as
// every channel being flagged bad so interpolation has no source signal.
type DataQualityError struct {
	Msg string
}

func (e *DataQualityError) Error() string { return "data quality error: " + e.Msg }

// NumericalError reports a numerical failure: decomposition
// non-convergence or a rank computation that did not succeed.
type NumericalError struct {
	Op  string
	Err error
	Msg string
}

func (e *NumericalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("numerical error (%s): %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("numerical error (%s): %s", e.Op, e.Msg)
}

func (e *NumericalError) Unwrap() error { return e.Err }

// MissingInputError reports a review collaborator that failed to answer.
// Callers that can proceed unattended should treat the absence of review
// data as an empty list instead of surfacing this error.
type MissingInputError struct {
	SessionID string
	Input     string
	Err       error
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing %s input for session %s: %v", e.Input, e.SessionID, e.Err)
}

func (e *MissingInputError) Unwrap() error { return e.Err }
