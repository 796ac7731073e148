// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldSessionID = "session_id"
	FieldProblemID = "problem_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldMethod    = "method"
	FieldSolver    = "solver"
	FieldTarget    = "target"

	// Path fields
	FieldPath = "path"
)
