// Package diag provides the error taxonomy and colorized diagnostic
// reporting shared by every optimization pass. Its shape is ported from
// the teacher's internal/errors package (CompilerError/ErrorReporter built
// on github.com/fatih/color), adapted from source positions to IR
// locations (function name + optional block label) since this core has no
// source text to anchor against. Invariant violations are wrapped with
// github.com/pkg/errors so a failure carries a stack trace back to the
// pass that raised it.
package diag

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"tacopt/internal/ir"
)

// InvariantError reports a broken internal invariant — a bug in the
// optimizer itself, not a malformed input (e.g. the dominance fixed-point
// iteration cap was exceeded). It always carries a stack trace.
type InvariantError struct {
	Pass    string
	Message string
}

func NewInvariantError(pass, message string) error {
	return errors.WithStack(&InvariantError{Pass: pass, Message: message})
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated in %s: %s", e.Pass, e.Message)
}

// InputError reports IR that fails a structural precondition a pass
// requires of its caller (e.g. a dangling label reference). Unlike
// InvariantError this reflects bad input, not a bug in the pass itself.
// No pass in this module raises it; cfg.Build, for one, skips an edge
// whose label has no block.
type InputError struct {
	Function string
	Message  string
}

func NewInputError(fn *ir.Function, message string) error {
	name := "<nil>"
	if fn != nil {
		name = fn.Name
	}
	return errors.WithStack(&InputError{Function: name, Message: message})
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid IR in function %s: %s", e.Function, e.Message)
}

// Level is a diagnostic's severity.
type Level string

const (
	LevelError Level = "error"
	LevelWarn  Level = "warning"
	LevelNote  Level = "note"
)

// Diagnostic is one reportable event raised by a pass — a non-fatal
// finding (e.g. "skipped strength reduction: non-affine index") rather
// than a returned error.
type Diagnostic struct {
	Level    Level
	Pass     string
	Function string
	Block    ir.Label
	Message  string
}

// Reporter formats diagnostics with the same bold/dim/level-colored style
// as the teacher's ErrorReporter, substituting IR coordinates (pass,
// function, block) for the teacher's filename:line:column.
type Reporter struct {
	out *strings.Builder
}

func NewReporter() *Reporter { return &Reporter{out: &strings.Builder{}} }

func (r *Reporter) levelColor(l Level) func(a ...interface{}) string {
	switch l {
	case LevelError:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case LevelWarn:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	default:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	}
}

// Report formats d and appends it to the reporter's buffer, returning the
// formatted string as well for callers that want to print immediately.
func (r *Reporter) Report(d Diagnostic) string {
	dim := color.New(color.Faint).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()
	levelColor := r.levelColor(d.Level)

	loc := d.Function
	if d.Block != ir.LabelNone {
		loc = fmt.Sprintf("%s/%s", d.Function, d.Block.String())
	}

	line := fmt.Sprintf("%s%s %s %s: %s\n",
		levelColor(string(d.Level)), dim(":"), bold(d.Pass), dim("--> "+loc), d.Message)
	r.out.WriteString(line)
	return line
}

// String returns every diagnostic reported so far, in order.
func (r *Reporter) String() string { return r.out.String() }
