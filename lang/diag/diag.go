// Package diag implements the error/warning plumbing shared by the
// scanner, preprocessor and parser (spec.md §7). It layers severities and
// a collect-or-escape policy on top of the standard library's
// go/scanner.Error/ErrorList, exactly as the teacher lineage aliases
// go/scanner for its own diagnostics (lang/scanner/scanner.go).
package diag

import (
	"fmt"
	"go/scanner"
	"go/token"
	"sort"
)

// Severity classifies a diagnostic per spec.md §7's taxonomy.
type Severity uint8

const (
	Warning Severity = iota
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Fatal:
		return "fatal error"
	default:
		return "error"
	}
}

// Diagnostic is a single message with severity, grounded on
// go/scanner.Error's {Pos, Msg} shape.
type Diagnostic struct {
	Pos      token.Position
	Severity Severity
	Msg      string
}

func (d Diagnostic) String() string {
	if d.Pos.Filename == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Msg)
}

// escape is the sentinel panic value used to unwind to the session's public
// API boundary when error collection is disabled, or the collected-error
// bound (max_errors) is exceeded, per spec.md §5 and §9 ("errors as long
// jumps... a scoped escape handle"). It is never allowed to leave the
// package boundary as a panic value: session callers recover it via
// Escape.Recover and translate it into a plain error.
type escape struct{ err error }

// Escape is the structured non-local exit handle for a single session. Per
// spec.md §5, taking the escape must still let the arena and open files be
// released normally — in Go that simply means letting the stack unwind via
// panic/recover, which runs deferred Close()s along the way.
type Escape struct{}

// Take performs the non-local exit with err as the resulting failure.
func (Escape) Take(err error) { panic(escape{err}) }

// Recover must be deferred at the outermost call of any public Session
// method that can reach a collection bound or a disabled-collection error.
// On a matching panic it sets *errp to the escape's error and suppresses
// the panic; any other panic value is re-thrown.
func (Escape) Recover(errp *error) {
	if r := recover(); r != nil {
		if e, ok := r.(escape); ok {
			*errp = e.err
			return
		}
		panic(r)
	}
}

// List accumulates diagnostics for a session, mirroring go/scanner.ErrorList
// in shape (Add, Sort, Err) but carrying severities and the collect/escape
// policy of spec.md §5 (max_errors, bound = 20 by default) and §7
// (warnings-as-errors).
type List struct {
	Diagnostics []Diagnostic

	// Collect enables error collection; when false, the first Error or Fatal
	// diagnostic takes the Escape immediately, per spec.md §5.
	Collect bool
	// MaxErrors bounds the number of Error/Fatal diagnostics collected before
	// the Escape is taken even in collect mode. Zero means "use the spec
	// default of 20"; a negative value means unbounded.
	MaxErrors int
	// WarnAsError promotes Warning diagnostics to Error severity on Add.
	WarnAsError bool

	escape    Escape
	errCount  int
	warnCount int
}

// DefaultMaxErrors is spec.md §5's default bound.
const DefaultMaxErrors = 20

func (l *List) maxErrors() int {
	if l.MaxErrors == 0 {
		return DefaultMaxErrors
	}
	return l.MaxErrors
}

// Add records a diagnostic. It may take the Escape (panic) if collection is
// disabled, or if the collected-error bound has just been exceeded.
func (l *List) Add(pos token.Position, sev Severity, format string, args ...any) {
	if sev == Warning && l.WarnAsError {
		sev = Error
	}
	d := Diagnostic{Pos: pos, Severity: sev, Msg: fmt.Sprintf(format, args...)}

	if sev == Warning {
		l.warnCount++
		l.Diagnostics = append(l.Diagnostics, d)
		return
	}

	if !l.Collect {
		l.escape.Take(fmt.Errorf("%s", d))
	}

	l.errCount++
	l.Diagnostics = append(l.Diagnostics, d)

	if max := l.maxErrors(); max >= 0 && l.errCount > max {
		l.escape.Take(fmt.Errorf("too many errors (> %d), aborting: %s", max, d))
	}
}

// ErrorCount and WarningCount introspect the accumulated list per spec.md
// §6.
func (l *List) ErrorCount() int   { return l.errCount }
func (l *List) WarningCount() int { return l.warnCount }
func (l *List) HasErrors() bool   { return l.errCount > 0 }

// Sort orders diagnostics by file then line, per spec.md §7.
func (l *List) Sort() {
	sort.SliceStable(l.Diagnostics, func(i, j int) bool {
		a, b := l.Diagnostics[i].Pos, l.Diagnostics[j].Pos
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}

// Err returns a combined error for all Error/Fatal diagnostics, or nil if
// there are none. The returned error is a go/scanner.ErrorList whose
// entries each use the "file:line:col: severity: message" form; its Error()
// text is the first entry followed by a count of the remaining ones.
func (l *List) Err() error {
	if l.errCount == 0 {
		return nil
	}
	var el scanner.ErrorList
	for _, d := range l.Diagnostics {
		if d.Severity == Warning {
			continue
		}
		el.Add(d.Pos, fmt.Sprintf("%s: %s", d.Severity, d.Msg))
	}
	return el.Err()
}

// Clear empties the list and resets counters, per spec.md §6
// clear_errors.
func (l *List) Clear() {
	l.Diagnostics = nil
	l.errCount = 0
	l.warnCount = 0
}
