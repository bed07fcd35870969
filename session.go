// Package cfront is the library entry point for the C11/C23 preprocessor
// and parser front end described by spec.md §6: a Session accumulates
// include paths and command-line macro definitions, then drives the
// scanner/preprocessor/parser pipeline over one or more translation units,
// collecting diagnostics as it goes.
//
// Grounded on the teacher's internal/maincmd.Cmd as the shape of "one
// struct that owns process-wide configuration and exposes it as methods",
// adapted from a CLI-argument holder into a reusable library object that
// the CLI (internal/maincmd) is itself built on top of.
package cfront

import (
	"fmt"
	"io"
	"os"

	"github.com/mna/cfront/lang/ast"
	"github.com/mna/cfront/lang/cpp"
	"github.com/mna/cfront/lang/diag"
	"github.com/mna/cfront/lang/parser"
	"github.com/mna/cfront/lang/scanner"
	"github.com/mna/cfront/lang/source"
	"github.com/mna/cfront/lang/stdlib"
	tok "github.com/mna/cfront/lang/token"
)

// macroDef is a recorded -D/-U, replayed in order against a fresh
// cpp.Preprocessor on every Preprocess call, since cpp.Options has no
// runtime setters (spec.md §6: include paths and defines are read once at
// preprocessor construction).
type macroDef struct {
	name    string
	body    string
	isUndef bool
}

// Session is the library-level equivalent of a single invocation of the
// cfront tool: it owns the accumulated configuration (include paths,
// command-line macros, error-collection policy) and the source.Set and
// diag.List shared by every file it processes, per spec.md §5's "a
// session owns one arena, one diagnostic sink."
type Session struct {
	Set  *source.Set
	Errs *diag.List

	userPaths   []string
	systemPaths []string
	macros      []macroDef

	useEmbeddedStdlib bool
	embedLimit        int64
	embedHardLimit    bool
}

// New creates a Session with an empty source.Set and a diag.List in
// collect mode (spec.md §5's default), embedded-stdlib lookup enabled by
// default per spec.md §6.
func New() *Session {
	return &Session{
		Set:               source.NewSet(),
		Errs:              &diag.List{Collect: true},
		useEmbeddedStdlib: true,
	}
}

// Destroy releases the session's accumulated state, per spec.md §5's
// arena-release discipline (in Go, simply drop the references and let the
// garbage collector reclaim them).
func (s *Session) Destroy() {
	s.Set = nil
	s.Errs = nil
	s.userPaths = nil
	s.systemPaths = nil
	s.macros = nil
}

// AddUserInclude registers a -I search directory, consulted before system
// paths for quoted includes, per spec.md §4.4.
func (s *Session) AddUserInclude(path string) { s.userPaths = append(s.userPaths, path) }

// AddSystemInclude registers a --isystem search directory, per spec.md
// §4.4.
func (s *Session) AddSystemInclude(path string) { s.systemPaths = append(s.systemPaths, path) }

// Define records a -D name[=body] command-line macro, replayed against
// every translation unit this session preprocesses.
func (s *Session) Define(name, body string) {
	s.macros = append(s.macros, macroDef{name: name, body: body})
}

// Undef records a -U name command-line undefinition, replayed in the
// order given relative to any Define calls, per spec.md §6.
func (s *Session) Undef(name string) {
	s.macros = append(s.macros, macroDef{name: name, isUndef: true})
}

// SetEmbedLimit configures #embed's soft size cap and whether exceeding it
// is a hard error, per the --embed-limit/--embed-hard-limit CLI flags
// (spec.md §6).
func (s *Session) SetEmbedLimit(limit int64, hard bool) {
	s.embedLimit = limit
	s.embedHardLimit = hard
}

// SetUseEmbeddedStdlib toggles whether angle-includes fall back to
// lang/stdlib's bundled headers, per spec.md §6 "Embedded stdlib" (on by
// default; -X/--no-preprocess style tools may want it off).
func (s *Session) SetUseEmbeddedStdlib(use bool) { s.useEmbeddedStdlib = use }

// EnableCollectErrors toggles error-collection mode: when false, the
// first error or fatal diagnostic aborts the current call immediately
// (spec.md §5's default when collection is not explicitly requested).
func (s *Session) EnableCollectErrors(collect bool) { s.Errs.Collect = collect }

// SetMaxErrors sets the collected-error bound before the escape is taken
// even in collect mode, per spec.md §5's max_errors (0 = spec default of
// 20, negative = unbounded).
func (s *Session) SetMaxErrors(n int) { s.Errs.MaxErrors = n }

// SetWarningsAsErrors implements --Werror (spec.md §6).
func (s *Session) SetWarningsAsErrors(werror bool) { s.Errs.WarnAsError = werror }

// HasErrors, ErrorCount, WarningCount and ClearErrors delegate directly to
// the session's diag.List, per spec.md §6's introspection API.
func (s *Session) HasErrors() bool   { return s.Errs.HasErrors() }
func (s *Session) ErrorCount() int   { return s.Errs.ErrorCount() }
func (s *Session) WarningCount() int { return s.Errs.WarningCount() }
func (s *Session) ClearErrors()      { s.Errs.Clear() }

// PrintAllErrors writes every collected diagnostic to w, sorted by file
// then line, one per line in spec.md §7's format.
func (s *Session) PrintAllErrors(w io.Writer) {
	s.Errs.Sort()
	for _, d := range s.Errs.Diagnostics {
		fmt.Fprintln(w, d.String())
	}
}

func (s *Session) newPreprocessor() *cpp.Preprocessor {
	opts := cpp.Options{
		UserPaths:      s.userPaths,
		SystemPaths:    s.systemPaths,
		EmbedLimit:     s.embedLimit,
		EmbedHardLimit: s.embedHardLimit,
	}
	if s.useEmbeddedStdlib {
		opts.UseEmbeddedStdlib = true
		opts.LookupEmbedded = stdlib.Lookup
	}
	pp := cpp.New(s.Set, s.Errs, opts)
	for _, m := range s.macros {
		if m.isUndef {
			pp.Undef(m.name)
		} else {
			pp.Define(m.name, m.body)
		}
	}
	return pp
}

// PreprocessResult bundles a preprocessed translation unit's token stream
// with the *cpp.Preprocessor that produced it, since struct layout during
// Parse needs that instance's position-aware #pragma pack history
// (cpp.Preprocessor.PackAt), per spec.md §4.4's pack push/pop handling.
type PreprocessResult struct {
	Tokens *tok.Token
	pp     *cpp.Preprocessor
}

// Preprocess reads path from disk (spec.md §5: "file I/O is blocking,
// done at the session's public API boundary") and runs the full
// preprocessing pipeline over it, per spec.md §4.4. A "-" path reads from
// stdin instead, per the CLI's "-" convention (spec.md §6).
func (s *Session) Preprocess(path string) (res PreprocessResult, err error) {
	var esc diag.Escape
	defer esc.Recover(&err)

	contents, readErr := readSource(path)
	if readErr != nil {
		return PreprocessResult{}, readErr
	}

	f := source.AddFile(s.Set, path, contents)
	pp := s.newPreprocessor()
	toks := pp.Preprocess(f)
	return PreprocessResult{Tokens: toks, pp: pp}, nil
}

// Tokenize implements the CLI's -X/--no-preprocess: it scans and
// keyword-promotes path's tokens without running any preprocessor
// directive or macro expansion, per spec.md §6's "skip preprocessor".
func (s *Session) Tokenize(path string) (res PreprocessResult, err error) {
	var esc diag.Escape
	defer esc.Recover(&err)

	contents, readErr := readSource(path)
	if readErr != nil {
		return PreprocessResult{}, readErr
	}

	f := source.AddFile(s.Set, path, contents)
	raw := scanner.Tokenize(s.Set, f, s.Errs)
	toks := cpp.ConvertPPTokens(raw, s.Errs, s.Set)
	return PreprocessResult{Tokens: toks}, nil
}

// readSource reads path's contents, or stdin when path is "-", per
// spec.md §6's "-" convention.
func readSource(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// PreprocessSource is Preprocess's in-memory equivalent, used by tests and
// any caller that already has the translation unit's text (spec.md §6).
func (s *Session) PreprocessSource(name string, contents []byte) (res PreprocessResult, err error) {
	var esc diag.Escape
	defer esc.Recover(&err)

	f := source.AddFile(s.Set, name, contents)
	pp := s.newPreprocessor()
	toks := pp.Preprocess(f)
	return PreprocessResult{Tokens: toks, pp: pp}, nil
}

// Parse runs the recursive-descent parser over a preprocessed token
// stream, wiring the originating preprocessor's #pragma pack history into
// struct layout (spec.md §4.6).
func (s *Session) Parse(res PreprocessResult) (objs []*ast.Obj, err error) {
	var esc diag.Escape
	defer esc.Recover(&err)

	p := parser.New(s.Set, s.Errs, res.Tokens)
	if res.pp != nil {
		p.SetPackProvider(res.pp.PackAt)
	}
	return p.Parse(), nil
}

// Link implements spec.md §4.6's link_progs: merges the top-level Obj
// lists of every translation unit processed by this session into one
// program, resolving declaration/definition pairs and reporting
// redefinitions.
func (s *Session) Link(progLists ...[]*ast.Obj) (objs []*ast.Obj, err error) {
	var esc diag.Escape
	defer esc.Recover(&err)

	return parser.LinkProgs(s.Set, s.Errs, progLists...), nil
}

// PrintTokens writes a one-line-per-token debug listing of toks to w,
// per spec.md §6's -P/--print-tokens.
func (s *Session) PrintTokens(w io.Writer, toks *tok.Token) error {
	for t := toks; t != nil; t = t.Next {
		pos := s.Set.Position(t.Pos)
		if _, err := fmt.Fprintf(w, "%s\t%s\t%q\n", pos, t.Kind, t.Lit); err != nil {
			return err
		}
	}
	return nil
}

// PrintAST writes objs as an indented S-expression tree to w, per spec.md
// §6's -a/--ast.
func (s *Session) PrintAST(w io.Writer, objs []*ast.Obj) error {
	for _, o := range objs {
		if o.Body == nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s:\n", o.Name); err != nil {
			return err
		}
		for _, n := range o.Body {
			if err := ast.Print(w, n); err != nil {
				return err
			}
		}
	}
	return nil
}

// OutputJSON writes objs as JSON to w, per spec.md §6's -j/--json.
func (s *Session) OutputJSON(w io.Writer, objs []*ast.Obj) error {
	return ast.PrintJSON(w, objs)
}

// OutputPreprocessed re-emits toks with whitespace minimally restored, per
// spec.md §6's -E/--preprocess: a newline before a token that began a
// line, a single space before one that had leading whitespace, otherwise
// tokens are concatenated directly (reproducing macro-pasted spellings
// without reintroducing spaces the input never had).
func (s *Session) OutputPreprocessed(w io.Writer, toks *tok.Token) error {
	first := true
	for t := toks; t != nil && t.Kind != tok.EOF; t = t.Next {
		switch {
		case first:
			first = false
		case t.AtBOL:
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		case t.HasLeadingWS:
			if _, err := fmt.Fprint(w, " "); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprint(w, t.Lit); err != nil {
			return err
		}
	}
	if !first {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
