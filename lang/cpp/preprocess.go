package cpp

import (
	"go/token"
	"time"

	"github.com/dolthub/swiss"
	"github.com/mna/cfront/lang/diag"
	"github.com/mna/cfront/lang/scanner"
	"github.com/mna/cfront/lang/source"
	tok "github.com/mna/cfront/lang/token"
)

// Options configures a Preprocessor, per spec.md §6's library API
// (add_user_include, add_system_include) and §4.4 (#embed limits).
type Options struct {
	UserPaths   []string
	SystemPaths []string

	// UseEmbeddedStdlib resolves angle-include names against lang/stdlib's
	// bundled header set before falling back to SystemPaths, per spec.md
	// §6 "Embedded stdlib".
	UseEmbeddedStdlib bool
	LookupEmbedded    func(name string) ([]byte, bool)

	// EmbedLimit is the soft size cap for #embed (bytes); zero means no
	// cap. EmbedHardLimit turns exceeding it into an error instead of a
	// warning, per spec.md §4.4 and the CLI's --embed-limit/--embed-hard-
	// limit flags (spec.md §6).
	EmbedLimit     int64
	EmbedHardLimit bool
}

// includeKey keys the include cache by (resolved filename, is_system): a
// file included again reuses its *source.File instead of being added to the
// set a second time. The cache is consulted only after the search has read
// the file from disk, so it does not save any file-system lookups.
type includeKey struct {
	name   string
	system bool
}

// frame is one entry of the include-splicing stack: the cursor to resume
// once the currently-included file's tokens are exhausted, plus the
// outer context's own search-path bookkeeping to restore at that point.
type frame struct {
	resume       *tok.Token
	savedIndex   int
	savedDir     string
}

// Preprocessor implements spec.md §4.4: it consumes a raw token list for
// one or more files and produces an expanded, directive-free token
// stream.
//
// Grounded on the teacher's lang/compiler/compiler.go driving-loop shape
// (a single stateful struct walking a token stream and dispatching by
// kind) adapted from statement compilation to directive/macro dispatch;
// the macro table itself is macro.go's Table, grounded on
// lang/machine/map.go's swiss-backed map.
type Preprocessor struct {
	set  *source.Set
	errs *diag.List
	opts Options

	macros *Table
	conds  condStack

	pragmaOnce   *swiss.Map[string, bool]
	includeCache *swiss.Map[includeKey, *source.File]

	counter   int
	startTime time.Time

	frames  []frame
	cur     *tok.Token
	pending *tok.Token // one-token pushback, used by directive-line collection

	// curPathIndex/curDir describe the file currently being scanned: the
	// index into the combined search-path list it was resolved at (-1 for
	// the root translation unit or a command-line/# embed synthetic
	// buffer), and its containing directory, used by #include_next and
	// quoted #include resolution (spec.md §4.4).
	curPathIndex int
	curDir       string

	outHead, outTail *tok.Token

	packStack  []int       // #pragma pack(N) nesting, consumed by the parser
	packBreaks []packBreak // positional history of packStack's effective value
}

// New creates a Preprocessor over a shared source.Set and diagnostic
// sink; opts configures include search and #embed limits (spec.md §6).
func New(set *source.Set, errs *diag.List, opts Options) *Preprocessor {
	p := &Preprocessor{
		set:          set,
		errs:         errs,
		opts:         opts,
		macros:       NewTable(),
		pragmaOnce:   swiss.NewMap[string, bool](16),
		includeCache: swiss.NewMap[includeKey, *source.File](16),
		startTime:    time.Now(),
		curPathIndex: -1,
	}
	p.registerBuiltins()
	return p
}

// Define registers an object-like macro from a "-D name[=val]"-style
// command-line definition (spec.md §6): body defaults to "1" when empty.
func (p *Preprocessor) Define(name, body string) {
	if body == "" {
		body = "1"
	}
	set := source.NewSet()
	f := source.AddFile(set, "<command-line>", []byte(body))
	var scratch diag.List
	scratch.Collect = true
	toks := scanner.Tokenize(set, f, &scratch)
	// strip the trailing EOF: a macro body is a (possibly empty) token
	// list, not itself EOF-terminated.
	var head *tok.Token
	var tail *tok.Token
	for t := toks; t != nil && t.Kind != tok.EOF; t = t.Next {
		cp := *t
		cp.Next = nil
		if head == nil {
			head, tail = &cp, &cp
		} else {
			tail.Next = &cp
			tail = &cp
		}
	}
	p.macros.Define(&Macro{Name: name, ObjectLike: true, Body: head})
}

// Undef removes name from the macro table, per spec.md §6 "-U name".
func (p *Preprocessor) Undef(name string) { p.macros.Undef(name) }

// Macros exposes the macro table so callers (e.g. the parser's #if
// sharing, or introspection) can query it directly.
func (p *Preprocessor) Macros() *Table { return p.macros }

// Preprocess runs the full pipeline (spec.md §4.4) over file, returning
// the expanded, directive-free, keyword-promoted token stream terminated
// by EOF.
func (p *Preprocessor) Preprocess(file *source.File) *tok.Token {
	p.cur = scanner.Tokenize(p.set, file, p.errs)
	p.curPathIndex = -1
	p.curDir = dirOf(file.Name)
	p.outHead, p.outTail = nil, nil

	for {
		t := p.advanceRaw()
		if t == nil {
			break
		}
		if t.Kind == tok.EOF {
			p.emit(t)
			break
		}
		if t.Kind == tok.HASH && t.AtBOL {
			p.directive(t)
			continue
		}
		if p.conds.skipping() {
			continue
		}
		p.handle(t)
	}

	if !p.conds.empty() {
		ci := p.conds.top()
		p.errorAt(ci.Pos, "unterminated conditional directive")
	}

	return ConvertPPTokens(p.outHead, p.errs, p.set)
}

// advanceRaw pops the next token from the current frame, transparently
// popping exhausted include frames (spec.md §4.4's "splice result before
// remaining tokens"): an included file's EOF is swallowed and replaced by
// resuming the includer, except at true end of input.
func (p *Preprocessor) advanceRaw() *tok.Token {
	if p.pending != nil {
		t := p.pending
		p.pending = nil
		return t
	}
	for {
		if p.cur == nil {
			if len(p.frames) == 0 {
				return nil
			}
			p.popFrame()
			continue
		}
		t := p.cur
		if t.Kind == tok.EOF && len(p.frames) > 0 {
			p.popFrame()
			continue
		}
		p.cur = t.Next
		return t
	}
}

func (p *Preprocessor) popFrame() {
	n := len(p.frames)
	fr := p.frames[n-1]
	p.frames = p.frames[:n-1]
	p.cur = fr.resume
	p.curPathIndex = fr.savedIndex
	p.curDir = fr.savedDir
}

// pushFront splices toks in before the remaining input and resumes from
// its head, preserving the current file's search-path bookkeeping; used
// for re-scanning a macro's replacement list in place (spec.md §4.4 step
// 2: "Re-scan the spliced result from the macro-call position").
func (p *Preprocessor) pushFront(toks *tok.Token) {
	p.frames = append(p.frames, frame{resume: p.cur, savedIndex: p.curPathIndex, savedDir: p.curDir})
	p.cur = toks
}

// pushInclude splices toks (the tokenized body of an included file, EOF-
// terminated) in before the remaining input, per spec.md §4.4, switching
// the live search-path bookkeeping to the new file and recording the
// outer file's bookkeeping for restoration when it resumes.
func (p *Preprocessor) pushInclude(toks *tok.Token, newPathIndex int, newDir string) {
	p.frames = append(p.frames, frame{resume: p.cur, savedIndex: p.curPathIndex, savedDir: p.curDir})
	p.cur = toks
	p.curPathIndex = newPathIndex
	p.curDir = newDir
}

// unread pushes back a single token so the next advanceRaw call returns it
// again; used by directive-line collection to stop at the next line's
// first token without consuming it.
func (p *Preprocessor) unread(t *tok.Token) { p.pending = t }

func (p *Preprocessor) emit(t *tok.Token) {
	cp := *t
	cp.Next = nil
	if p.outHead == nil {
		p.outHead, p.outTail = &cp, &cp
	} else {
		p.outTail.Next = &cp
		p.outTail = &cp
	}
}

func (p *Preprocessor) errorAt(pos token.Pos, format string, args ...any) {
	p.errs.Add(p.set.Position(pos), diag.Error, format, args...)
}

func (p *Preprocessor) warnAt(pos token.Pos, format string, args ...any) {
	p.errs.Add(p.set.Position(pos), diag.Warning, format, args...)
}
