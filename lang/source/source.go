// Package source implements spec.md §3's File record: an immutable,
// NUL-terminated buffer read once per physical (or virtual, for macro
// expansion results spliced by #include) file, plus the #line-directive
// overrides layered on top of it.
//
// Position bookkeeping itself is delegated to the standard library's
// go/token.FileSet/File/Pos/Position, exactly as the teacher lineage does
// in lang/ast and lang/scanner: there is no reason to hand-roll line-
// offset tracking when the stdlib already provides a well-tested,
// allocation-friendly implementation of it.
package source

import "go/token"

// File is a single translation-unit input: its name, a monotonic id (the
// underlying go/token.File's base, which the FileSet already guarantees is
// unique and increasing), and its NUL-terminated contents.
type File struct {
	Tok      *token.File
	Name     string
	Contents []byte // always ends with a single NUL byte, per spec.md §3
}

// ID returns the monotonic file id assigned by the FileSet (spec.md §3
// "assign a monotonic file id").
func (f *File) ID() int { return f.Tok.Base() }

// Set owns the go/token.FileSet and the #line-directive overrides that
// apply to positions within it.
type Set struct {
	Fset      *token.FileSet
	files     []*File
	overrides overrideTable
}

// NewSet creates an empty file Set.
func NewSet() *Set {
	return &Set{Fset: token.NewFileSet()}
}

// AddFile reads contents (already loaded by the caller -- session.go does
// the actual I/O, see spec.md §5 "File I/O is blocking") and registers a
// new File under name. A trailing NUL is appended if not already present,
// per spec.md §3.
func AddFile(s *Set, name string, contents []byte) *File {
	if len(contents) == 0 || contents[len(contents)-1] != 0 {
		buf := make([]byte, len(contents)+1)
		copy(buf, contents)
		contents = buf
	}
	tf := s.Fset.AddFile(name, -1, len(contents))
	tf.SetLinesForContent(contents)
	f := &File{Tok: tf, Name: name, Contents: contents}
	s.files = append(s.files, f)
	return f
}

// File returns the File owning pos, or nil if pos is not within any
// registered file.
func (s *Set) File(pos token.Pos) *File {
	tf := s.Fset.File(pos)
	if tf == nil {
		return nil
	}
	for _, f := range s.files {
		if f.Tok == tf {
			return f
		}
	}
	return nil
}

// Position resolves pos to a human-readable position, applying any #line
// overrides registered via SetLineOverride.
func (s *Set) Position(pos token.Pos) token.Position {
	p := s.Fset.Position(pos)
	if name, line, ok := s.overrides.lookup(p.Filename, p.Line); ok {
		p.Filename = name
		p.Line = line
	}
	return p
}

// SetLineOverride records that, from fromLine (inclusive) in physical file
// filename onward, positions should report displayName/lineDelta instead,
// per a #line directive (spec.md §4.4). lineDelta is the display line
// number of fromLine itself; subsequent physical lines count up from it.
func (s *Set) SetLineOverride(filename string, fromLine int, displayName string, lineDelta int) {
	s.overrides = append(s.overrides, override{
		filename: filename, fromLine: fromLine,
		displayName: displayName, lineDelta: lineDelta,
	})
}

type override struct {
	filename            string
	fromLine            int
	displayName         string
	lineDelta           int
}

type overrideTable []override

// lookup finds the most specific (latest, highest fromLine <= line)
// override for filename/line, per standard #line semantics (overrides
// apply from the directive to the next one or EOF).
func (t overrideTable) lookup(filename string, line int) (name string, displayLine int, ok bool) {
	best := -1
	for i, o := range t {
		if o.filename != filename || o.fromLine > line {
			continue
		}
		if best == -1 || o.fromLine > t[best].fromLine {
			best = i
		}
	}
	if best == -1 {
		return "", 0, false
	}
	o := t[best]
	return o.displayName, o.lineDelta + (line - o.fromLine), true
}
