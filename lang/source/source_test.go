package source

import "testing"

func TestAddFileAppendsNUL(t *testing.T) {
	s := NewSet()
	f := AddFile(s, "a.c", []byte("int x;"))
	if f.Contents[len(f.Contents)-1] != 0 {
		t.Fatal("expected trailing NUL byte")
	}
}

func TestLineOverride(t *testing.T) {
	s := NewSet()
	f := AddFile(s, "a.c", []byte("line1\nline2\nline3\n"))
	pos3 := f.Tok.LineStart(3)

	before := s.Position(pos3)
	if before.Filename != "a.c" || before.Line != 3 {
		t.Fatalf("before override: %+v", before)
	}

	s.SetLineOverride("a.c", 3, "b.h", 100)
	after := s.Position(pos3)
	if after.Filename != "b.h" || after.Line != 100 {
		t.Fatalf("after override: %+v", after)
	}

	pos2 := f.Tok.LineStart(2)
	unaffected := s.Position(pos2)
	if unaffected.Filename != "a.c" || unaffected.Line != 2 {
		t.Fatalf("line before override changed: %+v", unaffected)
	}
}

func TestFileID(t *testing.T) {
	s := NewSet()
	f1 := AddFile(s, "a.c", []byte("x"))
	f2 := AddFile(s, "b.c", []byte("y"))
	if f1.ID() == f2.ID() {
		t.Error("expected distinct monotonic ids")
	}
}
