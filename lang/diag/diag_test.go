package diag

import (
	"go/token"
	"testing"
)

func TestListCollect(t *testing.T) {
	var l List
	l.Collect = true
	l.Add(token.Position{Filename: "a.c", Line: 2}, Error, "bad thing %d", 1)
	l.Add(token.Position{Filename: "a.c", Line: 1}, Error, "other thing")
	if l.ErrorCount() != 2 {
		t.Fatalf("ErrorCount = %d, want 2", l.ErrorCount())
	}
	l.Sort()
	if l.Diagnostics[0].Pos.Line != 1 {
		t.Errorf("after Sort, first diagnostic line = %d, want 1", l.Diagnostics[0].Pos.Line)
	}
	if err := l.Err(); err == nil {
		t.Error("Err() = nil, want non-nil")
	}
}

func TestListEscapeWhenNotCollecting(t *testing.T) {
	var l List
	var err error
	func() {
		defer l.escape.Recover(&err)
		l.Add(token.Position{Filename: "a.c", Line: 1}, Error, "boom")
		t.Fatal("unreachable: Add should have escaped")
	}()
	if err == nil {
		t.Fatal("expected escape to set err")
	}
}

func TestListMaxErrors(t *testing.T) {
	var l List
	l.Collect = true
	l.MaxErrors = 2
	var err error
	func() {
		defer l.escape.Recover(&err)
		for i := 0; i < 10; i++ {
			l.Add(token.Position{Filename: "a.c", Line: i}, Error, "err %d", i)
		}
	}()
	if err == nil {
		t.Fatal("expected escape once max errors exceeded")
	}
	if l.ErrorCount() != 3 {
		t.Errorf("ErrorCount = %d, want 3 (2 allowed + the one that tripped the bound)", l.ErrorCount())
	}
}

func TestWarnAsError(t *testing.T) {
	var l List
	l.Collect = true
	l.WarnAsError = true
	l.Add(token.Position{Filename: "a.c", Line: 1}, Warning, "narrowing conversion")
	if l.WarningCount() != 0 || l.ErrorCount() != 1 {
		t.Errorf("warning should have been promoted to error: warn=%d err=%d", l.WarningCount(), l.ErrorCount())
	}
}
