package arena

import "testing"

func TestArenaNewDeref(t *testing.T) {
	var a Arena[int]
	r1 := a.New(10)
	r2 := a.New(20)
	if got := *a.Deref(r1); got != 10 {
		t.Errorf("deref r1 = %d, want 10", got)
	}
	if got := *a.Deref(r2); got != 20 {
		t.Errorf("deref r2 = %d, want 20", got)
	}
	if a.Len() != 2 {
		t.Errorf("Len() = %d, want 2", a.Len())
	}
}

func TestArenaReset(t *testing.T) {
	var a Arena[string]
	a.New("a")
	a.New("b")
	a.Reset()
	if a.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", a.Len())
	}
	r := a.New("c")
	if got := *a.Deref(r); got != "c" {
		t.Errorf("deref after reset = %q, want %q", got, "c")
	}
}

func TestArenaManyBlocks(t *testing.T) {
	var a Arena[int]
	refs := make([]Ref[int], 0, blockSize*3)
	for i := 0; i < blockSize*3; i++ {
		refs = append(refs, a.New(i))
	}
	for i, r := range refs {
		if got := *a.Deref(r); got != i {
			t.Fatalf("deref refs[%d] = %d, want %d", i, got, i)
		}
	}
	if a.Len() != blockSize*3 {
		t.Errorf("Len() = %d, want %d", a.Len(), blockSize*3)
	}
}

func TestArenaDestroy(t *testing.T) {
	var a Arena[int]
	a.New(1)
	a.Destroy()
	if a.Len() != 0 {
		t.Errorf("Len() after Destroy = %d, want 0", a.Len())
	}
}
