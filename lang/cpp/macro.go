// Package cpp implements the macro-expanding preprocessor of spec.md
// §4.4: directive dispatch, hide-set macro expansion, conditional
// inclusion, header search and #embed.
package cpp

import (
	"github.com/dolthub/swiss"
	tok "github.com/mna/cfront/lang/token"
)

// Macro is spec.md §3's Macro record.
type Macro struct {
	Name         string
	ObjectLike   bool
	Params       []string
	Variadic     bool
	Body         *tok.Token // linked list, nil for object-like macros with an empty body
	Builtin      bool
	Handler      func(p *Preprocessor, callTok *tok.Token) *tok.Token
}

// Table is the macro table of spec.md §4.2: an open-addressed hash map
// from macro name to *Macro. Realized directly on
// github.com/dolthub/swiss (a Swiss table: power-of-two capacity, control-
// byte probing, tombstone-on-delete, auto-rehash past ~0.875 load
// factor), the same library the teacher lineage uses for its own map
// type (lang/machine/map.go) -- there is no reason to hand-roll a probing
// sequence the ecosystem already exercises well.
type Table struct {
	m *swiss.Map[string, *Macro]
}

// NewTable returns an empty macro table.
func NewTable() *Table {
	return &Table{m: swiss.NewMap[string, *Macro](64)}
}

// Define registers (or replaces) a macro.
func (t *Table) Define(m *Macro) { t.m.Put(m.Name, m) }

// Lookup returns the macro named name, or nil if undefined.
func (t *Table) Lookup(name string) *Macro {
	m, ok := t.m.Get(name)
	if !ok {
		return nil
	}
	return m
}

// Undef removes a macro definition, per the #undef directive.
func (t *Table) Undef(name string) { t.m.Delete(name) }

// Foreach visits every defined macro; iteration order is unspecified, per
// spec.md §4.2.
func (t *Table) Foreach(fn func(*Macro) bool) {
	t.m.Iter(func(_ string, m *Macro) bool {
		return !fn(m)
	})
}
