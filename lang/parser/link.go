package parser

import (
	gotoken "go/token"

	"github.com/mna/cfront/lang/ast"
	"github.com/mna/cfront/lang/diag"
	"github.com/mna/cfront/lang/source"
)

// LinkProgs implements spec.md §4.6's `link_progs`: merges multiple
// top-level Obj lists (one per translation unit), preferring a
// definition over a declaration for each name, erroring on two
// definitions, and propagating the canonical type to all references,
// returning one deduplicated list in first-seen order.
func LinkProgs(set *source.Set, errs *diag.List, progLists ...[]*ast.Obj) []*ast.Obj {
	var order []string
	byName := make(map[string]*ast.Obj)

	for _, progs := range progLists {
		for _, o := range progs {
			existing, seen := byName[o.Name]
			if !seen {
				byName[o.Name] = o
				order = append(order, o.Name)
				continue
			}

			canon := existing.Ty
			if canon == nil {
				canon = o.Ty
			}

			switch {
			case existing.IsDefinition && o.IsDefinition:
				errs.Add(set.Position(defPos(o)), diag.Error, "redefinition of %q", o.Name)
			case o.IsDefinition && !existing.IsDefinition:
				o.Ty = canon
				byName[o.Name] = o
			default:
				existing.Ty = canon
			}
		}
	}

	out := make([]*ast.Obj, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	markLiveness(out, byName)
	return out
}

// markLiveness implements spec.md §4.6's static-inline liveness pass
// (SPEC_FULL.md §D.3): computed after merging, over the whole program,
// since reachability is only meaningful once every translation unit's
// Obj list has been linked into one. Every externally-linked function
// definition is a root; a static function is Live only if reached from
// a root by a call, an address-of, or a function-pointer reference
// stored in a global's initializer relocations.
func markLiveness(objs []*ast.Obj, byName map[string]*ast.Obj) {
	var queue []*ast.Obj
	for _, o := range objs {
		if o.IsFunction && o.IsDefinition && !o.IsStatic {
			if !o.Live {
				o.Live = true
				queue = append(queue, o)
			}
		}
	}

	markRef := func(name string) {
		callee, ok := byName[name]
		if !ok || !callee.IsFunction || callee.Live {
			return
		}
		callee.Live = true
		queue = append(queue, callee)
	}

	for _, o := range objs {
		for _, r := range o.Relocs {
			markRef(r.Label)
		}
	}

	for len(queue) > 0 {
		o := queue[0]
		queue = queue[1:]
		for _, n := range o.Body {
			walkNode(n, func(child *ast.Node) {
				if child.Kind == ast.KindVar && child.Var != nil && child.Var.IsFunction {
					markRef(child.Var.Name)
				}
			})
		}
	}
}

// walkNode visits n and every descendant reachable through its
// expression/statement child fields, in the same traversal order as
// ast.Print's depth-first walk.
func walkNode(n *ast.Node, visit func(*ast.Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, child := range []*ast.Node{n.Cond, n.Then, n.Els, n.Init, n.Inc, n.LHS, n.RHS} {
		walkNode(child, visit)
	}
	for _, c := range n.Args {
		walkNode(c, visit)
	}
	for _, s := range n.Body {
		walkNode(s, visit)
	}
}

func defPos(o *ast.Obj) (pos gotoken.Pos) {
	if o.Tok != nil {
		return o.Tok.Pos
	}
	return gotoken.NoPos
}
