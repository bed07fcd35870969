package cpp

import "go/token"

// CondIncl is one entry of the conditional-inclusion stack, mirroring
// spec.md §3's CondIncl record: {context, controlling_token,
// any_branch_included?}. ParentSkip additionally records whether this
// whole group is nested inside an already-skipped branch, so a nested
// #if's own condition is never evaluated (and never contributes
// expansions) while an enclosing group is inactive.
type CondIncl struct {
	Pos        token.Pos // position of the opening #if/#ifdef/#ifndef
	Active     bool      // the current branch is the one being expanded
	AnyTaken   bool       // some branch in this group has already matched
	WasElse    bool       // an #else for this group has already been seen
	ParentSkip bool       // an enclosing group is itself inactive
}

// condStack tracks nested conditional groups for one Preprocessor.
type condStack struct {
	stack []*CondIncl
}

func (c *condStack) push(ci *CondIncl) { c.stack = append(c.stack, ci) }

func (c *condStack) top() *CondIncl {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1]
}

func (c *condStack) pop() *CondIncl {
	n := len(c.stack)
	if n == 0 {
		return nil
	}
	ci := c.stack[n-1]
	c.stack = c.stack[:n-1]
	return ci
}

func (c *condStack) empty() bool { return len(c.stack) == 0 }

// skipping reports whether tokens are currently being read only to find
// matching directives, not expanded or emitted, because the innermost
// conditional group's active branch is not the current one, or an
// enclosing group is itself inactive.
func (c *condStack) skipping() bool {
	ci := c.top()
	if ci == nil {
		return false
	}
	return ci.ParentSkip || !ci.Active
}
