package cpp

import (
	"fmt"

	tok "github.com/mna/cfront/lang/token"
)

// registerBuiltins installs the handler-backed macros of spec.md §4.4:
// __FILE__, __LINE__, __DATE__, __TIME__, __COUNTER__. __VA_ARGS__ and
// __VA_OPT__ are not registered here: they are only meaningful inside a
// variadic function-like macro's own body and are recognized directly by
// expand.go's substitution logic, per spec.md's Macro record comment
// ("only legal inside variadic macros").
func (p *Preprocessor) registerBuiltins() {
	p.macros.Define(&Macro{Name: "__FILE__", ObjectLike: true, Builtin: true, Handler: builtinFile})
	p.macros.Define(&Macro{Name: "__LINE__", ObjectLike: true, Builtin: true, Handler: builtinLine})
	p.macros.Define(&Macro{Name: "__DATE__", ObjectLike: true, Builtin: true, Handler: builtinDate})
	p.macros.Define(&Macro{Name: "__TIME__", ObjectLike: true, Builtin: true, Handler: builtinTime})
	p.macros.Define(&Macro{Name: "__COUNTER__", ObjectLike: true, Builtin: true, Handler: builtinCounter})
}

func builtinFile(p *Preprocessor, callTok *tok.Token) *tok.Token {
	pos := p.set.Position(callTok.Pos)
	lit := fmt.Sprintf("%q", pos.Filename)
	return &tok.Token{Kind: tok.STRING, Pos: callTok.Pos, Lit: lit, StrVal: []byte(pos.Filename), StrElemSize: 1}
}

func builtinLine(p *Preprocessor, callTok *tok.Token) *tok.Token {
	pos := p.set.Position(callTok.Pos)
	lit := fmt.Sprintf("%d", pos.Line)
	return &tok.Token{Kind: tok.PPNUMBER, Pos: callTok.Pos, Lit: lit, IntVal: int64(pos.Line)}
}

// builtinDate and builtinTime report the preprocessor session's start
// time, not wall-clock time at expansion -- spec.md §4.4: "cache the
// process start time", so a long session produces one consistent
// __DATE__/__TIME__ throughout, matching what a single compiler
// invocation does.
func builtinDate(p *Preprocessor, callTok *tok.Token) *tok.Token {
	lit := fmt.Sprintf("%q", p.startTime.Format("Jan  2 2006"))
	return &tok.Token{Kind: tok.STRING, Pos: callTok.Pos, Lit: lit, StrVal: []byte(p.startTime.Format("Jan  2 2006")), StrElemSize: 1}
}

func builtinTime(p *Preprocessor, callTok *tok.Token) *tok.Token {
	s := p.startTime.Format("15:04:05")
	lit := fmt.Sprintf("%q", s)
	return &tok.Token{Kind: tok.STRING, Pos: callTok.Pos, Lit: lit, StrVal: []byte(s), StrElemSize: 1}
}

func builtinCounter(p *Preprocessor, callTok *tok.Token) *tok.Token {
	v := p.counter
	p.counter++
	return &tok.Token{Kind: tok.PPNUMBER, Pos: callTok.Pos, Lit: fmt.Sprintf("%d", v), IntVal: int64(v)}
}
