package cpp

import (
	"os"
	"path/filepath"

	"github.com/mna/cfront/lang/scanner"
	"github.com/mna/cfront/lang/source"
	tok "github.com/mna/cfront/lang/token"
)

func dirOf(name string) string {
	if name == "" || name == "<stdin>" {
		return "."
	}
	return filepath.Dir(name)
}

// headerName recognizes the special lexical form following #include: a
// quoted string, or everything between '<' and '>' concatenated back
// together (spec.md §4.3's HEADERNAME kind describes this form; our
// scanner tokenizes it as ordinary punctuators/identifiers, so it is
// reassembled here from the raw spellings).
func headerName(items []*tok.Token) (name string, quoted bool, ok bool) {
	if len(items) == 0 {
		return "", false, false
	}
	if items[0].Kind == tok.STRING {
		return string(items[0].StrVal), true, true
	}
	if items[0].Kind != tok.LT {
		return "", false, false
	}
	var sb []byte
	for _, t := range items[1:] {
		if t.Kind == tok.GT {
			return string(sb), false, true
		}
		sb = append(sb, t.Lit...)
	}
	return "", false, false
}

func (p *Preprocessor) doInclude(hashTok *tok.Token, isNext bool) {
	raw := p.collectLine()
	name, quoted, ok := headerName(raw)
	if !ok {
		expanded := chainToSlice(p.expandArgTokens(sliceToChain(cloneTokens(raw))))
		name, quoted, ok = headerName(expanded)
	}
	if !ok {
		p.errorAt(hashTok.Pos, "#include expects \"FILENAME\" or <FILENAME>")
		return
	}

	startAt := 0
	if isNext {
		startAt = p.curPathIndex + 1
	}

	toks, idx, dir, system, found := p.resolveInclude(name, quoted, startAt)
	if !found {
		p.errorAt(hashTok.Pos, "%q file not found", name)
		return
	}
	if toks == nil {
		// #pragma once already recorded this physical file.
		return
	}
	_ = system
	p.pushInclude(toks, idx, dir)
}

// resolveInclude implements spec.md §4.4's include search: quoted form
// tries the including file's own directory first, then user paths, then
// system paths; angle form tries the embedded stdlib (if enabled), then
// user paths, then system paths. Every call re-reads the candidate files;
// the resulting *source.File is cached by (resolved filename, is_system)
// in loadInclude. It returns toks == nil (found == true) when
// the target was already consumed under #pragma once.
func (p *Preprocessor) resolveInclude(name string, quoted bool, startAt int) (toks *tok.Token, pathIndex int, dir string, system bool, found bool) {
	if !quoted && p.opts.UseEmbeddedStdlib && p.opts.LookupEmbedded != nil && startAt == 0 {
		if data, ok := p.opts.LookupEmbedded(name); ok {
			return p.loadInclude(name, data, "<embedded>", false, -1)
		}
	}

	roots := p.searchList(quoted)
	for i := startAt; i < len(roots); i++ {
		full := filepath.Join(roots[i].dir, name)
		data, err := os.ReadFile(full)
		if err != nil {
			continue
		}
		return p.loadInclude(full, data, filepath.Dir(full), roots[i].system, i)
	}
	return nil, 0, "", false, false
}

type searchRoot struct {
	dir    string
	system bool
}

// searchList builds the ordered list of directories this include will be
// tried against; quoted form is prefixed with the including file's own
// directory, per spec.md §4.4.
func (p *Preprocessor) searchList(quoted bool) []searchRoot {
	var out []searchRoot
	if quoted {
		out = append(out, searchRoot{dir: p.curDir})
	}
	for _, d := range p.opts.UserPaths {
		out = append(out, searchRoot{dir: d})
	}
	for _, d := range p.opts.SystemPaths {
		out = append(out, searchRoot{dir: d, system: true})
	}
	return out
}

func (p *Preprocessor) loadInclude(key string, data []byte, dir string, system bool, idx int) (*tok.Token, int, string, bool, bool) {
	ck := includeKey{name: key, system: system}
	if cached, ok := p.includeCache.Get(ck); ok {
		if done, _ := p.pragmaOnce.Get(cached.Name); done {
			return nil, idx, dir, system, true
		}
		return scanner.Tokenize(p.set, cached, p.errs), idx, dir, system, true
	}

	f := source.AddFile(p.set, key, data)
	p.includeCache.Put(ck, f)
	if done, _ := p.pragmaOnce.Get(f.Name); done {
		return nil, idx, dir, system, true
	}

	return scanner.Tokenize(p.set, f, p.errs), idx, dir, system, true
}
