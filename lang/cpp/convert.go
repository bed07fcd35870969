package cpp

import (
	"strconv"
	"strings"

	"github.com/mna/cfront/lang/diag"
	"github.com/mna/cfront/lang/source"
	tok "github.com/mna/cfront/lang/token"
)

// ConvertPPTokens is the preprocessor's final pass (spec.md §4.3
// "promoted after macro expansion... by convert_pp_tokens once
// preprocessing completes"): it promotes keyword-spelled identifiers to
// their keyword Kind, reinterprets each PPNUMBER as INT or FLOAT, and
// concatenates adjacent string/character literals once their element
// types agree (spec.md §4.3).
func ConvertPPTokens(head *tok.Token, errs *diag.List, set *source.Set) *tok.Token {
	var out, tail *tok.Token
	push := func(t *tok.Token) {
		t.Next = nil
		if out == nil {
			out, tail = t, t
		} else {
			tail.Next = t
			tail = t
		}
	}

	for t := head; t != nil; {
		switch {
		case t.Kind == tok.IDENT:
			if kw := tok.LookupKw(t.Lit); kw != tok.IDENT {
				t.Kind = kw
			}
			push(t)
			t = t.Next

		case t.Kind == tok.PPNUMBER:
			convertNumber(t, errs, set)
			push(t)
			t = t.Next

		case t.Kind == tok.STRING:
			merged, next := mergeAdjacentStrings(t, errs, set)
			push(merged)
			t = next

		default:
			push(t)
			t = t.Next
		}
	}
	return out
}

// convertNumber reinterprets a pp-number into an INT or FLOAT token per
// spec.md §4.3: hex/binary/octal/decimal prefixes, integer suffixes
// (u/l/ll and combinations), floating suffixes (f/L), and digit
// separators (').
func convertNumber(t *tok.Token, errs *diag.List, set *source.Set) {
	lit := strings.ReplaceAll(t.Lit, "'", "")

	isFloat := strings.ContainsAny(lit, ".") || hasUnsignedExponent(lit)
	if !isFloat {
		// hex float: 0x1p3 has no '.' but a binary exponent.
		if (strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X")) && strings.ContainsAny(lit, "pP") {
			isFloat = true
		}
	}

	if isFloat {
		body, _ := splitFloatSuffix(lit)
		v, err := strconv.ParseFloat(body, 64)
		if err != nil {
			errs.Add(set.Position(t.Pos), diag.Error, "invalid floating constant %q", t.Lit)
		}
		t.Kind = tok.FLOAT
		t.FloatVal = v
		return
	}

	body, unsigned, bits := splitIntSuffix(lit)
	v, err := strconv.ParseUint(normalizeIntBody(body), 0, 64)
	if err != nil {
		errs.Add(set.Position(t.Pos), diag.Error, "invalid integer constant %q", t.Lit)
	}
	t.Kind = tok.INT
	t.IntVal = int64(v)
	t.IsUnsigned = unsigned
	t.IntBits = bits
}

func hasUnsignedExponent(lit string) bool {
	for i := 0; i < len(lit); i++ {
		if (lit[i] == 'e' || lit[i] == 'E') && !strings.HasPrefix(lit, "0x") && !strings.HasPrefix(lit, "0X") {
			return true
		}
	}
	return false
}

func normalizeIntBody(body string) string {
	// Go's ParseUint with base 0 already handles the "0x"/"0X", "0b"/"0B"
	// and leading-"0" octal prefixes, so nothing further is needed.
	return body
}

func splitFloatSuffix(lit string) (body, suffix string) {
	i := len(lit)
	for i > 0 && (lit[i-1] == 'f' || lit[i-1] == 'F' || lit[i-1] == 'l' || lit[i-1] == 'L') {
		i--
	}
	return lit[:i], lit[i:]
}

func splitIntSuffix(lit string) (body string, unsigned bool, bits int) {
	i := len(lit)
	longCount := 0
	for i > 0 {
		c := lit[i-1]
		switch {
		case c == 'u' || c == 'U':
			unsigned = true
			i--
		case c == 'l' || c == 'L':
			longCount++
			i--
		default:
			goto done
		}
	}
done:
	bits = 32
	if longCount == 1 {
		bits = 64
	} else if longCount >= 2 {
		bits = 64
	}
	return lit[:i], unsigned, bits
}

// mergeAdjacentStrings implements spec.md §4.3's "adjacent literals are
// concatenated once types match (element type chosen as the widest)".
func mergeAdjacentStrings(first *tok.Token, errs *diag.List, set *source.Set) (*tok.Token, *tok.Token) {
	merged := *first
	elemSize := first.StrElemSize
	if elemSize == 0 {
		elemSize = 1
	}
	var buf []byte
	buf = append(buf, first.StrVal...)

	next := first.Next
	for next != nil && next.Kind == tok.STRING {
		es := next.StrElemSize
		if es == 0 {
			es = 1
		}
		if es != elemSize && es != 1 && elemSize != 1 {
			errs.Add(set.Position(next.Pos), diag.Warning, "concatenating string literals of different encoding prefixes")
		}
		if es > elemSize {
			elemSize = es
		}
		buf = append(buf, next.StrVal...)
		next = next.Next
	}

	merged.StrVal = buf
	merged.StrElemSize = elemSize
	merged.Next = nil
	return &merged, next
}
