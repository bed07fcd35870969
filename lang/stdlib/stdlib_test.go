package stdlib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownHeaders(t *testing.T) {
	for _, name := range []string{
		"stdio.h", "stdlib.h", "string.h", "stdint.h", "stddef.h",
		"stdbool.h", "stdarg.h", "math.h", "time.h", "assert.h",
	} {
		data, ok := Lookup(name)
		require.True(t, ok, "missing bundled header %q", name)
		assert.NotEmpty(t, data)
	}
}

func TestLookupUnknownHeaderFails(t *testing.T) {
	_, ok := Lookup("not-a-real-header.h")
	assert.False(t, ok)
}

func TestNamesMatchesLookup(t *testing.T) {
	names := Names()
	assert.NotEmpty(t, names)
	for _, n := range names {
		_, ok := Lookup(n)
		assert.True(t, ok, "Names() returned %q but Lookup failed", n)
	}
}
