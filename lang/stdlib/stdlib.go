// Package stdlib bundles a minimal freestanding-plus-hosted C standard
// library header set into the binary via go:embed, per spec.md §6's
// "Embedded stdlib" feature: angle-form #include resolves against these
// before falling back to the caller's configured system search paths.
//
// Grounded on the teacher's own use of go:embed for bundled static data
// (lang/builtin's embedded Starlark prelude source); the same "name ->
// []byte, ok" lookup shape is kept here, repurposed from a Starlark
// prelude bundle to a C header bundle.
package stdlib

import (
	"embed"
	"sort"
)

//go:embed headers/*.h
var headerFS embed.FS

// headers maps an include name (as it appears inside angle brackets, so
// "stdio.h" not "<stdio.h>") to its bundled source, lazily populated from
// headerFS on first Lookup.
var headers map[string][]byte

// Lookup implements cpp.Options.LookupEmbedded: it returns the bundled
// header's source for name and whether it was found.
func Lookup(name string) ([]byte, bool) {
	if headers == nil {
		headers = loadHeaders()
	}
	data, ok := headers[name]
	return data, ok
}

// Names returns the sorted set of bundled header names, for introspection
// (e.g. a CLI --list-embedded-headers flag or diagnostics).
func Names() []string {
	if headers == nil {
		headers = loadHeaders()
	}
	out := make([]string, 0, len(headers))
	for name := range headers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func loadHeaders() map[string][]byte {
	entries, err := headerFS.ReadDir("headers")
	if err != nil {
		// headerFS is compiled in; a failure here means the embed directive
		// itself is broken, not a runtime condition callers can recover from.
		panic("lang/stdlib: embedded header directory missing: " + err.Error())
	}
	m := make(map[string][]byte, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := headerFS.ReadFile("headers/" + e.Name())
		if err != nil {
			panic("lang/stdlib: embedded header unreadable: " + err.Error())
		}
		m[e.Name()] = data
	}
	return m
}
