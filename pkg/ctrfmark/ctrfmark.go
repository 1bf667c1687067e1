// Package ctrfmark attaches markers to Go tests. Markers become tags (and the
// ctrf_suite marker the suite) of the test's CTRF record.
//
//	func TestLogin(t *testing.T) {
//		ctrfmark.Mark(t, "smoke")
//		ctrfmark.Mark(t, "priority", ctrfmark.KV("level", "high"))
//		ctrfmark.Suite(t, "auth")
//		...
//	}
//
// Markers are written to the test log, so they only reach the report when the
// test output is streamed, as `go test -json` does.
package ctrfmark

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"unicode"
)

// Prefix starts every marker line
const Prefix = "ctrf:mark"

// SuiteMarker overrides the suite of a test
const SuiteMarker = "ctrf_suite"

// Keyword is a keyword argument of a marker
type Keyword struct {
	Key   string
	Value any
}

// KV builds a keyword argument
func KV(key string, value any) Keyword {
	return Keyword{Key: key, Value: value}
}

// Mark attaches a marker to t. Positional arguments and keywords may be mixed;
// they keep their order within each kind.
func Mark(t testing.TB, name string, args ...any) {
	t.Helper()
	t.Log(Directive(name, args...))
}

// Suite sets the suite of t, replacing the default suite path
func Suite(t testing.TB, name string) {
	t.Helper()
	Mark(t, SuiteMarker, name)
}

// Directive renders the marker line read back by the collector. Values that
// are empty or hold blanks, quotes or "=" are written in Go quoted form, so a
// positional argument never reads back as a keyword. Blanks, quotes and "=" in
// the marker name and keyword keys become underscores.
func Directive(name string, args ...any) string {
	parts := []string{Prefix, ident(name)}
	for _, arg := range args {
		if kw, ok := arg.(Keyword); ok {
			parts = append(parts, ident(kw.Key)+"="+value(fmt.Sprint(kw.Value)))
			continue
		}
		parts = append(parts, value(fmt.Sprint(arg)))
	}
	return strings.Join(parts, " ")
}

func ident(s string) string {
	s = strings.Join(strings.Fields(s), "_")
	return strings.Map(func(r rune) rune {
		if r == '=' || r == '"' {
			return '_'
		}
		return r
	}, s)
}

func value(s string) string {
	if s == "" || strings.ContainsAny(s, "=\"\\") || strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || !unicode.IsPrint(r)
	}) >= 0 {
		return strconv.Quote(s)
	}
	return s
}
