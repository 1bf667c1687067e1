package ctrfmark

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctrf/internal/domain"
	"ctrf/internal/parser"
	"ctrf/internal/report"
)

type recorder struct {
	testing.TB
	logs []string
}

func (r *recorder) Helper() {}

func (r *recorder) Log(args ...any) {
	r.logs = append(r.logs, fmt.Sprint(args...))
}

func TestDirective(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "bare", got: Directive("smoke"), want: "ctrf:mark smoke"},
		{name: "args", got: Directive("retries", 3, "fast"), want: "ctrf:mark retries 3 fast"},
		{name: "keywords", got: Directive("priority", KV("level", "high"), "x"), want: "ctrf:mark priority level=high x"},
		{name: "whitespace", got: Directive("owner", "team a"), want: `ctrf:mark owner "team a"`},
		{name: "name", got: Directive("my mark=1"), want: "ctrf:mark my_mark_1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestDirective_ReadBack(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		marker domain.Marker
		tag    string
	}{
		{
			name:   "positional holding equals",
			line:   Directive("env", "a=b"),
			marker: domain.Marker{Name: "env", Args: []string{"a=b"}},
			tag:    "env::a=b",
		},
		{
			name:   "empty positional",
			line:   Directive("retries", "", 3),
			marker: domain.Marker{Name: "retries", Args: []string{"", "3"}},
			tag:    "retries::::3",
		},
		{
			name:   "keyword with blanks",
			line:   Directive("owner", KV("team", "core platform"), "x y"),
			marker: domain.Marker{Name: "owner", Args: []string{"x y"}, Kwargs: []domain.KV{{Key: "team", Value: "core platform"}}},
			tag:    "owner::x y::team_core platform",
		},
		{
			name:   "empty keyword",
			line:   Directive("flag", KV("on", "")),
			marker: domain.Marker{Name: "flag", Kwargs: []domain.KV{{Key: "on", Value: ""}}},
			tag:    "flag::on_",
		},
		{
			name:   "quotes and backslashes",
			line:   Directive("path", `C:\dir "x"`),
			marker: domain.Marker{Name: "path", Args: []string{`C:\dir "x"`}},
			tag:    `path::C:\dir "x"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// As it appears in the go test -json output of t.Log
			m, ok := parser.ParseDirective("    x_test.go:12: " + tt.line + "\n")
			require.True(t, ok)
			assert.Equal(t, tt.marker, m)
			assert.Equal(t, tt.tag, report.FormatTag(m))
		})
	}
}

func TestMarkAndSuite(t *testing.T) {
	r := &recorder{}
	Mark(r, "smoke")
	Suite(r, "auth")

	assert.Equal(t, []string{"ctrf:mark smoke", "ctrf:mark ctrf_suite auth"}, r.logs)
}
