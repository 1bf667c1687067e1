package parser

import (
	"regexp"
	"strconv"
	"strings"

	"ctrf/internal/domain"
)

var directivePattern = regexp.MustCompile(`ctrf:mark\s+(.+)$`)

// ParseDirective reads a `ctrf:mark name arg key=value` output line.
//
// Fields are separated by whitespace. A field in Go double quoted syntax is
// always a positional argument, which is how arguments that are empty or hold
// spaces or "=" are written. A keyword value may be quoted as well (key="a b").
func ParseDirective(output string) (domain.Marker, bool) {
	match := directivePattern.FindStringSubmatch(strings.TrimSpace(output))
	if match == nil {
		return domain.Marker{}, false
	}
	fields, ok := directiveFields(match[1])
	if !ok || len(fields) == 0 || fields[0].keyword {
		return domain.Marker{}, false
	}

	m := domain.Marker{Name: fields[0].value}
	for _, f := range fields[1:] {
		if f.keyword {
			m.Kwargs = append(m.Kwargs, domain.KV{Key: f.key, Value: f.value})
			continue
		}
		m.Args = append(m.Args, f.value)
	}
	return m, true
}

type directiveField struct {
	key     string
	value   string
	keyword bool
}

func directiveFields(s string) ([]directiveField, bool) {
	var out []directiveField
	for {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			return out, true
		}

		var f directiveField
		if s[0] != '"' {
			end := strings.IndexAny(s, " \t")
			if end < 0 {
				end = len(s)
			}
			word := s[:end]
			key, value, ok := strings.Cut(word, "=")
			if !ok || key == "" {
				out = append(out, directiveField{value: word})
				s = s[end:]
				continue
			}
			f.key, f.keyword = key, true
			if !strings.HasPrefix(value, `"`) {
				f.value = value
				out = append(out, f)
				s = s[end:]
				continue
			}
			// quoted keyword value, which may itself hold blanks
			s = s[len(key)+1:]
		}

		quoted, err := strconv.QuotedPrefix(s)
		if err != nil {
			return nil, false
		}
		value, err := strconv.Unquote(quoted)
		if err != nil {
			return nil, false
		}
		f.value = value
		s = s[len(quoted):]
		out = append(out, f)
	}
}
