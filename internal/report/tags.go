package report

import (
	"strings"

	"ctrf/internal/domain"
)

// SuiteMarker is the marker that overrides suite resolution for a test
const SuiteMarker = "ctrf_suite"

// BrowserParam is the parameter name that populates the browser field
const BrowserParam = "browser_name"

// FormatTag renders a marker as a tag: name, then ::arg per positional
// argument and ::key_value per keyword argument.
func FormatTag(m domain.Marker) string {
	var b strings.Builder
	b.WriteString(m.Name)
	for _, arg := range m.Args {
		b.WriteString("::")
		b.WriteString(arg)
	}
	for _, kv := range m.Kwargs {
		b.WriteString("::")
		b.WriteString(kv.Key)
		b.WriteString("_")
		b.WriteString(kv.Value)
	}
	return b.String()
}

// Tags renders every marker in order. Duplicates are kept.
func Tags(markers []domain.Marker) []string {
	tags := make([]string, 0, len(markers))
	for _, m := range markers {
		tags = append(tags, FormatTag(m))
	}
	return tags
}

// ResolveSuite returns the suite path of a test. An explicit suite marker wins,
// otherwise the default suite name (when set) is followed by the file name.
func ResolveSuite(markers []domain.Marker, defaultSuite, file string) []string {
	for _, m := range markers {
		if m.Name == SuiteMarker && len(m.Args) > 0 {
			return []string{m.Args[0]}
		}
	}
	if defaultSuite == "" {
		return []string{file}
	}
	return []string{defaultSuite, file}
}

// Browser returns the browser parameter when it is set to a truthy value
func Browser(params map[string]string) string {
	v := params[BrowserParam]
	switch strings.ToLower(v) {
	case "", "0", "false", "none", "null":
		return ""
	}
	return v
}
