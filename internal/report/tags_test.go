package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ctrf/internal/domain"
)

func TestFormatTag(t *testing.T) {
	tests := []struct {
		name     string
		marker   domain.Marker
		expected string
	}{
		{
			name:     "bare marker",
			marker:   domain.Marker{Name: "smoke"},
			expected: "smoke",
		},
		{
			name:     "positional argument",
			marker:   domain.Marker{Name: "retries", Args: []string{"3"}},
			expected: "retries::3",
		},
		{
			name:     "keyword argument",
			marker:   domain.Marker{Name: "priority", Kwargs: []domain.KV{{Key: "level", Value: "high"}}},
			expected: "priority::level_high",
		},
		{
			name: "positional before keyword in declaration order",
			marker: domain.Marker{
				Name:   "flaky",
				Args:   []string{"a", "b"},
				Kwargs: []domain.KV{{Key: "z", Value: "1"}, {Key: "a", Value: "2"}},
			},
			expected: "flaky::a::b::z_1::a_2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatTag(tt.marker))
		})
	}
}

func TestTags_KeepsDuplicatesAndOrder(t *testing.T) {
	markers := []domain.Marker{
		{Name: "smoke"},
		{Name: "retries", Args: []string{"3"}},
		{Name: "smoke"},
	}
	assert.Equal(t, []string{"smoke", "retries::3", "smoke"}, Tags(markers))
	assert.NotNil(t, Tags(nil))
	assert.Empty(t, Tags(nil))
}

func TestResolveSuite(t *testing.T) {
	override := []domain.Marker{{Name: "smoke"}, {Name: SuiteMarker, Args: []string{"custom"}}}

	tests := []struct {
		name         string
		markers      []domain.Marker
		defaultSuite string
		expected     []string
	}{
		{
			name:         "override marker ignores default suite",
			markers:      override,
			defaultSuite: "pytest",
			expected:     []string{"custom"},
		},
		{
			name:         "override marker without default suite",
			markers:      override,
			defaultSuite: "",
			expected:     []string{"custom"},
		},
		{
			name:         "default suite followed by file name",
			defaultSuite: "pytest",
			expected:     []string{"pytest", "test_example.py"},
		},
		{
			name:     "file name only when no default suite",
			expected: []string{"test_example.py"},
		},
		{
			name:         "suite marker without argument is ignored",
			markers:      []domain.Marker{{Name: SuiteMarker}},
			defaultSuite: "gotest",
			expected:     []string{"gotest", "test_example.py"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveSuite(tt.markers, tt.defaultSuite, "test_example.py"))
		})
	}
}

func TestBrowser(t *testing.T) {
	assert.Equal(t, "chromium", Browser(map[string]string{BrowserParam: "chromium"}))
	assert.Equal(t, "", Browser(map[string]string{BrowserParam: ""}))
	assert.Equal(t, "", Browser(map[string]string{BrowserParam: "false"}))
	assert.Equal(t, "", Browser(map[string]string{"browser": "firefox"}))
	assert.Equal(t, "", Browser(nil))
}
