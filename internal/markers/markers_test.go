package markers

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctrf/internal/domain"
)

const sample = `
markers:
  - match: "TestLogin*"
    marks:
      - name: smoke
      - name: priority
        kwargs:
          zeta: 1
          level: high
  - match: "TestRetry"
    package: "example.com/app/*"
    marks:
      - name: retries
        args: [3]
      - name: ctrf_suite
        args: custom
`

func TestParse_PreservesOrder(t *testing.T) {
	set, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())

	got := set.Markers("example.com/app", "TestLoginFlow/browser_name=firefox")
	assert.Equal(t, []domain.Marker{
		{Name: "smoke"},
		{Name: "priority", Kwargs: []domain.KV{{Key: "zeta", Value: "1"}, {Key: "level", Value: "high"}}},
	}, got)
}

func TestSet_PackageFilter(t *testing.T) {
	set, err := Parse([]byte(sample))
	require.NoError(t, err)

	got := set.Markers("example.com/app/store", "TestRetry")
	require.Len(t, got, 2)
	assert.Equal(t, []string{"3"}, got[0].Args)
	assert.Equal(t, []string{"custom"}, got[1].Args)

	assert.Empty(t, set.Markers("example.com/other", "TestRetry"))
	assert.Empty(t, set.Markers("example.com/app/store", "TestUnrelated"))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing match", content: "markers:\n  - marks:\n      - name: smoke\n"},
		{name: "bad pattern", content: "markers:\n  - match: \"[\"\n"},
		{name: "mark without name", content: "markers:\n  - match: \"*\"\n    marks:\n      - args: [1]\n"},
		{name: "kwargs not a mapping", content: "markers:\n  - match: \"*\"\n    marks:\n      - name: a\n        kwargs: [1]\n"},
		{name: "not yaml", content: "markers: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "markers.yaml")
	require.NoError(t, os.WriteFile(p, []byte(sample), 0644))

	set, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestNilSet(t *testing.T) {
	var set *Set
	assert.Nil(t, set.Markers("p", "TestA"))
	assert.Equal(t, 0, set.Len())
}
