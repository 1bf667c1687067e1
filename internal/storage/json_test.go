package storage

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctrf/internal/config"
	"ctrf/internal/domain"
	"ctrf/internal/report"
)

func newStorage(t *testing.T, path string) *JSONStorage {
	t.Helper()
	cfg := config.New()
	cfg.ReportPath = path
	return NewJSONStorage(cfg)
}

func sampleReport(t *testing.T) *report.Report {
	t.Helper()
	rep := report.New("gotest")
	require.NoError(t, rep.Append(domain.TestRecord{ID: "p::TestA", Status: domain.StatusPassed, RawStatus: "call_passed", Tags: []string{}, Suite: []string{"gotest", "a_test.go"}}))
	require.NoError(t, rep.Append(domain.TestRecord{ID: "p::TestB", Status: domain.StatusFailed, RawStatus: "call_failed", Tags: []string{"smoke"}, Suite: []string{"custom"}, Trace: "t", Message: "m"}))
	return rep
}

func TestJSONStorage_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "report.json")
	st := newStorage(t, path)
	rep := sampleReport(t)

	require.NoError(t, st.Save(rep, report.NewMeta(3)))
	assert.True(t, rep.Frozen())

	loaded, err := st.Load(path)
	require.NoError(t, err)
	assert.Equal(t, rep.Tests(), loaded.Tests())
	assert.Equal(t, rep.Summary(), loaded.Summary())
	assert.Equal(t, "gotest", loaded.Tool())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestJSONStorage_SaveReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))
	st := newStorage(t, path)

	require.NoError(t, st.Save(sampleReport(t), report.Meta{}))

	loaded, err := st.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
}

func TestJSONStorage_SaveFailureKeepsReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")
	require.NoError(t, os.Mkdir(path, 0755))
	st := newStorage(t, path)
	rep := sampleReport(t)

	err := st.Save(rep, report.Meta{})

	assert.Error(t, err)
	assert.Equal(t, 2, rep.Len())
}

func TestJSONStorage_Load(t *testing.T) {
	dir := t.TempDir()
	st := newStorage(t, filepath.Join(dir, "report.json"))

	_, err := st.Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"results":`), 0644))
	_, err = st.Load(bad)
	assert.Error(t, err)
}

func TestJSONStorage_CheckWritable(t *testing.T) {
	dir := t.TempDir()

	t.Run("creates missing directory", func(t *testing.T) {
		st := newStorage(t, filepath.Join(dir, "out", "report.json"))
		require.NoError(t, st.CheckWritable())
		entries, err := os.ReadDir(filepath.Join(dir, "out"))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("rejects a directory as report path", func(t *testing.T) {
		target := filepath.Join(dir, "isdir")
		require.NoError(t, os.Mkdir(target, 0755))
		assert.Error(t, newStorage(t, target).CheckWritable())
	})

	t.Run("rejects a read-only directory", func(t *testing.T) {
		if runtime.GOOS == "windows" || os.Geteuid() == 0 {
			t.Skip("permissions are not enforced")
		}
		ro := filepath.Join(dir, "ro")
		require.NoError(t, os.Mkdir(ro, 0555))
		assert.Error(t, newStorage(t, filepath.Join(ro, "report.json")).CheckWritable())
	})
}

func TestJSONStorage_LoadWithMeta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	st := newStorage(t, path)
	meta := report.NewMeta(2)
	require.NoError(t, st.Save(sampleReport(t), meta))

	loaded, got, err := st.LoadWithMeta(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	assert.Equal(t, meta.ReportID, got.ReportID)
	assert.Equal(t, 2, got.Workers)
	assert.True(t, meta.Timestamp.Truncate(time.Second).Equal(got.Timestamp))
}
