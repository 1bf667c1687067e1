package execution

import (
	"bytes"
	"context"
	"os/exec"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctrf/internal/config"
)

func TestRunner_ExitCodes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix true/false binaries")
	}

	for _, tc := range []struct {
		binary string
	}{
		{binary: "true"},
		{binary: "false"}, // exit status 1 means failing tests
	} {
		t.Run(tc.binary, func(t *testing.T) {
			path, err := exec.LookPath(tc.binary)
			if err != nil {
				t.Skipf("%s not available", tc.binary)
			}
			cfg := config.New()
			cfg.GoBinary = path

			var out bytes.Buffer
			err = NewRunner(cfg).Run(context.Background(), []string{"./..."}, 1, &out)
			assert.NoError(t, err)
		})
	}
}

func TestRunner_MissingBinary(t *testing.T) {
	cfg := config.New()
	cfg.GoBinary = "/nonexistent/bin/go"

	var out bytes.Buffer
	err := NewRunner(cfg).Run(context.Background(), []string{"./..."}, 1, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/nonexistent/bin/go test")
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := config.New()
	var out bytes.Buffer
	err := NewRunner(cfg).Run(ctx, []string{"./..."}, 1, &out)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLastLines(t *testing.T) {
	assert.Equal(t, "c\nd", lastLines("a\nb\nc\nd\n", 2))
	assert.Equal(t, "a", lastLines("a", 5))
}
