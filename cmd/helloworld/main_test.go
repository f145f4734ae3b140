package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/helloworld/trainer"
)

func writeArgs(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trainer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadArgs(t *testing.T) {
	path := writeArgs(t, "log_every_n_steps: 25\nmax_epochs: 4\naccelerator: cpu\n")

	tests := []struct {
		name         string
		path         string
		set          map[string]bool
		wantLogEvery int
		wantEpochs   int
	}{
		{"flags only", "", nil, 10, 2},
		{"file wins over unset flags", path, nil, 25, 4},
		{"explicit epochs", path, map[string]bool{"epochs": true}, 25, 2},
		{"explicit log-every", path, map[string]bool{"log-every": true}, 10, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := loadArgs(tt.path, tt.set, 10, 2)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLogEvery, args.LogEveryNSteps)
			assert.Equal(t, tt.wantEpochs, args.MaxEpochs)
		})
	}

	_, err := loadArgs(path, map[string]bool{"epochs": true}, 10, 0)
	require.ErrorIs(t, err, trainer.ErrInvalidArgs)
}

func TestRunArgs_FlagsOverrideFile(t *testing.T) {
	path := writeArgs(t, "log_every_n_steps: 25\nmax_epochs: 4\n")

	var buf bytes.Buffer
	require.NoError(t, runArgs([]string{"-args", path, "-epochs", "9"}, &buf))
	assert.Contains(t, buf.String(), "log_every_n_steps = 25")
	assert.Contains(t, buf.String(), "max_epochs = 9")

	buf.Reset()
	require.NoError(t, runArgs([]string{"-args", path}, &buf))
	assert.Contains(t, buf.String(), "max_epochs = 4")
}

func TestTrainerArgs_AppliesCommandLine(t *testing.T) {
	path := writeArgs(t, "log_every_n_steps: 25\nmax_epochs: 4\n")
	f := runFlags{
		argsPath: path,
		epochs:   7,
		logEvery: 50,
		accel:    "cpu",
		set:      map[string]bool{"epochs": true},
	}

	args, err := f.trainerArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, 7, args.MaxEpochs)
	assert.Equal(t, 25, args.LogEveryNSteps)
	assert.Equal(t, "cpu", args.Accelerator)
	assert.Len(t, args.Loggers, 1)
}
