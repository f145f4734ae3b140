package accelerator

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		requested Kind
		gpu       bool
		want      Kind
		warns     bool
		wantErr   bool
	}{
		{name: "auto without gpu", requested: Auto, want: CPU},
		{name: "auto with gpu", requested: Auto, gpu: true, want: CPU},
		{name: "cpu", requested: CPU, gpu: true, want: CPU},
		{name: "gpu missing", requested: GPU, want: CPU, warns: true},
		{name: "gpu present", requested: GPU, gpu: true, want: CPU, warns: true},
		{name: "unknown", requested: "tpu", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			got, err := Resolve(tt.requested, tt.gpu, logger)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.warns, bytes.Contains(buf.Bytes(), []byte("level=WARN")))
		})
	}
}

func TestKindValid(t *testing.T) {
	assert.True(t, Auto.Valid())
	assert.True(t, GPU.Valid())
	assert.False(t, Kind("mps").Valid())
}

func TestDescribeCPU(t *testing.T) {
	info := DescribeCPU()
	assert.NotEmpty(t, info.Brand)
	assert.Positive(t, info.LogicalCores)
}

func TestKernelConfig(t *testing.T) {
	cfg := KernelConfig(CPUInfo{PhysicalCores: 8, LogicalCores: 16, CacheLine: 128})
	assert.Equal(t, 8, cfg.NumWorkers)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 128, cfg.MinChunkSize)

	cfg = KernelConfig(CPUInfo{LogicalCores: 1})
	assert.Equal(t, 1, cfg.NumWorkers)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 64, cfg.MinChunkSize)
}

func TestGPUAvailable_Stable(t *testing.T) {
	assert.Equal(t, GPUAvailable(), GPUAvailable())
}
