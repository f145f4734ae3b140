package dataset_test

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/born-ml/helloworld/internal/backend/cpu"
	"github.com/born-ml/helloworld/internal/dataset"
	"github.com/born-ml/helloworld/internal/dataset/datasettest"
	"github.com/born-ml/helloworld/internal/tensor"
	"github.com/born-ml/helloworld/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyDataset(t *testing.T, n int) *dataset.InMemory {
	t.Helper()
	pix := make([]uint8, n*4)
	labels := make([]int32, n)
	for i := range n {
		labels[i] = int32(i)
		for j := range 4 {
			pix[i*4+j] = uint8(i)
		}
	}
	ds, err := dataset.NewInMemory(1, 2, 2, pix, labels)
	require.NoError(t, err)
	return ds
}

func TestRandomSplit(t *testing.T) {
	ds := tinyDataset(t, 100)
	parts, err := dataset.RandomSplit(ds, []int{70, 30}, 42)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, 70, parts[0].Len())
	assert.Equal(t, 30, parts[1].Len())

	all := append(slices.Clone(parts[0].Indices()), parts[1].Indices()...)
	slices.Sort(all)
	for i, idx := range all {
		assert.Equal(t, i, idx)
	}

	again, err := dataset.RandomSplit(ds, []int{70, 30}, 42)
	require.NoError(t, err)
	assert.Equal(t, parts[1].Indices(), again[1].Indices())

	_, err = dataset.RandomSplit(ds, []int{70, 20}, 42)
	assert.Error(t, err)
}

func TestSplitSizes(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		split     float64
		wantTrain int
		wantVal   int
		wantErr   bool
	}{
		{"fraction", 50000, 0.2, 40000, 10000, false},
		{"count", 60000, 5000, 55000, 5000, false},
		{"zero", 10, 0, 10, 0, false},
		{"negative", 10, -1, 0, 0, true},
		{"too large", 10, 11, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			train, val, err := dataset.SplitSizes(tt.n, tt.split)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTrain, train)
			assert.Equal(t, tt.wantVal, val)
		})
	}
}

func TestIDX_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	pix := []uint8{1, 2, 3, 4, 5, 6, 7, 8}

	var buf bytes.Buffer
	require.NoError(t, dataset.WriteIDXImages(&buf, pix, 2, 2, 2))
	imgPath := filepath.Join(dir, "images")
	require.NoError(t, os.WriteFile(imgPath, buf.Bytes(), 0o600))

	got, n, rows, cols, err := dataset.ReadIDXImages(imgPath)
	require.NoError(t, err)
	assert.Equal(t, pix, got)
	assert.Equal(t, []int{2, 2, 2}, []int{n, rows, cols})

	// A label file is not an image file.
	buf.Reset()
	require.NoError(t, dataset.WriteIDXLabels(&buf, []int32{3, 7}))
	labPath := filepath.Join(dir, "labels")
	require.NoError(t, os.WriteFile(labPath, buf.Bytes(), 0o600))
	_, _, _, _, err = dataset.ReadIDXImages(labPath)
	assert.ErrorContains(t, err, "invalid magic number")

	labels, err := dataset.ReadIDXLabels(labPath)
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 7}, labels)
}

func TestIDX_HeaderLargerThanFile(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, dataset.WriteIDXImages(&buf, []uint8{1, 2, 3, 4}, 60000, 28, 28))
	imgPath := filepath.Join(dir, "images")
	require.NoError(t, os.WriteFile(imgPath, buf.Bytes(), 0o600))
	_, _, _, _, err := dataset.ReadIDXImages(imgPath)
	assert.ErrorContains(t, err, "60000x28x28 pixels but file holds 4 bytes")

	// Dimensions whose product overflows int64.
	buf.Reset()
	require.NoError(t, dataset.WriteIDXImages(&buf, nil, math.MaxUint32, math.MaxUint32, math.MaxUint32))
	require.NoError(t, os.WriteFile(imgPath, buf.Bytes(), 0o600))
	_, _, _, _, err = dataset.ReadIDXImages(imgPath)
	assert.ErrorContains(t, err, "but file holds 0 bytes")

	buf.Reset()
	require.NoError(t, dataset.WriteIDXLabels(&buf, []int32{1, 2}))
	data := buf.Bytes()
	data[4], data[5] = 0xff, 0xff
	labPath := filepath.Join(dir, "labels")
	require.NoError(t, os.WriteFile(labPath, data, 0o600))
	_, err = dataset.ReadIDXLabels(labPath)
	assert.ErrorContains(t, err, "labels but file holds 2 bytes")
}

func TestLoadMNIST_NotPrepared(t *testing.T) {
	_, err := dataset.LoadMNIST(t.TempDir(), true)
	assert.ErrorIs(t, err, dataset.ErrNotPrepared)
}

func TestPrepareMNIST(t *testing.T) {
	srv := datasettest.NewServer(t, datasettest.MNISTFiles(t, 20, 10))
	raw := filepath.Join(t.TempDir(), "MNIST", "raw")
	ctx := context.Background()

	require.NoError(t, dataset.PrepareMNIST(ctx, srv.Client(), srv.Mirror(), raw, false))
	assert.Equal(t, int64(4), srv.Hits.Load())

	entries, err := os.ReadDir(raw)
	require.NoError(t, err)
	assert.Len(t, entries, 4, "archives are removed after decompression")

	// Idempotent: nothing is fetched again.
	require.NoError(t, dataset.PrepareMNIST(ctx, srv.Client(), srv.Mirror(), raw, false))
	assert.Equal(t, int64(4), srv.Hits.Load())

	train, err := dataset.LoadMNIST(raw, true)
	require.NoError(t, err)
	assert.Equal(t, 20, train.Len())
	im, label := train.Get(13)
	assert.Equal(t, datasettest.Label(13), label)
	assert.Equal(t, float32(datasettest.Pixel(13)), im.Pix[100])

	test, err := dataset.LoadMNIST(raw, false)
	require.NoError(t, err)
	assert.Equal(t, 10, test.Len())
}

func TestPrepareMNIST_ChecksumMismatch(t *testing.T) {
	srv := datasettest.NewServer(t, datasettest.MNISTFiles(t, 2, 2))
	raw := t.TempDir()

	err := dataset.PrepareMNIST(context.Background(), srv.Client(), srv.Mirror(), raw, true)
	require.ErrorIs(t, err, dataset.ErrChecksum)

	entries, err := os.ReadDir(raw)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected downloads leave no files behind")
}

func TestPrepareMNIST_DownloadFailure(t *testing.T) {
	srv := datasettest.NewServer(t, map[string][]byte{})
	err := dataset.PrepareMNIST(context.Background(), srv.Client(), srv.Mirror(), t.TempDir(), false)
	assert.ErrorContains(t, err, "404")
}

func TestPrepareMNIST_Canceled(t *testing.T) {
	srv := datasettest.NewServer(t, datasettest.MNISTFiles(t, 2, 2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := dataset.PrepareMNIST(ctx, srv.Client(), srv.Mirror(), t.TempDir(), false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCIFAR10(t *testing.T) {
	srv := datasettest.NewServer(t, datasettest.CIFAR10Archive(t, 4))
	root := t.TempDir()
	ctx := context.Background()

	_, err := dataset.CIFAR10{Root: root}.Load(true)
	require.ErrorIs(t, err, dataset.ErrNotPrepared)

	require.NoError(t, dataset.PrepareCIFAR10(ctx, srv.Client(), srv.Mirror(), root, false))
	require.NoError(t, dataset.PrepareCIFAR10(ctx, srv.Client(), srv.Mirror(), root, false))
	assert.Equal(t, int64(1), srv.Hits.Load())

	train, err := dataset.CIFAR10{Root: root}.Load(true)
	require.NoError(t, err)
	assert.Equal(t, 20, train.Len())
	c, h, w := train.Shape()
	assert.Equal(t, []int{3, 32, 32}, []int{c, h, w})

	im, label := train.Get(17)
	assert.Equal(t, datasettest.Label(17), label)
	assert.Equal(t, float32(datasettest.Pixel(17)), im.At(2, 31, 31))

	test, err := dataset.CIFAR10{Root: root}.Load(false)
	require.NoError(t, err)
	assert.Equal(t, 4, test.Len())
}

func TestReadCIFAR10Batch_Truncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data_batch_1.bin")
	require.NoError(t, os.WriteFile(path, datasettest.CIFAR10Batch(2, 0)[:5000], 0o600))
	_, _, err := dataset.ReadCIFAR10Batch(path)
	assert.ErrorContains(t, err, "not a multiple")
}

func TestLoader(t *testing.T) {
	backend := cpu.New()
	ds := tinyDataset(t, 10)

	tests := []struct {
		name     string
		cfg      dataset.LoaderConfig
		wantLen  int
		lastSize int
	}{
		{"keep last", dataset.LoaderConfig{BatchSize: 4}, 3, 2},
		{"drop last", dataset.LoaderConfig{BatchSize: 4, DropLast: true}, 2, 4},
		{"exact", dataset.LoaderConfig{BatchSize: 5}, 2, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := dataset.NewLoader(ds, tt.cfg, backend)
			assert.Equal(t, tt.wantLen, loader.Len())

			count, last := 0, 0
			for i, batch := range loader.All() {
				assert.Equal(t, count, i)
				assert.Equal(t, tensorShape(batch.Size()), batch.Inputs.Shape())
				count++
				last = batch.Size()
			}
			assert.Equal(t, tt.wantLen, count)
			assert.Equal(t, tt.lastSize, last)
		})
	}
}

func tensorShape(n int) tensor.Shape { return tensor.Shape{n, 1, 2, 2} }

func labelsOf(loader *dataset.Loader[*cpu.CPUBackend]) []int32 {
	var out []int32
	for _, batch := range loader.All() {
		out = append(out, batch.Labels...)
	}
	return out
}

func TestLoader_ShuffleDeterminism(t *testing.T) {
	backend := cpu.New()
	ds := tinyDataset(t, 64)

	sequential := labelsOf(dataset.NewLoader(ds, dataset.LoaderConfig{BatchSize: 8}, backend))
	for i, l := range sequential {
		assert.Equal(t, int32(i), l)
	}

	a := dataset.NewLoader(ds, dataset.LoaderConfig{BatchSize: 8, Shuffle: true, Seed: 1, NumWorkers: 1}, backend)
	b := dataset.NewLoader(ds, dataset.LoaderConfig{BatchSize: 8, Shuffle: true, Seed: 1, NumWorkers: 4}, backend)

	epoch0 := labelsOf(a)
	assert.Equal(t, epoch0, labelsOf(b), "worker count does not change the order")
	assert.NotEqual(t, sequential, epoch0)

	epoch1 := labelsOf(a)
	assert.NotEqual(t, epoch0, epoch1, "each epoch reshuffles")
	assert.ElementsMatch(t, epoch0, epoch1)
}

func TestLoader_TransformAndEarlyStop(t *testing.T) {
	backend := cpu.New()
	ds := tinyDataset(t, 10)
	loader := dataset.NewLoader(ds, dataset.LoaderConfig{BatchSize: 2, Transform: transform.ToTensor{}}, backend)

	seen := 0
	for _, batch := range loader.All() {
		assert.InDeltaSlice(t, []float32{0, 0, 0, 0, 1.0 / 255, 1.0 / 255, 1.0 / 255, 1.0 / 255},
			batch.Inputs.Data(), 1e-7)
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestExtractTarGz_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.tar.gz")
	files := datasettest.CIFAR10Archive(t, 1)
	require.NoError(t, os.WriteFile(archive, files[dataset.CIFAR10Archive], 0o600))

	// A well-formed archive extracts under the destination.
	dest := filepath.Join(dir, "out")
	require.NoError(t, dataset.ExtractTarGz(archive, dest))
	assert.True(t, dataset.Exists(filepath.Join(dest, dataset.CIFAR10Dir, dataset.CIFAR10TestFile)))

	evil := filepath.Join(dir, "traversal.tar.gz")
	require.NoError(t, os.WriteFile(evil, datasettest.TarGz(t, map[string][]byte{"../escape.txt": []byte("x")}), 0o600))
	assert.ErrorContains(t, dataset.ExtractTarGz(evil, dest), "escapes destination")
	assert.False(t, dataset.Exists(filepath.Join(dir, "escape.txt")))
}
