package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// CIFAR10 constants.
const (
	CIFAR10Mirror  = "https://www.cs.toronto.edu/~kriz/"
	CIFAR10Archive = "cifar-10-binary.tar.gz"
	CIFAR10MD5     = "c32a1d4ab5d03f1284b67883e8d87530"
	CIFAR10Dir     = "cifar-10-batches-bin"

	cifarImageSize  = 3 * 32 * 32
	cifarRecordSize = 1 + cifarImageSize
)

// CIFAR10TrainFiles are the five training batches (10,000 images each).
var CIFAR10TrainFiles = []string{
	"data_batch_1.bin", "data_batch_2.bin", "data_batch_3.bin", "data_batch_4.bin", "data_batch_5.bin",
}

// CIFAR10TestFile is the test batch.
const CIFAR10TestFile = "test_batch.bin"

// PrepareCIFAR10 downloads the binary archive into root and extracts
// cifar-10-batches-bin/. Nothing is fetched when the directory already holds
// every batch.
func PrepareCIFAR10(ctx context.Context, client *http.Client, mirror, root string, verify bool) error {
	dir := filepath.Join(root, CIFAR10Dir)
	complete := Exists(filepath.Join(dir, CIFAR10TestFile))
	for _, f := range CIFAR10TrainFiles {
		complete = complete && Exists(filepath.Join(dir, f))
	}
	if complete {
		return nil
	}

	archive := filepath.Join(root, CIFAR10Archive)
	if !Exists(archive) {
		sum := ""
		if verify {
			sum = CIFAR10MD5
		}
		if err := Download(ctx, client, mirror+CIFAR10Archive, archive, sum); err != nil {
			return fmt.Errorf("cifar10: %w", err)
		}
	}
	if err := ExtractTarGz(archive, root); err != nil {
		return fmt.Errorf("cifar10: %w", err)
	}
	return nil
}

// CIFAR10 is the dataset provider for the binary CIFAR10 distribution.
type CIFAR10 struct {
	Root string // directory holding cifar-10-batches-bin/
}

// Load reads the 50,000 training or the 10,000 test images. Missing files
// yield ErrNotPrepared.
func (c CIFAR10) Load(train bool) (*InMemory, error) {
	files := []string{CIFAR10TestFile}
	if train {
		files = CIFAR10TrainFiles
	}

	var pix []uint8
	var labels []int32
	for _, name := range files {
		p, l, err := ReadCIFAR10Batch(filepath.Join(c.Root, CIFAR10Dir, name))
		if err != nil {
			return nil, fmt.Errorf("cifar10: %w", notPrepared(err))
		}
		pix = append(pix, p...)
		labels = append(labels, l...)
	}
	return NewInMemory(3, 32, 32, pix, labels)
}

// ReadCIFAR10Batch reads one binary batch file: records of one label byte
// followed by 3072 CHW pixel bytes (1024 red, 1024 green, 1024 blue).
func ReadCIFAR10Batch(filename string) (pix []uint8, labels []int32, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filename, err)
	}
	if len(data)%cifarRecordSize != 0 {
		return nil, nil, fmt.Errorf("%s: size %d is not a multiple of %d", filename, len(data), cifarRecordSize)
	}

	n := len(data) / cifarRecordSize
	pix = make([]uint8, 0, n*cifarImageSize)
	labels = make([]int32, n)
	for i := 0; i < n; i++ {
		rec := data[i*cifarRecordSize : (i+1)*cifarRecordSize]
		labels[i] = int32(rec[0])
		pix = append(pix, rec[1:]...)
	}
	return pix, labels, nil
}
