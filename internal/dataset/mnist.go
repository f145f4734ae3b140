package dataset

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MNIST constants.
const (
	MNISTMirror    = "https://ossci-datasets.s3.amazonaws.com/mnist/"
	MNISTTrainSize = 60000
	MNISTTestSize  = 10000

	idxImageMagic = 2051
	idxLabelMagic = 2049
)

// MNISTResources lists the gzip IDX files of MNIST with their digests.
var MNISTResources = []Resource{
	{Name: "train-images-idx3-ubyte.gz", MD5: "f68b3c2dcbeaaa9fbdd348bbdeb94873"},
	{Name: "train-labels-idx1-ubyte.gz", MD5: "d53e105ee54ea40749a09fcc2d2b1b13"},
	{Name: "t10k-images-idx3-ubyte.gz", MD5: "9fb629c4189551a2d022fa330f9573f3"},
	{Name: "t10k-labels-idx1-ubyte.gz", MD5: "ec29112dd5afa0611ce80d1b7f02629c"},
}

// PrepareMNIST downloads and decompresses every MNIST file missing from
// rawDir. Files already decompressed are skipped. The compressed archives
// are removed after decompression.
func PrepareMNIST(ctx context.Context, client *http.Client, mirror, rawDir string, verify bool) error {
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		return fmt.Errorf("mnist: %w", err)
	}
	for _, res := range MNISTResources {
		raw := filepath.Join(rawDir, strings.TrimSuffix(res.Name, ".gz"))
		if Exists(raw) {
			continue
		}
		gz := filepath.Join(rawDir, res.Name)
		if !Exists(gz) {
			sum := ""
			if verify {
				sum = res.MD5
			}
			if err := Download(ctx, client, mirror+res.Name, gz, sum); err != nil {
				return fmt.Errorf("mnist: %w", err)
			}
		}
		if err := Gunzip(gz, raw); err != nil {
			return fmt.Errorf("mnist: %w", err)
		}
		_ = os.Remove(gz)
	}
	return nil
}

// LoadMNIST reads the training (60,000) or test (10,000) set from the
// decompressed IDX files in rawDir. Missing files yield ErrNotPrepared.
func LoadMNIST(rawDir string, train bool) (*InMemory, error) {
	prefix := "t10k"
	if train {
		prefix = "train"
	}

	pix, n, h, w, err := ReadIDXImages(filepath.Join(rawDir, prefix+"-images-idx3-ubyte"))
	if err != nil {
		return nil, fmt.Errorf("mnist: %w", notPrepared(err))
	}
	labels, err := ReadIDXLabels(filepath.Join(rawDir, prefix+"-labels-idx1-ubyte"))
	if err != nil {
		return nil, fmt.Errorf("mnist: %w", notPrepared(err))
	}
	if len(labels) != n {
		return nil, fmt.Errorf("mnist: %d images but %d labels", n, len(labels))
	}
	return NewInMemory(1, h, w, pix, labels)
}

// ReadIDXImages reads an IDX3 image file.
//
// IDX file format for images:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes
//	number of cols: 4 bytes
//	pixel data: unsigned bytes (0-255)
func ReadIDXImages(filename string) (pix []uint8, n, rows, cols int, err error) {
	file, payload, err := openIDX(filename, idxImageMagic)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	defer file.Close()
	r := bufio.NewReader(file)

	var dims [3]uint32
	if err := binary.Read(r, binary.BigEndian, &dims); err != nil {
		return nil, 0, 0, 0, fmt.Errorf("%s: failed to read header: %w", filename, err)
	}
	n, rows, cols = int(dims[0]), int(dims[1]), int(dims[2])
	if !fits(payload-12, int64(n), int64(rows), int64(cols)) {
		return nil, 0, 0, 0, fmt.Errorf("%s: header declares %dx%dx%d pixels but file holds %d bytes", filename, n, rows, cols, payload-12)
	}
	pix = make([]uint8, n*rows*cols)
	if _, err := io.ReadFull(r, pix); err != nil {
		return nil, 0, 0, 0, fmt.Errorf("%s: failed to read pixels: %w", filename, err)
	}
	return pix, n, rows, cols, nil
}

// ReadIDXLabels reads an IDX1 label file.
//
// IDX file format for labels:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes (0-9)
func ReadIDXLabels(filename string) ([]int32, error) {
	file, payload, err := openIDX(filename, idxLabelMagic)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	r := bufio.NewReader(file)

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", filename, err)
	}
	if int64(count) > payload-4 {
		return nil, fmt.Errorf("%s: header declares %d labels but file holds %d bytes", filename, count, payload-4)
	}
	raw := make([]uint8, count)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("%s: failed to read labels: %w", filename, err)
	}
	labels := make([]int32, len(raw))
	for i, b := range raw {
		labels[i] = int32(b)
	}
	return labels, nil
}

// fits reports whether the product of dims is at most avail without
// overflowing.
func fits(avail int64, dims ...int64) bool {
	for _, d := range dims {
		if d == 0 {
			return true
		}
	}
	for _, d := range dims {
		if d > avail {
			return false
		}
		avail /= d
	}
	return true
}

// openIDX opens filename, checks its magic number and returns the file
// positioned after it together with the number of bytes that follow.
func openIDX(filename string, magic uint32) (*os.File, int64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, 0, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, err
	}
	var got uint32
	if err := binary.Read(file, binary.BigEndian, &got); err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("%s: failed to read magic number: %w", filename, err)
	}
	if got != magic {
		file.Close()
		return nil, 0, fmt.Errorf("%s: invalid magic number: got %d, want %d", filename, got, magic)
	}
	return file, info.Size() - 4, nil
}

// WriteIDXImages writes images in IDX3 format. It is the inverse of
// ReadIDXImages and is used to build fixtures.
func WriteIDXImages(w io.Writer, pix []uint8, n, rows, cols int) error {
	header := [4]uint32{idxImageMagic, uint32(n), uint32(rows), uint32(cols)} //nolint:gosec // dataset dims fit uint32
	if err := binary.Write(w, binary.BigEndian, header); err != nil {
		return err
	}
	_, err := w.Write(pix)
	return err
}

// WriteIDXLabels writes labels in IDX1 format.
func WriteIDXLabels(w io.Writer, labels []int32) error {
	header := [2]uint32{idxLabelMagic, uint32(len(labels))} //nolint:gosec // dataset size fits uint32
	if err := binary.Write(w, binary.BigEndian, header); err != nil {
		return err
	}
	raw := make([]uint8, len(labels))
	for i, l := range labels {
		raw[i] = uint8(l) //nolint:gosec // class ids are < 256
	}
	_, err := w.Write(raw)
	return err
}
