// Package datasettest builds synthetic MNIST and CIFAR10 distributions and
// serves them over HTTP for download tests.
package datasettest

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"maps"
	"net/http"
	"net/http/httptest"
	"path"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/born-ml/helloworld/internal/dataset"
)

// Label returns the synthetic label of sample i.
func Label(i int) int32 { return int32(i % 10) } //nolint:gosec // i%10 fits

// Pixel returns the synthetic value of every pixel of sample i.
func Pixel(i int) uint8 { return uint8(i % 256) } //nolint:gosec // i%256 fits

func gz(tb testing.TB, raw []byte) []byte {
	tb.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		tb.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		tb.Fatal(err)
	}
	return buf.Bytes()
}

func mnistSet(tb testing.TB, n int) (images, labels []byte) {
	tb.Helper()
	pix := make([]uint8, n*28*28)
	lab := make([]int32, n)
	for i := range n {
		lab[i] = Label(i)
		img := pix[i*784 : (i+1)*784]
		for j := range img {
			img[j] = Pixel(i)
		}
	}
	var ib, lb bytes.Buffer
	if err := dataset.WriteIDXImages(&ib, pix, n, 28, 28); err != nil {
		tb.Fatal(err)
	}
	if err := dataset.WriteIDXLabels(&lb, lab); err != nil {
		tb.Fatal(err)
	}
	return ib.Bytes(), lb.Bytes()
}

// MNISTFiles returns the four gzip IDX files keyed by resource name, with
// nTrain training and nTest test images.
func MNISTFiles(tb testing.TB, nTrain, nTest int) map[string][]byte {
	tb.Helper()
	trainImages, trainLabels := mnistSet(tb, nTrain)
	testImages, testLabels := mnistSet(tb, nTest)
	return map[string][]byte{
		"train-images-idx3-ubyte.gz": gz(tb, trainImages),
		"train-labels-idx1-ubyte.gz": gz(tb, trainLabels),
		"t10k-images-idx3-ubyte.gz":  gz(tb, testImages),
		"t10k-labels-idx1-ubyte.gz":  gz(tb, testLabels),
	}
}

// CIFAR10Batch returns one binary batch of n records.
func CIFAR10Batch(n, offset int) []byte {
	const record = 1 + 3*32*32
	out := make([]byte, n*record)
	for i := range n {
		rec := out[i*record : (i+1)*record]
		rec[0] = byte(Label(offset + i))
		for j := 1; j < record; j++ {
			rec[j] = Pixel(offset + i)
		}
	}
	return out
}

// CIFAR10Archive returns cifar-10-binary.tar.gz, keyed by its name, holding
// five training batches and a test batch of perBatch records each.
func CIFAR10Archive(tb testing.TB, perBatch int) map[string][]byte {
	tb.Helper()
	files := map[string][]byte{
		path.Join(dataset.CIFAR10Dir, dataset.CIFAR10TestFile): CIFAR10Batch(perBatch, 0),
	}
	for i, name := range dataset.CIFAR10TrainFiles {
		files[path.Join(dataset.CIFAR10Dir, name)] = CIFAR10Batch(perBatch, i*perBatch)
	}
	return map[string][]byte{dataset.CIFAR10Archive: TarGz(tb, files)}
}

// TarGz packs files, keyed by slash-separated name, into a .tar.gz archive
// in name order.
func TarGz(tb testing.TB, files map[string][]byte) []byte {
	tb.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)

	names := slices.Sorted(maps.Keys(files))
	for _, name := range names {
		data := files[name]
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(data)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			tb.Fatal(err)
		}
		if _, err := tw.Write(data); err != nil {
			tb.Fatal(err)
		}
	}

	if err := tw.Close(); err != nil {
		tb.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		tb.Fatal(err)
	}
	return buf.Bytes()
}

// Server serves files by base name and counts requests.
type Server struct {
	*httptest.Server
	Hits atomic.Int64
}

// NewServer starts a server for files, closed when the test ends. Unknown
// names get 404. URL() + "/" is a valid mirror prefix.
func NewServer(tb testing.TB, files map[string][]byte) *Server {
	tb.Helper()
	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Hits.Add(1)
		data, ok := files[path.Base(r.URL.Path)]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	tb.Cleanup(s.Close)
	return s
}

// Mirror returns the mirror prefix for the server.
func (s *Server) Mirror() string { return s.URL + "/" }
