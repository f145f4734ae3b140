package dataset

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/md5" //nolint:gosec // integrity check against published digests, not security
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Resource is a remote file and its expected MD5 digest (empty to skip
// verification).
type Resource struct {
	Name string
	MD5  string
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Download fetches url into dest, verifying the MD5 digest when md5sum is
// non-empty. The file is written to a temporary name and renamed on success,
// so an interrupted download never leaves a partial dest behind.
func Download(ctx context.Context, client *http.Client, url, dest, md5sum string) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}

	hash := md5.New() //nolint:gosec // see import
	_, err = io.Copy(io.MultiWriter(out, hash), resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("download %s: %w", url, err)
	}

	if md5sum != "" {
		if got := hex.EncodeToString(hash.Sum(nil)); got != md5sum {
			_ = os.Remove(tmp)
			return fmt.Errorf("%w: %s has md5 %s, want %s", ErrChecksum, filepath.Base(dest), got, md5sum)
		}
	}
	return os.Rename(tmp, dest)
}

// Gunzip decompresses the gzip file src into dest.
func Gunzip(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("gunzip %s: %w", src, err)
	}
	defer zr.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, zr); err != nil {
		out.Close()
		_ = os.Remove(dest)
		return fmt.Errorf("gunzip %s: %w", src, err)
	}
	return out.Close()
}

// ExtractTarGz unpacks the regular files and directories of a .tar.gz
// archive under destDir. Entries escaping destDir are rejected.
func ExtractTarGz(src, destDir string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("extract %s: %w", src, err)
	}
	defer zr.Close()

	root := filepath.Clean(destDir)
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("extract %s: %w", src, err)
		}

		target := filepath.Join(root, filepath.FromSlash(hdr.Name))
		if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
			return fmt.Errorf("extract %s: entry %q escapes destination", src, hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, fs.FileMode(hdr.Mode).Perm()|0o600); err != nil {
				return fmt.Errorf("extract %s: %w", src, err)
			}
		}
	}
}

func writeFile(path string, r io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil { //nolint:gosec // archives come from a fixed dataset mirror
		f.Close()
		return err
	}
	return f.Close()
}

// notPrepared wraps missing-file errors in ErrNotPrepared.
func notPrepared(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrNotPrepared, err)
	}
	return err
}
