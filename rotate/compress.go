package rotate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

// compressFile writes src compressed to a temporary name, renames it into
// place and only then removes src. On failure src is left untouched and the
// returned path is empty.
func compressFile(src string, c Compression) (string, error) {
	dst := src + c.Ext()
	tmp := dst + ".tmp"

	if err := writeCompressed(src, tmp, c); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Remove(src); err != nil {
		return dst, fmt.Errorf("remove uncompressed backup: %w", err)
	}
	return dst, nil
}

func writeCompressed(src, dst string, c Compression) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	switch c {
	case CompressionGzip:
		zw := gzip.NewWriter(out)
		zw.Name = filepath.Base(src)
		zw.ModTime = info.ModTime()
		if _, err = io.Copy(zw, in); err != nil {
			return err
		}
		if err = zw.Close(); err != nil {
			return err
		}
	case CompressionZip:
		zw := zip.NewWriter(out)
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     filepath.Base(src),
			Method:   zip.Deflate,
			Modified: info.ModTime(),
		})
		if err != nil {
			return err
		}
		if _, err = io.Copy(w, in); err != nil {
			return err
		}
		if err = zw.Close(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: compression %q", ErrUnsupported, c)
	}
	return out.Sync()
}
