package builder

import (
	"fmt"
	"io"
	"os"

	"github.com/cavaliergopher/cpio"
	"github.com/cavaliergopher/rpm"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Verify opens a freshly built package and checks that its headers parse.
func Verify(path string) (*rpm.Package, error) {
	pkg, err := rpm.Open(path)
	if err != nil {
		return nil, fmt.Errorf("builder: verifying %s: %w", path, err)
	}
	return pkg, nil
}

// ListPayload returns the member paths of the package's cpio payload.
func ListPayload(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("builder: %w", err)
	}
	defer f.Close()

	// Read the package headers; the reader is then positioned at the
	// compressed payload.
	pkg, err := rpm.Read(f)
	if err != nil {
		return nil, fmt.Errorf("builder: reading %s: %w", path, err)
	}

	var payload io.Reader
	switch compression := pkg.PayloadCompression(); compression {
	case "xz":
		if payload, err = xz.NewReader(f); err != nil {
			return nil, fmt.Errorf("builder: %w", err)
		}
	case "zstd":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("builder: %w", err)
		}
		defer zr.Close()
		payload = zr
	default:
		return nil, fmt.Errorf("builder: unsupported payload compression %q", compression)
	}

	if format := pkg.PayloadFormat(); format != "cpio" {
		return nil, fmt.Errorf("builder: unsupported payload format %q", format)
	}

	var names []string
	cr := cpio.NewReader(payload)
	for {
		hdr, err := cr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("builder: walking payload of %s: %w", path, err)
		}
		names = append(names, hdr.Name)
	}
	return names, nil
}
