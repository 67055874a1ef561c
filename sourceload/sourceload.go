// Package sourceload stages an upstream project tree for the build:
// tarballs and zip archives are extracted, plain directories copied. The
// loader flags the spec document when an archive has no single root entry,
// so %prep knows to create one before unpacking.
package sourceload

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/specbuild/gorpg/rpglog"
	"github.com/specbuild/gorpg/spec"
)

// Magic signatures of the supported tarball compressions.
var compressionMagic = map[string][]byte{
	"gz":  {0x1f, 0x8b, 0x08},
	"bz2": {0x42, 0x5a, 0x68},
	"xz":  {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	"zst": {0x28, 0xb5, 0x2f, 0xfd},
}

// LoadSources stages the project at path into sourceDir. Archives are
// extracted; a directory is mirrored as-is. When an archive lacks a common
// root directory, spc.CreateRootDirectory is set.
func LoadSources(path, sourceDir string, spc *spec.Spec) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("sourceload: %w", err)
	}
	if info.IsDir() {
		rpglog.L.Debugf("copying project directory %s to %s", path, sourceDir)
		return copyTree(path, sourceDir)
	}
	if isZip(path) {
		return loadZip(path, sourceDir, spc)
	}
	return loadTar(path, sourceDir, spc)
}

// detectCompression sniffs the leading bytes of the file against the magic
// table and returns the compression name.
func detectCompression(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	header := make([]byte, 6)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", err
	}
	for name, magic := range compressionMagic {
		if n >= len(magic) && bytes.HasPrefix(header[:n], magic) {
			return name, nil
		}
	}
	return "", fmt.Errorf("sourceload: %s is not a supported archive", path)
}

func newDecompressor(r io.Reader, kind string) (io.Reader, error) {
	switch kind {
	case "gz":
		return gzip.NewReader(r)
	case "bz2":
		return bzip2.NewReader(r), nil
	case "xz":
		return xz.NewReader(r)
	case "zst":
		return zstd.NewReader(r)
	}
	return nil, fmt.Errorf("sourceload: unsupported compression %q", kind)
}

func isZip(path string) bool {
	r, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	r.Close()
	return true
}

// hasSingleRoot reports whether every archive member lives under one common
// top-level directory.
func hasSingleRoot(names []string) bool {
	root := ""
	for _, name := range names {
		clean := strings.TrimPrefix(filepath.ToSlash(name), "./")
		clean = strings.TrimPrefix(clean, "/")
		if clean == "" {
			continue
		}
		head, _, hasSlash := strings.Cut(clean, "/")
		if !hasSlash {
			// a bare top-level file
			return false
		}
		if root == "" {
			root = head
		} else if head != root {
			return false
		}
	}
	return root != ""
}

// securePath joins an archive member name onto dest, refusing names that
// would escape it.
func securePath(dest, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("sourceload: archive member escapes destination: %s", name)
	}
	return filepath.Join(dest, clean), nil
}

func loadTar(path, sourceDir string, spc *spec.Spec) error {
	kind, err := detectCompression(path)
	if err != nil {
		return err
	}
	rpglog.L.Debugf("extracting %s tarball %s", kind, path)

	names, err := tarNames(path, kind)
	if err != nil {
		return err
	}
	if !hasSingleRoot(names) {
		rpglog.L.Debugf("%s has no common root directory", path)
		spc.CreateRootDirectory = true
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("sourceload: %w", err)
	}
	defer f.Close()
	r, err := newDecompressor(f, kind)
	if err != nil {
		return fmt.Errorf("sourceload: %w", err)
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("sourceload: reading %s: %w", path, err)
		}
		target, err := securePath(sourceDir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, hdr.FileInfo().Mode().Perm()); err != nil {
				return fmt.Errorf("sourceload: %w", err)
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("sourceload: %w", err)
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return fmt.Errorf("sourceload: %w", err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		default:
			rpglog.L.Debugf("skipping irregular archive member %s", hdr.Name)
		}
	}
	return nil
}

// tarNames lists the member names of the tarball in a first pass, for root
// directory detection.
func tarNames(path, kind string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sourceload: %w", err)
	}
	defer f.Close()
	r, err := newDecompressor(f, kind)
	if err != nil {
		return nil, fmt.Errorf("sourceload: %w", err)
	}

	var names []string
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sourceload: reading %s: %w", path, err)
		}
		name := hdr.Name
		if hdr.Typeflag == tar.TypeDir && !strings.HasSuffix(name, "/") {
			name += "/"
		}
		names = append(names, name)
	}
	return names, nil
}

func loadZip(path, sourceDir string, spc *spec.Spec) error {
	rpglog.L.Debugf("extracting zip archive %s", path)
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("sourceload: %w", err)
	}
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, zf := range zr.File {
		names = append(names, zf.Name)
	}
	if !hasSingleRoot(names) {
		rpglog.L.Debugf("%s has no common root directory", path)
		spc.CreateRootDirectory = true
	}

	for _, zf := range zr.File {
		target, err := securePath(sourceDir, zf.Name)
		if err != nil {
			return err
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, zf.Mode().Perm()); err != nil {
				return fmt.Errorf("sourceload: %w", err)
			}
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return fmt.Errorf("sourceload: %w", err)
		}
		err = writeFile(target, rc, zf.Mode().Perm())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("sourceload: %w", err)
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("sourceload: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("sourceload: writing %s: %w", target, err)
	}
	return out.Close()
}

// copyTree mirrors src into dest, replacing dest if it already exists.
func copyTree(src, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		if err := os.RemoveAll(dest); err != nil {
			return fmt.Errorf("sourceload: %w", err)
		}
	}
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		switch {
		case info.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			in, err := os.Open(path)
			if err != nil {
				return err
			}
			defer in.Close()
			return writeFile(target, in, info.Mode().Perm())
		}
	})
}

// CreateArchive packs dir into <dir>.tar.gz next to it and returns the
// archive path. The builder stages this as the source tarball.
func CreateArchive(dir string) (string, error) {
	name := filepath.Clean(dir) + ".tar.gz"
	out, err := os.Create(name)
	if err != nil {
		return "", fmt.Errorf("sourceload: %w", err)
	}
	gw := gzip.NewWriter(out)
	tw := tar.NewWriter(gw)

	base := filepath.Base(filepath.Clean(dir))
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		var link string
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(filepath.Join(base, rel))
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		out.Close()
		return "", fmt.Errorf("sourceload: packing %s: %w", dir, err)
	}
	if err := tw.Close(); err != nil {
		out.Close()
		return "", fmt.Errorf("sourceload: %w", err)
	}
	if err := gw.Close(); err != nil {
		out.Close()
		return "", fmt.Errorf("sourceload: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("sourceload: %w", err)
	}
	rpglog.L.Infof("packed %s into %s", dir, name)
	return name, nil
}
