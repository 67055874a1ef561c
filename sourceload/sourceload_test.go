package sourceload

import (
	"archive/tar"
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specbuild/gorpg/spec"
)

// writeTarGz builds a small .tar.gz with the given member names. Names
// ending in "/" become directories, everything else a file with its name
// as content.
func writeTarGz(t *testing.T, path string, names []string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	for _, name := range names {
		if name[len(name)-1] == '/' {
			require.NoError(t, tw.WriteHeader(&tar.Header{
				Name:     name,
				Typeflag: tar.TypeDir,
				Mode:     0o755,
			}))
			continue
		}
		body := []byte(name)
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(body)),
		}))
		_, err := tw.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())
}

func writeZip(t *testing.T, path string, names []string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		if name[len(name)-1] != '/' {
			_, err = w.Write([]byte(name))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestHasSingleRoot(t *testing.T) {
	assert.True(t, hasSingleRoot([]string{"foo/", "foo/main.c", "foo/src/util.c"}))
	assert.True(t, hasSingleRoot([]string{"./foo/", "./foo/main.c"}))

	// a second top-level directory breaks the common root
	assert.False(t, hasSingleRoot([]string{"foo/main.c", "bar/util.c"}))
	// so does a bare top-level file
	assert.False(t, hasSingleRoot([]string{"foo/", "foo/main.c", "Makefile"}))
	assert.False(t, hasSingleRoot(nil))
}

func TestDetectCompression(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "src.tar.gz")
	writeTarGz(t, archive, []string{"foo/", "foo/main.c"})

	kind, err := detectCompression(archive)
	require.NoError(t, err)
	assert.Equal(t, "gz", kind)

	plain := filepath.Join(dir, "notanarchive")
	require.NoError(t, os.WriteFile(plain, []byte("hello"), 0o644))
	_, err = detectCompression(plain)
	require.Error(t, err)
}

func TestLoadSources_TarballWithRoot(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "foo-1.0.tar.gz")
	writeTarGz(t, archive, []string{"foo-1.0/", "foo-1.0/main.c", "foo-1.0/docs/README"})

	spc := spec.New()
	sourceDir := filepath.Join(dir, "sources")
	require.NoError(t, LoadSources(archive, sourceDir, spc))

	assert.False(t, spc.CreateRootDirectory)
	body, err := os.ReadFile(filepath.Join(sourceDir, "foo-1.0", "main.c"))
	require.NoError(t, err)
	assert.Equal(t, "foo-1.0/main.c", string(body))
	assert.FileExists(t, filepath.Join(sourceDir, "foo-1.0", "docs", "README"))
}

func TestLoadSources_TarballWithoutRootSetsFlag(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "flat.tar.gz")
	writeTarGz(t, archive, []string{"main.c", "Makefile"})

	spc := spec.New()
	require.NoError(t, LoadSources(archive, filepath.Join(dir, "sources"), spc))
	assert.True(t, spc.CreateRootDirectory)
}

func TestLoadSources_Zip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "src.zip")
	writeZip(t, archive, []string{"foo/", "foo/main.c"})

	spc := spec.New()
	sourceDir := filepath.Join(dir, "sources")
	require.NoError(t, LoadSources(archive, sourceDir, spc))

	assert.False(t, spc.CreateRootDirectory)
	assert.FileExists(t, filepath.Join(sourceDir, "foo", "main.c"))
}

func TestLoadSources_ZipWithoutRootSetsFlag(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "flat.zip")
	writeZip(t, archive, []string{"main.c", "util.c"})

	spc := spec.New()
	require.NoError(t, LoadSources(archive, filepath.Join(dir, "sources"), spc))
	assert.True(t, spc.CreateRootDirectory)
}

func TestLoadSources_RefusesEscapingMembers(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.tar.gz")
	writeTarGz(t, archive, []string{"foo/", "foo/../../evil"})

	spc := spec.New()
	err := LoadSources(archive, filepath.Join(dir, "sources"), spc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes destination")
}

func TestLoadSources_Directory(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "project")
	require.NoError(t, os.MkdirAll(filepath.Join(project, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, "src", "main.c"), []byte("int main(){}"), 0o644))

	spc := spec.New()
	sourceDir := filepath.Join(dir, "sources")
	require.NoError(t, LoadSources(project, sourceDir, spc))
	assert.FileExists(t, filepath.Join(sourceDir, "src", "main.c"))

	// loading again replaces the previous copy
	require.NoError(t, os.WriteFile(filepath.Join(project, "src", "main.c"), []byte("int main(){return 0;}"), 0o644))
	require.NoError(t, LoadSources(project, sourceDir, spc))
	body, err := os.ReadFile(filepath.Join(sourceDir, "src", "main.c"))
	require.NoError(t, err)
	assert.Equal(t, "int main(){return 0;}", string(body))
}

func TestCreateArchive_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "foo-1.0")
	require.NoError(t, os.MkdirAll(project, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, "main.c"), []byte("int main(){}"), 0o644))

	archive, err := CreateArchive(project)
	require.NoError(t, err)
	assert.Equal(t, project+".tar.gz", archive)

	// the archive extracts back under a single root
	spc := spec.New()
	sourceDir := filepath.Join(dir, "sources")
	require.NoError(t, LoadSources(archive, sourceDir, spc))
	assert.False(t, spc.CreateRootDirectory)
	assert.FileExists(t, filepath.Join(sourceDir, "foo-1.0", "main.c"))
}
