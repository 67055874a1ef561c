package spec_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specbuild/gorpg/spec"
)

func render(t *testing.T, s *spec.Spec) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, s.Write(&b))
	return b.String()
}

func TestWrite_CanonicalTagOrder(t *testing.T) {
	// assign in scrambled order; output order must not depend on it
	s := spec.New()
	require.NoError(t, s.Set("License", "MIT"))
	require.NoError(t, s.Set("Version", "1.0"))
	require.NoError(t, s.Set("Summary", "scrambled"))
	require.NoError(t, s.Set("Name", "foo"))

	out := render(t, s)
	name := strings.Index(out, "Name: foo")
	version := strings.Index(out, "Version: 1.0")
	summary := strings.Index(out, "Summary: scrambled")
	license := strings.Index(out, "License: MIT")
	require.NotEqual(t, -1, name)
	assert.Less(t, name, version)
	assert.Less(t, version, summary)
	assert.Less(t, summary, license)
}

func TestWrite_PatchNumberingStartsAtOne(t *testing.T) {
	s := spec.New()
	require.NoError(t, s.Set("Name", "foo"))
	require.NoError(t, s.AppendList("Patch", "a", "b", "c"))

	out := render(t, s)
	assert.Contains(t, out, "Patch1: a\nPatch2: b\nPatch3: c\n")
	assert.NotContains(t, out, "Patch0")
	assert.NotContains(t, out, "Patch: ")
}

func TestWrite_EmptySuppression(t *testing.T) {
	s := spec.New()
	require.NoError(t, s.Set("Name", "foo"))
	require.NoError(t, s.Set("Group", ""))
	require.NoError(t, s.Set("Requires", []string{}))
	require.NoError(t, s.Set("build", ""))

	out := render(t, s)
	assert.NotContains(t, out, "Group:")
	assert.NotContains(t, out, "Requires:")
	assert.NotContains(t, out, "%build")
	assert.NotContains(t, out, "%files")
	assert.NotContains(t, out, "%changelog")
}

func TestWrite_DedupIsIdempotent(t *testing.T) {
	s := spec.New()
	require.NoError(t, s.Set("Name", "foo"))
	s.AddFile("/etc/foo.conf", nil, spec.DirectiveConfig)
	s.AddFile("/etc/foo.conf", nil, spec.DirectiveDoc)
	s.AddFile("/usr/bin/foo", nil)

	first := render(t, s)
	assert.Equal(t, 1, strings.Count(first, "/etc/foo.conf"))
	assert.Contains(t, first, "%config %doc /etc/foo.conf\n")

	second := render(t, s)
	assert.Equal(t, first, second)
}

func TestWrite_AttrClauseOnlyWhenExplicit(t *testing.T) {
	s := spec.New()
	require.NoError(t, s.Set("Name", "foo"))
	s.AddFile("/usr/bin/foo", nil)
	s.AddFile("/etc/foo.conf", &spec.FileAttr{Mode: "0600", User: "root", Group: "root"}, spec.DirectiveConfig)

	out := render(t, s)
	assert.Contains(t, out, "\n/usr/bin/foo\n")
	assert.Contains(t, out, "%attr(0600, root, root) %config /etc/foo.conf\n")
}

func TestWrite_FilesTranslationFlags(t *testing.T) {
	s := spec.New()
	require.NoError(t, s.Set("Name", "foo"))
	s.AddFile("/usr/bin/foo", nil)
	s.AddFilesTranslation("%{name}.lang")

	out := render(t, s)
	assert.Contains(t, out, "\n%files -f %{name}.lang \n")
}

func TestWrite_SubpackageBlocksAndManifests(t *testing.T) {
	s := spec.New()
	require.NoError(t, s.Set("Name", "foo"))
	require.NoError(t, s.Set("Version", "1.0"))
	require.NoError(t, s.Set("prep", "%setup -q"))
	s.AddFile("/usr/bin/foo", nil)

	devel := spec.NewSubpackage()
	require.NoError(t, devel.Set("Name", "devel"))
	require.NoError(t, devel.Set("Summary", "Development files"))
	devel.AddFile("/usr/include/foo.h", nil)
	s.AddSubpackage(devel)

	out := render(t, s)

	// the subpackage block renders before %prep, the root script section
	pkg := strings.Index(out, "%package devel")
	prep := strings.Index(out, "%prep")
	require.NotEqual(t, -1, pkg)
	require.NotEqual(t, -1, prep)
	assert.Less(t, pkg, prep)

	// subpackage manifest renders after the root manifest, with its name
	rootFiles := strings.Index(out, "\n%files \n")
	develFiles := strings.Index(out, "\n%files devel \n")
	require.NotEqual(t, -1, rootFiles)
	require.NotEqual(t, -1, develFiles)
	assert.Less(t, rootFiles, develFiles)
	assert.Contains(t, out, "/usr/include/foo.h\n")
}

func TestWrite_ChangelogFormat(t *testing.T) {
	s := spec.New()
	require.NoError(t, s.Set("Name", "foo"))
	s.AddChangelog(spec.NewChangelog(
		time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC),
		"A Dev", "a@example.com",
		"Bump to 1.1", "Drop obsolete patch"))
	s.AddChangelog(spec.NewChangelog(
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		"A Dev", "a@example.com",
		"Initial release"))

	out := render(t, s)
	assert.Contains(t, out, "\n%changelog\n")
	assert.Contains(t, out, "* Mon Jan 2024 A Dev <a@example.com>\n- Bump to 1.1\n- Drop obsolete patch\n")
	// entries are separated by a blank line and keep list order
	assert.Contains(t, out, "- Drop obsolete patch\n\n* Mon Jan 2024 A Dev <a@example.com>\n- Initial release\n")
}

func TestWrite_DescriptionBlock(t *testing.T) {
	s := spec.New()
	require.NoError(t, s.Set("Name", "foo"))
	require.NoError(t, s.Set("description", "A tool.\nIt does things."))

	out := render(t, s)
	assert.Contains(t, out, "\n%description\nA tool.\nIt does things.\n")
}

func TestWrite_EndToEnd(t *testing.T) {
	s := spec.New()
	require.NoError(t, s.Set("Name", "foo"))
	require.NoError(t, s.Set("Version", "1.0"))
	require.NoError(t, s.AppendList("Requires", "bar"))
	require.NoError(t, s.Set("build", "make %{?_smp_mflags}"))
	s.AddFile("/usr/bin/foo", nil)
	s.AddChangelog(spec.NewChangelog(
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		"A Dev", "a@example.com", "Initial release"))

	want := "Name: foo\n" +
		"Version: 1.0\n" +
		"Requires: bar\n" +
		"\n%build\nmake %{?_smp_mflags}\n" +
		"\n%files \n" +
		"/usr/bin/foo\n" +
		"\n%changelog\n" +
		"* Mon Jan 2024 A Dev <a@example.com>\n" +
		"- Initial release\n\n"
	assert.Equal(t, want, render(t, s))
}

type failingWriter struct{ n int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.n++
	if w.n > 1 {
		return 0, assert.AnError
	}
	return len(p), nil
}

func TestWrite_SinkErrorPropagates(t *testing.T) {
	s := spec.New()
	require.NoError(t, s.Set("Name", "foo"))
	require.NoError(t, s.Set("Version", "1.0"))

	err := s.Write(&failingWriter{})
	require.ErrorIs(t, err, assert.AnError)
}
