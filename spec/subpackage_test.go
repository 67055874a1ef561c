package spec_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specbuild/gorpg/spec"
)

func TestSet_SingleValueTags(t *testing.T) {
	s := spec.NewSubpackage()

	require.NoError(t, s.Set("Name", "foo"))
	require.NoError(t, s.Set("Summary", "a package"))
	assert.Equal(t, "foo", s.Name)
	assert.Equal(t, "a package", s.Summary)

	// assigning a list to a single-value tag is a type error
	err := s.Set("Summary", []string{"not", "a", "string"})
	var typeErr *spec.TypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, "Summary", typeErr.Key)
	// the prior value survives a failed assignment
	assert.Equal(t, "a package", s.Summary)
}

func TestSet_ListTags(t *testing.T) {
	s := spec.NewSubpackage()

	require.NoError(t, s.Set("Requires", []string{"bar", "baz"}))
	assert.Equal(t, []string{"bar", "baz"}, s.Lists["Requires"])

	// assigning a plain string where a list is expected is a type error
	var typeErr *spec.TypeError
	require.ErrorAs(t, s.Set("Requires", "bar"), &typeErr)
	assert.Equal(t, []string{"bar", "baz"}, s.Lists["Requires"])
}

func TestSet_ScriptCoercion(t *testing.T) {
	s := spec.NewSubpackage()

	// a plain string auto-wraps into a Script
	require.NoError(t, s.Set("build", "make"))
	assert.Equal(t, "make", s.Scripts["build"].String())

	// a Script value is preserved as-is
	sc := spec.NewScript("make", "make check")
	require.NoError(t, s.Set("check", sc))
	assert.Same(t, sc, s.Scripts["check"])

	// a Script outside the known script slots is a type error
	var typeErr *spec.TypeError
	require.ErrorAs(t, s.Set("Name", spec.NewScript("oops")), &typeErr)
	require.ErrorAs(t, s.Set("custom", spec.NewScript("oops")), &typeErr)

	// so is a non-coercible value on a script slot
	require.ErrorAs(t, s.Set("build", 42), &typeErr)
}

func TestSetGet_DynamicAttributes(t *testing.T) {
	s := spec.NewSubpackage()

	require.NoError(t, s.Set("ExclusiveArch", "x86_64"))
	v, err := s.Get("ExclusiveArch")
	require.NoError(t, err)
	assert.Equal(t, "x86_64", v)

	// unknown key that was never set fails on read, not on write
	_, err = s.Get("NoSuchThing")
	var noAttr *spec.NoSuchAttributeError
	require.ErrorAs(t, err, &noAttr)
	assert.Equal(t, "NoSuchThing", noAttr.Key)

	// known keys always resolve, possibly to their zero value
	v, err = s.Get("Group")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestAppendList(t *testing.T) {
	s := spec.NewSubpackage()

	require.NoError(t, s.AppendList("Patch", "fix-build.patch"))
	require.NoError(t, s.AppendList("Patch", "fix-tests.patch"))
	assert.Equal(t, []string{"fix-build.patch", "fix-tests.patch"}, s.Lists["Patch"])

	var typeErr *spec.TypeError
	require.ErrorAs(t, s.AppendList("Summary", "nope"), &typeErr)
}

func TestScriptFor_AllocatesOnFirstUse(t *testing.T) {
	s := spec.NewSubpackage()

	sc, err := s.ScriptFor("install")
	require.NoError(t, err)
	sc.Append("make install DESTDIR=%{buildroot}")
	assert.Equal(t, "make install DESTDIR=%{buildroot}", s.Scripts["install"].String())

	_, err = s.ScriptFor("deploy")
	var noAttr *spec.NoSuchAttributeError
	require.ErrorAs(t, err, &noAttr)
}

func TestMarkDoc_MergesIntoExistingEntry(t *testing.T) {
	s := spec.NewSubpackage()
	s.AddFile("/etc/foo.conf", nil, spec.DirectiveConfig)

	s.MarkDoc("/etc/foo.conf")
	s.MarkDoc("/etc/foo.conf") // no duplicate directive

	require.Len(t, s.Files, 1)
	assert.Equal(t, []string{spec.DirectiveConfig, spec.DirectiveDoc}, s.Files[0].Directives)

	// unknown path gets a fresh entry carrying only %doc
	s.MarkDoc("/usr/share/doc/foo/README")
	require.Len(t, s.Files, 2)
	assert.Equal(t, []string{spec.DirectiveDoc}, s.Files[1].Directives)
	assert.Nil(t, s.Files[1].Attr)
}

func TestSubpackageWrite_PackageHeaderAndNamedScripts(t *testing.T) {
	s := spec.NewSubpackage()
	require.NoError(t, s.Set("Name", "devel"))
	require.NoError(t, s.Set("Summary", "Development files"))
	require.NoError(t, s.Set("description", "Headers and static libraries."))
	require.NoError(t, s.Set("post", "/sbin/ldconfig"))

	var b strings.Builder
	require.NoError(t, s.Write(&b))

	out := b.String()
	assert.Contains(t, out, "\n%package devel\n")
	assert.NotContains(t, out, "Name: devel")
	assert.Contains(t, out, "Summary: Development files\n")
	assert.Contains(t, out, "\n%description devel\nHeaders and static libraries.\n")
	assert.Contains(t, out, "\n%post devel\n/sbin/ldconfig\n")
}
