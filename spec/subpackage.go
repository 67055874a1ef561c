// Package spec models an RPM spec document: a base package with its tags,
// lifecycle scripts and file manifest, optional named subpackages and a
// changelog, plus the serialization that turns the whole document into the
// recipe text rpmbuild parses.
package spec

import (
	"fmt"
	"io"
	"strings"
)

// listTags are the known append-only list tags. Element order is append
// order and is significant: it drives Patch numbering and render order.
var listTags = map[string]bool{
	"Source":        true,
	"Patch":         true,
	"Requires":      true,
	"BuildRequires": true,
	"Provides":      true,
	"Obsoletes":     true,
	"Conflicts":     true,
}

// scriptNames are the known lifecycle script slots.
var scriptNames = map[string]bool{
	"prep":      true,
	"build":     true,
	"pre":       true,
	"install":   true,
	"check":     true,
	"post":      true,
	"preun":     true,
	"postun":    true,
	"pretrans":  true,
	"posttrans": true,
	"clean":     true,
	"changelog": true,
}

// tagOrder is the canonical order tag lines appear in, independent of
// assignment order. rpmbuild is sensitive to section order, not to which
// tag was set first. description renders last, as a block.
var tagOrder = []string{
	"Name",
	"Version",
	"Release",
	"Summary",
	"Group",
	"License",
	"URL",
	"Vendor",
	"Packager",
	"BuildArch",
	"BuildRoot",
	"Source",
	"Patch",
	"Requires",
	"BuildRequires",
	"Provides",
	"Obsoletes",
	"Conflicts",
	"description",
}

// scriptOrder is the canonical script section order. The pseudo-name
// "%package" marks the point where a root document renders its subpackage
// blocks.
var scriptOrder = []string{
	"%package",
	"prep",
	"build",
	"pre",
	"install",
	"check",
	"post",
	"preun",
	"postun",
	"pretrans",
	"posttrans",
	"clean",
	"changelog",
}

// Subpackage is the metadata bundle of one installable artifact: the base
// package when embedded in a Spec, or a named %package addition. Fields are
// exported so plugin code can mutate the document freely between population
// and the final Write.
type Subpackage struct {
	Name        string
	Version     string
	Release     string
	Summary     string
	Group       string
	License     string
	URL         string
	BuildArch   string
	BuildRoot   string
	Vendor      string
	Packager    string
	Description string

	// Lists holds the append-only list tags, keyed by tag name.
	Lists map[string][]string

	// Scripts maps known script names to their command blocks.
	Scripts map[string]*Script

	// Files is the ordered manifest. Duplicate paths are legal until
	// render time, when they are collapsed in place.
	Files []*FileEntry

	// FilesTranslations lists generated file-manifest ids (typically
	// %find_lang output) rendered as "-f <id>" flags on the %files
	// header.
	FilesTranslations []string

	// extra holds dynamically added attributes that are neither known
	// tags nor scripts.
	extra map[string]any
}

func NewSubpackage() *Subpackage {
	return &Subpackage{
		Lists:   make(map[string][]string),
		Scripts: make(map[string]*Script),
	}
}

// singleField maps a known single-value tag name to its field.
func (s *Subpackage) singleField(key string) *string {
	switch key {
	case "Name":
		return &s.Name
	case "Version":
		return &s.Version
	case "Release":
		return &s.Release
	case "Summary":
		return &s.Summary
	case "Group":
		return &s.Group
	case "License":
		return &s.License
	case "URL":
		return &s.URL
	case "BuildArch":
		return &s.BuildArch
	case "BuildRoot":
		return &s.BuildRoot
	case "Vendor":
		return &s.Vendor
	case "Packager":
		return &s.Packager
	case "description":
		return &s.Description
	}
	return nil
}

// Set assigns a tag, script or dynamic attribute by name, validating the
// value shape immediately. On error the document is left in its prior
// state. Script slots coerce a string or string slice into a Script; a
// Script value outside the known script slots is a type error.
func (s *Subpackage) Set(key string, value any) error {
	if f := s.singleField(key); f != nil {
		v, ok := value.(string)
		if !ok {
			return &TypeError{Key: key, Value: value}
		}
		*f = v
		return nil
	}
	if scriptNames[key] {
		switch v := value.(type) {
		case *Script:
			s.Scripts[key] = v
		case string:
			s.Scripts[key] = NewScript(v)
		case []string:
			s.Scripts[key] = NewScript(v...)
		default:
			return &TypeError{Key: key, Value: value}
		}
		return nil
	}
	if listTags[key] {
		v, ok := value.([]string)
		if !ok {
			return &TypeError{Key: key, Value: value}
		}
		s.Lists[key] = append([]string(nil), v...)
		return nil
	}
	switch value.(type) {
	case string, []string:
		if s.extra == nil {
			s.extra = make(map[string]any)
		}
		s.extra[key] = value
		return nil
	}
	return &TypeError{Key: key, Value: value}
}

// Get returns the value bound to key. Known tags and scripts always
// resolve, possibly to their zero value; a dynamic key that was never set
// fails with *NoSuchAttributeError.
func (s *Subpackage) Get(key string) (any, error) {
	if f := s.singleField(key); f != nil {
		return *f, nil
	}
	if scriptNames[key] {
		return s.Scripts[key], nil
	}
	if listTags[key] {
		return s.Lists[key], nil
	}
	if v, ok := s.extra[key]; ok {
		return v, nil
	}
	return nil, &NoSuchAttributeError{Key: key}
}

// AppendList appends items to a list tag, creating the list on first use.
func (s *Subpackage) AppendList(key string, items ...string) error {
	if !listTags[key] {
		return &TypeError{Key: key, Value: items}
	}
	s.Lists[key] = append(s.Lists[key], items...)
	return nil
}

// ScriptFor returns the script bound to name, allocating an empty one on
// first use so callers can append to it directly.
func (s *Subpackage) ScriptFor(name string) (*Script, error) {
	if !scriptNames[name] {
		return nil, &NoSuchAttributeError{Key: name}
	}
	sc := s.Scripts[name]
	if sc == nil {
		sc = NewScript()
		s.Scripts[name] = sc
	}
	return sc, nil
}

// AddFile appends a manifest entry. Duplicate paths are merged when the
// manifest renders.
func (s *Subpackage) AddFile(path string, attr *FileAttr, directives ...string) *FileEntry {
	f := &FileEntry{Path: path, Attr: attr}
	for _, d := range directives {
		f.AddDirective(d)
	}
	s.Files = append(s.Files, f)
	return f
}

// MarkDoc tags path as documentation, merging into an existing entry for
// the same path instead of adding a second manifest line.
func (s *Subpackage) MarkDoc(path string) {
	for _, f := range s.Files {
		if f.Path == path {
			f.AddDirective(DirectiveDoc)
			return
		}
	}
	s.AddFile(path, nil, DirectiveDoc)
}

// AddFilesTranslation registers a generated file-list id to be attached to
// the %files header as a -f flag.
func (s *Subpackage) AddFilesTranslation(id string) {
	s.FilesTranslations = append(s.FilesTranslations, id)
}

// printer accumulates the first sink error so render code can stay linear.
// Rendering itself cannot fail on a validated document; only sink I/O can.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// writeTags emits one line per non-empty tag in canonical order. Patch
// lines are numbered from 1 on the root document only; subpackages are not
// expected to carry their own patches and render plain Patch lines if they
// do. A subpackage announces itself with a %package header instead of a
// Name line, and its description block names the subpackage.
func writeTags(p *printer, s *Subpackage, root bool) {
	patchIndex := 1
	for _, tag := range tagOrder {
		if listTags[tag] {
			for _, val := range s.Lists[tag] {
				if root && tag == "Patch" {
					p.printf("Patch%d: %s\n", patchIndex, val)
					patchIndex++
				} else {
					p.printf("%s: %s\n", tag, val)
				}
			}
			continue
		}
		val := *s.singleField(tag)
		if val == "" {
			continue
		}
		switch {
		case !root && tag == "Name":
			p.printf("\n%%package %s\n", val)
		case tag == "description" && root:
			p.printf("\n%%description\n%s\n", val)
		case tag == "description":
			p.printf("\n%%description %s\n%s\n", s.Name, val)
		default:
			p.printf("%s: %s\n", tag, val)
		}
	}
}

// writeScripts emits each present, non-empty script in fixed order. spc is
// non-nil when rendering the root document: its subpackage blocks are
// injected at the %package position and its script headers carry no
// package name.
func writeScripts(p *printer, s *Subpackage, spc *Spec) {
	for _, name := range scriptOrder {
		if name == "%package" {
			if spc != nil {
				for _, sub := range spc.Subpackages {
					sub.write(p)
				}
			}
			continue
		}
		sc := s.Scripts[name]
		if sc.Empty() {
			continue
		}
		if spc != nil {
			p.printf("\n%%%s\n%s\n", name, sc)
		} else {
			p.printf("\n%%%s %s\n%s\n", name, s.Name, sc)
		}
	}
}

// writeFiles emits the %files manifest. Nothing is emitted for an empty
// list, header included. Duplicate paths are collapsed first; the collapse
// is idempotent, so a second render emits the same bytes.
func writeFiles(p *printer, s *Subpackage, root bool) {
	if len(s.Files) == 0 {
		return
	}
	s.Files = dedupFiles(s.Files)

	var suffixes strings.Builder
	for _, id := range s.FilesTranslations {
		suffixes.WriteString("-f " + id + " ")
	}
	if root {
		p.printf("\n%%files %s\n", suffixes.String())
	} else {
		p.printf("\n%%files %s %s\n", s.Name, suffixes.String())
	}
	for _, f := range s.Files {
		if f.Attr != nil {
			p.printf("%%attr%s ", f.Attr)
		}
		for _, tag := range f.Directives {
			p.printf("%s ", tag)
		}
		p.printf("%s\n", f.Path)
	}
}

// write renders tags then scripts, the form a %package section takes. File
// manifests and the changelog are driven by the owning document.
func (s *Subpackage) write(p *printer) {
	writeTags(p, s, false)
	writeScripts(p, s, nil)
}

// Write renders the subpackage to out.
func (s *Subpackage) Write(out io.Writer) error {
	p := &printer{w: out}
	s.write(p)
	return p.err
}
