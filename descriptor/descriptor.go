// Package descriptor loads a YAML build descriptor and populates a spec
// document from it. The descriptor is the caller-facing input format; all
// validation of tag and script shapes happens in the spec package at
// assignment time.
package descriptor

import (
	"fmt"
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/specbuild/gorpg/rpglog"
	"github.com/specbuild/gorpg/spec"
)

// Attr is an explicit permission/owner clause for one file.
type Attr struct {
	Mode  string `yaml:"mode"`
	User  string `yaml:"user"`
	Group string `yaml:"group"`
}

// File is one packaged path with its directive flags.
type File struct {
	Path   string `yaml:"path"`
	Doc    bool   `yaml:"doc"`
	Config bool   `yaml:"config"`
	Ghost  bool   `yaml:"ghost"`
	Dir    bool   `yaml:"dir"`
	Attr   *Attr  `yaml:"attr"`
}

// ChangelogEntry is one dated release note.
type ChangelogEntry struct {
	Date     string   `yaml:"date"` // YYYY-MM-DD
	Author   string   `yaml:"author"`
	Email    string   `yaml:"email"`
	Messages []string `yaml:"messages"`
}

// Package carries the per-package fields shared by the base package and
// its subpackages.
type Package struct {
	Name        string            `yaml:"name"`
	Summary     string            `yaml:"summary"`
	Group       string            `yaml:"group"`
	Description string            `yaml:"description"`
	Requires    []string          `yaml:"requires"`
	Provides    []string          `yaml:"provides"`
	Obsoletes   []string          `yaml:"obsoletes"`
	Conflicts   []string          `yaml:"conflicts"`
	Scripts     map[string]string `yaml:"scripts"`
	Files       []File            `yaml:"files"`
}

// Descriptor is the document root.
type Descriptor struct {
	Package       `yaml:",inline"`
	Version       string           `yaml:"version"`
	Release       string           `yaml:"release"`
	License       string           `yaml:"license"`
	URL           string           `yaml:"url"`
	Vendor        string           `yaml:"vendor"`
	Packager      string           `yaml:"packager"`
	BuildArch     string           `yaml:"buildarch"`
	Sources       []string         `yaml:"sources"`
	Patches       []string         `yaml:"patches"`
	BuildRequires []string         `yaml:"buildrequires"`
	Subpackages   []Package        `yaml:"subpackages"`
	Changelog     []ChangelogEntry `yaml:"changelog"`
}

// Load reads path and populates a new spec document from it.
func Load(path string) (*spec.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("descriptor: %w", err)
	}
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("descriptor: parsing %s: %w", path, err)
	}
	return d.Spec()
}

// Spec converts the descriptor into a populated document.
func (d *Descriptor) Spec() (*spec.Spec, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("descriptor: name is required")
	}
	if d.Version != "" {
		if _, err := semver.NewVersion(d.Version); err != nil {
			rpglog.L.Warnf("version %q is not a semantic version", d.Version)
		}
	}

	spc := spec.New()
	if err := populate(&spc.Subpackage, &d.Package); err != nil {
		return nil, err
	}

	singles := []struct{ key, value string }{
		{"Version", d.Version},
		{"Release", d.Release},
		{"License", d.License},
		{"URL", d.URL},
		{"Vendor", d.Vendor},
		{"Packager", d.Packager},
		{"BuildArch", d.BuildArch},
	}
	for _, s := range singles {
		if s.value == "" {
			continue
		}
		if err := spc.Set(s.key, s.value); err != nil {
			return nil, err
		}
	}
	if err := spc.AppendList("Source", d.Sources...); err != nil {
		return nil, err
	}
	if err := spc.AppendList("Patch", d.Patches...); err != nil {
		return nil, err
	}
	if err := spc.AppendList("BuildRequires", d.BuildRequires...); err != nil {
		return nil, err
	}

	for i := range d.Subpackages {
		sub := spec.NewSubpackage()
		if err := populate(sub, &d.Subpackages[i]); err != nil {
			return nil, err
		}
		spc.AddSubpackage(sub)
	}

	for _, ce := range d.Changelog {
		date, err := time.Parse("2006-01-02", ce.Date)
		if err != nil {
			return nil, fmt.Errorf("descriptor: changelog date %q: %w", ce.Date, err)
		}
		spc.AddChangelog(spec.NewChangelog(date, ce.Author, ce.Email, ce.Messages...))
	}
	return spc, nil
}

// scriptOrder fixes the population order of the scripts map so validation
// errors are deterministic.
var scriptOrder = []string{
	"prep", "build", "pre", "install", "check", "post", "preun",
	"postun", "pretrans", "posttrans", "clean", "changelog",
}

func populate(sub *spec.Subpackage, p *Package) error {
	singles := []struct{ key, value string }{
		{"Name", p.Name},
		{"Summary", p.Summary},
		{"Group", p.Group},
		{"description", p.Description},
	}
	for _, s := range singles {
		if s.value == "" {
			continue
		}
		if err := sub.Set(s.key, s.value); err != nil {
			return err
		}
	}

	lists := []struct {
		key   string
		items []string
	}{
		{"Requires", p.Requires},
		{"Provides", p.Provides},
		{"Obsoletes", p.Obsoletes},
		{"Conflicts", p.Conflicts},
	}
	for _, l := range lists {
		if err := sub.AppendList(l.key, l.items...); err != nil {
			return err
		}
	}

	for _, name := range scriptOrder {
		body, ok := p.Scripts[name]
		if !ok {
			continue
		}
		if err := sub.Set(name, body); err != nil {
			return err
		}
		if err := sub.Scripts[name].Check(); err != nil {
			rpglog.L.Warnf("%s script of %s does not parse as shell: %v", name, p.Name, err)
		}
	}
	for name := range p.Scripts {
		if _, err := sub.ScriptFor(name); err != nil {
			return fmt.Errorf("descriptor: unknown script %q for package %s", name, p.Name)
		}
	}

	for _, f := range p.Files {
		var attr *spec.FileAttr
		if f.Attr != nil {
			attr = &spec.FileAttr{Mode: f.Attr.Mode, User: f.Attr.User, Group: f.Attr.Group}
		}
		var directives []string
		if f.Dir {
			directives = append(directives, spec.DirectiveDir)
		}
		if f.Config {
			directives = append(directives, spec.DirectiveConfig)
		}
		if f.Doc {
			directives = append(directives, spec.DirectiveDoc)
		}
		if f.Ghost {
			directives = append(directives, spec.DirectiveGhost)
		}
		sub.AddFile(f.Path, attr, directives...)
	}
	return nil
}
