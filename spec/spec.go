package spec

import "io"

// Spec is the root build descriptor: the base package plus its subpackages
// and changelog. It owns the whole-document serialization order.
type Spec struct {
	Subpackage

	// Subpackages render in attachment order.
	Subpackages []*Subpackage

	// Changelogs render in list order; callers append newest first by
	// convention.
	Changelogs []*Changelog

	// CreateRootDirectory is set by the source loader when the upstream
	// archive has no single root entry, signalling that %prep must
	// create one before unpacking.
	CreateRootDirectory bool
}

func New() *Spec {
	return &Spec{Subpackage: *NewSubpackage()}
}

// AddSubpackage attaches sub. Attachment is append-only and attachment
// order is render order.
func (s *Spec) AddSubpackage(sub *Subpackage) {
	s.Subpackages = append(s.Subpackages, sub)
}

// AddChangelog appends an entry to the changelog.
func (s *Spec) AddChangelog(c *Changelog) {
	s.Changelogs = append(s.Changelogs, c)
}

// Write renders the complete document: base tags, scripts with the
// subpackage blocks injected, the base file manifest, each subpackage's
// manifest and finally the changelog. Apart from the documented in-place
// manifest dedup, rendering only reads state; calling it twice on an
// unchanged document yields identical bytes.
func (s *Spec) Write(out io.Writer) error {
	p := &printer{w: out}
	writeTags(p, &s.Subpackage, true)
	writeScripts(p, &s.Subpackage, s)
	writeFiles(p, &s.Subpackage, true)
	for _, sub := range s.Subpackages {
		writeFiles(p, sub, false)
	}
	s.writeChangelog(p)
	return p.err
}

// writeChangelog emits the %changelog section, one blank line between
// entries. The section is suppressed entirely when there are no entries.
func (s *Spec) writeChangelog(p *printer) {
	if len(s.Changelogs) == 0 {
		return
	}
	p.printf("\n%%changelog\n")
	for _, c := range s.Changelogs {
		p.printf("%s\n", c)
	}
}
