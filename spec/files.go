package spec

import "fmt"

// Directive tags recognized on manifest lines.
const (
	DirectiveDoc    = "%doc"
	DirectiveConfig = "%config"
	DirectiveGhost  = "%ghost"
	DirectiveDir    = "%dir"
)

// FileAttr is an explicit %attr clause. Absence of the struct means default
// permissions; the clause is only rendered when a caller supplied one.
type FileAttr struct {
	Mode  string
	User  string
	Group string
}

func (a *FileAttr) String() string {
	return fmt.Sprintf("(%s, %s, %s)", a.Mode, a.User, a.Group)
}

// FileEntry is one %files manifest line: a packaged path, its directive
// tags and an optional explicit attribute clause.
type FileEntry struct {
	Path       string
	Directives []string
	Attr       *FileAttr
}

// AddDirective appends tag unless the entry already carries it, keeping
// Directives an ordered set.
func (f *FileEntry) AddDirective(tag string) {
	for _, d := range f.Directives {
		if d == tag {
			return
		}
	}
	f.Directives = append(f.Directives, tag)
}

// dedupFiles collapses duplicate paths in place, merging the directive tags
// of later entries into the first occurrence. Collapsing an already
// collapsed list is a no-op, so repeated renders emit identical bytes.
func dedupFiles(files []*FileEntry) []*FileEntry {
	out := files[:0]
	seen := make(map[string]*FileEntry, len(files))
	for _, f := range files {
		first, ok := seen[f.Path]
		if !ok {
			seen[f.Path] = f
			out = append(out, f)
			continue
		}
		for _, d := range f.Directives {
			first.AddDirective(d)
		}
		if first.Attr == nil {
			first.Attr = f.Attr
		}
	}
	return out
}
