package spec

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Script holds the shell command lines of one lifecycle section, in the
// order they were appended.
type Script struct {
	lines []string
}

func NewScript(lines ...string) *Script {
	s := &Script{}
	return s.Append(lines...)
}

// Append adds command lines at the end of the script.
func (s *Script) Append(lines ...string) *Script {
	s.lines = append(s.lines, lines...)
	return s
}

// AppendScript appends every line of other, keeping other untouched.
func (s *Script) AppendScript(other *Script) *Script {
	if other != nil {
		s.lines = append(s.lines, other.lines...)
	}
	return s
}

// Lines returns a copy of the command lines.
func (s *Script) Lines() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.lines...)
}

// Empty reports whether the script renders to nothing. Emptiness, not
// presence, decides whether a section is written.
func (s *Script) Empty() bool {
	return s == nil || s.String() == ""
}

func (s *Script) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(s.lines, "\n")
}

// Check parses the composed script with a bash-aware parser and returns the
// syntax error, if any. rpmbuild would only surface it much later, from
// inside the chroot.
func (s *Script) Check() error {
	if s.Empty() {
		return nil
	}
	_, err := syntax.NewParser().Parse(strings.NewReader(s.String()), "script")
	return err
}
