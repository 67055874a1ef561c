// Package builder drives the external rpm toolchain over a rendered spec
// file and a source tarball: rpmbuild assembles the source package, mock
// rebuilds it in a clean chroot. The core spec package never invokes
// processes; this is the boundary that does.
package builder

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/specbuild/gorpg/rpglog"
)

// Builder wraps the external rpm toolchain. The zero value builds in the
// default mock chroot under ~/rpmbuild.
type Builder struct {
	// Distro is the mock chroot config (e.g. "fedora-40-x86_64").
	Distro string
	// Topdir overrides the rpmbuild tree. Default is ~/rpmbuild.
	Topdir string
}

func (b *Builder) topdir() (string, error) {
	if b.Topdir != "" {
		return b.Topdir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("builder: %w", err)
	}
	return filepath.Join(home, "rpmbuild"), nil
}

// Build stages specFile and tarball into the rpmbuild tree, assembles a
// source package and rebuilds it in mock. It returns the mock results
// directory. On a chroot build failure the EXCEPTION block of build.log is
// folded into the returned error.
func (b *Builder) Build(ctx context.Context, specFile, tarball string) (string, error) {
	if out, err := exec.CommandContext(ctx, "rpmdev-setuptree").CombinedOutput(); err != nil {
		return "", fmt.Errorf("builder: rpmdev-setuptree: %v: %s", err, bytes.TrimSpace(out))
	}
	top, err := b.topdir()
	if err != nil {
		return "", err
	}

	stagedSpec := filepath.Join(top, "SPECS", filepath.Base(specFile))
	if err := copyFile(specFile, stagedSpec); err != nil {
		return "", err
	}
	if err := copyFile(tarball, filepath.Join(top, "SOURCES", filepath.Base(tarball))); err != nil {
		return "", err
	}

	out, err := exec.CommandContext(ctx, "rpmbuild", "-bs", stagedSpec).Output()
	if err != nil {
		return "", fmt.Errorf("builder: rpmbuild -bs: %w", err)
	}
	srpm := lastWord(string(out))
	if srpm == "" {
		return "", fmt.Errorf("builder: rpmbuild -bs reported no source package")
	}
	rpglog.L.Infof("assembled source package %s", srpm)

	return b.mock(ctx, srpm)
}

// mock rebuilds srpm in the configured chroot, scanning output for the
// results directory mock announces.
func (b *Builder) mock(ctx context.Context, srpm string) (string, error) {
	var args []string
	if b.Distro != "" {
		args = append(args, "-r", b.Distro)
	}
	args = append(args, srpm)

	out, runErr := exec.CommandContext(ctx, "mock", args...).CombinedOutput()

	resultDir := ""
	finished := false
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(line, "INFO: Results and/or logs in:") {
			resultDir = lastWord(line)
		}
		if strings.Contains(line, "Finish: run") {
			finished = true
		}
	}

	if runErr != nil || !finished {
		if lines := ParseBuildLog(filepath.Join(resultDir, "build.log")); len(lines) > 0 {
			return resultDir, fmt.Errorf("builder: mock build failed:\n%s", strings.Join(lines, "\n"))
		}
		if runErr != nil {
			return resultDir, fmt.Errorf("builder: mock: %w", runErr)
		}
		return resultDir, fmt.Errorf("builder: mock did not finish")
	}
	rpglog.L.Infof("mock results in %s", resultDir)
	return resultDir, nil
}

// ParseBuildLog returns the log lines from the first EXCEPTION marker
// onward, the block mock leaves the root cause in. A missing or clean log
// yields nil.
func ParseBuildLog(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []string
	write := false
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !write {
			write = strings.Contains(line, "EXCEPTION")
		}
		if write {
			out = append(out, line)
		}
	}
	return out
}

// lastWord returns the final whitespace-separated token of s. rpmbuild and
// mock both print the path of interest as the last word of a status line.
func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("builder: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("builder: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("builder: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("builder: staging %s: %w", dst, err)
	}
	return out.Close()
}
