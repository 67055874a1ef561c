package sack

import (
	"bufio"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/specbuild/gorpg/rpglog"
)

// RepoConfig is one section of a yum .repo file.
type RepoConfig struct {
	Name     string
	BaseURL  string
	Enabled  bool
	GPGCheck bool
}

var archMap = map[string]string{
	"amd64":   "x86_64",
	"386":     "i386",
	"686":     "i686",
	"arm64":   "aarch64",
	"arm":     "arm",
	"ppc64":   "ppc64",
	"ppc64le": "ppc64le",
	"s390x":   "s390x",
}

// hostVersionAndArch reads VERSION_ID from /etc/os-release and maps the Go
// architecture onto the rpm one, for $releasever/$basearch substitution.
func hostVersionAndArch() (release, arch string) {
	arch = archMap[runtime.GOARCH]

	file, err := os.Open("/etc/os-release")
	if err != nil {
		rpglog.L.Debugf("reading os-release: %v", err)
		return "", arch
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "VERSION_ID=") {
			release = strings.Trim(strings.TrimPrefix(line, "VERSION_ID="), `"`)
			break
		}
	}
	if err := scanner.Err(); err != nil {
		rpglog.L.Debugf("reading os-release: %v", err)
	}
	return release, arch
}

// LoadRepos parses every .repo file under dir ("/etc/yum.repos.d" when
// empty) into a map keyed by section name. $releasever and $basearch are
// substituted from the host.
func LoadRepos(dir string) (map[string]RepoConfig, error) {
	if dir == "" {
		dir = "/etc/yum.repos.d"
	}
	release, arch := hostVersionAndArch()

	repoConfigs := make(map[string]RepoConfig)
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".repo" {
			return nil
		}
		cfg, err := ini.Load(path)
		if err != nil {
			rpglog.L.Warnf("skipping unparsable repo file %s: %v", path, err)
			return nil
		}
		for _, section := range cfg.Sections() {
			if section.Name() == ini.DefaultSection {
				continue
			}
			rc := RepoConfig{
				Name:     section.Name(),
				BaseURL:  section.Key("baseurl").String(),
				Enabled:  section.Key("enabled").MustBool(false),
				GPGCheck: section.Key("gpgcheck").MustBool(false),
			}
			rc.BaseURL = strings.Replace(rc.BaseURL, "$releasever", release, 1)
			rc.BaseURL = strings.Replace(rc.BaseURL, "$basearch", arch, 1)
			repoConfigs[rc.Name] = rc
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for name, rc := range repoConfigs {
		if rc.Enabled {
			rpglog.L.Debugf("repo %s at %s", name, rc.BaseURL)
		}
	}
	return repoConfigs, nil
}
