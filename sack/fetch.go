package sack

import (
	"compress/bzip2"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/specbuild/gorpg/rpglog"
)

// Load populates a sack from the enabled repos: for each, the repomd index
// is fetched and the primary database downloaded into cacheDir and
// decompressed.
func Load(repos map[string]RepoConfig, cacheDir string) (*Sack, error) {
	s := New()
	for name, rc := range repos {
		if !rc.Enabled {
			continue
		}
		md, err := fetchMetadata(rc.BaseURL + "/repodata/repomd.xml")
		if err != nil {
			return nil, err
		}
		primary, ok := md["primary_db"]
		if !ok {
			rpglog.L.Warnf("repo %s has no primary_db entry, skipping", name)
			continue
		}

		dst := filepath.Join(cacheDir, name, filepath.Base(primary.Location.Href))
		if err := download(rc.BaseURL+"/"+primary.Location.Href, dst); err != nil {
			return nil, err
		}
		db := dst
		if strings.HasSuffix(dst, ".bz2") {
			db = strings.TrimSuffix(dst, ".bz2")
			if err := decompressBZ2(dst, db); err != nil {
				return nil, err
			}
			os.Remove(dst)
		}
		rpglog.L.Infof("loaded primary db for repo %s", name)
		s.AddDB(name, db)
	}
	return s, nil
}

func download(url, dst string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("sack: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sack: fetching %s: status %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("sack: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("sack: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("sack: writing %s: %w", dst, err)
	}
	return out.Close()
}

func decompressBZ2(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("sack: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("sack: %w", err)
	}
	if _, err := io.Copy(dstFile, bzip2.NewReader(srcFile)); err != nil {
		dstFile.Close()
		return fmt.Errorf("sack: decompressing %s: %w", src, err)
	}
	return dstFile.Close()
}
