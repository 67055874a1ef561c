package sack

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/specbuild/gorpg/rpglog"
)

// repoMd mirrors the subset of /repodata/repomd.xml the sack needs.
type repoMd struct {
	Revision string       `xml:"revision"`
	Data     []repoMdData `xml:"data"`
}

type repoMdData struct {
	Type     string         `xml:"type,attr"`
	Location repoMdLocation `xml:"location"`
}

type repoMdLocation struct {
	Href string `xml:"href,attr"`
}

// fetchMetadata downloads and decodes repomd.xml, returning its data
// entries keyed by type ("primary_db", "filelists", ...).
func fetchMetadata(url string) (map[string]repoMdData, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("sack: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sack: fetching %s: status %d", url, resp.StatusCode)
	}

	var md repoMd
	if err := xml.NewDecoder(resp.Body).Decode(&md); err != nil {
		return nil, fmt.Errorf("sack: decoding %s: %w", url, err)
	}

	entries := make(map[string]repoMdData, len(md.Data))
	for _, data := range md.Data {
		entries[data.Type] = data
	}
	rpglog.L.Debugf("repomd revision %s with %d entries", md.Revision, len(entries))
	return entries, nil
}
