// Package sack is the dependency-resolution context handed to plugins. It
// answers provides/requires queries against the primary sqlite databases of
// the enabled yum repositories, the same databases dnf itself consults.
package sack

import (
	"database/sql"
	"fmt"
	"sort"

	_ "github.com/mattn/go-sqlite3"
)

// Package is one row from a primary database.
type Package struct {
	Name    string
	Epoch   string
	Version string
	Release string
	Arch    string
	Repo    string
}

func (p Package) String() string {
	if p.Epoch != "" && p.Epoch != "0" {
		return fmt.Sprintf("%s-%s:%s-%s.%s", p.Name, p.Epoch, p.Version, p.Release, p.Arch)
	}
	return fmt.Sprintf("%s-%s-%s.%s", p.Name, p.Version, p.Release, p.Arch)
}

// Sack queries a set of primary databases, one per enabled repo.
type Sack struct {
	dbPaths map[string]string // repo name -> primary db path
}

func New() *Sack {
	return &Sack{dbPaths: make(map[string]string)}
}

// AddDB registers an already-downloaded primary database for repo.
func (s *Sack) AddDB(repo, path string) {
	s.dbPaths[repo] = path
}

// Repos returns the registered repo names, sorted.
func (s *Sack) Repos() []string {
	names := make([]string, 0, len(s.dbPaths))
	for name := range s.dbPaths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WhatProvides returns the packages providing capability across all
// registered repos.
func (s *Sack) WhatProvides(capability string) ([]Package, error) {
	const q = `SELECT p.name, IFNULL(p.epoch, ''), p.version, p.release, p.arch
FROM provides pr JOIN packages p ON pr.pkgKey = p.pkgKey
WHERE pr.name = ?`

	var out []Package
	for _, repo := range s.Repos() {
		db, err := sql.Open("sqlite3", s.dbPaths[repo])
		if err != nil {
			return nil, fmt.Errorf("sack: opening %s db: %w", repo, err)
		}
		rows, err := db.Query(q, capability)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("sack: querying %s: %w", repo, err)
		}
		for rows.Next() {
			p := Package{Repo: repo}
			if err := rows.Scan(&p.Name, &p.Epoch, &p.Version, &p.Release, &p.Arch); err != nil {
				rows.Close()
				db.Close()
				return nil, fmt.Errorf("sack: scanning %s row: %w", repo, err)
			}
			out = append(out, p)
		}
		err = rows.Err()
		rows.Close()
		db.Close()
		if err != nil {
			return nil, fmt.Errorf("sack: reading %s rows: %w", repo, err)
		}
	}
	return out, nil
}

// RequiresOf returns the capabilities the named package requires, across
// all registered repos.
func (s *Sack) RequiresOf(name string) ([]string, error) {
	const q = `SELECT r.name FROM requires r
WHERE r.pkgKey IN (SELECT pkgKey FROM packages WHERE name = ?)`

	seen := make(map[string]bool)
	var out []string
	for _, repo := range s.Repos() {
		db, err := sql.Open("sqlite3", s.dbPaths[repo])
		if err != nil {
			return nil, fmt.Errorf("sack: opening %s db: %w", repo, err)
		}
		rows, err := db.Query(q, name)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("sack: querying %s: %w", repo, err)
		}
		for rows.Next() {
			var capability string
			if err := rows.Scan(&capability); err != nil {
				rows.Close()
				db.Close()
				return nil, fmt.Errorf("sack: scanning %s row: %w", repo, err)
			}
			if !seen[capability] {
				seen[capability] = true
				out = append(out, capability)
			}
		}
		err = rows.Err()
		rows.Close()
		db.Close()
		if err != nil {
			return nil, fmt.Errorf("sack: reading %s rows: %w", repo, err)
		}
	}
	return out, nil
}
