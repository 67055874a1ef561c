package plugin

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/specbuild/gorpg/sack"
	"github.com/specbuild/gorpg/spec"
)

// docNames are the top-level files conventionally shipped as %doc.
var docNames = map[string]bool{
	"readme":    true,
	"license":   true,
	"copying":   true,
	"authors":   true,
	"news":      true,
	"changelog": true,
	"notice":    true,
}

// DocPlugin marks common top-level documentation files in the project tree
// as %doc entries of the base package.
type DocPlugin struct{}

func (DocPlugin) Name() string { return "doc" }

func (DocPlugin) AfterPatchesApplied(projectDir string, spc *spec.Spec, _ *sack.Sack) error {
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		name = strings.TrimSuffix(name, filepath.Ext(name))
		if docNames[name] {
			spc.MarkDoc(e.Name())
		}
	}
	return nil
}

// TranslationPlugin wires gettext localization: when .po files are present
// it appends %find_lang to %install and attaches the generated file list
// to the %files header.
type TranslationPlugin struct{}

func (TranslationPlugin) Name() string { return "translation" }

func (TranslationPlugin) AfterPatchesApplied(projectDir string, spc *spec.Spec, _ *sack.Sack) error {
	found := false
	err := filepath.WalkDir(projectDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".po" {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	install, err := spc.ScriptFor("install")
	if err != nil {
		return err
	}
	install.Append("%find_lang %{name}")
	spc.AddFilesTranslation("%{name}.lang")
	return nil
}
