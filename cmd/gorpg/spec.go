package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli"

	"github.com/specbuild/gorpg/descriptor"
	"github.com/specbuild/gorpg/plugin"
	"github.com/specbuild/gorpg/rpglog"
	"github.com/specbuild/gorpg/sack"
	"github.com/specbuild/gorpg/sourceload"
	"github.com/specbuild/gorpg/spec"
)

var specCommand = cli.Command{
	Name:   "spec",
	Usage:  "render a spec file from a build descriptor and project sources",
	Action: writeSpec,
	Flags: append(assemblyFlags,
		cli.StringFlag{
			Name:  "output",
			Usage: "spec file to write (default <name>.spec in the workdir)",
		},
	),
}

// assemblyFlags are shared by the spec and build commands; both walk the
// same descriptor-to-spec pipeline before diverging.
var assemblyFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "descriptor",
		Usage: "build descriptor file",
		Value: "package.yaml",
	},
	cli.StringFlag{
		Name:  "source",
		Usage: "project sources: a tarball, zip archive or directory",
	},
	cli.StringFlag{
		Name:  "workdir",
		Usage: "working directory for the staged project tree",
		Value: ".",
	},
	cli.BoolFlag{
		Name:  "resolve",
		Usage: "resolve build requirements against the configured repositories",
	},
	cli.StringFlag{
		Name:  "repodir",
		Usage: "directory with .repo files",
		Value: "/etc/yum.repos.d",
	},
	cli.StringFlag{
		Name:  "cachedir",
		Usage: "cache directory for downloaded repository databases",
		Value: "/var/cache/gorpg",
	},
}

// assemble runs the shared pipeline: load the descriptor, stage the
// sources, dispatch the patch-phase plugins and default the prep script.
// It returns the populated spec, the plugin engine (for later phases) and
// the staged project directory.
func assemble(clicontext *cli.Context) (*spec.Spec, *plugin.Engine, string, error) {
	spc, err := descriptor.Load(clicontext.String("descriptor"))
	if err != nil {
		return nil, nil, "", err
	}

	workdir := clicontext.String("workdir")
	projectDir := filepath.Join(workdir, spc.Name)
	if src := clicontext.String("source"); src != "" {
		if err := sourceload.LoadSources(src, projectDir, spc); err != nil {
			return nil, nil, "", err
		}
	}

	var sk *sack.Sack
	if clicontext.Bool("resolve") {
		sk, err = loadSack(clicontext)
		if err != nil {
			return nil, nil, "", err
		}
		reportProviders(spc, sk)
	}

	engine := plugin.NewEngine(spc, sk)
	engine.Register(plugin.DocPlugin{})
	engine.Register(plugin.TranslationPlugin{})
	engine.ExecutePhase(plugin.BeforePatchesApplied, projectDir)
	engine.ExecutePhase(plugin.AfterPatchesApplied, projectDir)

	if err := defaultPrep(spc); err != nil {
		return nil, nil, "", err
	}
	return spc, engine, projectDir, nil
}

func loadSack(clicontext *cli.Context) (*sack.Sack, error) {
	repos, err := sack.LoadRepos(clicontext.String("repodir"))
	if err != nil {
		return nil, err
	}
	return sack.Load(repos, clicontext.String("cachedir"))
}

// reportProviders logs the repository packages satisfying each build
// requirement. Unsatisfied requirements are warnings, not errors; the
// chroot build reports them authoritatively.
func reportProviders(spc *spec.Spec, sk *sack.Sack) {
	for _, capability := range spc.Lists["BuildRequires"] {
		providers, err := sk.WhatProvides(capability)
		if err != nil {
			rpglog.L.Warnf("resolving %s: %v", capability, err)
			continue
		}
		if len(providers) == 0 {
			rpglog.L.Warnf("nothing provides build requirement %s", capability)
			continue
		}
		rpglog.L.Debugf("%s provided by %s", capability, providers[0])
	}
}

// defaultPrep fills in a %setup invocation when the descriptor left %prep
// empty. Archives without a single root entry need -c so unpacking does
// not spill into the build directory.
func defaultPrep(spc *spec.Spec) error {
	prep, err := spc.ScriptFor("prep")
	if err != nil {
		return err
	}
	if !prep.Empty() {
		return nil
	}
	if spc.CreateRootDirectory {
		prep.Append("%setup -q -c")
	} else {
		prep.Append("%setup -q")
	}
	return nil
}

func writeSpec(clicontext *cli.Context) error {
	spc, _, _, err := assemble(clicontext)
	if err != nil {
		return err
	}

	output := clicontext.String("output")
	if output == "" {
		output = filepath.Join(clicontext.String("workdir"), spc.Name+".spec")
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	if err := spc.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", output, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	rpglog.L.Infof("wrote %s", output)
	return nil
}
