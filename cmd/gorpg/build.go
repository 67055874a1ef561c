package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli"

	"github.com/specbuild/gorpg/builder"
	"github.com/specbuild/gorpg/plugin"
	"github.com/specbuild/gorpg/rpglog"
	"github.com/specbuild/gorpg/sourceload"
)

var buildCommand = cli.Command{
	Name:   "build",
	Usage:  "render the spec file and build the package in a mock chroot",
	Action: buildPackage,
	Flags: append(assemblyFlags,
		cli.StringFlag{
			Name:  "distro",
			Usage: "mock chroot config, e.g. fedora-40-x86_64 (default: mock's default)",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Usage: "abort the build after this duration",
			Value: 30 * time.Minute,
		},
	),
}

func buildPackage(clicontext *cli.Context) error {
	spc, engine, projectDir, err := assemble(clicontext)
	if err != nil {
		return err
	}

	specFile := filepath.Join(clicontext.String("workdir"), spc.Name+".spec")
	f, err := os.Create(specFile)
	if err != nil {
		return fmt.Errorf("creating %s: %w", specFile, err)
	}
	if err := spc.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", specFile, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	tarball, err := sourceload.CreateArchive(projectDir)
	if err != nil {
		return err
	}
	rpglog.L.Infof("archived project as %s", tarball)

	ctx, cancel := context.WithTimeout(context.Background(), clicontext.Duration("timeout"))
	defer cancel()

	b := &builder.Builder{Distro: clicontext.String("distro")}
	resultDir, err := b.Build(ctx, specFile, tarball)
	if err != nil {
		return err
	}

	engine.ExecutePhase(plugin.AfterProjectBuild, projectDir)

	return verifyResults(resultDir)
}

// verifyResults opens every package mock produced and lists its payload,
// catching truncated or malformed output before it ships.
func verifyResults(resultDir string) error {
	rpms, err := filepath.Glob(filepath.Join(resultDir, "*.rpm"))
	if err != nil {
		return err
	}
	for _, path := range rpms {
		pkg, err := builder.Verify(path)
		if err != nil {
			return err
		}
		rpglog.L.Infof("built %s", pkg)

		members, err := builder.ListPayload(path)
		if err != nil {
			rpglog.L.Warnf("listing payload of %s: %v", path, err)
			continue
		}
		for _, name := range members {
			rpglog.L.Debugf("  %s", name)
		}
	}
	return nil
}
