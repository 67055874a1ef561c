package main

import (
	"os"

	"github.com/urfave/cli"

	"github.com/specbuild/gorpg/rpglog"
	"github.com/specbuild/gorpg/version"
)

func main() {
	app := cli.NewApp()
	app.Name = "gorpg"
	app.Usage = "generate rpm spec files from build descriptors and build them"
	app.Version = version.String()
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
		cli.StringFlag{
			Name:  "log-file",
			Usage: "append logs to this file instead of stderr",
		},
	}
	app.Before = func(clicontext *cli.Context) error {
		return rpglog.Init(clicontext.GlobalBool("debug"), clicontext.GlobalString("log-file"))
	}
	app.Commands = []cli.Command{
		specCommand,
		buildCommand,
	}

	if err := app.Run(os.Args); err != nil {
		rpglog.L.Error(err)
		os.Exit(1)
	}
}
