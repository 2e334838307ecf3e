package main

import (
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
	"go.opencensus.io/stats/view"

	"github.com/rqzrqh/paychan/metrics"
)

var (
	log = logging.Logger("paychan")
)

const version = "0.1.0"

func main() {
	if err := logging.SetLogLevel("*", "info"); err != nil {
		log.Fatal(err)
	}
	if err := view.Register(metrics.DefaultViews...); err != nil {
		log.Fatal(err)
	}

	app := &cli.App{
		Name:    "paychan",
		Usage:   "Manage unidirectional payment channels",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "repo",
				Usage: "directory holding config.json and storage.db",
				Value: "~/.paychan",
			},
			&cli.StringFlag{
				Name:    "namespace",
				Aliases: []string{"n"},
				Usage:   "role to act as: sender or receiver",
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"P"},
				Usage:   "password of the account, overrides the configuration",
			},
			&cli.StringFlag{
				Name:  "node",
				Usage: "channel contract rpc, <token>:<maddr>",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "root:123456@tcp(127.0.0.1:3306)/paychan, replaces the local storage file",
			},
			&cli.StringFlag{
				Name:  "redis",
				Usage: "127.0.0.1:6379, publish settlement outcomes",
			},
			&cli.BoolFlag{
				Name:  "in-memory",
				Usage: "keep storage in memory only",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "timeout of each remote call, 0 for none",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
			},
		},
		Before: func(cctx *cli.Context) error {
			if err := logging.SetLogLevel("*", cctx.String("log-level")); err != nil {
				return err
			}
			return logging.SetLogLevel("rpc", "error")
		},
		Commands: []*cli.Command{
			cmdClose,
			cmdChannels,
			cmdConfiguration,
			cmdSetup,
			cmdInitDb,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
