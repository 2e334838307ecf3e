package main

import (
	"fmt"

	"github.com/filecoin-project/go-address"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/rqzrqh/paychan/common"
	"github.com/rqzrqh/paychan/config"
)

var cmdConfiguration = &cli.Command{
	Name:    "configuration",
	Aliases: []string{"config"},
	Usage:   "Print the configuration of a role",
	Action: func(cctx *cli.Context) error {
		env, err := loadEnv(cctx)
		if err != nil {
			return err
		}
		settings, err := env.settings(cctx)
		if err != nil {
			return err
		}

		account := "<none>"
		if settings.Account != address.Undef {
			account = settings.Account.String()
		}

		fmt.Printf("role:          %s\n", settings.Role)
		fmt.Printf("account:       %s\n", account)
		fmt.Printf("password:      %s\n", settings.MaskedPassword())
		fmt.Printf("configuration: %s\n", settings.ConfigFile)
		fmt.Printf("database:      %s\n", settings.DatabaseFile)
		return nil
	},
}

var cmdSetup = &cli.Command{
	Name:  "setup",
	Usage: "Write the configuration file",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "sender-account"},
		&cli.StringFlag{Name: "sender-password"},
		&cli.StringFlag{Name: "receiver-account"},
		&cli.StringFlag{Name: "receiver-password"},
	},
	Action: func(cctx *cli.Context) error {
		env, err := loadEnv(cctx)
		if err != nil {
			return err
		}
		file := env.file

		for _, r := range common.Roles {
			acc := config.Account{
				Account:  cctx.String(r.String() + "-account"),
				Password: cctx.String(r.String() + "-password"),
			}
			if acc.Account == "" && acc.Password == "" {
				continue
			}

			if acc.Account != "" {
				if _, err := address.NewFromString(acc.Account); err != nil {
					return xerrors.Errorf("%s account: %w", r, err)
				}
			}
			file.SetAccount(r, acc)
		}

		if v := cctx.String("node"); v != "" {
			file.Node = v
		}
		if v := cctx.String("db"); v != "" {
			file.DB = v
		}
		if v := cctx.String("redis"); v != "" {
			file.Redis = v
		}

		if err := config.Save(env.baseDir, file); err != nil {
			return err
		}
		fmt.Printf("configuration written to %s\n", config.ConfigFilePath(env.baseDir))
		return nil
	},
}
