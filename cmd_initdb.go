package main

import (
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/rqzrqh/paychan/engine"
)

var cmdInitDb = &cli.Command{
	Name:  "initdb",
	Usage: "Create the documents table in the mysql database",
	Action: func(cctx *cli.Context) error {
		env, err := loadEnv(cctx)
		if err != nil {
			return err
		}

		dsn := firstNonEmpty(cctx.String("db"), env.file.DB)
		if dsn == "" {
			return xerrors.New("no database, set --db")
		}

		db, err := openDB(dsn)
		if err != nil {
			return err
		}

		eng := engine.NewGormEngine(db)
		defer eng.Close() //nolint:errcheck

		if err := eng.Migrate(); err != nil {
			return err
		}
		log.Info("database initialized")
		return nil
	},
}
