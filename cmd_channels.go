package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/filecoin-project/go-address"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/rqzrqh/paychan/engine"
	"github.com/rqzrqh/paychan/storage"
	"github.com/rqzrqh/paychan/util"
)

var cmdChannels = &cli.Command{
	Name:  "channels",
	Usage: "List known channels with their remote state",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "sender",
			Usage: "only channels paid from this address",
		},
		&cli.StringFlag{
			Name:  "receiver",
			Usage: "only channels paying to this address",
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := util.ReqContext(cctx)

		query := engine.Query{}
		for _, field := range []string{"sender", "receiver"} {
			if v := cctx.String(field); v != "" {
				addr, err := address.NewFromString(v)
				if err != nil {
					return xerrors.Errorf("--%s: %w", field, err)
				}
				query[field] = addr
			}
		}

		env, err := loadEnv(cctx)
		if err != nil {
			return err
		}
		settings, err := env.settings(cctx)
		if err != nil {
			return err
		}

		gateway, closer, err := env.openGateway(ctx, cctx)
		if err != nil {
			return err
		}
		defer closer()

		eng, err := env.openEngine(ctx, cctx, settings)
		if err != nil {
			return err
		}
		st := storage.New(eng, gateway, settings.Role.String())
		defer st.Close() //nolint:errcheck

		channels, err := st.Channels.AllByQuery(ctx, query)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintf(w, "CHANNEL\tSTATE\tSENDER\tRECEIVER\tVALUE (FIL)\tSPENT (FIL)\n")
		for _, ch := range channels {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				ch.ChannelID, ch.State, ch.Sender, ch.Receiver, util.ToFIL(ch.Value), util.ToFIL(ch.Spent))
		}
		return w.Flush()
	},
}
