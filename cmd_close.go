package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/rqzrqh/paychan/common"
	"github.com/rqzrqh/paychan/settlement"
	"github.com/rqzrqh/paychan/storage"
	"github.com/rqzrqh/paychan/util"
)

const unlockDuration = 1000 * time.Second

var cmdClose = &cli.Command{
	Name:      "close",
	Usage:     "Move a channel one step towards settled",
	ArgsUsage: "<channelId>",
	Action: func(cctx *cli.Context) error {
		if cctx.Args().Len() != 1 {
			return xerrors.New("expected exactly one channel id")
		}
		channelID, err := common.ParseChannelID(cctx.Args().First())
		if err != nil {
			return err
		}

		ctx := util.ReqContext(cctx)

		env, err := loadEnv(cctx)
		if err != nil {
			return err
		}
		settings, err := env.settings(cctx)
		if err != nil {
			return err
		}
		if err := settings.RequireAccount(); err != nil {
			return err
		}

		gateway, closer, err := env.openGateway(ctx, cctx)
		if err != nil {
			return err
		}
		defer closer()

		if settings.Password != "" {
			if err := gateway.UnlockAccount(ctx, settings.Account, settings.Password, unlockDuration); err != nil {
				return common.RemoteCallFailed("unlockAccount", err)
			}
		}

		eng, err := env.openEngine(ctx, cctx, settings)
		if err != nil {
			return err
		}
		st := storage.New(eng, gateway, settings.Role.String())
		defer st.Close() //nolint:errcheck

		notifier, closeNotifier, err := env.openNotifier(ctx, cctx)
		if err != nil {
			return err
		}
		defer closeNotifier()

		coordinator := settlement.NewCoordinator(st.Channels, st.Payments, gateway, settings.Account,
			settlement.WithCallTimeout(cctx.Duration("timeout")),
			settlement.WithNotifier(notifier),
		)

		outcome, err := coordinator.Close(ctx, channelID)
		if err != nil {
			if util.IsWebsocketClosed(err) {
				log.Errorw("connection to node lost", "err", err)
			}
			return err
		}

		fmt.Println(outcome)
		return nil
	},
}
