package util

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

// better way?
func IsWebsocketClosed(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "websocket") && strings.Contains(errStr, "closed")
}

// ReqContext is the command context, cancelled on SIGINT, SIGTERM or SIGHUP.
func ReqContext(cctx *cli.Context) context.Context {
	ctx, done := context.WithCancel(cctx.Context)
	sigChan := make(chan os.Signal, 2)
	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
		done()
	}()
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	return ctx
}

const FilecoinPrecision = 18

// ToFIL renders an attoFIL amount in FIL.
func ToFIL(amount abi.TokenAmount) decimal.Decimal {
	if amount.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount.Int, -FilecoinPrecision)
}
