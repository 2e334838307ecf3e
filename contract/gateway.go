package contract

import (
	"context"
	"time"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"

	"github.com/rqzrqh/paychan/common"
)

// StateReader is the part of the gateway the ledgers need to resolve the
// authoritative channel state.
type StateReader interface {
	GetState(ctx context.Context, channelID common.ChannelID) (common.ChannelState, error)
}

// Gateway is the channel contract as seen from this process. Every method is
// a remote call; the remote ledger is the only authority on its answers.
type Gateway interface {
	StateReader

	CanClaim(ctx context.Context, channelID common.ChannelID, value abi.TokenAmount, sig common.Signature) (bool, error)
	Claim(ctx context.Context, receiver address.Address, channelID common.ChannelID, value abi.TokenAmount, sig common.Signature) (abi.TokenAmount, error)

	CanStartSettle(ctx context.Context, account address.Address, channelID common.ChannelID) (bool, error)
	StartSettle(ctx context.Context, account address.Address, channelID common.ChannelID, value abi.TokenAmount) error

	CanFinishSettle(ctx context.Context, account address.Address, channelID common.ChannelID) (bool, error)
	FinishSettle(ctx context.Context, account address.Address, channelID common.ChannelID) (abi.TokenAmount, error)

	// GetUntil reports when settlement of the channel may be finished.
	GetUntil(ctx context.Context, channelID common.ChannelID) (time.Time, error)
}

// Unlocker is implemented by gateways whose node holds the account key.
type Unlocker interface {
	UnlockAccount(ctx context.Context, account address.Address, password string, d time.Duration) error
}
