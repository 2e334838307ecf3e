package contract

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-jsonrpc"
	"github.com/filecoin-project/go-state-types/abi"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"github.com/rqzrqh/paychan/common"
	"github.com/rqzrqh/paychan/metrics"
)

var log = logging.Logger("contract")

const Namespace = "Channel"

// ChannelAPIStruct is the wire shape of the channel contract RPC.
type ChannelAPIStruct struct {
	Internal struct {
		GetState        func(ctx context.Context, channelID common.ChannelID) (int64, error)
		CanClaim        func(ctx context.Context, channelID common.ChannelID, value abi.TokenAmount, v uint8, r string, s string) (bool, error)
		Claim           func(ctx context.Context, receiver address.Address, channelID common.ChannelID, value abi.TokenAmount, v uint8, r string, s string) (abi.TokenAmount, error)
		CanStartSettle  func(ctx context.Context, account address.Address, channelID common.ChannelID) (bool, error)
		StartSettle     func(ctx context.Context, account address.Address, channelID common.ChannelID, value abi.TokenAmount) error
		CanFinishSettle func(ctx context.Context, account address.Address, channelID common.ChannelID) (bool, error)
		FinishSettle    func(ctx context.Context, account address.Address, channelID common.ChannelID) (abi.TokenAmount, error)
		GetUntil        func(ctx context.Context, channelID common.ChannelID) (int64, error)
		UnlockAccount   func(ctx context.Context, account address.Address, password string, seconds int64) error
	}
}

func (c *ChannelAPIStruct) GetState(ctx context.Context, channelID common.ChannelID) (int64, error) {
	return c.Internal.GetState(ctx, channelID)
}

func (c *ChannelAPIStruct) CanClaim(ctx context.Context, channelID common.ChannelID, value abi.TokenAmount, v uint8, r string, s string) (bool, error) {
	return c.Internal.CanClaim(ctx, channelID, value, v, r, s)
}

func (c *ChannelAPIStruct) Claim(ctx context.Context, receiver address.Address, channelID common.ChannelID, value abi.TokenAmount, v uint8, r string, s string) (abi.TokenAmount, error) {
	return c.Internal.Claim(ctx, receiver, channelID, value, v, r, s)
}

func (c *ChannelAPIStruct) CanStartSettle(ctx context.Context, account address.Address, channelID common.ChannelID) (bool, error) {
	return c.Internal.CanStartSettle(ctx, account, channelID)
}

func (c *ChannelAPIStruct) StartSettle(ctx context.Context, account address.Address, channelID common.ChannelID, value abi.TokenAmount) error {
	return c.Internal.StartSettle(ctx, account, channelID, value)
}

func (c *ChannelAPIStruct) CanFinishSettle(ctx context.Context, account address.Address, channelID common.ChannelID) (bool, error) {
	return c.Internal.CanFinishSettle(ctx, account, channelID)
}

func (c *ChannelAPIStruct) FinishSettle(ctx context.Context, account address.Address, channelID common.ChannelID) (abi.TokenAmount, error) {
	return c.Internal.FinishSettle(ctx, account, channelID)
}

func (c *ChannelAPIStruct) GetUntil(ctx context.Context, channelID common.ChannelID) (int64, error) {
	return c.Internal.GetUntil(ctx, channelID)
}

func (c *ChannelAPIStruct) UnlockAccount(ctx context.Context, account address.Address, password string, seconds int64) error {
	return c.Internal.UnlockAccount(ctx, account, password, seconds)
}

// Client adapts the RPC shape to Gateway.
type Client struct {
	api *ChannelAPIStruct
}

var _ Gateway = (*Client)(nil)
var _ Unlocker = (*Client)(nil)

// NewClient dials addr (ws:// or http://) and returns a metered gateway.
func NewClient(ctx context.Context, addr string, requestHeader http.Header) (*Client, jsonrpc.ClientCloser, error) {
	var res ChannelAPIStruct
	closer, err := jsonrpc.NewMergeClient(ctx, addr, Namespace, []interface{}{&res.Internal}, requestHeader)
	if err != nil {
		return nil, nil, err
	}

	var metered ChannelAPIStruct
	metrics.Proxy(&res, &metered.Internal)

	log.Debugw("channel rpc client", "addr", addr)
	return &Client{api: &metered}, closer, nil
}

// GetState fails with ErrUnsupportedRemoteState when the reported state does
// not fit a ChannelState. States that fit are passed through unchecked.
func (c *Client) GetState(ctx context.Context, channelID common.ChannelID) (common.ChannelState, error) {
	raw, err := c.api.GetState(ctx, channelID)
	if err != nil {
		return 0, err
	}
	if raw < 0 || raw > math.MaxUint8 {
		return 0, xerrors.Errorf("channel %s: %w: %d", channelID, common.ErrUnsupportedRemoteState, raw)
	}
	return common.ChannelState(raw), nil
}

func (c *Client) CanClaim(ctx context.Context, channelID common.ChannelID, value abi.TokenAmount, sig common.Signature) (bool, error) {
	return c.api.CanClaim(ctx, channelID, value, sig.V, sig.R, sig.S)
}

func (c *Client) Claim(ctx context.Context, receiver address.Address, channelID common.ChannelID, value abi.TokenAmount, sig common.Signature) (abi.TokenAmount, error) {
	return c.api.Claim(ctx, receiver, channelID, value, sig.V, sig.R, sig.S)
}

func (c *Client) CanStartSettle(ctx context.Context, account address.Address, channelID common.ChannelID) (bool, error) {
	return c.api.CanStartSettle(ctx, account, channelID)
}

func (c *Client) StartSettle(ctx context.Context, account address.Address, channelID common.ChannelID, value abi.TokenAmount) error {
	return c.api.StartSettle(ctx, account, channelID, value)
}

func (c *Client) CanFinishSettle(ctx context.Context, account address.Address, channelID common.ChannelID) (bool, error) {
	return c.api.CanFinishSettle(ctx, account, channelID)
}

func (c *Client) FinishSettle(ctx context.Context, account address.Address, channelID common.ChannelID) (abi.TokenAmount, error) {
	return c.api.FinishSettle(ctx, account, channelID)
}

func (c *Client) GetUntil(ctx context.Context, channelID common.ChannelID) (time.Time, error) {
	until, err := c.api.GetUntil(ctx, channelID)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(until, 0), nil
}

func (c *Client) UnlockAccount(ctx context.Context, account address.Address, password string, d time.Duration) error {
	return c.api.UnlockAccount(ctx, account, password, int64(d/time.Second))
}
