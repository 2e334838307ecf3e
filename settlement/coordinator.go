package settlement

import (
	"context"
	"strconv"
	"time"

	"github.com/filecoin-project/go-address"
	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
	"golang.org/x/xerrors"

	"github.com/rqzrqh/paychan/common"
	"github.com/rqzrqh/paychan/contract"
	"github.com/rqzrqh/paychan/metrics"
	"github.com/rqzrqh/paychan/storage"
)

var log = logging.Logger("settlement")

// Notifier receives every outcome the coordinator produces.
type Notifier interface {
	Notify(ctx context.Context, outcome *Outcome) error
}

type Option func(*Coordinator)

// WithCallTimeout bounds each remote call separately. Zero disables it.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.callTimeout = d
	}
}

func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) {
		c.notifier = n
	}
}

// Coordinator drives a channel towards settled on behalf of one account.
type Coordinator struct {
	channels *storage.ChannelsDatabase
	payments *storage.PaymentsDatabase
	gateway  contract.Gateway
	account  address.Address

	callTimeout time.Duration
	notifier    Notifier
}

func NewCoordinator(channels *storage.ChannelsDatabase, payments *storage.PaymentsDatabase, gateway contract.Gateway, account address.Address, opts ...Option) *Coordinator {
	c := &Coordinator{
		channels: channels,
		payments: payments,
		gateway:  gateway,
		account:  account,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

// Close advances the channel by one step: the receiver claims the largest
// payment it holds, the sender starts or finishes the settlement. A refusal
// by the remote ledger is reported in the outcome, not as an error.
func (c *Coordinator) Close(ctx context.Context, channelID common.ChannelID) (*Outcome, error) {
	cctx, cancel := c.callCtx(ctx)
	ch, err := c.channels.FirstByID(cctx, channelID)
	cancel()
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, xerrors.Errorf("close %s: %w", channelID, common.ErrChannelNotFound)
	}

	var role common.Role
	switch c.account {
	case ch.Sender:
		role = common.RoleSender
	case ch.Receiver:
		role = common.RoleReceiver
	default:
		return nil, xerrors.Errorf("close %s as %s: %w", channelID, c.account, common.ErrNotParticipant)
	}

	log.Infow("close channel", "channel", channelID, "state", ch.State, "role", role)

	outcome := newOutcome(role, ch)
	switch ch.State {
	case common.ChannelOpen:
		if role == common.RoleSender {
			err = c.startSettle(ctx, ch, outcome)
		} else {
			err = c.claim(ctx, ch, outcome)
		}
	case common.ChannelSettling:
		if role == common.RoleSender {
			err = c.finishSettle(ctx, ch, outcome)
		} else {
			err = c.claim(ctx, ch, outcome)
		}
	case common.ChannelSettled:
	default:
		return nil, xerrors.Errorf("close %s: %w: %d", channelID, common.ErrUnsupportedRemoteState, uint8(ch.State))
	}
	if err != nil {
		log.Errorw("close channel failed", "channel", channelID, "action", outcome.Action, "err", err)
		return nil, err
	}

	c.report(ctx, outcome)
	return outcome, nil
}

func (c *Coordinator) claim(ctx context.Context, ch *common.PaymentChannel, outcome *Outcome) error {
	outcome.Action = ActionClaim

	payment, err := c.payments.FirstMaximum(ctx, ch.ChannelID)
	if err != nil {
		return err
	}
	if payment == nil {
		return xerrors.Errorf("claim %s: %w", ch.ChannelID, common.ErrNoPaymentRecorded)
	}
	outcome.Value = payment.Value

	cctx, cancel := c.callCtx(ctx)
	can, err := c.gateway.CanClaim(cctx, ch.ChannelID, payment.Value, payment.Signature)
	cancel()
	if err != nil {
		return common.RemoteCallFailed("canClaim", err)
	}
	if !can {
		outcome.Refused = true
		return nil
	}

	cctx, cancel = c.callCtx(ctx)
	claimed, err := c.gateway.Claim(cctx, ch.Receiver, ch.ChannelID, payment.Value, payment.Signature)
	cancel()
	if err != nil {
		return common.RemoteCallFailed("claim", err)
	}
	outcome.Value = claimed
	return nil
}

func (c *Coordinator) startSettle(ctx context.Context, ch *common.PaymentChannel, outcome *Outcome) error {
	outcome.Action = ActionStartSettle

	cctx, cancel := c.callCtx(ctx)
	can, err := c.gateway.CanStartSettle(cctx, c.account, ch.ChannelID)
	cancel()
	if err != nil {
		return common.RemoteCallFailed("canStartSettle", err)
	}
	if !can {
		outcome.Refused = true
		return nil
	}

	cctx, cancel = c.callCtx(ctx)
	err = c.gateway.StartSettle(cctx, c.account, ch.ChannelID, ch.Spent)
	cancel()
	if err != nil {
		return common.RemoteCallFailed("startSettle", err)
	}
	outcome.Value = ch.Spent
	return nil
}

func (c *Coordinator) finishSettle(ctx context.Context, ch *common.PaymentChannel, outcome *Outcome) error {
	outcome.Action = ActionFinishSettle

	cctx, cancel := c.callCtx(ctx)
	can, err := c.gateway.CanFinishSettle(cctx, c.account, ch.ChannelID)
	cancel()
	if err != nil {
		return common.RemoteCallFailed("canFinishSettle", err)
	}

	if !can {
		outcome.Refused = true

		cctx, cancel = c.callCtx(ctx)
		until, err := c.gateway.GetUntil(cctx, ch.ChannelID)
		cancel()
		if err != nil {
			return common.RemoteCallFailed("getUntil", err)
		}
		outcome.Until = until
		return nil
	}

	cctx, cancel = c.callCtx(ctx)
	paid, err := c.gateway.FinishSettle(cctx, c.account, ch.ChannelID)
	cancel()
	if err != nil {
		return common.RemoteCallFailed("finishSettle", err)
	}
	outcome.Value = paid
	return nil
}

func (c *Coordinator) report(ctx context.Context, outcome *Outcome) {
	log.Infow("channel closed", "channel", outcome.ChannelID, "action", outcome.Action, "refused", outcome.Refused, "value", outcome.Value)

	mctx, _ := tag.New(ctx,
		tag.Upsert(metrics.Action, string(outcome.Action)),
		tag.Upsert(metrics.Refused, strconv.FormatBool(outcome.Refused)),
	)
	stats.Record(mctx, metrics.SettlementOutcomes.M(1))

	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, outcome); err != nil {
		log.Warnw("notify outcome failed", "channel", outcome.ChannelID, "err", err)
	}
}
