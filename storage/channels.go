package storage

import (
	"context"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/rqzrqh/paychan/common"
	"github.com/rqzrqh/paychan/contract"
	"github.com/rqzrqh/paychan/engine"
)

type channelDocument struct {
	Kind      string           `json:"kind"`
	ChannelID common.ChannelID `json:"channelId"`
	Sender    address.Address  `json:"sender"`
	Receiver  address.Address  `json:"receiver"`
	Value     abi.TokenAmount  `json:"value"`
	Spent     abi.TokenAmount  `json:"spent"`
}

// ChannelsDatabase stores payment channels. The state of a channel is never
// stored: it is read from the remote ledger every time a channel is loaded.
type ChannelsDatabase struct {
	kind   string
	engine engine.Engine
	states contract.StateReader
}

func NewChannelsDatabase(eng engine.Engine, states contract.StateReader, namespace string) *ChannelsDatabase {
	return &ChannelsDatabase{
		kind:   namespaced(namespace, kindChannel),
		engine: eng,
		states: states,
	}
}

func (c *ChannelsDatabase) Kind() string {
	return c.kind
}

func (c *ChannelsDatabase) byID(channelID common.ChannelID) engine.Query {
	return engine.Query{"kind": c.kind, "channelId": channelID.String()}
}

func (c *ChannelsDatabase) Save(ctx context.Context, ch *common.PaymentChannel) error {
	doc, err := engine.Encode(channelDocument{
		Kind:      c.kind,
		ChannelID: ch.ChannelID,
		Sender:    ch.Sender,
		Receiver:  ch.Receiver,
		Value:     ch.Value,
		Spent:     ch.Spent,
	})
	if err != nil {
		return err
	}

	log.Infow("save channel", "kind", c.kind, "channel", ch.ChannelID)
	return c.engine.Insert(ctx, doc)
}

// SaveOrUpdate inserts the channel on first sight and afterwards only moves
// its spent amount. Sender, receiver and value are fixed at insert.
func (c *ChannelsDatabase) SaveOrUpdate(ctx context.Context, ch *common.PaymentChannel) error {
	found, err := c.stored(ctx, ch.ChannelID)
	if err != nil {
		return err
	}
	if found == nil {
		if big.Cmp(orZero(ch.Spent), orZero(ch.Value)) > 0 {
			return xerrors.Errorf("save channel %s: %w: %s > %s", ch.ChannelID, common.ErrOverspend, ch.Spent, ch.Value)
		}
		return c.Save(ctx, ch)
	}

	if big.Cmp(orZero(ch.Spent), orZero(found.Value)) > 0 {
		return xerrors.Errorf("update channel %s: %w: %s > %s", ch.ChannelID, common.ErrOverspend, ch.Spent, found.Value)
	}
	return c.Spend(ctx, ch.ChannelID, ch.Spent)
}

func orZero(a abi.TokenAmount) abi.TokenAmount {
	if a.Int == nil {
		return big.Zero()
	}
	return a
}

func (c *ChannelsDatabase) stored(ctx context.Context, channelID common.ChannelID) (*channelDocument, error) {
	doc, err := c.engine.FindOne(ctx, c.byID(channelID))
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}

	var cd channelDocument
	if err := engine.Decode(doc, &cd); err != nil {
		return nil, err
	}
	return &cd, nil
}

// FirstByID returns nil without error when the channel is unknown locally.
func (c *ChannelsDatabase) FirstByID(ctx context.Context, channelID common.ChannelID) (*common.PaymentChannel, error) {
	cd, err := c.stored(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if cd == nil {
		log.Infow("channel not found", "kind", c.kind, "channel", channelID)
		return nil, nil
	}

	return c.resolve(ctx, cd)
}

func (c *ChannelsDatabase) resolve(ctx context.Context, cd *channelDocument) (*common.PaymentChannel, error) {
	state, err := c.states.GetState(ctx, cd.ChannelID)
	if xerrors.Is(err, common.ErrUnsupportedRemoteState) {
		return nil, err
	}
	if err != nil {
		return nil, common.RemoteCallFailed("getState", err)
	}
	return common.NewPaymentChannel(cd.Sender, cd.Receiver, cd.ChannelID, cd.Value, cd.Spent, state), nil
}

// Spend overwrites the spent amount. It does not check it against value.
func (c *ChannelsDatabase) Spend(ctx context.Context, channelID common.ChannelID, spent abi.TokenAmount) error {
	set, err := engine.Encode(struct {
		Spent abi.TokenAmount `json:"spent"`
	}{spent})
	if err != nil {
		return err
	}

	log.Infow("spend", "kind", c.kind, "channel", channelID, "spent", spent)
	_, err = c.engine.Update(ctx, c.byID(channelID), set)
	return err
}

func (c *ChannelsDatabase) All(ctx context.Context) ([]*common.PaymentChannel, error) {
	return c.AllByQuery(ctx, engine.Query{})
}

// AllByQuery returns the channels matching q, in stored order. Remote states
// are fetched concurrently.
func (c *ChannelsDatabase) AllByQuery(ctx context.Context, q engine.Query) ([]*common.PaymentChannel, error) {
	query := q.Merge(engine.Query{"kind": c.kind})
	log.Debugw("all by query", "query", query)

	docs, err := c.engine.Find(ctx, query)
	if err != nil {
		return nil, err
	}

	stored := make([]*channelDocument, len(docs))
	for i, doc := range docs {
		var cd channelDocument
		if err := engine.Decode(doc, &cd); err != nil {
			return nil, err
		}
		stored[i] = &cd
	}

	out := make([]*common.PaymentChannel, len(stored))
	grp, gctx := errgroup.WithContext(ctx)
	for i, cd := range stored {
		idx := i
		doc := cd
		grp.Go(func() error {
			ch, err := c.resolve(gctx, doc)
			if err != nil {
				log.Errorw("resolve channel state", "err", err, "channel", doc.ChannelID)
				return err
			}
			out[idx] = ch
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
