package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/rqzrqh/paychan/common"
	"github.com/rqzrqh/paychan/engine"
	"github.com/rqzrqh/paychan/storage"
)

func TestChannelsDatabase_SaveOrUpdate(t *testing.T) {
	ctx := context.Background()
	states := newFakeStateReader()
	channels := storage.NewChannelsDatabase(engine.NewMemoryEngine(), states, "receiver")

	sender := requireIDAddr(t, 100)
	receiver := requireIDAddr(t, 200)
	id := channelID(1)

	t.Run("inserts on first sight and only moves spent afterwards", func(t *testing.T) {
		first := common.NewPaymentChannel(sender, receiver, id, big.NewInt(1000), big.NewInt(10), common.ChannelOpen)
		require.NoError(t, channels.SaveOrUpdate(ctx, first))

		second := common.NewPaymentChannel(requireIDAddr(t, 300), requireIDAddr(t, 400), id, big.NewInt(5000), big.NewInt(250), common.ChannelOpen)
		require.NoError(t, channels.SaveOrUpdate(ctx, second))

		got, err := channels.FirstByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, sender, got.Sender)
		assert.Equal(t, receiver, got.Receiver)
		assert.True(t, got.Value.Equals(big.NewInt(1000)))
		assert.True(t, got.Spent.Equals(big.NewInt(250)))

		all, err := channels.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("rejects spending past the stored value", func(t *testing.T) {
		over := common.NewPaymentChannel(sender, receiver, id, big.NewInt(1000000), big.NewInt(1001), common.ChannelOpen)
		err := channels.SaveOrUpdate(ctx, over)
		assert.True(t, errors.Is(err, common.ErrOverspend))

		got, err := channels.FirstByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, got.Spent.Equals(big.NewInt(250)))
	})

	t.Run("rejects a new channel already overspent", func(t *testing.T) {
		over := common.NewPaymentChannel(sender, receiver, channelID(2), big.NewInt(5), big.NewInt(6), common.ChannelOpen)
		err := channels.SaveOrUpdate(ctx, over)
		assert.True(t, errors.Is(err, common.ErrOverspend))
	})
}

func TestChannelsDatabase_FirstByID(t *testing.T) {
	ctx := context.Background()
	states := newFakeStateReader()
	channels := storage.NewChannelsDatabase(engine.NewMemoryEngine(), states, "sender")

	id := channelID(7)

	t.Run("absent is not an error", func(t *testing.T) {
		got, err := channels.FirstByID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Zero(t, states.calls)
	})

	require.NoError(t, channels.Save(ctx, common.NewPaymentChannel(requireIDAddr(t, 1), requireIDAddr(t, 2), id, big.NewInt(10), big.NewInt(0), common.ChannelOpen)))

	t.Run("state comes from the remote ledger", func(t *testing.T) {
		states.set(id, common.ChannelSettling)

		got, err := channels.FirstByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, common.ChannelSettling, got.State)

		states.set(id, common.ChannelSettled)
		got, err = channels.FirstByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, common.ChannelSettled, got.State)
	})

	t.Run("unsupported state is not a remote failure", func(t *testing.T) {
		states.errs[id] = xerrors.Errorf("%w: %d", common.ErrUnsupportedRemoteState, 300)
		defer delete(states.errs, id)

		_, err := channels.FirstByID(ctx, id)
		assert.True(t, errors.Is(err, common.ErrUnsupportedRemoteState))
		assert.False(t, errors.Is(err, common.ErrRemoteCallFailed))
	})

	t.Run("remote failure propagates", func(t *testing.T) {
		states.errs[id] = errors.New("node down")
		defer delete(states.errs, id)

		_, err := channels.FirstByID(ctx, id)
		assert.True(t, errors.Is(err, common.ErrRemoteCallFailed))
		assert.Contains(t, err.Error(), "node down")
	})
}

func TestChannelsDatabase_Spend(t *testing.T) {
	ctx := context.Background()
	channels := storage.NewChannelsDatabase(engine.NewMemoryEngine(), newFakeStateReader(), "")
	id := channelID(3)

	require.NoError(t, channels.Save(ctx, common.NewPaymentChannel(requireIDAddr(t, 1), requireIDAddr(t, 2), id, big.NewInt(10), big.NewInt(0), common.ChannelOpen)))
	require.NoError(t, channels.Spend(ctx, id, big.NewInt(20)))

	got, err := channels.FirstByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Spent.Equals(big.NewInt(20)))
	assert.Equal(t, "channel", channels.Kind())
}

func TestChannelsDatabase_AllByQuery(t *testing.T) {
	ctx := context.Background()
	states := newFakeStateReader()
	channels := storage.NewChannelsDatabase(engine.NewMemoryEngine(), states, "sender")

	alice := requireIDAddr(t, 100)
	bob := requireIDAddr(t, 200)
	carol := requireIDAddr(t, 300)

	var ids []common.ChannelID
	for i := 0; i < 10; i++ {
		id := channelID(byte(10 + i))
		ids = append(ids, id)

		receiver := bob
		if i%2 == 1 {
			receiver = carol
		}
		states.set(id, common.ChannelState(i%3))
		require.NoError(t, channels.Save(ctx, common.NewPaymentChannel(alice, receiver, id, big.NewInt(int64(100+i)), big.NewInt(0), common.ChannelOpen)))
	}

	t.Run("all keeps stored order and resolves every state", func(t *testing.T) {
		all, err := channels.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 10)
		for i, ch := range all {
			assert.Equal(t, ids[i], ch.ChannelID)
			assert.Equal(t, common.ChannelState(i%3), ch.State)
		}
	})

	t.Run("filter by receiver", func(t *testing.T) {
		found, err := channels.AllByQuery(ctx, engine.Query{"receiver": carol})
		require.NoError(t, err)
		require.Len(t, found, 5)
		for _, ch := range found {
			assert.Equal(t, carol, ch.Receiver)
		}
	})

	t.Run("filter cannot escape the namespace", func(t *testing.T) {
		found, err := channels.AllByQuery(ctx, engine.Query{"kind": "receiver:channel"})
		require.NoError(t, err)
		assert.Len(t, found, 10)
	})

	t.Run("one failing state fails the whole listing", func(t *testing.T) {
		states.errs[ids[4]] = errors.New("timeout")
		defer delete(states.errs, ids[4])

		_, err := channels.All(ctx)
		assert.True(t, errors.Is(err, common.ErrRemoteCallFailed))
	})
}

func TestChannelsDatabase_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	eng := engine.NewMemoryEngine()
	states := newFakeStateReader()

	senders := storage.NewChannelsDatabase(eng, states, "sender")
	receivers := storage.NewChannelsDatabase(eng, states, "receiver")
	id := channelID(9)

	require.NoError(t, senders.Save(ctx, common.NewPaymentChannel(requireIDAddr(t, 1), requireIDAddr(t, 2), id, big.NewInt(10), big.NewInt(3), common.ChannelOpen)))

	got, err := receivers.FirstByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, receivers.SaveOrUpdate(ctx, common.NewPaymentChannel(requireIDAddr(t, 1), requireIDAddr(t, 2), id, big.NewInt(10), big.NewInt(7), common.ChannelOpen)))

	fromSender, err := senders.FirstByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, fromSender.Spent.Equals(big.NewInt(3)))

	fromReceiver, err := receivers.FirstByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, fromReceiver.Spent.Equals(big.NewInt(7)))
}
