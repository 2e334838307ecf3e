package storage_test

import (
	"context"
	"testing"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rqzrqh/paychan/common"
	"github.com/rqzrqh/paychan/engine"
	"github.com/rqzrqh/paychan/storage"
)

func newPayment(t *testing.T, id common.ChannelID, value abi.TokenAmount, r string) *common.Payment {
	return &common.Payment{
		ChannelID:    id,
		Sender:       requireIDAddr(t, 100),
		Receiver:     requireIDAddr(t, 200),
		Value:        value,
		Price:        big.NewInt(1),
		ChannelValue: big.NewInt(1000),
		Signature:    common.Signature{V: 27, R: r, S: "0x02"},
	}
}

func TestPaymentsDatabase_FirstMaximum(t *testing.T) {
	ctx := context.Background()
	payments := storage.NewPaymentsDatabase(engine.NewMemoryEngine(), "receiver")
	id := channelID(1)

	t.Run("none recorded", func(t *testing.T) {
		got, err := payments.FirstMaximum(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	require.NoError(t, payments.Save(ctx, "t1", newPayment(t, id, big.NewInt(10), "0xa")))
	require.NoError(t, payments.Save(ctx, "t2", newPayment(t, id, big.NewInt(30), "0xb")))
	require.NoError(t, payments.Save(ctx, "t3", newPayment(t, id, big.NewInt(20), "0xc")))
	require.NoError(t, payments.Save(ctx, "t4", newPayment(t, channelID(2), big.NewInt(99), "0xd")))

	t.Run("greatest value wins", func(t *testing.T) {
		got, err := payments.FirstMaximum(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Value.Equals(big.NewInt(30)))
		assert.Equal(t, common.Signature{V: 27, R: "0xb", S: "0x02"}, got.Signature)
		assert.Equal(t, id, got.ChannelID)
		assert.True(t, got.ChannelValue.Equals(big.NewInt(1000)))
	})

	t.Run("tie goes to the latest", func(t *testing.T) {
		require.NoError(t, payments.Save(ctx, "t5", newPayment(t, id, big.NewInt(30), "0xe")))

		got, err := payments.FirstMaximum(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "0xe", got.Signature.R)
	})

	t.Run("values beyond machine width compare exactly", func(t *testing.T) {
		huge := channelID(3)
		base, err := big.FromString("1000000000000000000000000000001")
		require.NoError(t, err)

		require.NoError(t, payments.Save(ctx, "h1", newPayment(t, huge, big.Add(base, big.NewInt(1)), "0xf1")))
		require.NoError(t, payments.Save(ctx, "h2", newPayment(t, huge, base, "0xf2")))

		got, err := payments.FirstMaximum(ctx, huge)
		require.NoError(t, err)
		assert.Equal(t, "0xf1", got.Signature.R)
	})
}

func TestTokensDatabase_IsPresent(t *testing.T) {
	ctx := context.Background()
	eng := engine.NewMemoryEngine()
	tokens := storage.NewTokensDatabase(eng, "receiver")

	present, err := tokens.IsPresent(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, present)

	require.NoError(t, tokens.Save(ctx, "abc", channelID(1)))

	present, err = tokens.IsPresent(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, present)

	present, err = tokens.IsPresent(ctx, "abd")
	require.NoError(t, err)
	assert.False(t, present)

	other := storage.NewTokensDatabase(eng, "sender")
	present, err = other.IsPresent(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, present)
}

func TestStorage_New(t *testing.T) {
	st := storage.New(engine.NewMemoryEngine(), newFakeStateReader(), "sender")
	assert.Equal(t, "sender:channel", st.Channels.Kind())

	bare := storage.New(engine.NewMemoryEngine(), newFakeStateReader(), "")
	assert.Equal(t, "channel", bare.Channels.Kind())

	require.NoError(t, st.Close())
}
