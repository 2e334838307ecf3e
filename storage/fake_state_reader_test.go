package storage_test

import (
	"context"
	"sync"
	"testing"

	"github.com/filecoin-project/go-address"
	"github.com/stretchr/testify/require"

	"github.com/rqzrqh/paychan/common"
)

type fakeStateReader struct {
	mtx    sync.Mutex
	states map[common.ChannelID]common.ChannelState
	errs   map[common.ChannelID]error
	calls  int
}

func newFakeStateReader() *fakeStateReader {
	return &fakeStateReader{
		states: make(map[common.ChannelID]common.ChannelState),
		errs:   make(map[common.ChannelID]error),
	}
}

func (f *fakeStateReader) GetState(_ context.Context, channelID common.ChannelID) (common.ChannelState, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.calls++
	if err := f.errs[channelID]; err != nil {
		return 0, err
	}
	return f.states[channelID], nil
}

func (f *fakeStateReader) set(channelID common.ChannelID, state common.ChannelState) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.states[channelID] = state
}

func requireIDAddr(t *testing.T, id uint64) address.Address {
	addr, err := address.NewIDAddress(id)
	require.NoError(t, err)
	return addr
}

func channelID(b byte) common.ChannelID {
	var id common.ChannelID
	id[0] = b
	id[common.ChannelIDLength-1] = b
	return id
}
