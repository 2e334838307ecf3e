package settlement_test

import (
	"context"
	"sync"
	"time"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"

	"github.com/rqzrqh/paychan/common"
	"github.com/rqzrqh/paychan/settlement"
)

type claimCall struct {
	receiver address.Address
	value    abi.TokenAmount
	sig      common.Signature
}

type fakeGateway struct {
	mtx sync.Mutex

	state    common.ChannelState
	stateErr error

	canClaim        bool
	canStartSettle  bool
	canFinishSettle bool
	blockCanClaim   bool
	claimErr        error

	until time.Time
	paid  abi.TokenAmount

	calls       map[string]int
	claims      []claimCall
	startSettle []abi.TokenAmount
}

func newFakeGateway(state common.ChannelState) *fakeGateway {
	return &fakeGateway{
		state: state,
		paid:  big.NewInt(0),
		calls: make(map[string]int),
	}
}

func (f *fakeGateway) record(op string) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.calls[op]++
}

func (f *fakeGateway) count(op string) int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.calls[op]
}

// remoteCalls counts everything but GetState.
func (f *fakeGateway) remoteCalls() int {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	n := 0
	for op, c := range f.calls {
		if op != "GetState" {
			n += c
		}
	}
	return n
}

func (f *fakeGateway) GetState(context.Context, common.ChannelID) (common.ChannelState, error) {
	f.record("GetState")
	if f.stateErr != nil {
		return 0, f.stateErr
	}
	return f.state, nil
}

func (f *fakeGateway) CanClaim(ctx context.Context, _ common.ChannelID, _ abi.TokenAmount, _ common.Signature) (bool, error) {
	f.record("CanClaim")
	if f.blockCanClaim {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return f.canClaim, nil
}

func (f *fakeGateway) Claim(_ context.Context, receiver address.Address, _ common.ChannelID, value abi.TokenAmount, sig common.Signature) (abi.TokenAmount, error) {
	f.record("Claim")
	if f.claimErr != nil {
		return abi.TokenAmount{}, f.claimErr
	}

	f.mtx.Lock()
	f.claims = append(f.claims, claimCall{receiver: receiver, value: value, sig: sig})
	f.mtx.Unlock()
	return value, nil
}

func (f *fakeGateway) CanStartSettle(context.Context, address.Address, common.ChannelID) (bool, error) {
	f.record("CanStartSettle")
	return f.canStartSettle, nil
}

func (f *fakeGateway) StartSettle(_ context.Context, _ address.Address, _ common.ChannelID, value abi.TokenAmount) error {
	f.record("StartSettle")

	f.mtx.Lock()
	f.startSettle = append(f.startSettle, value)
	f.mtx.Unlock()
	return nil
}

func (f *fakeGateway) CanFinishSettle(context.Context, address.Address, common.ChannelID) (bool, error) {
	f.record("CanFinishSettle")
	return f.canFinishSettle, nil
}

func (f *fakeGateway) FinishSettle(context.Context, address.Address, common.ChannelID) (abi.TokenAmount, error) {
	f.record("FinishSettle")
	return f.paid, nil
}

func (f *fakeGateway) GetUntil(context.Context, common.ChannelID) (time.Time, error) {
	f.record("GetUntil")
	return f.until, nil
}

type recordingNotifier struct {
	mtx      sync.Mutex
	outcomes []*settlement.Outcome
}

func (n *recordingNotifier) Notify(_ context.Context, outcome *settlement.Outcome) error {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.outcomes = append(n.outcomes, outcome)
	return nil
}
