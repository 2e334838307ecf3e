package settlement

import (
	"fmt"
	"strings"
	"time"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"

	"github.com/rqzrqh/paychan/common"
)

type Action string

const (
	ActionNone         Action = "none"
	ActionClaim        Action = "claim"
	ActionStartSettle  Action = "start-settle"
	ActionFinishSettle Action = "finish-settle"
)

// Outcome describes what a close run did to one channel.
type Outcome struct {
	ChannelID    common.ChannelID    `json:"channelId"`
	State        common.ChannelState `json:"state"`
	Role         common.Role         `json:"role"`
	Action       Action              `json:"action"`
	Refused      bool                `json:"refused"`
	Receiver     address.Address     `json:"receiver"`
	ChannelValue abi.TokenAmount     `json:"channelValue"`

	// Value is the amount claimed, started with or paid out. On a refused
	// claim it is the amount that was asked for.
	Value abi.TokenAmount `json:"value"`
	// Until is set when finishing the settlement was refused.
	Until time.Time `json:"until"`
}

func newOutcome(role common.Role, ch *common.PaymentChannel) *Outcome {
	return &Outcome{
		ChannelID:    ch.ChannelID,
		State:        ch.State,
		Role:         role,
		Action:       ActionNone,
		Receiver:     ch.Receiver,
		ChannelValue: ch.Value,
		Value:        big.Zero(),
	}
}

// Err returns ErrRefusedByPredicate for a refused outcome and nil otherwise.
func (o *Outcome) Err() error {
	if o.Refused {
		return common.ErrRefusedByPredicate
	}
	return nil
}

func (o *Outcome) String() string {
	lines := []string{fmt.Sprintf("Channel %s is %s", o.ChannelID, o.State)}

	switch o.Action {
	case ActionClaim:
		if o.Refused {
			lines = append(lines, fmt.Sprintf("Can not claim %s from channel %s", o.Value, o.ChannelID))
		} else {
			lines = append(lines, fmt.Sprintf("Claimed %s out of %s from channel %s", o.Value, o.ChannelValue, o.ChannelID))
		}
	case ActionStartSettle:
		if o.Refused {
			lines = append(lines, fmt.Sprintf("Can not start settling channel %s", o.ChannelID))
		} else {
			lines = append(lines, fmt.Sprintf("Start settling channel %s", o.ChannelID))
		}
	case ActionFinishSettle:
		if o.Refused {
			lines = append(lines, fmt.Sprintf("Can not finish settle until %s", o.Until.UTC().Format(time.RFC3339)))
		} else {
			lines = append(lines, fmt.Sprintf("Settled to pay %s to %s", o.Value, o.Receiver))
		}
	}

	return strings.Join(lines, "\n")
}
