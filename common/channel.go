package common

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"golang.org/x/xerrors"
)

const ChannelIDLength = 32

// ChannelID is the opaque handle the remote ledger assigns to a channel.
type ChannelID [ChannelIDLength]byte

func ParseChannelID(s string) (ChannelID, error) {
	var id ChannelID

	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil {
		return id, xerrors.Errorf("%w: %s: %v", ErrInvalidChannelID, s, err)
	}
	if len(raw) != ChannelIDLength {
		return id, xerrors.Errorf("%w: %s: expected %d bytes, got %d", ErrInvalidChannelID, s, ChannelIDLength, len(raw))
	}

	copy(id[:], raw)
	return id, nil
}

func (id ChannelID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

func (id ChannelID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *ChannelID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseChannelID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ChannelState mirrors the uint8 state the channel contract reports.
type ChannelState uint8

const (
	ChannelOpen ChannelState = iota
	ChannelSettling
	ChannelSettled
)

func (s ChannelState) Known() bool {
	switch s {
	case ChannelOpen, ChannelSettling, ChannelSettled:
		return true
	default:
		return false
	}
}

func (s ChannelState) String() string {
	switch s {
	case ChannelOpen:
		return "open"
	case ChannelSettling:
		return "settling"
	case ChannelSettled:
		return "settled"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

type PaymentChannel struct {
	Sender    address.Address
	Receiver  address.Address
	ChannelID ChannelID
	Value     abi.TokenAmount
	Spent     abi.TokenAmount
	State     ChannelState
}

func NewPaymentChannel(sender, receiver address.Address, id ChannelID, value, spent abi.TokenAmount, state ChannelState) *PaymentChannel {
	return &PaymentChannel{
		Sender:    sender,
		Receiver:  receiver,
		ChannelID: id,
		Value:     value,
		Spent:     spent,
		State:     state,
	}
}
