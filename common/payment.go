package common

import (
	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
)

// Signature is the recoverable signature over a payment, split the way the
// channel contract expects it.
type Signature struct {
	V uint8  `json:"v"`
	R string `json:"r"`
	S string `json:"s"`
}

// Payment is a signed authorization of the cumulative amount owed on a
// channel. Value is never a delta.
type Payment struct {
	ChannelID    ChannelID
	Sender       address.Address
	Receiver     address.Address
	Value        abi.TokenAmount
	Price        abi.TokenAmount
	ChannelValue abi.TokenAmount
	Signature    Signature
}
