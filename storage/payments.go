package storage

import (
	"context"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"

	"github.com/rqzrqh/paychan/common"
	"github.com/rqzrqh/paychan/engine"
)

type paymentDocument struct {
	Kind         string           `json:"kind"`
	Token        string           `json:"token"`
	ChannelID    common.ChannelID `json:"channelId"`
	Value        abi.TokenAmount  `json:"value"`
	Sender       address.Address  `json:"sender"`
	Receiver     address.Address  `json:"receiver"`
	Price        abi.TokenAmount  `json:"price"`
	ChannelValue abi.TokenAmount  `json:"channelValue"`
	V            uint8            `json:"v"`
	R            string           `json:"r"`
	S            string           `json:"s"`
}

func (pd *paymentDocument) payment() *common.Payment {
	return &common.Payment{
		ChannelID:    pd.ChannelID,
		Sender:       pd.Sender,
		Receiver:     pd.Receiver,
		Value:        pd.Value,
		Price:        pd.Price,
		ChannelValue: pd.ChannelValue,
		Signature: common.Signature{
			V: pd.V,
			R: pd.R,
			S: pd.S,
		},
	}
}

// PaymentsDatabase keeps every payment received, tagged with the token issued
// for it.
type PaymentsDatabase struct {
	kind   string
	engine engine.Engine
}

func NewPaymentsDatabase(eng engine.Engine, namespace string) *PaymentsDatabase {
	return &PaymentsDatabase{
		kind:   namespaced(namespace, kindPayment),
		engine: eng,
	}
}

func (p *PaymentsDatabase) Save(ctx context.Context, token string, payment *common.Payment) error {
	doc, err := engine.Encode(paymentDocument{
		Kind:         p.kind,
		Token:        token,
		ChannelID:    payment.ChannelID,
		Value:        payment.Value,
		Sender:       payment.Sender,
		Receiver:     payment.Receiver,
		Price:        payment.Price,
		ChannelValue: payment.ChannelValue,
		V:            payment.Signature.V,
		R:            payment.Signature.R,
		S:            payment.Signature.S,
	})
	if err != nil {
		return err
	}

	log.Infof("saving payment for channel %s and token %s", payment.ChannelID, token)
	return p.engine.Insert(ctx, doc)
}

// FirstMaximum returns the payment with the greatest value on the channel,
// the latest one on a tie, or nil when the channel has no payments.
func (p *PaymentsDatabase) FirstMaximum(ctx context.Context, channelID common.ChannelID) (*common.Payment, error) {
	docs, err := p.engine.Find(ctx, engine.Query{"kind": p.kind, "channelId": channelID.String()})
	if err != nil {
		return nil, err
	}
	log.Infof("found %d payment documents for channel %s", len(docs), channelID)

	var maximum *paymentDocument
	for _, doc := range docs {
		var pd paymentDocument
		if err := engine.Decode(doc, &pd); err != nil {
			return nil, err
		}
		if maximum == nil || big.Cmp(orZero(pd.Value), orZero(maximum.Value)) >= 0 {
			maximum = &pd
		}
	}

	if maximum == nil {
		return nil, nil
	}
	return maximum.payment(), nil
}
