package storage

import (
	logging "github.com/ipfs/go-log/v2"

	"github.com/rqzrqh/paychan/contract"
	"github.com/rqzrqh/paychan/engine"
)

var log = logging.Logger("storage")

const (
	kindChannel = "channel"
	kindPayment = "payment"
	kindToken   = "token"
)

// Storage groups the ledgers of one namespace over a shared engine.
type Storage struct {
	Namespace string
	Engine    engine.Engine

	Channels *ChannelsDatabase
	Payments *PaymentsDatabase
	Tokens   *TokensDatabase
}

func New(eng engine.Engine, states contract.StateReader, namespace string) *Storage {
	return &Storage{
		Namespace: namespace,
		Engine:    eng,
		Channels:  NewChannelsDatabase(eng, states, namespace),
		Payments:  NewPaymentsDatabase(eng, namespace),
		Tokens:    NewTokensDatabase(eng, namespace),
	}
}

func (s *Storage) Close() error {
	return s.Engine.Close()
}

// namespaced builds the kind discriminator; an empty namespace leaves the
// bare kind.
func namespaced(namespace, kind string) string {
	if namespace == "" {
		return kind
	}
	return namespace + ":" + kind
}
