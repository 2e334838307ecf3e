package storage

import (
	"context"

	"github.com/rqzrqh/paychan/common"
	"github.com/rqzrqh/paychan/engine"
)

type tokenDocument struct {
	Kind      string           `json:"kind"`
	Token     string           `json:"token"`
	ChannelID common.ChannelID `json:"channelId"`
}

type TokensDatabase struct {
	kind   string
	engine engine.Engine
}

func NewTokensDatabase(eng engine.Engine, namespace string) *TokensDatabase {
	return &TokensDatabase{
		kind:   namespaced(namespace, kindToken),
		engine: eng,
	}
}

func (t *TokensDatabase) Save(ctx context.Context, token string, channelID common.ChannelID) error {
	doc, err := engine.Encode(tokenDocument{
		Kind:      t.kind,
		Token:     token,
		ChannelID: channelID,
	})
	if err != nil {
		return err
	}
	return t.engine.Insert(ctx, doc)
}

// IsPresent reports whether the token was already issued, so that it cannot
// be replayed.
func (t *TokensDatabase) IsPresent(ctx context.Context, token string) (bool, error) {
	doc, err := t.engine.FindOne(ctx, engine.Query{"kind": t.kind, "token": token})
	if err != nil {
		return false, err
	}

	present := doc != nil
	log.Infof("token %s is present: %v", token, present)
	return present, nil
}
