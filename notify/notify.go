package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"github.com/rqzrqh/paychan/settlement"
)

var log = logging.Logger("notify")

const (
	CacheTimeout time.Duration = 3600 * time.Second
)

var settleOutcomeKey = "settle_outcome"
var settleNotify = "settle_notify"

func BuildSettleOutcomeKey(channelID string) string {
	return settleOutcomeKey + "_" + channelID
}

func BuildSettleNotifyKey() string {
	return settleNotify
}

// Nop drops every outcome.
type Nop struct{}

func (Nop) Notify(context.Context, *settlement.Outcome) error {
	return nil
}

// RedisNotifier caches the last outcome of each channel and publishes it to
// subscribers of the notify channel.
type RedisNotifier struct {
	rds *redis.Client
}

func NewRedisNotifier(rds *redis.Client) *RedisNotifier {
	return &RedisNotifier{rds: rds}
}

func (n *RedisNotifier) Notify(ctx context.Context, outcome *settlement.Outcome) error {
	value, err := json.Marshal(outcome)
	if err != nil {
		return xerrors.Errorf("marshal outcome: %w", err)
	}

	pipe := n.rds.TxPipeline()
	defer pipe.Close()

	pipe.Set(ctx, BuildSettleOutcomeKey(outcome.ChannelID.String()), string(value), CacheTimeout)
	pipe.Publish(ctx, BuildSettleNotifyKey(), string(value))

	if _, err := pipe.Exec(ctx); err != nil {
		pipe.Discard()
		log.Warnf("write cache failed:%v", err)
		return xerrors.Errorf("publish outcome of %s: %w", outcome.ChannelID, err)
	}
	return nil
}
