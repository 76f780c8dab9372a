package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// DefaultChannelPrefix prefixes the per-user pub/sub channel.
const DefaultChannelPrefix = "notifications:"

// Publisher is the subset of a redis client used for fan-out.
// *redis.Client and *redis.ClusterClient satisfy it.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisDeliverer publishes each stored notification as JSON on the
// recipient's channel, e.g. "notifications:42".
type RedisDeliverer struct {
	client Publisher
	prefix string
}

// RedisDelivererOption configures a RedisDeliverer.
type RedisDelivererOption func(*RedisDeliverer)

// WithChannelPrefix overrides DefaultChannelPrefix.
func WithChannelPrefix(prefix string) RedisDelivererOption {
	return func(d *RedisDeliverer) {
		d.prefix = prefix
	}
}

// NewRedisDeliverer creates a RedisDeliverer.
func NewRedisDeliverer(client Publisher, opts ...RedisDelivererOption) *RedisDeliverer {
	d := &RedisDeliverer{client: client, prefix: DefaultChannelPrefix}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Channel returns the pub/sub channel for userID.
func (d *RedisDeliverer) Channel(userID int64) string {
	return d.prefix + strconv.FormatInt(userID, 10)
}

func (d *RedisDeliverer) Deliver(ctx context.Context, notif Notification) error {
	payload, err := json.Marshal(notif)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := d.client.Publish(ctx, d.Channel(notif.UserID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

func (d *RedisDeliverer) DeliverBatch(ctx context.Context, notifs []Notification) error {
	var errs []error
	for _, n := range notifs {
		if err := d.Deliver(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
