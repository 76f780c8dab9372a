package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, message any) *redis.IntCmd {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return redis.NewIntResult(0, p.err)
	}
	if p.messages == nil {
		p.messages = map[string][][]byte{}
	}
	p.messages[channel] = append(p.messages[channel], message.([]byte))
	return redis.NewIntResult(1, nil)
}

func TestRedisDeliverer_Deliver(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewRedisDeliverer(pub)

	n := Notification{ID: "n-1", UserID: 42, Title: "Hi", EventType: "comment.created"}
	require.NoError(t, d.Deliver(context.Background(), n))

	require.Len(t, pub.messages["notifications:42"], 1)
	var got Notification
	require.NoError(t, json.Unmarshal(pub.messages["notifications:42"][0], &got))
	assert.Equal(t, "n-1", got.ID)
	assert.Equal(t, int64(42), got.UserID)
}

func TestRedisDeliverer_DeliverBatch(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewRedisDeliverer(pub, WithChannelPrefix("inbox."))

	err := d.DeliverBatch(context.Background(), []Notification{
		{ID: "a", UserID: 1},
		{ID: "b", UserID: 2},
		{ID: "c", UserID: 1},
	})
	require.NoError(t, err)
	assert.Len(t, pub.messages["inbox.1"], 2)
	assert.Len(t, pub.messages["inbox.2"], 1)
	assert.Equal(t, "inbox.9", d.Channel(9))
}

func TestRedisDeliverer_PublishError(t *testing.T) {
	d := NewRedisDeliverer(&recordingPublisher{err: errors.New("connection reset")})

	err := d.Deliver(context.Background(), Notification{ID: "a", UserID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestMultiDeliverer(t *testing.T) {
	ctx := context.Background()
	n := Notification{ID: "n-1", UserID: 3}

	ok := &MockDeliverer{}
	ok.On("Deliver", ctx, n).Return(nil)
	ok.On("DeliverBatch", ctx, []Notification{n}).Return(nil)

	failing := &MockDeliverer{}
	failing.On("Deliver", ctx, n).Return(errors.New("boom"))
	failing.On("DeliverBatch", ctx, []Notification{n}).Return(errors.New("boom"))

	m := NewMultiDeliverer([]Deliverer{failing, ok}, WithMultiDelivererLogger(logger.Discard()))

	assert.EqualError(t, m.Deliver(ctx, n), "boom")
	assert.EqualError(t, m.DeliverBatch(ctx, []Notification{n}), "boom")
	ok.AssertExpectations(t)
	failing.AssertExpectations(t)
}

func TestNoOpDeliverer(t *testing.T) {
	d := &NoOpDeliverer{}
	assert.NoError(t, d.Deliver(context.Background(), Notification{}))
	assert.NoError(t, d.DeliverBatch(context.Background(), nil))
	var _ Deliverer = d
	var _ Deliverer = NewRedisDeliverer(&recordingPublisher{})
}
