package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/jt05610/ptnet"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type sent struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	sent []sent
	err  error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sent{exchange, key, msg})
	return nil
}

func TestMessage_Committed(t *testing.T) {
	e := &Event{Machine: "m1", Transition: "move", Seq: 3, State: ptnet.StateVector{0, 1}}
	assert.Equal(t, "m1.committed.move", e.RoutingKey())
	msg, err := Message(e)
	require.NoError(t, err)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, int64(3), msg.Headers["x-seq"])
	var got Event
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, *e, got)
}

func TestMessage_Rejected(t *testing.T) {
	e := &Event{Machine: "m1", Transition: "move", Reason: "negative_state", Error: "boom"}
	assert.Equal(t, "m1.rejected.move", e.RoutingKey())
	msg, err := Message(e)
	require.NoError(t, err)
	assert.Equal(t, "negative_state", msg.Headers["x-reason"])
	_, hasSeq := msg.Headers["x-seq"]
	assert.False(t, hasSeq)
}

func TestPublisher_Machine(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{ch: ch, exchange: "ptnet", logger: zap.NewNop()}
	net, err := ptnet.New(ptnet.Input{
		Places:      []ptnet.Place{{Initial: 1}, {}},
		Transitions: map[string]ptnet.Delta{"move": {-1, 1}},
	})
	require.NoError(t, err)
	ctx := context.Background()
	m, err := ptnet.NewMachine(ctx, net, ptnet.WithID("m1"), ptnet.WithObserver(p))
	require.NoError(t, err)
	_, err = m.Fire(ctx, "move")
	require.NoError(t, err)
	_, err = m.Fire(ctx, "move")
	require.Error(t, err)

	require.Len(t, ch.sent, 2)
	assert.Equal(t, "ptnet", ch.sent[0].exchange)
	assert.Equal(t, "m1.committed.move", ch.sent[0].key)
	assert.Equal(t, "m1.rejected.move", ch.sent[1].key)
	assert.Equal(t, "negative_state", ch.sent[1].msg.Headers["x-reason"])
}

func TestPublisher_FailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := &Publisher{ch: &fakeChannel{err: errors.New("closed")}, exchange: "ptnet", logger: zap.New(core)}
	p.Committed(context.Background(), "m1", ptnet.Record{Seq: 1, Transition: "move"})
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "publish failed", logs.All()[0].Message)
}

func TestDial(t *testing.T) {
	uri := os.Getenv("RABBITMQ_URI")
	if uri == "" {
		t.Skip("RABBITMQ_URI not set")
	}
	p, err := Dial(uri, "ptnet-test", zap.NewNop())
	require.NoError(t, err)
	defer p.Close()
	p.Committed(context.Background(), "m1", ptnet.Record{Seq: 1, Transition: "move", State: ptnet.StateVector{0, 1}})
}
