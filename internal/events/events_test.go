package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nagulan13/oboma/internal/middleware"
	"github.com/Nagulan13/oboma/internal/order"
	"github.com/Nagulan13/oboma/internal/realtime"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	sent []published
	err  error
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error { return nil }

type memSequence struct{ last map[string]int64 }

func (m *memSequence) NextSequence(_ context.Context, key string) (int64, error) {
	if key == "" {
		return 0, errors.New("partition key is required")
	}
	m.last[key]++
	return m.last[key], nil
}

func newTestPublisher() (*Publisher, *fakeChannel) {
	ch := &fakeChannel{}
	p := newPublisher(ch, &memSequence{last: map[string]int64{}}, "", zerolog.Nop())
	p.now = func() time.Time { return time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC) }
	return p, ch
}

func TestNotifyPublishesSequencedDocumentChanged(t *testing.T) {
	p, ch := newTestPublisher()
	ctx := middleware.WithCorrelationID(context.Background(), "cid-1")

	require.NoError(t, p.Notify(ctx, "orders/o1", map[string]string{"orderStatus": "pending"}))
	require.NoError(t, p.NotifyDeleted(ctx, "orders/o1"))
	require.Len(t, ch.sent, 2)

	assert.Equal(t, EventsExchange, ch.sent[0].exchange)
	assert.Equal(t, DocumentChangedRoutingKey, ch.sent[0].key)
	assert.Equal(t, "application/json", ch.sent[0].msg.ContentType)

	var env EventEnvelope[DocumentChangedPayload]
	require.NoError(t, json.Unmarshal(ch.sent[0].msg.Body, &env))
	require.NoError(t, env.Validate(EventTypeDocumentChanged, 1))
	assert.Equal(t, "orders/o1", env.PartitionKey)
	assert.Equal(t, int64(1), env.Sequence)
	assert.Equal(t, "cid-1", env.CorrelationID)
	assert.Equal(t, "oboma-storefront", env.Producer)
	assert.JSONEq(t, `{"orderStatus":"pending"}`, string(env.Payload.Data))

	second, err := decodeDocumentChanged(ch.sent[1].msg.Body)
	require.NoError(t, err)
	assert.True(t, second.Deleted)
	assert.Equal(t, int64(2), second.Sequence)
}

func TestPublishOrderEvents(t *testing.T) {
	p, ch := newTestPublisher()
	ctx := context.Background()
	o := order.Order{
		ID:         "o1",
		CustomerID: "u1",
		TotalPrice: 20,
		Status:     order.StatusPreparing,
		UpdatedBy:  "staff",
		Items:      []order.Item{{MenuItemID: "burger", Quantity: 2, UnitPrice: 8}},
	}

	require.NoError(t, p.PublishOrderCreated(ctx, o))
	require.NoError(t, p.PublishOrderStatusChanged(ctx, o, order.StatusPending))
	require.Len(t, ch.sent, 2)

	var created EventEnvelope[OrderCreatedPayload]
	require.NoError(t, json.Unmarshal(ch.sent[0].msg.Body, &created))
	require.NoError(t, created.Validate(EventTypeOrderCreated, 1))
	assert.Equal(t, OrderCreatedRoutingKey, ch.sent[0].key)
	require.Len(t, created.Payload.Items, 1)

	var changed EventEnvelope[OrderStatusChangedPayload]
	require.NoError(t, json.Unmarshal(ch.sent[1].msg.Body, &changed))
	require.NoError(t, changed.Validate(EventTypeOrderStatusChanged, 1))
	assert.Equal(t, order.StatusPending, changed.Payload.From)
	assert.Equal(t, order.StatusPreparing, changed.Payload.To)
	assert.Equal(t, int64(2), changed.Sequence)
}

func TestPublishFailureIsReturned(t *testing.T) {
	p, ch := newTestPublisher()
	ch.err = errors.New("channel closed")

	err := p.Notify(context.Background(), "menu/m1", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), DocumentChangedRoutingKey)
}

func TestRelayFeedsHubAndDropsDuplicates(t *testing.T) {
	p, ch := newTestPublisher()
	hub := realtime.NewHub(zerolog.Nop())
	sub := hub.Subscribe("menu/m1")
	defer sub.Close()
	r := &Relay{sink: hub, logger: zerolog.Nop()}

	require.NoError(t, p.Notify(context.Background(), "menu/m1", map[string]any{"name": "Nasi Lemak"}))
	body := ch.sent[0].msg.Body

	require.NoError(t, r.handle(body))
	require.NoError(t, r.handle(body))

	s := <-sub.C()
	assert.Equal(t, int64(1), s.Sequence)
	select {
	case dup := <-sub.C():
		t.Fatalf("duplicate delivered: %+v", dup)
	default:
	}
}

func TestDecodeDocumentChangedRejectsBadEnvelope(t *testing.T) {
	_, err := decodeDocumentChanged([]byte(`{"eventName":"OrderCreated","eventVersion":1,"partitionKey":"x","sequence":1}`))
	require.Error(t, err)

	_, err = decodeDocumentChanged([]byte(`not json`))
	require.Error(t, err)

	_, err = decodeDocumentChanged([]byte(`{"eventName":"DocumentChanged","eventVersion":1,"partitionKey":"a/1","sequence":1,"payload":{"path":"b/2"}}`))
	require.Error(t, err)
}
