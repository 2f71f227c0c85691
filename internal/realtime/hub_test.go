package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case s, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return s
	default:
		t.Fatal("no snapshot pending")
		return Snapshot{}
	}
}

func TestPublishDeliversToPathAndCollection(t *testing.T) {
	h := NewHub(zerolog.Nop())
	doc := h.Subscribe("orders/o-1")
	defer doc.Close()
	coll := h.Subscribe("orders")
	defer coll.Close()
	other := h.Subscribe("orders/o-2")
	defer other.Close()

	require.NoError(t, h.Notify(context.Background(), "orders/o-1", map[string]string{"status": "preparing"}))

	got := recv(t, doc)
	assert.Equal(t, "orders/o-1", got.Path)
	assert.Equal(t, int64(1), got.Sequence)
	assert.False(t, got.At.IsZero())
	var body map[string]string
	require.NoError(t, json.Unmarshal(got.Data, &body))
	assert.Equal(t, "preparing", body["status"])

	assert.Equal(t, "orders/o-1", recv(t, coll).Path)
	assert.Len(t, other.C(), 0)
}

func TestPublishKeepsWriteOrder(t *testing.T) {
	h := NewHub(zerolog.Nop())
	sub := h.Subscribe("carts/u-1")
	defer sub.Close()

	for i := 0; i < 3; i++ {
		h.Publish(Snapshot{Path: "carts/u-1"})
	}
	require.NoError(t, h.NotifyDeleted(context.Background(), "carts/u-1"))

	for want := int64(1); want <= 3; want++ {
		assert.Equal(t, want, recv(t, sub).Sequence)
	}
	last := recv(t, sub)
	assert.True(t, last.Deleted)
	assert.Equal(t, int64(4), last.Sequence)
}

func TestPublishIgnoresStaleSequence(t *testing.T) {
	h := NewHub(zerolog.Nop())
	sub := h.Subscribe("adminConfig/jobVacancySettings")
	defer sub.Close()

	assert.True(t, h.Publish(Snapshot{Path: "adminConfig/jobVacancySettings", Sequence: 5}))
	assert.False(t, h.Publish(Snapshot{Path: "adminConfig/jobVacancySettings", Sequence: 5}))
	assert.False(t, h.Publish(Snapshot{Path: "adminConfig/jobVacancySettings", Sequence: 4}))

	assert.Equal(t, int64(5), recv(t, sub).Sequence)
	assert.Len(t, sub.C(), 0)
}

func TestSlowSubscriberDropsOldest(t *testing.T) {
	h := NewHub(zerolog.Nop())
	h.buffer = 2
	sub := h.Subscribe("orders/o-1")
	defer sub.Close()

	for i := 0; i < 5; i++ {
		h.Publish(Snapshot{Path: "orders/o-1"})
	}

	assert.Equal(t, int64(4), recv(t, sub).Sequence)
	assert.Equal(t, int64(5), recv(t, sub).Sequence)
}

func TestCloseStopsDelivery(t *testing.T) {
	h := NewHub(zerolog.Nop())
	sub := h.Subscribe("orders/o-1")
	sub.Close()
	sub.Close()

	h.Publish(Snapshot{Path: "orders/o-1"})

	_, ok := <-sub.C()
	assert.False(t, ok)
	assert.Empty(t, h.subs)
}

func TestSequencesAreForgottenWithoutSubscribers(t *testing.T) {
	h := NewHub(zerolog.Nop())

	for i := 0; i < 10; i++ {
		h.Publish(Snapshot{Path: "orders/o-" + string(rune('a'+i))})
	}
	assert.Empty(t, h.lastSeq)

	doc := h.Subscribe("orders/o-1")
	coll := h.Subscribe("orders")
	h.Publish(Snapshot{Path: "orders/o-1"})
	h.Publish(Snapshot{Path: "orders/o-2"})
	assert.Len(t, h.lastSeq, 2)

	doc.Close()
	assert.Len(t, h.lastSeq, 2, "collection subscriber still watches o-1")

	coll.Close()
	assert.Empty(t, h.lastSeq)
}
