package infra

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/streamteamhq/platform/internal/domain"
	"github.com/streamteamhq/platform/internal/repository/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	topic string
	key   string
	value []byte
}

type fakePublisher struct {
	mu     sync.Mutex
	msgs   []sent
	failAt int // 1-based publish call that fails; 0 never
	calls  int
}

func (f *fakePublisher) Publish(_ context.Context, topic string, key, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls == f.failAt {
		return errors.New("broker unavailable")
	}
	f.msgs = append(f.msgs, sent{topic: topic, key: string(key), value: value})
	return nil
}

func seedOutbox(t *testing.T, store *repotest.Store, n int) {
	t.Helper()
	repo := store.Repositories().Outbox
	for i := 0; i < n; i++ {
		d, err := domain.NewOutboxDraft(domain.AggregateStreamer, "nova", domain.EventProfileClicked,
			map[string]int{"clicks": i + 1}, time.Now())
		require.NoError(t, err)
		require.NoError(t, repo.Insert(context.Background(), store.DB(), d))
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOutboxPoller_PublishesAndMarks(t *testing.T) {
	store := repotest.New()
	seedOutbox(t, store, 3)
	pub := &fakePublisher{}
	p := NewOutboxPoller(store.DB(), store.Repositories().Outbox, pub, time.Second, 10, quietLogger())

	n, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, pub.msgs, 3)
	assert.Equal(t, "sthq.profile.clicked", pub.msgs[0].topic)
	assert.Equal(t, "nova", pub.msgs[0].key)

	evt, err := DecodeEvent(pub.msgs[2].value)
	require.NoError(t, err)
	assert.Equal(t, domain.EventProfileClicked, evt.EventType)
	assert.JSONEq(t, `{"clicks":3}`, string(evt.Payload))

	n, err = p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "nothing left to publish")
}

func TestOutboxPoller_StopsAtFirstFailure(t *testing.T) {
	store := repotest.New()
	seedOutbox(t, store, 3)
	pub := &fakePublisher{failAt: 2}
	p := NewOutboxPoller(store.DB(), store.Repositories().Outbox, pub, time.Second, 10, quietLogger())

	n, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n, "remaining events retried in order")
	require.Len(t, pub.msgs, 3)
	for i, m := range pub.msgs {
		evt, err := DecodeEvent(m.value)
		require.NoError(t, err)
		assert.JSONEq(t, `{"clicks":`+string(rune('1'+i))+`}`, string(evt.Payload))
	}
}

func TestOutboxPoller_BatchSize(t *testing.T) {
	store := repotest.New()
	seedOutbox(t, store, 5)
	pub := &fakePublisher{}
	p := NewOutboxPoller(store.DB(), store.Repositories().Outbox, pub, time.Second, 2, quietLogger())

	n, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOutboxPoller_FetchError(t *testing.T) {
	store := repotest.New()
	store.FailOn("outbox.FetchUnpublished", nil)
	p := NewOutboxPoller(store.DB(), store.Repositories().Outbox, &fakePublisher{}, 0, 0, quietLogger())

	_, err := p.PollOnce(context.Background())
	assert.Error(t, err)
}

func TestOutboxPoller_RunStopsOnCancel(t *testing.T) {
	store := repotest.New()
	seedOutbox(t, store, 1)
	pub := &fakePublisher{}
	p := NewOutboxPoller(store.DB(), store.Repositories().Outbox, pub, 5*time.Millisecond, 10, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.msgs) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestDecodeEvent_Rejects(t *testing.T) {
	_, err := DecodeEvent([]byte(`not json`))
	assert.Error(t, err)
	_, err = DecodeEvent([]byte(`{"aggregate_id":"x"}`))
	assert.Error(t, err)
}

func TestKafkaProducer_DisabledIsNoop(t *testing.T) {
	p := NewKafkaProducer("", true, quietLogger())
	assert.False(t, p.Enabled())
	assert.ErrorIs(t, p.Publish(context.Background(), "sthq.salve.sent", nil, []byte(`{}`)), ErrProducerDisabled)
	assert.NoError(t, p.Close())

	c := NewKafkaConsumer("", "g", []domain.EventType{domain.EventSalveSent}, true, quietLogger())
	assert.False(t, c.Enabled())
	_, err := c.ReadEvent(context.Background())
	assert.Error(t, err)
	assert.NoError(t, c.Close())
}

func TestOutboxPoller_DisabledProducerLeavesRowsUnpublished(t *testing.T) {
	store := repotest.New()
	seedOutbox(t, store, 2)
	producer := NewKafkaProducer("localhost:9092", false, quietLogger())
	p := NewOutboxPoller(store.DB(), store.Repositories().Outbox, producer, time.Second, 10, quietLogger())

	n, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	pending, err := store.Repositories().Outbox.FetchUnpublished(context.Background(), store.DB(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2, "undelivered events must stay in the outbox")

	pub := &fakePublisher{}
	n, err = NewOutboxPoller(store.DB(), store.Repositories().Outbox, pub, time.Second, 10, quietLogger()).PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n, "a later relay still delivers them")
}
