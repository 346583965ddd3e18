package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IgorGrieder/linkhive/internal/events"
	"github.com/IgorGrieder/linkhive/internal/processing/analytics"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader serves queued messages and blocks once they run out.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafkago.Message
	committed []int64
}

func newFakeReader(msgs ...kafkago.Message) *fakeReader {
	return &fakeReader{queue: msgs}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type flakyRecorder struct {
	mu       sync.Mutex
	failures int
	recorded []string
}

func (f *flakyRecorder) Record(_ context.Context, ev analytics.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("store unavailable")
	}
	f.recorded = append(f.recorded, ev.ID)
	return nil
}

func (f *flakyRecorder) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.recorded...)
}

func message(t *testing.T, offset int64, ev analytics.Event) kafkago.Message {
	t.Helper()
	value, err := events.Encode(ev)
	require.NoError(t, err)
	return kafkago.Message{Topic: "links.clicks", Offset: offset, Value: value}
}

func TestConsumerRetriesSameMessageBeforeFetchingNext(t *testing.T) {
	first := sampleClick()
	second := sampleClick()
	second.ID = "evt-2"
	reader := newFakeReader(message(t, 1, first), message(t, 2, second))
	recorder := &flakyRecorder{failures: 2}
	c := NewConsumer(reader, recorder, ConsumerOptions{Backoff: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"evt-1", "evt-2"}, recorder.ids())
	assert.Equal(t, []int64{1, 2}, reader.commits())
}

func TestConsumerStopsWithoutCommittingUnrecordedMessage(t *testing.T) {
	reader := newFakeReader(message(t, 1, sampleClick()))
	recorder := &flakyRecorder{failures: 1 << 30}
	c := NewConsumer(reader, recorder, ConsumerOptions{Backoff: time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, c.Run(ctx))

	assert.Empty(t, recorder.ids())
	assert.Empty(t, reader.commits())
}

func TestConsumerSkipsPoisonMessages(t *testing.T) {
	recorder := &flakyRecorder{}
	reader := newFakeReader(
		kafkago.Message{Offset: 1, Value: []byte("not json")},
		kafkago.Message{Offset: 2, Value: []byte(`{"eventId":"e","eventType":"banner","subjectId":"x","occurredAt":"2025-01-01T00:00:00Z"}`)},
		message(t, 3, sampleClick()),
	)
	c := NewConsumer(reader, recorder, ConsumerOptions{Backoff: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(reader.commits()) == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{1, 2, 3}, reader.commits())
	assert.Equal(t, []string{"evt-1"}, recorder.ids())
}
