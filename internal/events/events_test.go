package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	closed    bool
	failOnce  bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.failOnce {
		r.failOnce = false
		r.mu.Unlock()
		return kafka.Message{}, errors.New("broker unavailable")
	}
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func encode(t *testing.T, e Event) []byte {
	t.Helper()
	b, err := json.Marshal(e)
	require.NoError(t, err)
	return b
}

func TestConsumerHandlesAndCommits(t *testing.T) {
	reader := &fakeReader{
		failOnce: true,
		msgs: []kafka.Message{
			{Offset: 1, Value: encode(t, Event{Type: PostLiked, ActorID: 2, PostID: 9, TargetID: 1})},
			{Offset: 2, Value: []byte("{not json")},
			{Offset: 3, Value: encode(t, Event{Type: PostReplied, ActorID: 3, PostID: 9, TargetID: 1})},
		},
	}

	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan struct{})
	handler := func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Type)
		if len(got) == 2 {
			close(done)
		}
		return nil
	}

	c := NewConsumer(reader, handler, zap.NewNop())
	c.retry = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not process events")
	}
	cancel()
	require.NoError(t, <-errc)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{PostLiked, PostReplied}, got)

	reader.mu.Lock()
	defer reader.mu.Unlock()
	assert.Equal(t, []int64{1, 2, 3}, reader.committed)
	assert.True(t, reader.closed)
}

func TestEventKeyAndDecode(t *testing.T) {
	assert.Equal(t, "post-4", Event{PostID: 4}.Key())
	assert.Equal(t, "paper-5", Event{PaperID: 5}.Key())

	_, err := Decode([]byte("nope"))
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Publish(context.Background(), Event{Type: PostCreated}))
	assert.Equal(t, []string{PostCreated}, r.Types())
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), Event{}))
}

func TestDispatcher(t *testing.T) {
	var got []Event
	d := NewDispatcher(func(_ context.Context, e Event) error {
		got = append(got, e)
		if e.Type == PostUnliked {
			return errors.New("boom")
		}
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: PostLiked, PostID: 3}))
	assert.Error(t, d.Publish(context.Background(), Event{Type: PostUnliked, PostID: 3}))
	require.Len(t, got, 2)
	assert.False(t, got[0].At.IsZero())
	assert.NoError(t, d.Close())
}
