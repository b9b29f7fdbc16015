package kafka

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

	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/resilience"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  chan kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case msg := <-r.messages:
		return msg, nil
	}
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

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestConsumerCommitsOnlyHandledMessages(t *testing.T) {
	reader := &fakeReader{messages: make(chan kafka.Message, 3)}
	reader.messages <- kafka.Message{Offset: 1, Value: []byte("ok")}
	reader.messages <- kafka.Message{Offset: 2, Value: []byte("fail")}
	reader.messages <- kafka.Message{Offset: 3, Value: []byte("ok")}

	handled := make(chan struct{}, 3)
	c := NewConsumerWithReader(reader, "document-ingest", func(_ context.Context, _, value []byte) error {
		defer func() { handled <- struct{}{} }()
		if string(value) == "fail" {
			return errors.New("boom")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case <-handled:
		case <-time.After(5 * time.Second):
			t.Fatal("message not handled")
		}
	}
	assert.Eventually(t, func() bool { return len(reader.commits()) == 2 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []int64{1, 3}, reader.commits())
}

func TestDecodeJSONKeepsNumbers(t *testing.T) {
	value, err := json.Marshal(map[string]any{
		"document_id": "doc-1",
		"fields":      map[string]any{"size": uint64(18446744073709551615)},
	})
	require.NoError(t, err)

	event, err := DecodeJSON[IngestEvent](value)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", event.DocumentID)
	assert.Equal(t, json.Number("18446744073709551615"), event.Fields["size"])

	_, err = DecodeJSON[IngestEvent]([]byte("{"))
	assert.Error(t, err)
}

func TestConsumerRetriesFailingHandler(t *testing.T) {
	reader := &fakeReader{messages: make(chan kafka.Message, 1)}
	reader.messages <- kafka.Message{Offset: 7, Value: []byte("flaky")}

	var mu sync.Mutex
	calls := 0
	c := NewConsumerWithReader(reader, "document-ingest", func(context.Context, []byte, []byte) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			return errors.New("disk busy")
		}
		return nil
	})
	c.SetRetry(resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	assert.Eventually(t, func() bool { return len(reader.commits()) == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []int64{7}, reader.commits())
	mu.Lock()
	assert.Equal(t, 3, calls)
	mu.Unlock()
}

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducerPublishBatch(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "document-ingest")

	err := p.PublishBatch(context.Background(), []Event{
		{Key: "doc-1", Value: IngestEvent{DocumentID: "doc-1", Fields: map[string]any{"title": "pint"}}},
		{Key: "seg", Value: map[string]int{"n": 1}},
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 2)

	assert.Equal(t, "doc-1", string(w.messages[0].Key))
	assert.JSONEq(t, `{"document_id":"doc-1","fields":{"title":"pint"}}`, string(w.messages[0].Value))
	require.Len(t, w.messages[0].Headers, 1)
	assert.Equal(t, HeaderEventType, w.messages[0].Headers[0].Key)
	assert.Equal(t, "document.ingest", string(w.messages[0].Headers[0].Value))
	assert.Empty(t, w.messages[1].Headers)
}

func TestProducerWritesNothingOnEncodeError(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "document-ingest")

	err := p.PublishBatch(context.Background(), []Event{
		{Key: "a", Value: IngestEvent{DocumentID: "a"}},
		{Key: "b", Value: make(chan int)},
	})
	assert.Error(t, err)
	assert.Empty(t, w.messages)

	w.err = errors.New("leader not available")
	assert.ErrorIs(t, p.Publish(context.Background(), Event{Key: "a", Value: 1}), w.err)
}
