package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/camellia/pkg/sources"
)

func silentLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
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

func TestProducer_PublishBusinessEvents(t *testing.T) {
	writer := &fakeWriter{}
	producer := newProducer(writer, "business-events", silentLogger())

	err := producer.PublishBusinessEvents(context.Background(), []BusinessEvent{
		{EventType: EventBusinessCreated, BusinessID: "b1", ClusterID: "b1", RunID: "r"},
		{EventType: EventBusinessMerged, BusinessID: "b2", ClusterID: "b1", RunID: "r", FieldsFilled: []string{"phone"}},
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 2)

	msg := writer.messages[1]
	assert.Equal(t, "business-events", msg.Topic)
	assert.Equal(t, "b1", string(msg.Key))

	var decoded BusinessEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, EventBusinessMerged, decoded.EventType)
	assert.Equal(t, []string{"phone"}, decoded.FieldsFilled)
	assert.False(t, decoded.Timestamp.IsZero())

	assert.NoError(t, producer.PublishBusinessEvents(context.Background(), nil))
	require.NoError(t, producer.Close())
}

func TestProducer_WriteError(t *testing.T) {
	producer := newProducer(&fakeWriter{err: errors.New("broker down")}, "t", silentLogger())
	err := producer.PublishBusinessEvents(context.Background(), []BusinessEvent{{BusinessID: "b"}})
	assert.Error(t, err)
}

type fakeReader struct {
	messages  []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.messages) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestFeed_DrainsOnIdle(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		{Partition: 0, Offset: 1, Value: []byte(`{"kind":"directory","source":"heykorean","data":{"id":"1","name_en":"A"}}`)},
		{Partition: 0, Offset: 2, Value: []byte(`not json`)},
		{Partition: 1, Offset: 7, Value: []byte(`{"kind":"place","source":"places","data":{"place_id":"p"}}`)},
	}}
	feed := newFeed(reader, 10*time.Millisecond, silentLogger())
	ctx := context.Background()

	items, err := feed.Next(ctx, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "0:1", items[0].Ref)
	assert.NoError(t, items[0].Err)
	assert.Error(t, items[1].Err)

	items, err = feed.Next(ctx, 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "1:7", items[0].Ref)

	items, err = feed.Next(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, feed.Ack(ctx, nil))
	assert.Empty(t, reader.committed)

	err = feed.Committed(ctx, []sources.Outcome{{Item: sources.Item{Ref: "0:1"}}, {Item: sources.Item{Ref: "1:7"}}, {Item: sources.Item{Ref: "9:9"}}})
	require.NoError(t, err)
	require.Len(t, reader.committed, 2)
	assert.Equal(t, int64(7), reader.committed[1].Offset)
	require.NoError(t, feed.Close())
}

func TestFeed_Cancelled(t *testing.T) {
	feed := newFeed(&fakeReader{}, time.Second, silentLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := feed.Next(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompression(t *testing.T) {
	assert.Equal(t, kafka.Zstd, compression("zstd"))
	assert.Equal(t, kafka.Compression(0), compression("none"))
	assert.Equal(t, kafka.Snappy, compression("brotli"))
}
