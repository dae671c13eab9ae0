package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/camellia/pkg/sources"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// FeedConfig holds the candidate feed consumer configuration
type FeedConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	// IdleTimeout ends the feed when no message arrives for this long.
	IdleTimeout time.Duration
}

// Feed reads crawler output from a topic as a batch feed. Offsets are committed only after the
// chunk holding the messages has been committed to the store.
type Feed struct {
	reader      messageReader
	logger      ectologger.Logger
	idleTimeout time.Duration
	pending     map[string]kafka.Message
}

func NewFeed(cfg FeedConfig, logger ectologger.Logger) *Feed {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.FirstOffset,
	})
	return newFeed(reader, cfg.IdleTimeout, logger)
}

func newFeed(reader messageReader, idleTimeout time.Duration, logger ectologger.Logger) *Feed {
	if idleTimeout <= 0 {
		idleTimeout = 5 * time.Second
	}
	return &Feed{
		reader:      reader,
		logger:      logger,
		idleTimeout: idleTimeout,
		pending:     map[string]kafka.Message{},
	}
}

func messageRef(msg kafka.Message) string {
	return fmt.Sprintf("%d:%d", msg.Partition, msg.Offset)
}

func (f *Feed) Next(ctx context.Context, max int) ([]sources.Item, error) {
	var items []sources.Item
	for len(items) < max {
		fetchCtx, cancel := context.WithTimeout(ctx, f.idleTimeout)
		msg, err := f.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return items, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				return items, nil
			}
			f.logger.WithContext(ctx).WithError(err).Error("Failed to fetch message")
			return items, err
		}

		ref := messageRef(msg)
		f.pending[ref] = msg

		item := sources.Item{Ref: ref}
		item.Record, item.Envelope, item.Err = sources.Decode(msg.Value)
		items = append(items, item)
	}
	return items, nil
}

// Ack is a no-op: offsets move in Committed.
func (f *Feed) Ack(context.Context, []sources.Outcome) error {
	return nil
}

func (f *Feed) Committed(ctx context.Context, outcomes []sources.Outcome) error {
	msgs := make([]kafka.Message, 0, len(outcomes))
	for _, o := range outcomes {
		if msg, ok := f.pending[o.Item.Ref]; ok {
			msgs = append(msgs, msg)
			delete(f.pending, o.Item.Ref)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := f.reader.CommitMessages(ctx, msgs...); err != nil {
		f.logger.WithContext(ctx).WithError(err).WithField("count", len(msgs)).Error("Failed to commit messages")
		return err
	}
	return nil
}

func (f *Feed) Close() error {
	return f.reader.Close()
}
