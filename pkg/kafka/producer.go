// Package kafka publishes business events and consumes the crawled-listing feed.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/camellia/pkg/metrics"
	"github.com/Ramsey-B/camellia/pkg/tracing"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes business events keyed by cluster, so every event of one cluster lands on
// the same partition in order.
type Producer struct {
	writer messageWriter
	logger ectologger.Logger
	topic  string
}

type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

var codecs = map[string]kafka.Compression{
	"none":   0,
	"gzip":   kafka.Gzip,
	"snappy": kafka.Snappy,
	"lz4":    kafka.Lz4,
	"zstd":   kafka.Zstd,
}

// compression maps a configured codec name; unknown names fall back to snappy.
func compression(name string) kafka.Compression {
	if codec, ok := codecs[name]; ok {
		return codec
	}
	return kafka.Snappy
}

// NewProducer does not dial; the writer connects on the first publish.
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression(cfg.Compression),
		AllowAutoTopicCreation: true,
	}, cfg.Topic, logger)
}

func newProducer(writer messageWriter, topic string, logger ectologger.Logger) *Producer {
	return &Producer{writer: writer, logger: logger, topic: topic}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

const (
	EventBusinessCreated = "business.created"
	EventBusinessMerged  = "business.merged"
	EventBusinessLinked  = "business.linked"
)

// BusinessEvent tells the enrichment collaborator a record appeared or changed.
type BusinessEvent struct {
	EventType    string    `json:"event_type"`
	BusinessID   string    `json:"business_id"`
	ClusterID    string    `json:"cluster_id"`
	Source       string    `json:"source,omitempty"`
	SourceUID    string    `json:"source_uid,omitempty"`
	MatchReason  string    `json:"match_reason,omitempty"`
	Confidence   string    `json:"confidence,omitempty"`
	FieldsFilled []string  `json:"fields_filled,omitempty"`
	QualityScore int       `json:"quality_score"`
	RunID        string    `json:"run_id"`
	Timestamp    time.Time `json:"timestamp"`
}

// PublishBusinessEvents publishes events in one batch, keyed by cluster so a cluster's events
// stay ordered on one partition.
func (p *Producer) PublishBusinessEvents(ctx context.Context, events []BusinessEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishBusinessEvents")
	defer span.End()

	if len(events) == 0 {
		return nil
	}

	messages := make([]kafka.Message, len(events))
	for i := range events {
		event := &events[i]
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}

		data, err := json.Marshal(event)
		if err != nil {
			return err
		}

		messages[i] = kafka.Message{
			Topic: p.topic,
			Key:   []byte(event.ClusterID),
			Value: data,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
				{Key: "run_id", Value: []byte(event.RunID)},
				{Key: "schema_version", Value: []byte("1.0")},
			},
		}
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		metrics.KafkaMessagesPublished.WithLabelValues(p.topic, "error").Add(float64(len(messages)))
		tracing.Fail(span, err)
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"batch_size": len(events),
		}).Error("Failed to publish business events batch")
		return err
	}

	metrics.KafkaMessagesPublished.WithLabelValues(p.topic, "ok").Add(float64(len(messages)))
	p.logger.WithContext(ctx).WithFields(map[string]any{
		"batch_size": len(events),
	}).Debug("Published business events batch")

	return nil
}
