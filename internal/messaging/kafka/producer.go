package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/lqviet45/light-novel-BE/internal/config"
	"github.com/lqviet45/light-novel-BE/internal/events"
)

// Producer publishes auth events through a Sarama AsyncProducer.
type Producer struct {
	producer    sarama.AsyncProducer
	topicPrefix string
	source      string
	logger      *zap.Logger
	failures    atomic.Int64
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// NewProducer connects to the configured brokers.
func NewProducer(cfg config.KafkaConfig, app config.AppConfig, logger *zap.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = app.Name
	saramaConfig.Version = sarama.V2_8_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Flush.Frequency = 100 * time.Millisecond
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = false
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Metadata.Retry.Max = 3
	saramaConfig.Metadata.Retry.Backoff = 250 * time.Millisecond

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	logger.Info("kafka producer initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic_prefix", cfg.TopicPrefix),
	)
	return newProducer(producer, cfg.TopicPrefix, app.Name, logger), nil
}

func newProducer(producer sarama.AsyncProducer, topicPrefix, source string, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Producer{
		producer:    producer,
		topicPrefix: topicPrefix,
		source:      source,
		logger:      logger,
	}
	p.wg.Add(1)
	go p.handleErrors()
	return p
}

func (p *Producer) handleErrors() {
	defer p.wg.Done()
	for perr := range p.producer.Errors() {
		if perr == nil {
			continue
		}
		p.failures.Add(1)
		p.logger.Error("kafka delivery failed",
			zap.Error(perr.Err),
			zap.String("topic", perr.Msg.Topic),
		)
	}
}

// TopicName returns the full topic name with prefix.
func (p *Producer) TopicName(eventType events.EventType) string {
	if p.topicPrefix == "" {
		return string(eventType)
	}
	prefix := p.topicPrefix + "."
	if strings.HasPrefix(string(eventType), prefix) {
		return string(eventType)
	}
	return prefix + string(eventType)
}

// Publish enqueues the event keyed by subject so one identity's events stay
// ordered within a partition.
func (p *Producer) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.TopicName(event.Type),
		Value:     sarama.ByteEncoder(payload),
		Timestamp: event.Timestamp,
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
			{Key: []byte("source"), Value: []byte(p.source)},
		},
	}
	if event.Subject != "" {
		msg.Key = sarama.StringEncoder(event.Subject)
	}

	select {
	case p.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue event %s: %w", event.ID, ctx.Err())
	}
}

// Failures counts asynchronous delivery errors seen so far.
func (p *Producer) Failures() int64 {
	return p.failures.Load()
}

// Close flushes pending messages and stops the error loop.
func (p *Producer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.logger.Info("closing kafka producer")
		if cerr := p.producer.Close(); cerr != nil {
			err = fmt.Errorf("close kafka producer: %w", cerr)
		}
		p.wg.Wait()
	})
	return err
}
