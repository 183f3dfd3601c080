package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/log"
)

// ConfluentConsumer implements ChangeEventConsumer using confluent-kafka-go.
type ConfluentConsumer struct {
	consumer *kafka.Consumer
	topics   []string
	handler  ChangeHandler
	doneCh   chan struct{}
}

// NewConfluentConsumer creates a Kafka consumer for the table change topics.
func NewConfluentConsumer(brokers, groupID string, topics []string, handler ChangeHandler) (*ConfluentConsumer, error) {
	if len(topics) == 0 {
		return nil, errors.New("no change topics configured")
	}

	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"group.id":           groupID,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	return &ConfluentConsumer{
		consumer: c,
		topics:   topics,
		handler:  handler,
		doneCh:   make(chan struct{}),
	}, nil
}

// Start subscribes and begins consuming in the background.
func (cc *ConfluentConsumer) Start(ctx context.Context) error {
	if err := cc.consumer.SubscribeTopics(cc.topics, nil); err != nil {
		close(cc.doneCh)
		return fmt.Errorf("failed to subscribe to topics %v: %w", cc.topics, err)
	}

	l := log.Component("consumer")
	l.Info().Strs("topics", cc.topics).Msg("kafka change consumer started")

	go cc.consumeLoop(ctx)

	return nil
}

func (cc *ConfluentConsumer) consumeLoop(ctx context.Context) {
	l := log.Component("consumer")
	defer close(cc.doneCh)

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("kafka change consumer shutting down")
			return
		default:
			msg, err := cc.consumer.ReadMessage(100 * time.Millisecond)
			if err != nil {
				var kerr kafka.Error
				if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				l.Error().Err(err).Msg("kafka change consumer error")
				continue
			}

			cc.processMessage(context.WithoutCancel(ctx), msg)
		}
	}
}

func (cc *ConfluentConsumer) processMessage(ctx context.Context, msg *kafka.Message) {
	topic := ""
	if msg.TopicPartition.Topic != nil {
		topic = *msg.TopicPartition.Topic
	}

	if err := cc.handler.HandleMessage(ctx, topic, msg.Value); err != nil {
		l := log.Component("consumer")
		l.Error().Err(err).
			Str(log.FieldTopic, topic).
			Int64("offset", int64(msg.TopicPartition.Offset)).
			Msg("failed to handle change event")
	}
}

// Close waits for the consume loop to exit, then closes the consumer.
// The context passed to Start must be cancelled first.
func (cc *ConfluentConsumer) Close() error {
	<-cc.doneCh
	if err := cc.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	return nil
}
