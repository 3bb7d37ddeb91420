// Package events publishes request-lifecycle events to Kafka so downstream
// consumers (notification senders, analytics) can react to transitions.
// Publishing is best-effort: a failed publish is logged and never fails
// the transition that produced it.
package events

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oncohub/oncohub/internal/config"
)

type RequestEvent struct {
	EventType  string    `json:"event_type"` // request.created | request.accepted | request.declined | request.rescheduled
	RequestID  uuid.UUID `json:"request_id"`
	PatientID  uuid.UUID `json:"patient_id"`
	DoctorID   uuid.UUID `json:"doctor_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishRequestEvent(ev RequestEvent)
	Close() error
}

type kafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

// NewPublisher returns a Kafka-backed publisher, or a no-op one when no
// brokers are configured.
func NewPublisher(cfg config.KafkaConfig, log *zap.Logger) (Publisher, error) {
	if !cfg.Enabled() {
		return NopPublisher{}, nil
	}

	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 3
	sc.Producer.Return.Successes = true
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, err
	}

	return &kafkaPublisher{producer: producer, topic: cfg.Topic, log: log}, nil
}

func (p *kafkaPublisher) PublishRequestEvent(ev RequestEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("failed to encode request event", zap.Error(err))
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		// Key by patient so one patient's events stay ordered per partition
		Key:   sarama.StringEncoder(ev.PatientID.String()),
		Value: sarama.ByteEncoder(payload),
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		p.log.Warn("failed to publish request event",
			zap.String("event_type", ev.EventType),
			zap.String("request_id", ev.RequestID.String()),
			zap.Error(err),
		)
	}
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher drops all events. Used when Kafka is not configured and in
// tests.
type NopPublisher struct{}

func (NopPublisher) PublishRequestEvent(RequestEvent) {}
func (NopPublisher) Close() error                     { return nil }
