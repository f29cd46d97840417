package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// MetadataEvent is the message published to the main topic after a
// successful pipeline run. Field names are wire-compatible with the
// previous middleware's dicom.metadata.v1 schema.
type MetadataEvent struct {
	CorrelationID    string `json:"correlation_id"`
	StudyInstanceUID string `json:"study_instance_uid"`
	PatientID        string `json:"patient_id,omitempty"`
	Modality         string `json:"modality,omitempty"`
	StudyDate        string `json:"study_date,omitempty"`
	StoragePath      string `json:"storage_path"`
	Timestamp        string `json:"timestamp"`
}

// DeadLetter is the quarantine message published to the DLQ topic on the
// first unrecoverable failure of any pipeline stage.
type DeadLetter struct {
	OriginalPayload map[string]string `json:"original_payload"`
	ErrorReason     string            `json:"error_reason"`
	CorrelationID   string            `json:"correlation_id"`
}

// Publisher owns the Kafka writers for the main and dead-letter topics.
// Both writers require full broker acknowledgment before a send returns,
// so a nil error means the message is durably written. Safe for concurrent
// use.
type Publisher struct {
	events *kafka.Writer
	dlq    *kafka.Writer
	logger *slog.Logger
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}

// NewPublisher creates the producers for both topics. Writers connect
// lazily on first send.
func NewPublisher(brokers []string, topic, dlqTopic string, logger *slog.Logger) *Publisher {
	return &Publisher{
		events: newWriter(brokers, topic),
		dlq:    newWriter(brokers, dlqTopic),
		logger: logger,
	}
}

// Close flushes and closes both writers.
func (p *Publisher) Close() error {
	err1 := p.events.Close()
	err2 := p.dlq.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Publish sends the event to the main topic, keyed by Study Instance UID
// and with the correlation id carried as a message header rather than in
// the body.
func (p *Publisher) Publish(ctx context.Context, event MetadataEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding metadata event: %w", err)
	}

	err = p.events.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.StudyInstanceUID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "correlation_id", Value: []byte(event.CorrelationID)},
		},
	})
	if err != nil {
		return fmt.Errorf("publishing metadata event: %w", err)
	}
	return nil
}

// PublishDeadLetter sends the record to the dead-letter topic with the
// same delivery guarantees as Publish. Broker errors propagate to the
// caller; they are never swallowed here.
func (p *Publisher) PublishDeadLetter(ctx context.Context, record DeadLetter) error {
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding dead letter: %w", err)
	}

	err = p.dlq.WriteMessages(ctx, kafka.Message{
		Value: value,
		Headers: []kafka.Header{
			{Key: "correlation_id", Value: []byte(record.CorrelationID)},
		},
	})
	if err != nil {
		return fmt.Errorf("publishing dead letter: %w", err)
	}

	dlqMessagesTotal.WithLabelValues(record.ErrorReason).Inc()
	p.logger.Info("dlq sent",
		"reason", record.ErrorReason,
		"correlation_id", record.CorrelationID,
	)
	return nil
}
