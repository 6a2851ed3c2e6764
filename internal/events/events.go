//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package events publishes pipeline run notifications to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/orderdw/orderdw-etl/internal/config"
	"github.com/orderdw/orderdw-etl/internal/logging"
)

// EventTypeRunCompleted is the type of the event sent after every run.
const EventTypeRunCompleted = "etl.run.completed"

// StageSummary is one stage outcome inside a RunCompleted event.
type StageSummary struct {
	Stage     string  `json:"stage"`
	Table     string  `json:"table"`
	Status    string  `json:"status"`
	Rows      int64   `json:"rows"`
	ElapsedMS int64   `json:"elapsed_ms"`
	Error     *string `json:"error,omitempty"`
}

// RunCompleted describes a finished pipeline run.
type RunCompleted struct {
	EventType        string         `json:"event_type"`
	RunID            string         `json:"run_id"`
	Status           string         `json:"status"`
	StartedAt        time.Time      `json:"started_at"`
	FinishedAt       time.Time      `json:"finished_at"`
	Stages           []StageSummary `json:"stages"`
	ValidationStatus string         `json:"validation_status,omitempty"`
	Version          string         `json:"version"`
}

// Publisher sends run notifications.
type Publisher interface {
	PublishRunCompleted(ctx context.Context, event *RunCompleted) error
	Close() error
}

// NewPublisher returns a Kafka publisher when brokers are configured and a
// no-op publisher otherwise.
func NewPublisher(cfg config.EventsConfig) Publisher {
	if len(cfg.Brokers) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(cfg)
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) PublishRunCompleted(context.Context, *RunCompleted) error { return nil }
func (NopPublisher) Close() error                                           { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes JSON events to a Kafka topic.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher creates a publisher for cfg.Topic on cfg.Brokers.
func NewKafkaPublisher(cfg config.EventsConfig) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: writer, topic: cfg.Topic}
}

// PublishRunCompleted publishes event keyed by its run id.
func (p *KafkaPublisher) PublishRunCompleted(ctx context.Context, event *RunCompleted) error {
	if event.EventType == "" {
		event.EventType = EventTypeRunCompleted
	}
	if event.FinishedAt.IsZero() {
		event.FinishedAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.EventType, err)
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.RunID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "status", Value: []byte(event.Status)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.EventType, err)
	}

	logging.Debug().
		Str("event_type", event.EventType).
		Str("run_id", event.RunID).
		Str("topic", p.topic).
		Msg("Published run event")

	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
