// Package events publishes analysis outcomes to Kafka
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/integrity/sanctions-crosscheck/internal/config"
	"github.com/integrity/sanctions-crosscheck/internal/domain"
	"github.com/integrity/sanctions-crosscheck/internal/pkg/logger"
)

// Event type tags carried in the message header
const (
	EventTypeHeader        = "event_type"
	EventAlertRaised       = "integrity.alert.raised"
	EventAnalysisCompleted = "integrity.analysis.completed"
)

// AlertEvent is emitted once per detected pattern
type AlertEvent struct {
	AlertID     uuid.UUID          `json:"alert_id"`
	RunID       uuid.UUID          `json:"run_id"`
	Identifier  domain.Identifier  `json:"identifier,omitempty"`
	Name        string             `json:"name,omitempty"`
	PatternKind domain.PatternKind `json:"pattern_kind"`
	Priority    domain.RiskLevel   `json:"priority"`
	Description string             `json:"description"`
	Value       decimal.Decimal    `json:"value"`
	DetectedAt  time.Time          `json:"detected_at"`
}

// AnalysisCompletedEvent summarizes a finished run
type AnalysisCompletedEvent struct {
	RunID               uuid.UUID       `json:"run_id"`
	SanctionsCount      int             `json:"sanctions_count"`
	ContractsCount      int             `json:"contracts_count"`
	FlaggedCount        int             `json:"flagged_count"`
	PatternCount        int             `json:"pattern_count"`
	TotalContractsValue decimal.Decimal `json:"total_contracts_value"`
	TotalFlaggedValue   decimal.Decimal `json:"total_flagged_value"`
	PercentFlagged      decimal.Decimal `json:"percent_flagged"`
	DurationMs          int64           `json:"duration_ms"`
	CompletedAt         time.Time       `json:"completed_at"`
}

// Publisher writes events through a synchronous producer
type Publisher struct {
	producer    sarama.SyncProducer
	eventsTopic string
	alertsTopic string
	log         *logger.Logger
}

// NewProducerConfig returns the sarama settings used for publishing
func NewProducerConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

// Dial connects a sync producer to the configured brokers
func Dial(cfg config.KafkaConfig, log *logger.Logger) (*Publisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewProducerConfig(cfg.ClientID))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewPublisher(producer, cfg.EventsTopic, cfg.AlertsTopic, log), nil
}

// NewPublisher wraps an existing producer
func NewPublisher(producer sarama.SyncProducer, eventsTopic, alertsTopic string, log *logger.Logger) *Publisher {
	return &Publisher{
		producer:    producer,
		eventsTopic: eventsTopic,
		alertsTopic: alertsTopic,
		log:         log.Named("events"),
	}
}

// PublishRun sends one alert event per alert, keyed by identifier, then the
// completion event for the run.
func (p *Publisher) PublishRun(ctx context.Context, run *domain.AnalysisRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(run.Alerts)+1)
	for i := range run.Alerts {
		a := &run.Alerts[i]
		key := string(a.Identifier)
		if key == "" {
			key = run.ID.String()
		}
		msg, err := newMessage(p.alertsTopic, key, EventAlertRaised, AlertEvent{
			AlertID:     a.ID,
			RunID:       run.ID,
			Identifier:  a.Identifier,
			Name:        a.Name,
			PatternKind: a.PatternKind,
			Priority:    a.Priority,
			Description: a.Description,
			Value:       a.Pattern.Value,
			DetectedAt:  a.DetectedAt,
		})
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	s := run.Summary
	done, err := newMessage(p.eventsTopic, run.ID.String(), EventAnalysisCompleted, AnalysisCompletedEvent{
		RunID:               run.ID,
		SanctionsCount:      s.SanctionsCount,
		ContractsCount:      s.ContractsCount,
		FlaggedCount:        s.FlaggedCount,
		PatternCount:        len(run.Patterns),
		TotalContractsValue: s.TotalContractsValue,
		TotalFlaggedValue:   s.TotalFlaggedValue,
		PercentFlagged:      s.PercentFlagged,
		DurationMs:          run.Duration().Milliseconds(),
		CompletedAt:         run.CompletedAt,
	})
	if err != nil {
		return err
	}
	msgs = append(msgs, done)

	if err := p.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("publish run %s: %w", run.ID, err)
	}
	p.log.Info("Run published",
		logger.StringField("run_id", run.ID.String()),
		logger.IntField("alerts", len(run.Alerts)),
	)
	return nil
}

// Close shuts the producer down
func (p *Publisher) Close() error {
	return p.producer.Close()
}

func newMessage(topic, key, eventType string, payload any) (*sarama.ProducerMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", eventType, err)
	}
	return &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte(EventTypeHeader), Value: []byte(eventType)},
		},
	}, nil
}
