package repository

import (
	"context"
	"errors"
	"time"

	"StockSim/internal/domain/models"
	domrepo "StockSim/internal/domain/repository"
)

// Producer is the subset of pkg/kafka.Producer the publisher needs.
type Producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaResultPublisher emits a SimulationCompleted event keyed by ticker.
type KafkaResultPublisher struct {
	producer Producer
	topic    string
}

func NewKafkaResultPublisher(producer Producer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

func (p *KafkaResultPublisher) PublishResult(ctx context.Context, result *models.SimulationResult) error {
	if result == nil {
		return errors.New("publish result: nil result")
	}
	ev := CompletedEvent(result)
	return p.producer.Publish(ctx, p.topic, []byte(ev.Ticker), ev)
}

func (p *KafkaResultPublisher) Close() error {
	return p.producer.Close()
}

// CompletedEvent summarizes result: best model by MAE and the final scenario band.
func CompletedEvent(result *models.SimulationResult) models.SimulationCompleted {
	ev := models.SimulationCompleted{
		Ticker:       result.Metadata.Ticker,
		Horizon:      result.Metadata.Horizon,
		CurrentPrice: result.Metadata.CurrentPrice,
		BestModel:    result.BestModel(),
		GeneratedAt:  result.Metadata.GeneratedAt,
	}
	if len(result.Accuracy) > 0 {
		ev.BestMAE = result.Accuracy[0].MAE
	}
	if n := len(result.Scenarios); n > 0 {
		ev.Final = result.Scenarios[n-1]
	}
	if ev.GeneratedAt.IsZero() {
		ev.GeneratedAt = time.Now().UTC()
	}
	return ev
}

// NopPublisher drops every result. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishResult(context.Context, *models.SimulationResult) error { return nil }
func (NopPublisher) Close() error                                                  { return nil }

var (
	_ domrepo.ResultPublisher = (*KafkaResultPublisher)(nil)
	_ domrepo.ResultPublisher = NopPublisher{}
)
