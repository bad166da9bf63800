package repository

import (
	"context"
	"fmt"

	"FlatPull/internal/domain/models"
	domainrepo "FlatPull/internal/domain/repository"
	pkgkafka "FlatPull/pkg/kafka"
)

// KafkaEventPublisher publishes day events keyed by asset type, so each asset's
// days stay ordered within a partition.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
}

func NewKafkaEventPublisher(p *pkgkafka.Producer) domainrepo.EventPublisher {
	return &KafkaEventPublisher{producer: p}
}

func (k *KafkaEventPublisher) PublishDay(ctx context.Context, ev models.DayEvent) error {
	if err := k.producer.Publish(ctx, string(ev.AssetType), ev); err != nil {
		return fmt.Errorf("publish %s %s to %s: %w", ev.AssetType, ev.Day, k.producer.Topic(), err)
	}
	return nil
}

func (k *KafkaEventPublisher) Close() error {
	return k.producer.Close()
}
