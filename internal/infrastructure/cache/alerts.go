package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"magasin/internal/domain/registers/stock"
)

const (
	// QueueLowStock receives one JSON alert per threshold crossing.
	QueueLowStock = keyPrefix + "alerts:low_stock"

	// maxQueuedAlerts bounds the list when nobody is consuming it.
	maxQueuedAlerts = 10_000
)

// AlertQueue pushes low-stock alerts onto a Redis list for an external consumer.
type AlertQueue struct {
	rdb *redis.Client
}

var _ stock.AlertPublisher = (*AlertQueue)(nil)

// NewAlertQueue creates an alert publisher on rdb.
func NewAlertQueue(rdb *redis.Client) *AlertQueue {
	return &AlertQueue{rdb: rdb}
}

// PublishLowStock enqueues alert and trims the queue.
func (q *AlertQueue) PublishLowStock(ctx context.Context, alert stock.LowStockAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	pipe := q.rdb.TxPipeline()
	pipe.LPush(ctx, QueueLowStock, payload)
	pipe.LTrim(ctx, QueueLowStock, 0, maxQueuedAlerts-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue low stock alert: %w", err)
	}
	return nil
}
