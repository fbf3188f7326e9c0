package services

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const PaymentCompletedChannel = "orders:payment_completed"

type PaymentCompletedEvent struct {
	Type        string          `json:"type"`
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	PaymentID   string          `json:"payment_id"`
	Source      string          `json:"source"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	CompletedAt int64           `json:"completed_at"`
}

// PaymentEventPublisher fans out payment completions. It is only called by
// the caller that won the pending -> completed update.
type PaymentEventPublisher interface {
	PublishPaymentCompleted(ctx context.Context, evt PaymentCompletedEvent) error
}

type RedisPaymentPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPaymentPublisher(client *redis.Client) *RedisPaymentPublisher {
	return &RedisPaymentPublisher{client: client, channel: PaymentCompletedChannel}
}

func (p *RedisPaymentPublisher) PublishPaymentCompleted(ctx context.Context, evt PaymentCompletedEvent) error {
	evt.Type = "payment.completed"
	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode payment event: %w", err)
	}
	return p.client.Publish(ctx, p.channel, raw).Err()
}

type noopPaymentPublisher struct{}

func NewNoopPaymentPublisher() PaymentEventPublisher { return noopPaymentPublisher{} }

func (noopPaymentPublisher) PublishPaymentCompleted(context.Context, PaymentCompletedEvent) error {
	return nil
}
