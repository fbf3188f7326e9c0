package mem

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/shopspring/decimal"
	"time"
)

const (
	qrDetailsPrefix = "qr_details:"
	simulatedPrefix = "payment_completed:"
)

// QRDetails is what was issued for a trackable QR, keyed by its fingerprint.
type QRDetails struct {
	QRString    string          `json:"qr_string"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	AccountID   string          `json:"bakong_account"`
	DisplayName string          `json:"account_name"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SimulatedPayment marks a fingerprint as paid without a gateway round-trip.
type SimulatedPayment struct {
	Status        string    `json:"status"`
	CompletedAt   time.Time `json:"completed_at"`
	Simulated     bool      `json:"simulated"`
	TransactionID string    `json:"transaction_id"`
}

// FingerprintCache maps payment fingerprints to issuance metadata and,
// outside production, to simulated completion markers. Entries only need
// TTL expiry: a lost entry never turns into a false completion.
type FingerprintCache struct {
	store Store
}

func NewFingerprintCache(store Store) *FingerprintCache {
	return &FingerprintCache{store: store}
}

func (c *FingerprintCache) PutQRDetails(ctx context.Context, fingerprint string, d QRDetails, ttl time.Duration) error {
	return c.put(ctx, qrDetailsPrefix+fingerprint, d, ttl)
}

func (c *FingerprintCache) QRDetails(ctx context.Context, fingerprint string) (*QRDetails, bool, error) {
	var d QRDetails
	found, err := c.get(ctx, qrDetailsPrefix+fingerprint, &d)
	if err != nil || !found {
		return nil, false, err
	}
	return &d, true, nil
}

func (c *FingerprintCache) MarkSimulated(ctx context.Context, fingerprint string, p SimulatedPayment, ttl time.Duration) error {
	return c.put(ctx, simulatedPrefix+fingerprint, p, ttl)
}

func (c *FingerprintCache) Simulated(ctx context.Context, fingerprint string) (*SimulatedPayment, bool, error) {
	var p SimulatedPayment
	found, err := c.get(ctx, simulatedPrefix+fingerprint, &p)
	if err != nil || !found {
		return nil, false, err
	}
	return &p, true, nil
}

func (c *FingerprintCache) put(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.store.Set(ctx, key, raw, ttl)
}

func (c *FingerprintCache) get(ctx context.Context, key string, dst any) (bool, error) {
	raw, found, err := c.store.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
