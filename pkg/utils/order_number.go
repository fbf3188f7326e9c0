package utils

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

const (
	OrderNumberPrefix   = "ORD"
	InvoiceNumberPrefix = "INV"

	maxNumberAttempts = 20
)

var ErrNumberExhausted = errors.New("could not generate a unique number")

// NumberSource returns a random suffix in [1, 9999].
type NumberSource func() int

func RandomSuffix() int { return rand.Intn(9999) + 1 }

// FormatNumber renders PREFIX-YYYYMMDD-NNNN using the shop's local date.
func FormatNumber(prefix string, at time.Time, suffix int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, at.In(shopLoc).Format("20060102"), suffix)
}

// UniqueNumber draws numbers until exists reports a free one.
func UniqueNumber(ctx context.Context, prefix string, at time.Time, next NumberSource, exists func(context.Context, string) (bool, error)) (string, error) {
	if next == nil {
		next = RandomSuffix
	}
	for i := 0; i < maxNumberAttempts; i++ {
		candidate := FormatNumber(prefix, at, next())
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s after %d attempts", ErrNumberExhausted, prefix, maxNumberAttempts)
}
