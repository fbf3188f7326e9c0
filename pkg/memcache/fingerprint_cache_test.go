package mem

import (
	"context"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestFingerprintCache_QRDetailsRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := NewFingerprintCache(NewMemoryStore())

	created := time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC)
	in := QRDetails{
		QRString:    "000201010212...",
		Amount:      decimal.RequireFromString("27.00"),
		Currency:    "USD",
		AccountID:   "merchant@aclb",
		DisplayName: "MOTION CYCLE",
		CreatedAt:   created,
	}
	require.NoError(t, cache.PutQRDetails(ctx, "fp1", in, time.Hour))

	got, found, err := cache.QRDetails(ctx, "fp1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, in.Amount.Equal(got.Amount))
	assert.Equal(t, "merchant@aclb", got.AccountID)
	assert.True(t, created.Equal(got.CreatedAt))

	_, found, err = cache.QRDetails(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFingerprintCache_SimulatedIsSeparateFromDetails(t *testing.T) {
	ctx := context.Background()
	cache := NewFingerprintCache(NewMemoryStore())

	require.NoError(t, cache.PutQRDetails(ctx, "fp", QRDetails{QRString: "x"}, time.Hour))

	_, found, err := cache.Simulated(ctx, "fp")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.MarkSimulated(ctx, "fp", SimulatedPayment{
		Status:        "completed",
		Simulated:     true,
		TransactionID: "SIM_1",
	}, time.Minute))

	sim, found, err := cache.Simulated(ctx, "fp")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "SIM_1", sim.TransactionID)
	assert.True(t, sim.Simulated)
}

func TestRedisStore_FingerprintCache(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	store := NewRedisStore(client, "storefront:")
	cache := NewFingerprintCache(store)

	require.NoError(t, cache.MarkSimulated(ctx, "abc", SimulatedPayment{Status: "completed", Simulated: true}, 10*time.Minute))
	assert.True(t, srv.Exists("storefront:payment_completed:abc"))

	sim, found, err := cache.Simulated(ctx, "abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "completed", sim.Status)

	srv.FastForward(11 * time.Minute)
	_, found, err = cache.Simulated(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStore_Delete(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	store := NewRedisStore(client, "")

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, store.Delete(ctx, "k"))

	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
	assert.ErrorIs(t, store.Set(ctx, "", []byte("v"), time.Minute), ErrEmptyKey)
}
