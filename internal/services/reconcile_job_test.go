package services

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"storefront/internal/models/db_models"
	"sync"
	"testing"
	"time"
)

func TestReconciler_RunOnceConfirmsPaidOrders(t *testing.T) {
	cfg := testConfig("tok")
	f := newOrderFixture(t, cfg, nil)
	ctx := context.Background()

	paid, err := f.svc.CreateOrder(ctx, nil, happyRequest())
	require.NoError(t, err)
	unpaid, err := f.svc.CreateOrder(ctx, nil, happyRequest())
	require.NoError(t, err)
	cashReq := happyRequest()
	cashReq.PaymentMethod = "cash"
	_, err = f.svc.CreateOrder(ctx, nil, cashReq)
	require.NoError(t, err)

	paidFP := *paid.QRData.MD5
	f.gw.checkFn = func(_ context.Context, md5 string) (any, error) {
		if md5 == paidFP {
			return fixture(t, `{"responseCode":0,"data":{"hash":"tx-bg"}}`), nil
		}
		return fixture(t, `{"responseCode":1,"data":null}`), nil
	}

	r := NewReconciler(cfg, f.repo, f.svc, zap.NewNop())
	stats, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Checked)
	assert.Equal(t, 1, stats.Completed)
	assert.Zero(t, stats.Failed)

	assert.Equal(t, db_models.OrderStatusConfirmed, f.load(t, paid.OrderID).OrderStatus)
	assert.Equal(t, db_models.OrderStatusPending, f.load(t, unpaid.OrderID).OrderStatus)

	// completed payments drop out of the next batch
	stats, err = r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Checked)
	assert.Equal(t, 1, f.events.count())
}

func TestReconciler_HangingCheckDoesNotStarveBatch(t *testing.T) {
	cfg := testConfig("tok")
	f := newOrderFixture(t, cfg, nil)
	ctx := context.Background()

	slow, err := f.svc.CreateOrder(ctx, nil, happyRequest())
	require.NoError(t, err)
	second, err := f.svc.CreateOrder(ctx, nil, happyRequest())
	require.NoError(t, err)
	third, err := f.svc.CreateOrder(ctx, nil, happyRequest())
	require.NoError(t, err)

	slowFP, thirdFP := *slow.QRData.MD5, *third.QRData.MD5
	var mu sync.Mutex
	seen := map[string]int{}
	f.gw.checkFn = func(ctx context.Context, md5 string) (any, error) {
		mu.Lock()
		seen[md5]++
		mu.Unlock()
		switch md5 {
		case slowFP:
			<-ctx.Done()
			return nil, ctx.Err()
		case thirdFP:
			return fixture(t, `{"responseCode":0,"data":{"hash":"tx-third"}}`), nil
		}
		return fixture(t, `{"responseCode":1,"data":null}`), nil
	}

	r := NewReconciler(cfg, f.repo, f.svc, zap.NewNop())
	r.checkTimeout = 50 * time.Millisecond
	for i := 0; i < 3; i++ {
		stats, err := r.RunOnce(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, stats.Checked, 2)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, seen[slowFP])
	assert.Equal(t, 3, seen[*second.QRData.MD5])
	assert.Equal(t, 1, seen[thirdFP], "completed payments leave the batch")
	assert.Equal(t, db_models.OrderStatusConfirmed, f.load(t, third.OrderID).OrderStatus)
	assert.Equal(t, db_models.OrderStatusPending, f.load(t, slow.OrderID).OrderStatus)
}

func TestReconciler_SkipsExpiredQRs(t *testing.T) {
	cfg := testConfig("tok")
	f := newOrderFixture(t, cfg, nil)
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, nil, happyRequest())
	require.NoError(t, err)

	r := NewReconciler(cfg, f.repo, f.svc, zap.NewNop())
	r.now = func() time.Time { return time.Now().Add(3 * time.Hour) }
	stats, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Checked)
}

func TestReconciler_StartStop(t *testing.T) {
	cfg := testConfig("tok")
	f := newOrderFixture(t, cfg, nil)

	r := NewReconciler(cfg, f.repo, f.svc, zap.NewNop())
	require.NoError(t, r.Start())
	assert.NoError(t, r.Stop())
	assert.NoError(t, r.Stop())

	cfg.Reconcile.Interval = 0
	assert.Error(t, NewReconciler(cfg, f.repo, f.svc, zap.NewNop()).Start())
}
