package repositories

import (
	"context"
	"errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"storefront/internal/infra/testdb"
	"storefront/internal/models/db_models"
	"storefront/pkg/utils"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func seedOrder(t *testing.T, repo OrderRepositoryInterface, number string, method string, fingerprint *string) *db_models.Order {
	t.Helper()
	ctx := context.Background()

	order := &db_models.Order{
		OrderNumber:   number,
		InvoiceNumber: "INV" + number[3:],
		CustomerName:  "Sok Dara",
		CustomerPhone: "012345678",
		Items: datatypes.JSONSlice[db_models.OrderItem]{
			{ID: "p1", Name: "Helmet", Price: decimal.NewFromInt(10), Quantity: 2},
		},
		Subtotal:    decimal.NewFromInt(20),
		TotalAmount: decimal.NewFromInt(20),
		Currency:    "USD",
		OrderStatus: db_models.OrderStatusPending,
	}
	require.NoError(t, repo.CreateOrder(ctx, order))

	payment := &db_models.Payment{
		OrderID:       order.ID,
		PaymentMethod: method,
		PaymentStatus: db_models.PaymentStatusPending,
		Amount:        order.TotalAmount,
		Currency:      order.Currency,
	}
	require.NoError(t, repo.CreatePayment(ctx, payment))
	if fingerprint != nil {
		require.NoError(t, repo.AttachQR(ctx, payment.ID, "000201...", fingerprint))
	}

	loaded, err := repo.GetOrderByID(ctx, order.ID.String())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	return loaded
}

func TestOrderRepository_CreateAndLoad(t *testing.T) {
	repo := NewOrderRepository(testdb.Open(t))
	ctx := context.Background()

	order := seedOrder(t, repo, "ORD-20251120-0001", db_models.PaymentMethodKHQR, strPtr("abc"))
	require.NotNil(t, order.Payment)
	assert.Equal(t, "abc", *order.Payment.QRMD5Hash)
	assert.True(t, decimal.NewFromInt(20).Equal(order.TotalAmount))
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)

	exists, err := repo.OrderNumberExists(ctx, "ORD-20251120-0001")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.InvoiceNumberExists(ctx, "INV-20251120-0002")
	require.NoError(t, err)
	assert.False(t, exists)

	missing, err := repo.GetOrderByID(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
	missing, err = repo.GetOrderByID(ctx, "not-a-uuid")
	require.NoError(t, err)
	assert.Nil(t, missing)

	byNumber, err := repo.GetOrderByNumber(ctx, "ORD-20251120-0001")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byNumber.ID)
}

func TestOrderRepository_TransactionRollsBack(t *testing.T) {
	repo := NewOrderRepository(testdb.Open(t))
	ctx := context.Background()
	boom := errors.New("qr failed")

	err := repo.Transaction(ctx, func(tx OrderRepositoryInterface) error {
		order := &db_models.Order{
			OrderNumber: "ORD-20251120-0009", InvoiceNumber: "INV-20251120-0009",
			CustomerName: "A", CustomerPhone: "1", Currency: "USD",
			OrderStatus: db_models.OrderStatusPending,
			Items:       datatypes.JSONSlice[db_models.OrderItem]{},
		}
		require.NoError(t, tx.CreateOrder(ctx, order))
		require.NoError(t, tx.CreatePayment(ctx, &db_models.Payment{
			OrderID: order.ID, PaymentMethod: "cash",
			PaymentStatus: db_models.PaymentStatusPending, Currency: "USD",
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.GetOrderByNumber(ctx, "ORD-20251120-0009")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, total, err := repo.ListOrders(ctx, OrderFilter{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestOrderRepository_CompletePaymentIsCompareAndSet(t *testing.T) {
	repo := NewOrderRepository(testdb.Open(t))
	ctx := context.Background()
	order := seedOrder(t, repo, "ORD-20251120-0002", db_models.PaymentMethodKHQR, strPtr("fp"))

	completion := PaymentCompletion{
		PaymentID:   order.Payment.ID,
		OrderID:     order.ID,
		CompletedAt: 1732096800,
		Source:      db_models.ConfirmedByGateway,
		Data:        datatypes.JSONMap{"hash": "tx-1"},
		GatewayRef:  strPtr("tx-1"),
	}
	require.NoError(t, repo.CompletePayment(ctx, completion))

	second := completion
	second.CompletedAt = 1732099999
	err := repo.CompletePayment(ctx, second)
	assert.ErrorIs(t, err, utils.ErrConflict)

	got, err := repo.GetOrderByID(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, db_models.PaymentStatusCompleted, got.Payment.PaymentStatus)
	assert.Equal(t, int64(1732096800), *got.Payment.PaymentCompletedAt)
	assert.Equal(t, "tx-1", *got.Payment.PaymentGatewayRef)
	assert.Equal(t, db_models.ConfirmedByGateway, *got.Payment.ConfirmationSource)
	assert.Equal(t, db_models.OrderStatusConfirmed, got.OrderStatus)
	assert.Equal(t, int64(1732096800), *got.ConfirmedAt)
}

func TestOrderRepository_CompletePaymentKeepsAdvancedOrderStatus(t *testing.T) {
	repo := NewOrderRepository(testdb.Open(t))
	ctx := context.Background()
	order := seedOrder(t, repo, "ORD-20251120-0003", "cash", nil)

	require.NoError(t, repo.UpdateOrderFields(ctx, order.ID, map[string]any{"order_status": db_models.OrderStatusCancelled}))
	require.NoError(t, repo.CompletePayment(ctx, PaymentCompletion{
		PaymentID: order.Payment.ID, OrderID: order.ID, CompletedAt: 10,
		Source: db_models.ConfirmedManually, Data: datatypes.JSONMap{"confirmation_type": "manual"},
	}))

	got, err := repo.GetOrderByID(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, db_models.OrderStatusCancelled, got.OrderStatus)
	assert.Nil(t, got.ConfirmedAt)
	assert.True(t, got.Payment.IsCompleted())
}

func TestOrderRepository_SetPaymentStatusFromPending(t *testing.T) {
	repo := NewOrderRepository(testdb.Open(t))
	ctx := context.Background()
	order := seedOrder(t, repo, "ORD-20251120-0004", "cash", nil)

	require.NoError(t, repo.SetPaymentStatusFromPending(ctx, order.Payment.ID, db_models.PaymentStatusFailed))
	err := repo.SetPaymentStatusFromPending(ctx, order.Payment.ID, db_models.PaymentStatusCancelled)
	assert.ErrorIs(t, err, utils.ErrConflict)

	err = repo.CompletePayment(ctx, PaymentCompletion{PaymentID: order.Payment.ID, OrderID: order.ID, CompletedAt: 1})
	assert.ErrorIs(t, err, utils.ErrConflict)
}

func TestOrderRepository_StampPhaseOnlyOnce(t *testing.T) {
	repo := NewOrderRepository(testdb.Open(t))
	ctx := context.Background()
	order := seedOrder(t, repo, "ORD-20251120-0005", "cash", nil)

	require.NoError(t, repo.StampPhase(ctx, order.ID, "shipped_at", 100))
	require.NoError(t, repo.StampPhase(ctx, order.ID, "shipped_at", 200))
	assert.Error(t, repo.StampPhase(ctx, order.ID, "deleted_at", 1))

	got, err := repo.GetOrderByID(ctx, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(100), *got.ShippedAt)
}

func TestOrderRepository_ListOrdersFilters(t *testing.T) {
	repo := NewOrderRepository(testdb.Open(t))
	ctx := context.Background()

	a := seedOrder(t, repo, "ORD-20251120-0011", "cash", nil)
	b := seedOrder(t, repo, "ORD-20251120-0012", db_models.PaymentMethodKHQR, strPtr("fp-b"))
	seedOrder(t, repo, "ORD-20251120-0013", "cash", nil)

	require.NoError(t, repo.UpdateOrderFields(ctx, a.ID, map[string]any{"user_id": "user-1"}))
	require.NoError(t, repo.UpdateOrderFields(ctx, b.ID, map[string]any{"user_id": "user-1", "customer_email": "dara@example.com"}))
	require.NoError(t, repo.CompletePayment(ctx, PaymentCompletion{
		PaymentID: b.Payment.ID, OrderID: b.ID, CompletedAt: 1, Source: db_models.ConfirmedByGateway,
	}))

	orders, total, err := repo.ListOrders(ctx, OrderFilter{UserID: "user-1", Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, orders, 2)

	orders, total, err = repo.ListOrders(ctx, OrderFilter{PaymentStatus: "completed", Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, b.ID, orders[0].ID)
	require.NotNil(t, orders[0].Payment)

	_, total, err = repo.ListOrders(ctx, OrderFilter{Search: "DARA@example", Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	orders, total, err = repo.ListOrders(ctx, OrderFilter{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, orders, 1)
}

func TestOrderRepository_ListPendingQRPayments(t *testing.T) {
	repo := NewOrderRepository(testdb.Open(t))
	ctx := context.Background()

	seedOrder(t, repo, "ORD-20251120-0021", "cash", nil)
	withFP := seedOrder(t, repo, "ORD-20251120-0022", db_models.PaymentMethodKHQR, strPtr("fp-1"))
	done := seedOrder(t, repo, "ORD-20251120-0023", db_models.PaymentMethodKHQR, strPtr("fp-2"))
	require.NoError(t, repo.CompletePayment(ctx, PaymentCompletion{
		PaymentID: done.Payment.ID, OrderID: done.ID, CompletedAt: 1, Source: db_models.ConfirmedByGateway,
	}))

	since := time.Now().Add(-time.Hour).Unix()
	payments, err := repo.ListPendingQRPayments(ctx, since, 50)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, withFP.Payment.ID, payments[0].ID)

	payments, err = repo.ListPendingQRPayments(ctx, time.Now().Add(time.Hour).Unix(), 50)
	require.NoError(t, err)
	assert.Empty(t, payments)
}
