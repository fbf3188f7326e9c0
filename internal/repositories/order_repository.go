package repositories

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"storefront/internal/models/db_models"
	"storefront/pkg/utils"
	"strings"
)

type OrderFilter struct {
	UserID        string
	OrderStatus   string
	PaymentStatus string
	Search        string
	Page          int
	PerPage       int
}

// PaymentCompletion is the single pending -> completed transition, shared
// by gateway, simulation and manual confirmation.
type PaymentCompletion struct {
	PaymentID   uuid.UUID
	OrderID     uuid.UUID
	CompletedAt int64
	Source      db_models.ConfirmationSource
	Data        datatypes.JSONMap
	ConfirmedBy *string
	GatewayRef  *string
}

type OrderRepositoryInterface interface {
	// Transaction runs fn against a repository bound to one DB transaction.
	Transaction(ctx context.Context, fn func(repo OrderRepositoryInterface) error) error

	CreateOrder(ctx context.Context, order *db_models.Order) error
	CreatePayment(ctx context.Context, payment *db_models.Payment) error
	AttachQR(ctx context.Context, paymentID uuid.UUID, qr string, fingerprint *string) error
	OrderNumberExists(ctx context.Context, number string) (bool, error)
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)

	GetOrderByID(ctx context.Context, orderID string) (*db_models.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*db_models.Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]db_models.Order, int64, error)
	ListPendingQRPayments(ctx context.Context, createdSince int64, limit int) ([]db_models.Payment, error)

	// CompletePayment returns utils.ErrConflict when the payment is no
	// longer pending. The order is confirmed only if it is still pending.
	CompletePayment(ctx context.Context, c PaymentCompletion) error
	// SetPaymentStatusFromPending moves a pending payment to a terminal
	// non-completed status; utils.ErrConflict otherwise.
	SetPaymentStatusFromPending(ctx context.Context, paymentID uuid.UUID, status db_models.PaymentStatus) error
	UpdateOrderFields(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	// StampPhase sets a phase timestamp column only if it is still NULL.
	StampPhase(ctx context.Context, orderID uuid.UUID, column string, at int64) error
}

func NewOrderRepository(db *gorm.DB) OrderRepositoryInterface {
	return &OrderRepository{db: db}
}

type OrderRepository struct {
	db *gorm.DB
}

func (r OrderRepository) Transaction(ctx context.Context, fn func(repo OrderRepositoryInterface) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&OrderRepository{db: tx})
	})
}

func (r OrderRepository) CreateOrder(ctx context.Context, order *db_models.Order) error {
	return r.db.WithContext(ctx).Omit("Payment").Create(order).Error
}

func (r OrderRepository) CreatePayment(ctx context.Context, payment *db_models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r OrderRepository) AttachQR(ctx context.Context, paymentID uuid.UUID, qr string, fingerprint *string) error {
	res := r.db.WithContext(ctx).Model(&db_models.Payment{}).
		Where("id = ?", paymentID).
		Updates(map[string]any{
			"qr_code_string": qr,
			"qr_md5_hash":    fingerprint,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("attach qr: payment %s not found", paymentID)
	}
	return nil
}

func (r OrderRepository) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	return r.exists(ctx, "order_number", number)
}

func (r OrderRepository) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	return r.exists(ctx, "invoice_number", number)
}

func (r OrderRepository) exists(ctx context.Context, column, value string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&db_models.Order{}).
		Where(column+" = ?", value).
		Count(&count).Error
	return count > 0, err
}

func (r OrderRepository) GetOrderByID(ctx context.Context, orderID string) (*db_models.Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, nil
	}
	return r.first(ctx, "id = ?", orderID)
}

func (r OrderRepository) GetOrderByNumber(ctx context.Context, number string) (*db_models.Order, error) {
	return r.first(ctx, "order_number = ?", number)
}

func (r OrderRepository) first(ctx context.Context, query string, args ...any) (*db_models.Order, error) {
	var order db_models.Order
	err := r.db.WithContext(ctx).Preload("Payment").Where(query, args...).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r OrderRepository) ListOrders(ctx context.Context, f OrderFilter) ([]db_models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&db_models.Order{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.OrderStatus != "" {
		q = q.Where("order_status = ?", f.OrderStatus)
	}
	if f.PaymentStatus != "" {
		q = q.Where("EXISTS (SELECT 1 FROM payments WHERE payments.order_id = orders.id AND payments.payment_status = ? AND payments.deleted_at IS NULL)", f.PaymentStatus)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(order_number) LIKE ? OR LOWER(customer_name) LIKE ? OR LOWER(COALESCE(customer_email, '')) LIKE ?)", like, like, like)
	}
	// shared by the count and the page query
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []db_models.Order
	err := q.Preload("Payment").
		Order("created_at DESC").Order("order_number DESC").
		Scopes(func(db *gorm.DB) *gorm.DB {
			offset := (f.Page - 1) * f.PerPage
			return db.Offset(offset).Limit(f.PerPage)
		}).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r OrderRepository) ListPendingQRPayments(ctx context.Context, createdSince int64, limit int) ([]db_models.Payment, error) {
	var payments []db_models.Payment
	err := r.db.WithContext(ctx).
		Where("payment_status = ? AND qr_md5_hash IS NOT NULL AND qr_md5_hash <> '' AND created_at >= ?",
			db_models.PaymentStatusPending, createdSince).
		Order("created_at ASC").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r OrderRepository) CompletePayment(ctx context.Context, c PaymentCompletion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"payment_status":       db_models.PaymentStatusCompleted,
			"payment_completed_at": c.CompletedAt,
			"payment_data":         c.Data,
			"confirmation_source":  string(c.Source),
		}
		if c.ConfirmedBy != nil {
			updates["confirmed_by"] = *c.ConfirmedBy
		}
		if c.GatewayRef != nil && *c.GatewayRef != "" {
			updates["payment_gateway_ref"] = *c.GatewayRef
		}

		res := tx.Model(&db_models.Payment{}).
			Where("id = ? AND payment_status = ?", c.PaymentID, db_models.PaymentStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("complete payment %s: %w", c.PaymentID, utils.ErrConflict)
		}

		return tx.Model(&db_models.Order{}).
			Where("id = ? AND order_status = ?", c.OrderID, db_models.OrderStatusPending).
			Updates(map[string]any{
				"order_status": db_models.OrderStatusConfirmed,
				"confirmed_at": gorm.Expr("COALESCE(confirmed_at, ?)", c.CompletedAt),
			}).Error
	})
}

func (r OrderRepository) SetPaymentStatusFromPending(ctx context.Context, paymentID uuid.UUID, status db_models.PaymentStatus) error {
	res := r.db.WithContext(ctx).Model(&db_models.Payment{}).
		Where("id = ? AND payment_status = ?", paymentID, db_models.PaymentStatusPending).
		Update("payment_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set payment %s to %s: %w", paymentID, status, utils.ErrConflict)
	}
	return nil
}

func (r OrderRepository) UpdateOrderFields(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&db_models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r OrderRepository) StampPhase(ctx context.Context, orderID uuid.UUID, column string, at int64) error {
	switch column {
	case "confirmed_at", "processing_at", "shipped_at", "delivered_at":
	default:
		return fmt.Errorf("stamp phase: unknown column %q", column)
	}
	return r.db.WithContext(ctx).Model(&db_models.Order{}).
		Where("id = ? AND "+column+" IS NULL", orderID).
		Update(column, at).Error
}
