package db_models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"strings"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	}
	return false
}

// ConfirmationSource records which path completed a payment.
type ConfirmationSource string

const (
	ConfirmedByGateway    ConfirmationSource = "gateway"
	ConfirmedBySimulation ConfirmationSource = "simulation"
	ConfirmedManually     ConfirmationSource = "manual"
)

const PaymentMethodKHQR = "Bakong KHQR"

// IsQRMethod reports whether a payment method needs a KHQR artifact.
func IsQRMethod(method string) bool {
	return strings.EqualFold(strings.TrimSpace(method), PaymentMethodKHQR)
}

// Payment is owned by exactly one Order. It moves from pending to completed
// at most once; completed rows always carry PaymentCompletedAt and a
// PaymentData marker describing who or what confirmed them.
type Payment struct {
	BaseModel
	OrderID       uuid.UUID     `gorm:"type:uuid;uniqueIndex;not null"`
	PaymentMethod string        `gorm:"size:50;not null"`
	PaymentStatus PaymentStatus `gorm:"size:20;index;not null"`

	QRCodeString      *string `gorm:"column:qr_code_string;type:text"`
	QRMD5Hash         *string `gorm:"column:qr_md5_hash;size:64;index"`
	PaymentGatewayRef *string `gorm:"column:payment_gateway_ref;size:128;uniqueIndex"`

	PaymentData        datatypes.JSONMap
	ConfirmationSource *ConfirmationSource `gorm:"size:20"`
	ConfirmedBy        *string             `gorm:"size:64"`
	PaymentCompletedAt *int64

	Amount   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Currency string          `gorm:"size:3;not null"`
}

func (p *Payment) IsCompleted() bool {
	return p != nil && p.PaymentStatus == PaymentStatusCompleted
}
