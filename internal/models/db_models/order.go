package db_models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
	OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range orderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// PhaseColumn is the timestamp column stamped the first time the order
// enters s, or "" for states without one.
func (s OrderStatus) PhaseColumn() string {
	switch s {
	case OrderStatusConfirmed:
		return "confirmed_at"
	case OrderStatusProcessing:
		return "processing_at"
	case OrderStatusShipped:
		return "shipped_at"
	case OrderStatusDelivered:
		return "delivered_at"
	}
	return ""
}

// OrderItem is a snapshot of a catalog product at checkout time.
type OrderItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Image       string          `json:"image,omitempty"`
	Description string          `json:"description,omitempty"`
}

type ShippingAddress struct {
	FullName      string `json:"full_name,omitempty"`
	StreetAddress string `json:"street_address,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
	Country       string `json:"country,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

type Order struct {
	BaseModel
	OrderNumber   string  `gorm:"size:32;uniqueIndex;not null"`
	InvoiceNumber string  `gorm:"size:32;uniqueIndex;not null"`
	UserID        *string `gorm:"size:64;index"` // nil for guest checkout

	CustomerName    string  `gorm:"size:255;not null"`
	CustomerPhone   string  `gorm:"size:32;not null"`
	CustomerEmail   *string `gorm:"size:255"`
	ShippingAddress datatypes.JSON
	Items           datatypes.JSONSlice[OrderItem] `gorm:"not null"`

	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	ShippingAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Currency       string          `gorm:"size:3;not null"`

	PromoCode      *string `gorm:"size:50"`
	Notes          *string `gorm:"type:text"`
	TrackingNumber *string `gorm:"size:100"`

	OrderStatus  OrderStatus `gorm:"size:20;index;not null"`
	ConfirmedAt  *int64
	ProcessingAt *int64
	ShippedAt    *int64
	DeliveredAt  *int64

	Payment *Payment `gorm:"foreignKey:OrderID"`
}
