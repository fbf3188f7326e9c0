package request_models

import "github.com/shopspring/decimal"

type CreateOrderRequest struct {
	CustomerName    string                  `json:"customer_name" validate:"required,max=255"`
	CustomerPhone   string                  `json:"customer_phone" validate:"required,max=20"`
	CustomerEmail   string                  `json:"customer_email" validate:"omitempty,email,max=255"`
	ShippingAddress *ShippingAddressRequest `json:"shipping_address" validate:"omitempty"`
	Items           []OrderItemRequest      `json:"items" validate:"required,min=1,dive"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	ShippingAmount decimal.Decimal `json:"shipping_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Currency       string          `json:"currency" validate:"omitempty,oneof=USD KHR"`

	PromoCode     string `json:"promo_code" validate:"omitempty,max=50"`
	Notes         string `json:"notes" validate:"omitempty,max=500"`
	PaymentMethod string `json:"payment_method" validate:"required,max=50"`

	// Required for "Bakong KHQR"; the configured merchant is used when empty.
	BakongAccount string `json:"bakong_account" validate:"omitempty,max=32"`
	AccountName   string `json:"account_name" validate:"omitempty,max=25"`
}

type OrderItemRequest struct {
	ID          string          `json:"id" validate:"required"`
	Name        string          `json:"name" validate:"required,max=255"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity" validate:"min=1"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
}

type ShippingAddressRequest struct {
	FullName      string `json:"full_name" validate:"max=255"`
	StreetAddress string `json:"street_address" validate:"max=255"`
	City          string `json:"city" validate:"max=255"`
	State         string `json:"state" validate:"max=255"`
	PostalCode    string `json:"postal_code" validate:"max=20"`
	Country       string `json:"country" validate:"max=255"`
	Phone         string `json:"phone" validate:"max=20"`
}

type ConfirmPaymentRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=500"`
}

type UpdateOrderStatusRequest struct {
	OrderStatus    string  `json:"order_status" validate:"required,oneof=pending confirmed processing shipped delivered cancelled"`
	PaymentStatus  *string `json:"payment_status" validate:"omitempty,oneof=failed cancelled"`
	TrackingNumber *string `json:"tracking_number" validate:"omitempty,max=100"`
	Notes          *string `json:"notes" validate:"omitempty,max=500"`
}

type ListOrdersQuery struct {
	OrderStatus   string `form:"order_status" validate:"omitempty,oneof=pending confirmed processing shipped delivered cancelled"`
	PaymentStatus string `form:"payment_status" validate:"omitempty,oneof=pending completed failed cancelled"`
	Search        string `form:"search" validate:"omitempty,max=100"`
	UserID        string `form:"user_id" validate:"omitempty,max=64"`
	Page          int    `form:"page"`
	PerPage       int    `form:"per_page"`
}
