package response_models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	dbm "storefront/internal/models/db_models"
)

type QRData struct {
	QRString        string  `json:"qr_string"`
	MD5             *string `json:"md5"`
	TrackingEnabled bool    `json:"tracking_enabled"`
	BakongAccount   string  `json:"bakong_account"`
	AccountName     string  `json:"account_name"`
}

type CreateOrderResponse struct {
	OrderID       string          `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	QRData        *QRData         `json:"qr_data,omitempty"`
}

type PaymentResponse struct {
	PaymentMethod      string                  `json:"payment_method"`
	PaymentStatus      dbm.PaymentStatus       `json:"payment_status"`
	QRCodeString       *string                 `json:"qr_code_string,omitempty"`
	QRMD5Hash          *string                 `json:"qr_md5_hash,omitempty"`
	PaymentGatewayRef  *string                 `json:"payment_gateway_ref,omitempty"`
	ConfirmationSource *dbm.ConfirmationSource `json:"confirmation_source,omitempty"`
	ConfirmedBy        *string                 `json:"confirmed_by,omitempty"`
	PaymentData        datatypes.JSONMap       `json:"payment_data,omitempty"`
	PaymentCompletedAt string                  `json:"payment_completed_at,omitempty"`
	Amount             decimal.Decimal         `json:"amount"`
	Currency           string                  `json:"currency"`
}

type OrderResponse struct {
	ID              string           `json:"id"`
	OrderNumber     string           `json:"order_number"`
	InvoiceNumber   string           `json:"invoice_number"`
	UserID          *string          `json:"user_id,omitempty"`
	CustomerName    string           `json:"customer_name"`
	CustomerPhone   string           `json:"customer_phone"`
	CustomerEmail   *string          `json:"customer_email,omitempty"`
	ShippingAddress datatypes.JSON   `json:"shipping_address,omitempty"`
	Items           []dbm.OrderItem  `json:"items"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	DiscountAmount  decimal.Decimal  `json:"discount_amount"`
	ShippingAmount  decimal.Decimal  `json:"shipping_amount"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	Currency        string           `json:"currency"`
	FormattedTotal  string           `json:"formatted_total"`
	PromoCode       *string          `json:"promo_code,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	TrackingNumber  *string          `json:"tracking_number,omitempty"`
	OrderStatus     dbm.OrderStatus  `json:"order_status"`
	PaymentMethod   string           `json:"payment_method,omitempty"`
	PaymentStatus   string           `json:"payment_status,omitempty"`
	Payment         *PaymentResponse `json:"payment,omitempty"`
	ConfirmedAt     string           `json:"confirmed_at,omitempty"`
	ProcessingAt    string           `json:"processing_at,omitempty"`
	ShippedAt       string           `json:"shipped_at,omitempty"`
	DeliveredAt     string           `json:"delivered_at,omitempty"`
	CreatedAt       string           `json:"created_at"`
	UpdatedAt       string           `json:"updated_at"`
}

type OrderSummary struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"order_number"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerName  string          `json:"customer_name"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	ItemCount     int             `json:"item_count"`
	OrderStatus   dbm.OrderStatus `json:"order_status"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	PaymentStatus string          `json:"payment_status,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

type OrderListResponse struct {
	Items   []OrderSummary `json:"items"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	Total   int64          `json:"total"`
}

// CheckPaymentResponse is what a poller sees. GatewayStatus is "error" when
// the gateway could not answer; PaymentStatus is then still the stored one.
type CheckPaymentResponse struct {
	PaymentStatus string         `json:"payment_status"`
	GatewayStatus string         `json:"gateway_status,omitempty"`
	Message       string         `json:"message,omitempty"`
	Order         *OrderResponse `json:"order"`
}
