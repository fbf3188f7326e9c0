package response_models

import "github.com/shopspring/decimal"

type KHQRResponse struct {
	QRString        string          `json:"qr_string"`
	MD5             *string         `json:"md5,omitempty"`
	TrackingEnabled bool            `json:"tracking_enabled"`
	BakongAccount   string          `json:"bakong_account"`
	AccountName     string          `json:"account_name"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	CurrencySymbol  string          `json:"currency_symbol"`
	Source          string          `json:"source"`
	QRImage         string          `json:"qr_image,omitempty"` // data URI
}

type PaymentStatusResponse struct {
	PaymentStatus   string   `json:"payment_status"`
	TransactionData any      `json:"transaction_data,omitempty"`
	Source          string   `json:"source,omitempty"`
	Message         string   `json:"message,omitempty"`
	Suggestions     []string `json:"suggestions,omitempty"`
	CheckedAt       string   `json:"checked_at"`
}
