package request_models

import "github.com/shopspring/decimal"

type GenerateKHQRRequest struct {
	BakongAccount string          `json:"bakong_account" validate:"required,max=32"`
	AccountName   string          `json:"account_name" validate:"required,max=25"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency" validate:"omitempty,oneof=USD KHR"`
	TrackPayment  bool            `json:"track_payment"`
	IncludeImage  bool            `json:"include_image"`
	ImageSize     int             `json:"image_size" validate:"omitempty,min=128,max=1024"`
}

type DecodeKHQRRequest struct {
	QRString string `json:"qr_string" validate:"required"`
}

type FingerprintRequest struct {
	MD5 string `json:"md5" validate:"required,hexadecimal,len=32"`
}
