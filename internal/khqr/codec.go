// Package khqr encodes and decodes individual (tag 29) KHQR payloads, the
// EMVCo merchant-presented TLV format used by Bakong.
package khqr

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"github.com/shopspring/decimal"
	"strconv"
	"strings"
	"time"
)

const (
	tagPayloadFormat     = "00"
	tagPointOfInitiation = "01"
	tagIndividualAccount = "29"
	tagMerchantCategory  = "52"
	tagCurrency          = "53"
	tagAmount            = "54"
	tagCountryCode       = "58"
	tagMerchantName      = "59"
	tagMerchantCity      = "60"
	tagAdditionalData    = "99"
	tagCRC               = "63"

	subTagAccountID = "00"
	subTagTimestamp = "00"

	staticQR  = "11"
	dynamicQR = "12"

	maxAccountIDLen    = 32
	maxMerchantNameLen = 25
	maxMerchantCityLen = 15
	maxAmountLen       = 13
)

const (
	CurrencyUSD = "USD"
	CurrencyKHR = "KHR"
)

var numericCurrency = map[string]string{
	CurrencyUSD: "840",
	CurrencyKHR: "116",
}

var (
	ErrMissingAccountID    = errors.New("khqr: account id is required")
	ErrMissingMerchantName = errors.New("khqr: merchant name is required")
	ErrInvalidAmount       = errors.New("khqr: amount must not be negative")
	ErrUnsupportedCurrency = errors.New("khqr: unsupported currency")
	ErrFieldTooLong        = errors.New("khqr: field too long")
	ErrMalformed           = errors.New("khqr: malformed payload")
	ErrCRCMismatch         = errors.New("khqr: crc mismatch")
)

// IndividualInfo describes a payment to an individual Bakong account.
// A zero Amount produces a static QR the payer fills in.
type IndividualInfo struct {
	AccountID    string
	MerchantName string
	MerchantCity string
	Currency     string
	Amount       decimal.Decimal
}

// Fields is the structured view of a decoded payload.
type Fields struct {
	PayloadFormat        string            `json:"payload_format"`
	PointOfInitiation    string            `json:"point_of_initiation"`
	AccountID            string            `json:"bakong_account_id"`
	MerchantCategoryCode string            `json:"merchant_category_code"`
	Currency             string            `json:"currency"`
	Amount               string            `json:"amount,omitempty"`
	CountryCode          string            `json:"country_code"`
	MerchantName         string            `json:"merchant_name"`
	MerchantCity         string            `json:"merchant_city"`
	CreatedAt            *time.Time        `json:"created_at,omitempty"`
	CRC                  string            `json:"crc"`
	Tags                 map[string]string `json:"tags"`
}

type Encoder struct {
	Now func() time.Time
}

func NewEncoder() *Encoder {
	return &Encoder{Now: time.Now}
}

// Encode builds the payload. The tag 99 creation timestamp makes every
// issuance distinct, so two identical carts never share a fingerprint.
func (e *Encoder) Encode(info IndividualInfo) (string, error) {
	accountID := strings.TrimSpace(info.AccountID)
	name := strings.TrimSpace(info.MerchantName)
	city := strings.TrimSpace(info.MerchantCity)
	if accountID == "" {
		return "", ErrMissingAccountID
	}
	if name == "" {
		return "", ErrMissingMerchantName
	}
	if city == "" {
		city = "PHNOM PENH"
	}
	if len(accountID) > maxAccountIDLen {
		return "", fmt.Errorf("%w: account id", ErrFieldTooLong)
	}
	if len(name) > maxMerchantNameLen {
		return "", fmt.Errorf("%w: merchant name", ErrFieldTooLong)
	}
	if len(city) > maxMerchantCityLen {
		return "", fmt.Errorf("%w: merchant city", ErrFieldTooLong)
	}

	currency := strings.ToUpper(strings.TrimSpace(info.Currency))
	if currency == "" {
		currency = CurrencyUSD
	}
	code, ok := numericCurrency[currency]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, info.Currency)
	}
	if info.Amount.IsNegative() {
		return "", ErrInvalidAmount
	}

	initiation := staticQR
	amount := ""
	if info.Amount.IsPositive() {
		initiation = dynamicQR
		amount = FormatAmount(info.Amount, currency)
		if len(amount) > maxAmountLen {
			return "", fmt.Errorf("%w: amount", ErrFieldTooLong)
		}
	}

	now := time.Now
	if e != nil && e.Now != nil {
		now = e.Now
	}

	var b strings.Builder
	b.WriteString(tlv(tagPayloadFormat, "01"))
	b.WriteString(tlv(tagPointOfInitiation, initiation))
	b.WriteString(tlv(tagIndividualAccount, tlv(subTagAccountID, accountID)))
	b.WriteString(tlv(tagMerchantCategory, "5999"))
	b.WriteString(tlv(tagCurrency, code))
	if amount != "" {
		b.WriteString(tlv(tagAmount, amount))
	}
	b.WriteString(tlv(tagCountryCode, "KH"))
	b.WriteString(tlv(tagMerchantName, name))
	b.WriteString(tlv(tagMerchantCity, city))
	b.WriteString(tlv(tagAdditionalData, tlv(subTagTimestamp, strconv.FormatInt(now().UnixMilli(), 10))))
	b.WriteString(tagCRC + "04")

	payload := b.String()
	return payload + CRC16(payload), nil
}

// FormatAmount renders USD with two decimals and KHR as whole riel.
func FormatAmount(amount decimal.Decimal, currency string) string {
	if strings.EqualFold(currency, CurrencyKHR) {
		return amount.Round(0).StringFixed(0)
	}
	return amount.StringFixed(2)
}

// Decode parses a payload and verifies its trailing CRC.
func Decode(payload string) (*Fields, error) {
	payload = strings.TrimSpace(payload)
	if len(payload) < 8 {
		return nil, ErrMalformed
	}

	tags, err := parseTLV(payload)
	if err != nil {
		return nil, err
	}
	crc, ok := tags[tagCRC]
	if !ok || len(crc) != 4 || !strings.HasSuffix(payload, tagCRC+"04"+crc) {
		return nil, fmt.Errorf("%w: missing crc", ErrMalformed)
	}
	if want := CRC16(payload[:len(payload)-4]); !strings.EqualFold(want, crc) {
		return nil, fmt.Errorf("%w: got %s want %s", ErrCRCMismatch, crc, want)
	}

	f := &Fields{
		PayloadFormat:        tags[tagPayloadFormat],
		PointOfInitiation:    tags[tagPointOfInitiation],
		MerchantCategoryCode: tags[tagMerchantCategory],
		Amount:               tags[tagAmount],
		CountryCode:          tags[tagCountryCode],
		MerchantName:         tags[tagMerchantName],
		MerchantCity:         tags[tagMerchantCity],
		CRC:                  strings.ToUpper(crc),
		Tags:                 tags,
	}
	for name, num := range numericCurrency {
		if num == tags[tagCurrency] {
			f.Currency = name
		}
	}
	if f.Currency == "" {
		f.Currency = tags[tagCurrency]
	}

	if raw, ok := tags[tagIndividualAccount]; ok {
		sub, err := parseTLV(raw)
		if err != nil {
			return nil, fmt.Errorf("tag 29: %w", err)
		}
		f.AccountID = sub[subTagAccountID]
	}
	if raw, ok := tags[tagAdditionalData]; ok {
		sub, err := parseTLV(raw)
		if err != nil {
			return nil, fmt.Errorf("tag 99: %w", err)
		}
		if ms, err := strconv.ParseInt(sub[subTagTimestamp], 10, 64); err == nil {
			t := time.UnixMilli(ms)
			f.CreatedAt = &t
		}
	}
	return f, nil
}

// MD5 is the payment fingerprint of a payload: lowercase hex MD5.
func MD5(payload string) string {
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// CRC16 is CRC-16/CCITT-FALSE as four uppercase hex digits.
func CRC16(data string) string {
	crc := uint16(0xFFFF)
	for i := 0; i < len(data); i++ {
		crc ^= uint16(data[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return fmt.Sprintf("%04X", crc)
}

func tlv(tag, value string) string {
	return fmt.Sprintf("%s%02d%s", tag, len(value), value)
}

func parseTLV(s string) (map[string]string, error) {
	out := make(map[string]string)
	for i := 0; i < len(s); {
		if i+4 > len(s) {
			return nil, fmt.Errorf("%w: truncated header at %d", ErrMalformed, i)
		}
		tag := s[i : i+2]
		n, err := strconv.Atoi(s[i+2 : i+4])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: bad length for tag %s", ErrMalformed, tag)
		}
		i += 4
		if i+n > len(s) {
			return nil, fmt.Errorf("%w: tag %s overruns payload", ErrMalformed, tag)
		}
		out[tag] = s[i : i+n]
		i += n
	}
	return out, nil
}
