package services

import (
	"context"
	"fmt"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	"storefront/internal/config"
	"storefront/internal/khqr"
	"storefront/pkg/bakong"
	mem "storefront/pkg/memcache"
	"storefront/pkg/utils"
	"strings"
	"time"
)

const (
	QRSourceGateway = "bakong_api"
	QRSourceLocal   = "local"

	DefaultQRImageSize = 300
)

var (
	qrPayloadAliases     = []string{"qr", "qrCode", "qr_string", "qrString"}
	qrFingerprintAliases = []string{"md5", "hash"}
)

type GenerateQRInput struct {
	AccountID    string
	DisplayName  string
	Amount       decimal.Decimal
	Currency     string
	TrackPayment bool
}

type GeneratedQR struct {
	Payload         string
	Fingerprint     *string // set only when tracking was requested
	AccountID       string
	DisplayName     string
	Amount          decimal.Decimal
	Currency        string
	CurrencySymbol  string
	TrackingEnabled bool
	Source          string
}

// QREncoder produces a KHQR payload locally.
type QREncoder interface {
	Encode(info khqr.IndividualInfo) (string, error)
}

type QRServiceInterface interface {
	Generate(ctx context.Context, in GenerateQRInput) (*GeneratedQR, error)
	RenderPNG(payload string, size int) ([]byte, error)
	Decode(payload string) (*khqr.Fields, error)
}

type QRService struct {
	cfg     config.BakongConfig
	gateway GatewayClient
	encoder QREncoder
	cache   *mem.FingerprintCache
	log     *zap.Logger
	now     func() time.Time
}

// NewQRService wires the generator. gateway may be nil; upstream issuance
// is attempted only when cfg carries a credential and a gateway exists.
func NewQRService(cfg config.BakongConfig, gateway GatewayClient, encoder QREncoder, cache *mem.FingerprintCache, log *zap.Logger) QRServiceInterface {
	return &QRService{
		cfg:     cfg,
		gateway: gateway,
		encoder: encoder,
		cache:   cache,
		log:     log.Named("qr"),
		now:     time.Now,
	}
}

func (s *QRService) Generate(ctx context.Context, in GenerateQRInput) (*GeneratedQR, error) {
	in.AccountID = strings.TrimSpace(in.AccountID)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = khqr.CurrencyUSD
	}

	verr := &utils.ValidationError{}
	if in.AccountID == "" {
		verr.Add("bakong_account", "is required")
	}
	if in.DisplayName == "" {
		verr.Add("account_name", "is required")
	}
	if !in.Amount.IsPositive() {
		verr.Add("amount", "must be greater than 0")
	}
	if in.Currency != khqr.CurrencyUSD && in.Currency != khqr.CurrencyKHR {
		verr.Add("currency", "must be USD or KHR")
	}
	if !verr.Empty() {
		return nil, verr
	}

	log := s.log.With(
		zap.String("bakong_account", in.AccountID),
		zap.String("amount", in.Amount.String()),
		zap.String("currency", in.Currency),
		zap.Bool("tracking", in.TrackPayment),
	)

	var payload, fingerprint, source string
	if in.TrackPayment && s.cfg.HasCredential() && s.gateway != nil {
		payload, fingerprint = s.generateUpstream(ctx, in, log)
		source = QRSourceGateway
	}

	if payload == "" {
		local, err := s.encoder.Encode(khqr.IndividualInfo{
			AccountID:    in.AccountID,
			MerchantName: in.DisplayName,
			MerchantCity: s.cfg.MerchantCity,
			Currency:     in.Currency,
			Amount:       in.Amount,
		})
		if err != nil {
			log.Error("local KHQR generation failed", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", utils.ErrGeneration, err)
		}
		if strings.TrimSpace(local) == "" {
			return nil, fmt.Errorf("%w: codec returned an empty payload", utils.ErrGeneration)
		}
		payload, fingerprint, source = local, "", QRSourceLocal
		s.verifyLocal(payload, in, log)
	}

	out := &GeneratedQR{
		Payload:        payload,
		AccountID:      in.AccountID,
		DisplayName:    in.DisplayName,
		Amount:         in.Amount,
		Currency:       in.Currency,
		CurrencySymbol: currencySymbol(in.Currency),
		Source:         source,
	}
	if !in.TrackPayment {
		return out, nil
	}

	// fingerprints are lowercase hex everywhere: stored, cached and checked
	fingerprint = strings.ToLower(strings.TrimSpace(fingerprint))
	if fingerprint == "" {
		fingerprint = khqr.MD5(payload)
	}
	out.Fingerprint = &fingerprint
	out.TrackingEnabled = true

	if s.cache != nil {
		err := s.cache.PutQRDetails(ctx, fingerprint, mem.QRDetails{
			QRString:    payload,
			Amount:      in.Amount,
			Currency:    in.Currency,
			AccountID:   in.AccountID,
			DisplayName: in.DisplayName,
			CreatedAt:   s.now(),
		}, s.cfg.QRTTL)
		if err != nil {
			log.Warn("could not cache QR details", zap.String("md5", fingerprint), zap.Error(err))
		}
	}

	log.Info("KHQR generated", zap.String("source", source), zap.String("md5", fingerprint))
	return out, nil
}

// generateUpstream never fails the caller: any problem is logged and an
// empty payload sends Generate to the local codec.
func (s *QRService) generateUpstream(ctx context.Context, in GenerateQRInput, log *zap.Logger) (string, string) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	resp, err := s.gateway.GenerateIndividual(callCtx, bakong.IndividualRequest{
		AccountID:    in.AccountID,
		MerchantName: in.DisplayName,
		MerchantCity: s.cfg.MerchantCity,
		Currency:     in.Currency,
		Amount:       in.Amount,
	})
	if err != nil {
		log.Warn("Bakong API generation failed, falling back to local generation", zap.Error(err))
		return "", ""
	}

	ext, ok := extractQR(resp)
	if !ok {
		log.Warn("Bakong API returned no QR payload, falling back to local generation")
		return "", ""
	}
	return ext.payload, ext.fingerprint
}

// verifyLocal decodes what the codec produced and logs any drift between
// the requested and encoded amount.
func (s *QRService) verifyLocal(payload string, in GenerateQRInput, log *zap.Logger) {
	fields, err := khqr.Decode(payload)
	if err != nil {
		log.Warn("could not decode generated QR for validation", zap.Error(err))
		return
	}
	want := khqr.FormatAmount(in.Amount, in.Currency)
	if fields.Amount != want || fields.Currency != in.Currency {
		log.Warn("generated QR does not match request",
			zap.String("encoded_amount", fields.Amount),
			zap.String("encoded_currency", fields.Currency))
	}
}

func (s *QRService) timeout() time.Duration {
	if s.cfg.Timeout > 0 {
		return s.cfg.Timeout
	}
	return 8 * time.Second
}

func (s *QRService) RenderPNG(payload string, size int) ([]byte, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, utils.NewValidationError("qr_string", "is required")
	}
	if size <= 0 {
		size = DefaultQRImageSize
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}

func (s *QRService) Decode(payload string) (*khqr.Fields, error) {
	fields, err := khqr.Decode(payload)
	if err != nil {
		return nil, &utils.ValidationError{Fields: map[string]string{"qr_string": err.Error()}}
	}
	return fields, nil
}

func currencySymbol(currency string) string {
	if currency == khqr.CurrencyKHR {
		return "៛"
	}
	return "$"
}

type qrExtraction struct {
	payload     string
	fingerprint string
}

type qrExtractor func(resp any) (qrExtraction, bool)

// tried in order, first match wins
var qrExtractors = []qrExtractor{
	extractNestedDataObject,
	extractDataArray,
	extractFlatObject,
	extractTopLevelArray,
}

func extractQR(resp any) (qrExtraction, bool) {
	if s, ok := resp.(string); ok {
		decoded, ok := decodeJSONString(s)
		if !ok {
			// a bare KHQR payload
			if s = strings.TrimSpace(s); strings.HasPrefix(s, "000201") {
				return qrExtraction{payload: s}, true
			}
			return qrExtraction{}, false
		}
		resp = decoded
	}
	for _, extract := range qrExtractors {
		if ext, ok := extract(resp); ok {
			return ext, true
		}
	}
	return qrExtraction{}, false
}

func fromObject(m map[string]any) (qrExtraction, bool) {
	payload := firstString(m, qrPayloadAliases...)
	if payload == "" {
		return qrExtraction{}, false
	}
	return qrExtraction{payload: payload, fingerprint: firstString(m, qrFingerprintAliases...)}, true
}

func extractNestedDataObject(resp any) (qrExtraction, bool) {
	m, ok := resp.(map[string]any)
	if !ok {
		return qrExtraction{}, false
	}
	data, ok := m["data"].(map[string]any)
	if !ok {
		return qrExtraction{}, false
	}
	return fromObject(data)
}

func extractDataArray(resp any) (qrExtraction, bool) {
	m, ok := resp.(map[string]any)
	if !ok {
		return qrExtraction{}, false
	}
	list, ok := m["data"].([]any)
	if !ok || len(list) == 0 {
		return qrExtraction{}, false
	}
	first, ok := list[0].(map[string]any)
	if !ok {
		return qrExtraction{}, false
	}
	return fromObject(first)
}

func extractFlatObject(resp any) (qrExtraction, bool) {
	m, ok := resp.(map[string]any)
	if !ok {
		return qrExtraction{}, false
	}
	return fromObject(m)
}

func extractTopLevelArray(resp any) (qrExtraction, bool) {
	list, ok := resp.([]any)
	if !ok || len(list) == 0 {
		return qrExtraction{}, false
	}
	first, ok := list[0].(map[string]any)
	if !ok {
		return qrExtraction{}, false
	}
	if ext, ok := extractNestedDataObject(first); ok {
		return ext, true
	}
	return fromObject(first)
}
