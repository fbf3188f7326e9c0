package services

import (
	"context"
	"encoding/base64"
	"go.uber.org/zap"
	"storefront/internal/khqr"
	"storefront/internal/models/request_models"
	"storefront/internal/models/response_models"
	"storefront/pkg/utils"
	"strings"
)

// KHQRServiceInterface is the standalone QR surface: issuance, decoding and
// status checks by fingerprint, independent of any order.
type KHQRServiceInterface interface {
	GenerateIndividual(ctx context.Context, req request_models.GenerateKHQRRequest) (*response_models.KHQRResponse, error)
	Decode(req request_models.DecodeKHQRRequest) (*khqr.Fields, error)
	CheckStatus(ctx context.Context, req request_models.FingerprintRequest) (*response_models.PaymentStatusResponse, error)
	SimulatePayment(ctx context.Context, req request_models.FingerprintRequest) (*response_models.PaymentStatusResponse, error)
	RenderPNG(payload string, size int) ([]byte, error)
}

type KHQRService struct {
	qr      QRServiceInterface
	checker PaymentStatusServiceInterface
	log     *zap.Logger
}

func NewKHQRService(qr QRServiceInterface, checker PaymentStatusServiceInterface, log *zap.Logger) KHQRServiceInterface {
	return &KHQRService{qr: qr, checker: checker, log: log.Named("khqr")}
}

func (k *KHQRService) GenerateIndividual(ctx context.Context, req request_models.GenerateKHQRRequest) (*response_models.KHQRResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	out, err := k.qr.Generate(ctx, GenerateQRInput{
		AccountID:    req.BakongAccount,
		DisplayName:  req.AccountName,
		Amount:       req.Amount,
		Currency:     req.Currency,
		TrackPayment: req.TrackPayment,
	})
	if err != nil {
		return nil, err
	}

	resp := &response_models.KHQRResponse{
		QRString:        out.Payload,
		MD5:             out.Fingerprint,
		TrackingEnabled: out.TrackingEnabled,
		BakongAccount:   out.AccountID,
		AccountName:     out.DisplayName,
		Amount:          out.Amount,
		Currency:        out.Currency,
		CurrencySymbol:  out.CurrencySymbol,
		Source:          out.Source,
	}
	if req.IncludeImage {
		png, err := k.qr.RenderPNG(out.Payload, req.ImageSize)
		if err != nil {
			// the payload is still usable without an image
			k.log.Warn("QR image rendering failed", zap.Error(err))
		} else {
			resp.QRImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
		}
	}
	return resp, nil
}

func (k *KHQRService) Decode(req request_models.DecodeKHQRRequest) (*khqr.Fields, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	return k.qr.Decode(strings.TrimSpace(req.QRString))
}

func (k *KHQRService) CheckStatus(ctx context.Context, req request_models.FingerprintRequest) (*response_models.PaymentStatusResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	res := k.checker.Check(ctx, strings.ToLower(req.MD5))

	resp := &response_models.PaymentStatusResponse{
		PaymentStatus:   res.Status,
		TransactionData: res.TransactionData,
		Source:          res.Source,
		Message:         res.Reason,
		Suggestions:     res.Suggestions,
		CheckedAt:       utils.FormatRFC3339(res.CheckedAt),
	}
	if res.Status == GatewayCompleted {
		resp.Message = "Payment completed"
	}
	return resp, nil
}

func (k *KHQRService) SimulatePayment(ctx context.Context, req request_models.FingerprintRequest) (*response_models.PaymentStatusResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	sim, err := k.checker.Simulate(ctx, strings.ToLower(req.MD5))
	if err != nil {
		return nil, err
	}
	return &response_models.PaymentStatusResponse{
		PaymentStatus:   sim.Status,
		TransactionData: sim,
		Source:          StatusSourceSimulation,
		Message:         "Payment simulated",
		CheckedAt:       utils.FormatRFC3339(sim.CompletedAt),
	}, nil
}

func (k *KHQRService) RenderPNG(payload string, size int) ([]byte, error) {
	return k.qr.RenderPNG(payload, size)
}
