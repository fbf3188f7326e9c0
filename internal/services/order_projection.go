package services

import (
	"storefront/internal/khqr"
	"storefront/internal/models/db_models"
	"storefront/internal/models/response_models"
	"storefront/pkg/utils"
)

func toOrderResponse(o *db_models.Order) *response_models.OrderResponse {
	resp := &response_models.OrderResponse{
		ID:              o.ID.String(),
		OrderNumber:     o.OrderNumber,
		InvoiceNumber:   o.InvoiceNumber,
		UserID:          o.UserID,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		CustomerEmail:   o.CustomerEmail,
		ShippingAddress: o.ShippingAddress,
		Items:           o.Items,
		Subtotal:        o.Subtotal,
		DiscountAmount:  o.DiscountAmount,
		ShippingAmount:  o.ShippingAmount,
		TotalAmount:     o.TotalAmount,
		Currency:        o.Currency,
		FormattedTotal:  currencySymbol(o.Currency) + khqr.FormatAmount(o.TotalAmount, o.Currency),
		PromoCode:       o.PromoCode,
		Notes:           o.Notes,
		TrackingNumber:  o.TrackingNumber,
		OrderStatus:     o.OrderStatus,
		ConfirmedAt:     utils.FormatUnixPtr(o.ConfirmedAt),
		ProcessingAt:    utils.FormatUnixPtr(o.ProcessingAt),
		ShippedAt:       utils.FormatUnixPtr(o.ShippedAt),
		DeliveredAt:     utils.FormatUnixPtr(o.DeliveredAt),
		CreatedAt:       utils.FormatRFC3339(utils.FromUnixSeconds(o.CreatedAt)),
		UpdatedAt:       utils.FormatRFC3339(utils.FromUnixSeconds(o.UpdatedAt)),
	}
	if resp.Items == nil {
		resp.Items = []db_models.OrderItem{}
	}

	if p := o.Payment; p != nil {
		resp.PaymentMethod = p.PaymentMethod
		resp.PaymentStatus = string(p.PaymentStatus)
		resp.Payment = &response_models.PaymentResponse{
			PaymentMethod:      p.PaymentMethod,
			PaymentStatus:      p.PaymentStatus,
			QRCodeString:       p.QRCodeString,
			QRMD5Hash:          p.QRMD5Hash,
			PaymentGatewayRef:  p.PaymentGatewayRef,
			ConfirmationSource: p.ConfirmationSource,
			ConfirmedBy:        p.ConfirmedBy,
			PaymentData:        p.PaymentData,
			PaymentCompletedAt: utils.FormatUnixPtr(p.PaymentCompletedAt),
			Amount:             p.Amount,
			Currency:           p.Currency,
		}
	}
	return resp
}

func toOrderSummary(o *db_models.Order) response_models.OrderSummary {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	s := response_models.OrderSummary{
		ID:            o.ID.String(),
		OrderNumber:   o.OrderNumber,
		InvoiceNumber: o.InvoiceNumber,
		CustomerName:  o.CustomerName,
		TotalAmount:   o.TotalAmount,
		Currency:      o.Currency,
		ItemCount:     count,
		OrderStatus:   o.OrderStatus,
		CreatedAt:     utils.FormatRFC3339(utils.FromUnixSeconds(o.CreatedAt)),
	}
	if o.Payment != nil {
		s.PaymentMethod = o.Payment.PaymentMethod
		s.PaymentStatus = string(o.Payment.PaymentStatus)
	}
	return s
}

func checkResponse(o *db_models.Order, gatewayStatus, message string) *response_models.CheckPaymentResponse {
	status := string(db_models.PaymentStatusPending)
	if o.Payment != nil {
		status = string(o.Payment.PaymentStatus)
	}
	return &response_models.CheckPaymentResponse{
		PaymentStatus: status,
		GatewayStatus: gatewayStatus,
		Message:       message,
		Order:         toOrderResponse(o),
	}
}
