package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/jinzhu/copier"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"storefront/internal/config"
	"storefront/internal/khqr"
	"storefront/internal/models/db_models"
	"storefront/internal/models/request_models"
	"storefront/internal/models/response_models"
	"storefront/internal/repositories"
	"storefront/pkg/utils"
	"strings"
	"time"
)

const (
	DefaultOrdersPerPage = 15
	MaxOrdersPerPage     = 100
)

// Viewer is the authenticated caller, nil for guests.
type Viewer struct {
	UserID string
	Role   string
}

func (v *Viewer) IsAdmin() bool { return v != nil && v.Role == utils.RoleAdmin }

type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, userID *string, req request_models.CreateOrderRequest) (*response_models.CreateOrderResponse, error)
	GetOrder(ctx context.Context, orderID string, viewer *Viewer) (*response_models.OrderResponse, error)
	CheckPaymentStatus(ctx context.Context, orderID string) (*response_models.CheckPaymentResponse, error)
	ConfirmPaymentManually(ctx context.Context, orderID, operatorID, notes string) (*response_models.OrderResponse, error)
	UpdateOrderStatus(ctx context.Context, orderID string, req request_models.UpdateOrderStatusRequest) (*response_models.OrderResponse, error)
	ListOrders(ctx context.Context, query request_models.ListOrdersQuery, viewer *Viewer) (*response_models.OrderListResponse, error)
	// StoredQR returns the QR payload issued for an order, "" if none.
	StoredQR(ctx context.Context, orderID string) (string, error)
}

type OrderService struct {
	repo      repositories.OrderRepositoryInterface
	discounts repositories.DiscountRepositoryInterface
	qr        QRServiceInterface
	checker   PaymentStatusServiceInterface
	events    PaymentEventPublisher
	merchant  config.BakongConfig
	log       *zap.Logger
	now       func() time.Time
	numbers   utils.NumberSource
}

func NewOrderService(
	repo repositories.OrderRepositoryInterface,
	discounts repositories.DiscountRepositoryInterface,
	qr QRServiceInterface,
	checker PaymentStatusServiceInterface,
	events PaymentEventPublisher,
	cfg config.Config,
	log *zap.Logger,
) OrderServiceInterface {
	if events == nil {
		events = NewNoopPaymentPublisher()
	}
	return &OrderService{
		repo:      repo,
		discounts: discounts,
		qr:        qr,
		checker:   checker,
		events:    events,
		merchant:  cfg.Bakong,
		log:       log.Named("orders"),
		now:       time.Now,
		numbers:   utils.RandomSuffix,
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, userID *string, req request_models.CreateOrderRequest) (*response_models.CreateOrderResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	verr := checkAmounts(req)

	isQR := db_models.IsQRMethod(req.PaymentMethod)
	account := firstNonEmpty(req.BakongAccount, s.merchant.AccountID)
	accountName := firstNonEmpty(req.AccountName, s.merchant.AccountName)
	if isQR {
		if account == "" {
			verr.Add("bakong_account", "is required for Bakong KHQR payments")
		}
		if accountName == "" {
			verr.Add("account_name", "is required for Bakong KHQR payments")
		}
	}
	if !verr.Empty() {
		return nil, verr
	}

	order, err := s.buildOrder(userID, req)
	if err != nil {
		return nil, err
	}

	var generated *GeneratedQR
	createdAt := s.now()
	err = s.repo.Transaction(ctx, func(tx repositories.OrderRepositoryInterface) error {
		number, err := utils.UniqueNumber(ctx, utils.OrderNumberPrefix, createdAt, s.numbers, tx.OrderNumberExists)
		if err != nil {
			return dbError("generate order number", err)
		}
		invoice, err := utils.UniqueNumber(ctx, utils.InvoiceNumberPrefix, createdAt, s.numbers, tx.InvoiceNumberExists)
		if err != nil {
			return dbError("generate invoice number", err)
		}
		order.OrderNumber, order.InvoiceNumber = number, invoice

		if err := tx.CreateOrder(ctx, order); err != nil {
			return dbError("create order", err)
		}

		payment := &db_models.Payment{
			OrderID:       order.ID,
			PaymentMethod: strings.TrimSpace(req.PaymentMethod),
			PaymentStatus: db_models.PaymentStatusPending,
			Amount:        order.TotalAmount,
			Currency:      order.Currency,
		}
		if isQR {
			payment.PaymentMethod = db_models.PaymentMethodKHQR
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return dbError("create payment", err)
		}
		order.Payment = payment

		if !isQR {
			return nil
		}

		// orders always track, otherwise nothing could reconcile them
		generated, err = s.qr.Generate(ctx, GenerateQRInput{
			AccountID:    account,
			DisplayName:  accountName,
			Amount:       order.TotalAmount,
			Currency:     order.Currency,
			TrackPayment: true,
		})
		if err != nil {
			return err
		}
		if err := tx.AttachQR(ctx, payment.ID, generated.Payload, generated.Fingerprint); err != nil {
			return dbError("store qr", err)
		}
		payment.QRCodeString = &generated.Payload
		payment.QRMD5Hash = generated.Fingerprint
		return nil
	})
	if err != nil {
		s.log.Error("order creation rolled back",
			zap.String("customer_phone", req.CustomerPhone),
			zap.String("payment_method", req.PaymentMethod),
			zap.Error(err))
		return nil, err
	}

	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.String("currency", order.Currency))

	s.incrementDiscountUsage(ctx, order)

	resp := &response_models.CreateOrderResponse{
		OrderID:       order.ID.String(),
		OrderNumber:   order.OrderNumber,
		InvoiceNumber: order.InvoiceNumber,
		TotalAmount:   order.TotalAmount,
		Currency:      order.Currency,
	}
	if generated != nil {
		resp.QRData = &response_models.QRData{
			QRString:        generated.Payload,
			MD5:             generated.Fingerprint,
			TrackingEnabled: generated.TrackingEnabled,
			BakongAccount:   generated.AccountID,
			AccountName:     generated.DisplayName,
		}
	}
	return resp, nil
}

func (s *OrderService) buildOrder(userID *string, req request_models.CreateOrderRequest) (*db_models.Order, error) {
	items := make(datatypes.JSONSlice[db_models.OrderItem], 0, len(req.Items))
	for _, in := range req.Items {
		var item db_models.OrderItem
		if err := copier.Copy(&item, &in); err != nil {
			return nil, fmt.Errorf("copy order item: %w", err)
		}
		items = append(items, item)
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = khqr.CurrencyUSD
	}

	order := &db_models.Order{
		UserID:         userID,
		CustomerName:   strings.TrimSpace(req.CustomerName),
		CustomerPhone:  strings.TrimSpace(req.CustomerPhone),
		CustomerEmail:  optional(req.CustomerEmail),
		Items:          items,
		Subtotal:       req.Subtotal,
		DiscountAmount: req.DiscountAmount,
		ShippingAmount: req.ShippingAmount,
		TotalAmount:    req.TotalAmount,
		Currency:       currency,
		PromoCode:      optional(req.PromoCode),
		Notes:          optional(req.Notes),
		OrderStatus:    db_models.OrderStatusPending,
	}

	if req.ShippingAddress != nil {
		var addr db_models.ShippingAddress
		if err := copier.Copy(&addr, req.ShippingAddress); err != nil {
			return nil, fmt.Errorf("copy shipping address: %w", err)
		}
		raw, err := json.Marshal(addr)
		if err != nil {
			return nil, fmt.Errorf("encode shipping address: %w", err)
		}
		order.ShippingAddress = datatypes.JSON(raw)
	}
	return order, nil
}

// checkAmounts covers what struct tags cannot express on decimals.
func checkAmounts(req request_models.CreateOrderRequest) *utils.ValidationError {
	verr := &utils.ValidationError{}
	for i, item := range req.Items {
		if item.Price.IsNegative() {
			verr.Add(fmt.Sprintf("items[%d].price", i), "must not be negative")
		}
	}
	amounts := []struct {
		field string
		value decimal.Decimal
	}{
		{"subtotal", req.Subtotal},
		{"discount_amount", req.DiscountAmount},
		{"shipping_amount", req.ShippingAmount},
		{"total_amount", req.TotalAmount},
	}
	for _, a := range amounts {
		if a.value.IsNegative() {
			verr.Add(a.field, "must not be negative")
		}
	}
	return verr
}

// incrementDiscountUsage runs after commit; failures never reach the customer.
func (s *OrderService) incrementDiscountUsage(ctx context.Context, order *db_models.Order) {
	if order.PromoCode == nil || !order.DiscountAmount.IsPositive() {
		return
	}
	log := s.log.With(zap.String("order_number", order.OrderNumber), zap.String("promo_code", *order.PromoCode))
	found, err := s.discounts.IncrementUsage(ctx, *order.PromoCode)
	if err != nil {
		log.Error("failed to increment discount usage", zap.Error(err))
		return
	}
	if !found {
		log.Warn("promo code not found, usage not incremented")
	}
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string, viewer *Viewer) (*response_models.OrderResponse, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if viewer != nil && !viewer.IsAdmin() && (order.UserID == nil || *order.UserID != viewer.UserID) {
		return nil, utils.ErrForbidden
	}
	return toOrderResponse(order), nil
}

func (s *OrderService) StoredQR(ctx context.Context, orderID string) (string, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order.Payment == nil || order.Payment.QRCodeString == nil {
		return "", nil
	}
	return *order.Payment.QRCodeString, nil
}

func (s *OrderService) CheckPaymentStatus(ctx context.Context, orderID string) (*response_models.CheckPaymentResponse, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	payment := order.Payment
	if payment == nil {
		return nil, fmt.Errorf("%w: order %s has no payment", utils.ErrOrderNotFound, orderID)
	}

	if payment.IsCompleted() {
		return checkResponse(order, "", "Payment already completed"), nil
	}
	if payment.PaymentStatus != db_models.PaymentStatusPending ||
		!db_models.IsQRMethod(payment.PaymentMethod) ||
		payment.QRMD5Hash == nil || *payment.QRMD5Hash == "" {
		return checkResponse(order, "", "Payment is not tracked automatically"), nil
	}

	result := s.checker.Check(ctx, *payment.QRMD5Hash)
	log := s.log.With(zap.String("order_number", order.OrderNumber), zap.String("md5", *payment.QRMD5Hash))

	switch result.Status {
	case GatewayCompleted:
		source := db_models.ConfirmedByGateway
		if result.Source == StatusSourceSimulation {
			source = db_models.ConfirmedBySimulation
		}
		data := toJSONMap(result.TransactionData)
		data["confirmation_type"] = string(source)

		var ref *string
		if source == db_models.ConfirmedByGateway {
			if hash, ok := data["hash"].(string); ok && hash != "" {
				ref = &hash
			}
		}
		completeErr := s.complete(ctx, order, source, data, nil, ref)
		if completeErr != nil && !errors.Is(completeErr, utils.ErrConflict) {
			return nil, completeErr
		}
		order, err = s.load(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if completeErr != nil {
			// an operator failed or cancelled the payment meanwhile
			return checkResponse(order, GatewayCompleted, "Payment is no longer pending"), nil
		}
		return checkResponse(order, GatewayCompleted, "Payment completed"), nil

	case GatewayError:
		// a gateway failure is not evidence either way; the poller sees pending
		log.Warn("payment status check failed",
			zap.String("reason", result.Reason),
			zap.Strings("suggestions", result.Suggestions),
			zap.Error(result.Err))
		return checkResponse(order, GatewayError, "Payment pending"), nil
	}

	return checkResponse(order, GatewayPending, "Payment pending"), nil
}

func (s *OrderService) ConfirmPaymentManually(ctx context.Context, orderID, operatorID, notes string) (*response_models.OrderResponse, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Payment == nil {
		return nil, fmt.Errorf("%w: order %s has no payment", utils.ErrOrderNotFound, orderID)
	}
	if order.Payment.IsCompleted() {
		return toOrderResponse(order), nil
	}

	now := s.now()
	data := datatypes.JSONMap{
		"confirmation_type": string(db_models.ConfirmedManually),
		"confirmed_by":      operatorID,
		"notes":             strings.TrimSpace(notes),
		"confirmed_at":      utils.FormatRFC3339(now),
	}
	var confirmedBy *string
	if operatorID != "" {
		confirmedBy = &operatorID
	}
	if err := s.complete(ctx, order, db_models.ConfirmedManually, data, confirmedBy, nil); err != nil {
		return nil, err
	}

	order, err = s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toOrderResponse(order), nil
}

// complete performs the guarded pending -> completed update. Losing the
// race to another confirmer is success; only the winner publishes.
func (s *OrderService) complete(ctx context.Context, order *db_models.Order, source db_models.ConfirmationSource, data datatypes.JSONMap, confirmedBy, gatewayRef *string) error {
	completedAt := s.now().Unix()
	err := s.repo.CompletePayment(ctx, repositories.PaymentCompletion{
		PaymentID:   order.Payment.ID,
		OrderID:     order.ID,
		CompletedAt: completedAt,
		Source:      source,
		Data:        data,
		ConfirmedBy: confirmedBy,
		GatewayRef:  gatewayRef,
	})
	log := s.log.With(zap.String("order_number", order.OrderNumber), zap.String("source", string(source)))
	if errors.Is(err, utils.ErrConflict) {
		current, loadErr := s.load(ctx, order.ID.String())
		if loadErr != nil {
			return loadErr
		}
		if current.Payment != nil && current.Payment.IsCompleted() {
			log.Info("payment already completed by another caller")
			return nil
		}
		status := ""
		if current.Payment != nil {
			status = string(current.Payment.PaymentStatus)
		}
		log.Warn("payment left pending before it could complete", zap.String("payment_status", status))
		return fmt.Errorf("%w: payment is %s", utils.ErrConflict, status)
	}
	if err != nil {
		return dbError("complete payment", err)
	}

	log.Info("payment completed")
	evt := PaymentCompletedEvent{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		PaymentID:   order.Payment.ID.String(),
		Source:      string(source),
		Amount:      order.Payment.Amount,
		Currency:    order.Payment.Currency,
		CompletedAt: completedAt,
	}
	if err := s.events.PublishPaymentCompleted(ctx, evt); err != nil {
		log.Warn("failed to publish payment event", zap.Error(err))
	}
	return nil
}

func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID string, req request_models.UpdateOrderStatusRequest) (*response_models.OrderResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	status := db_models.OrderStatus(req.OrderStatus)
	updates := map[string]any{"order_status": status}
	if req.TrackingNumber != nil {
		updates["tracking_number"] = strings.TrimSpace(*req.TrackingNumber)
	}
	if req.Notes != nil {
		updates["notes"] = strings.TrimSpace(*req.Notes)
	}

	err = s.repo.Transaction(ctx, func(tx repositories.OrderRepositoryInterface) error {
		if err := tx.UpdateOrderFields(ctx, order.ID, updates); err != nil {
			return dbError("update order", err)
		}
		if col := status.PhaseColumn(); col != "" {
			if err := tx.StampPhase(ctx, order.ID, col, s.now().Unix()); err != nil {
				return dbError("stamp "+col, err)
			}
		}
		if req.PaymentStatus != nil && order.Payment != nil {
			err := tx.SetPaymentStatusFromPending(ctx, order.Payment.ID, db_models.PaymentStatus(*req.PaymentStatus))
			if errors.Is(err, utils.ErrConflict) {
				return err
			}
			if err != nil {
				return dbError("update payment status", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order status updated",
		zap.String("order_number", order.OrderNumber),
		zap.String("from", string(order.OrderStatus)),
		zap.String("to", string(status)))

	order, err = s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toOrderResponse(order), nil
}

func (s *OrderService) ListOrders(ctx context.Context, query request_models.ListOrdersQuery, viewer *Viewer) (*response_models.OrderListResponse, error) {
	if viewer == nil {
		return nil, utils.ErrForbidden
	}
	if err := validateStruct(query); err != nil {
		return nil, err
	}
	if query.Page < 0 {
		return nil, utils.ErrInvalidPage
	}
	if query.PerPage < 0 {
		return nil, utils.ErrInvalidPageSize
	}

	filter := repositories.OrderFilter{
		UserID:        query.UserID,
		OrderStatus:   query.OrderStatus,
		PaymentStatus: query.PaymentStatus,
		Search:        query.Search,
		Page:          query.Page,
		PerPage:       query.PerPage,
	}
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.PerPage == 0 {
		filter.PerPage = DefaultOrdersPerPage
	}
	if filter.PerPage > MaxOrdersPerPage {
		filter.PerPage = MaxOrdersPerPage
	}
	if !viewer.IsAdmin() {
		filter.UserID = viewer.UserID
	}

	orders, total, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return nil, dbError("list orders", err)
	}

	items := make([]response_models.OrderSummary, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderSummary(&orders[i]))
	}
	return &response_models.OrderListResponse{
		Items:   items,
		Page:    filter.Page,
		PerPage: filter.PerPage,
		Total:   total,
	}, nil
}

func (s *OrderService) load(ctx context.Context, orderID string) (*db_models.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, dbError("load order", err)
	}
	if order == nil {
		return nil, utils.ErrOrderNotFound
	}
	return order, nil
}

func dbError(op string, err error) error {
	if errors.Is(err, utils.ErrDatabaseError) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", utils.ErrDatabaseError, op, err)
}

// toJSONMap stores arbitrary gateway data as a JSON object column. Non-object
// payloads are kept under "transaction".
func toJSONMap(v any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	if v == nil {
		return out
	}
	raw, err := json.Marshal(v)
	if err != nil {
		out["transaction"] = fmt.Sprint(v)
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		var value any
		_ = json.Unmarshal(raw, &value)
		return datatypes.JSONMap{"transaction": value}
	}
	return out
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
