package controllers

import (
	"errors"
	"github.com/gin-gonic/gin"
	"io"
	"net/http"
	"storefront/internal/models/request_models"
	"storefront/internal/services"
	"storefront/pkg/middleware"
	"storefront/pkg/utils"
	"strconv"
)

type OrderController struct {
	orderService services.OrderServiceInterface
	qrService    services.QRServiceInterface
}

func NewOrderController(orderService services.OrderServiceInterface, qrService services.QRServiceInterface) *OrderController {
	return &OrderController{
		orderService: orderService,
		qrService:    qrService,
	}
}

// viewerFrom returns nil for guests.
func viewerFrom(c *gin.Context) *services.Viewer {
	uid := c.GetString(middleware.CtxUserID)
	if uid == "" {
		return nil
	}
	return &services.Viewer{UserID: uid, Role: c.GetString(middleware.CtxRole)}
}

// CreateOrder godoc
// @Summary Create an order
// @Description Creates the order and its pending payment. Bakong KHQR orders also receive a trackable QR.
// @Tags Orders
// @Accept json
// @Produce json
// @Param request body request_models.CreateOrderRequest true "Create Order Request"
// @Success 201 {object} utils.APIResponse
// @Failure 422 {object} utils.APIResponse
// @Router /orders [post]
func (o *OrderController) CreateOrder(c *gin.Context) {
	var request request_models.CreateOrderRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}

	var userID *string
	if v := viewerFrom(c); v != nil {
		userID = &v.UserID
	}

	order, err := o.orderService.CreateOrder(c.Request.Context(), userID, request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondCreated(c, order, "Order created successfully")
}

// ListOrders godoc
// @Summary List orders
// @Description Admins see every order; other users only their own.
// @Tags Orders
// @Produce json
// @Param order_status query string false "Order status"
// @Param payment_status query string false "Payment status"
// @Param search query string false "Order number, customer name or email"
// @Param page query int false "Page" default(1)
// @Param per_page query int false "Page size" default(15)
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /orders [get]
func (o *OrderController) ListOrders(c *gin.Context) {
	var query request_models.ListOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}

	orders, err := o.orderService.ListOrders(c.Request.Context(), query, viewerFrom(c))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, orders, "Orders fetched successfully")
}

// GetOrder godoc
// @Summary Get an order
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Router /orders/{id} [get]
func (o *OrderController) GetOrder(c *gin.Context) {
	order, err := o.orderService.GetOrder(c.Request.Context(), c.Param("id"), viewerFrom(c))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, order, "Order fetched successfully")
}

// QRImage godoc
// @Summary PNG image of the order's payment QR
// @Tags Orders
// @Produce png
// @Param id path string true "Order ID"
// @Param size query int false "Image size in pixels" default(300)
// @Router /orders/{id}/qr-image [get]
func (o *OrderController) QRImage(c *gin.Context) {
	payload, err := o.orderService.StoredQR(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	if payload == "" {
		utils.RespondError(c, http.StatusNotFound, "Order has no payment QR code")
		return
	}

	size, err := strconv.Atoi(c.DefaultQuery("size", "0"))
	if err != nil || size < 0 || size > 1024 {
		utils.RespondError(c, http.StatusBadRequest, "Invalid image size (must be 1-1024)")
		return
	}

	png, err := o.qrService.RenderPNG(payload, size)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// CheckPaymentStatus godoc
// @Summary Poll the payment status of an order
// @Description Safe to call repeatedly; confirms the order once the gateway reports the payment.
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} utils.APIResponse
// @Router /orders/{id}/check-payment [post]
func (o *OrderController) CheckPaymentStatus(c *gin.Context) {
	status, err := o.orderService.CheckPaymentStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, status, status.Message)
}

// ConfirmPayment godoc
// @Summary Manually confirm an order's payment
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body request_models.ConfirmPaymentRequest false "Notes"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /orders/{id}/confirm-payment [post]
func (o *OrderController) ConfirmPayment(c *gin.Context) {
	var request request_models.ConfirmPaymentRequest
	// the body is optional
	if err := c.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondBadRequest(c, err)
		return
	}

	order, err := o.orderService.ConfirmPaymentManually(c.Request.Context(), c.Param("id"), c.GetString(middleware.CtxUserID), request.Notes)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, order, "Payment confirmed successfully")
}

// UpdateOrderStatus godoc
// @Summary Update an order's fulfilment status
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body request_models.UpdateOrderStatusRequest true "Update Order Status Request"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /orders/{id}/status [patch]
func (o *OrderController) UpdateOrderStatus(c *gin.Context) {
	var request request_models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}

	order, err := o.orderService.UpdateOrderStatus(c.Request.Context(), c.Param("id"), request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, order, "Order status updated successfully")
}
