package controllers

import (
	"github.com/gin-gonic/gin"
	"storefront/pkg/middleware"
	"storefront/pkg/utils"
)

func RegisterRoutes(r *gin.Engine,
	orderController *OrderController,
	khqrController *KHQRController,
	jwtSecret []byte) {

	auth := middleware.JWTAuthMiddleware(jwtSecret)
	optionalAuth := middleware.OptionalJWTMiddleware(jwtSecret)
	adminOnly := middleware.RoleMiddleware(utils.RoleAdmin)

	ordersGroup := r.Group("/orders")
	ordersGroup.POST("", optionalAuth, orderController.CreateOrder)
	ordersGroup.GET("", auth, orderController.ListOrders)
	ordersGroup.GET("/:id", optionalAuth, orderController.GetOrder)
	ordersGroup.GET("/:id/qr-image", orderController.QRImage)
	ordersGroup.POST("/:id/check-payment", orderController.CheckPaymentStatus)
	ordersGroup.POST("/:id/confirm-payment", auth, adminOnly, orderController.ConfirmPayment)
	ordersGroup.PATCH("/:id/status", auth, adminOnly, orderController.UpdateOrderStatus)

	khqrGroup := r.Group("/khqr")
	khqrGroup.POST("/individual", khqrController.GenerateIndividual)
	khqrGroup.POST("/decode", khqrController.Decode)
	khqrGroup.POST("/check-payment-status", khqrController.CheckPaymentStatus)
	khqrGroup.POST("/simulate-payment", khqrController.SimulatePayment)
	khqrGroup.GET("/configuration", auth, adminOnly, khqrController.Configuration)
}
