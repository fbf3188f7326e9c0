package controllers

import (
	"github.com/gin-gonic/gin"
	"storefront/internal/config"
	"storefront/internal/models/request_models"
	"storefront/internal/services"
	"storefront/pkg/utils"
)

type KHQRController struct {
	khqrService services.KHQRServiceInterface
	cfg         config.Config
}

func NewKHQRController(khqrService services.KHQRServiceInterface, cfg config.Config) *KHQRController {
	return &KHQRController{
		khqrService: khqrService,
		cfg:         cfg,
	}
}

// GenerateIndividual godoc
// @Summary Generate an individual KHQR
// @Description Issues a KHQR for a Bakong account. With track_payment the response carries the md5 used for status checks.
// @Tags KHQR
// @Accept json
// @Produce json
// @Param request body request_models.GenerateKHQRRequest true "Generate KHQR Request"
// @Success 200 {object} utils.APIResponse
// @Failure 422 {object} utils.APIResponse
// @Router /khqr/individual [post]
func (k *KHQRController) GenerateIndividual(c *gin.Context) {
	var request request_models.GenerateKHQRRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}

	qr, err := k.khqrService.GenerateIndividual(c.Request.Context(), request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, qr, "KHQR generated successfully")
}

// Decode godoc
// @Summary Decode a KHQR payload and verify its CRC
// @Tags KHQR
// @Accept json
// @Produce json
// @Param request body request_models.DecodeKHQRRequest true "Decode KHQR Request"
// @Success 200 {object} utils.APIResponse
// @Router /khqr/decode [post]
func (k *KHQRController) Decode(c *gin.Context) {
	var request request_models.DecodeKHQRRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}

	fields, err := k.khqrService.Decode(request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, fields, "KHQR decoded successfully")
}

// CheckPaymentStatus godoc
// @Summary Check a payment by QR md5
// @Tags KHQR
// @Accept json
// @Produce json
// @Param request body request_models.FingerprintRequest true "Fingerprint Request"
// @Success 200 {object} utils.APIResponse
// @Router /khqr/check-payment-status [post]
func (k *KHQRController) CheckPaymentStatus(c *gin.Context) {
	var request request_models.FingerprintRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}

	status, err := k.khqrService.CheckStatus(c.Request.Context(), request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, status, "Payment status checked")
}

// SimulatePayment godoc
// @Summary Mark a QR md5 as paid (non-production only)
// @Tags KHQR
// @Accept json
// @Produce json
// @Param request body request_models.FingerprintRequest true "Fingerprint Request"
// @Success 200 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Router /khqr/simulate-payment [post]
func (k *KHQRController) SimulatePayment(c *gin.Context) {
	var request request_models.FingerprintRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondBadRequest(c, err)
		return
	}

	status, err := k.khqrService.SimulatePayment(c.Request.Context(), request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, status, "Payment simulated successfully")
}

// Configuration godoc
// @Summary Bakong configuration report
// @Tags KHQR
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /khqr/configuration [get]
func (k *KHQRController) Configuration(c *gin.Context) {
	utils.RespondSuccess(c, k.cfg.BakongReport(), "Configuration checked")
}
