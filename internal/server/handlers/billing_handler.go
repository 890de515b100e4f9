package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/meditrack/internal/service/billing"
)

// BillingHandler serves the pharmacist billing routes.
type BillingHandler struct {
	svc    *billing.Service
	logger *zap.Logger
}

// NewBillingHandler constructs the HTTP handler adapter.
func NewBillingHandler(svc *billing.Service, logger *zap.Logger) *BillingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingHandler{svc: svc, logger: logger}
}

// Create bills a prescription for the calling pharmacist.
func (h *BillingHandler) Create(c *gin.Context) {
	var in billing.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	bill, err := h.svc.Create(c.Request.Context(), identity(c).UserID, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Bill created successfully!", "bill": bill})
}

// Recent lists the calling pharmacist's latest bills.
func (h *BillingHandler) Recent(c *gin.Context) {
	bills, err := h.svc.Recent(c.Request.Context(), identity(c).UserID, limitQuery(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "bills": bills})
}
