package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/meditrack/internal/service/prescriptions"
)

// PrescriptionHandler serves vet prescriptions and the pharmacy queue.
type PrescriptionHandler struct {
	svc    *prescriptions.Service
	logger *zap.Logger
}

// NewPrescriptionHandler constructs the HTTP handler adapter.
func NewPrescriptionHandler(svc *prescriptions.Service, logger *zap.Logger) *PrescriptionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrescriptionHandler{svc: svc, logger: logger}
}

// Create writes a prescription for the calling vet.
func (h *PrescriptionHandler) Create(c *gin.Context) {
	var in prescriptions.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	res, err := h.svc.Create(c.Request.Context(), identity(c).UserID, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":         true,
		"message":         "Prescription created successfully!",
		"prescription":    res.Prescription,
		"withdrawalUntil": res.WithdrawalUntil,
		"txHash":          res.TxHash,
		"ledgerStatus":    res.LedgerStatus,
	})
}

// RecentForVet lists the calling vet's latest prescriptions.
func (h *PrescriptionHandler) RecentForVet(c *gin.Context) {
	list, err := h.svc.RecentForVet(c.Request.Context(), identity(c).UserID, limitQuery(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "prescriptions": list})
}

// NewForPharmacy lists prescriptions that still need a bill.
func (h *PrescriptionHandler) NewForPharmacy(c *gin.Context) {
	list, err := h.svc.NewForPharmacy(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
