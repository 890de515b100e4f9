package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/meditrack/internal/service/amu"
)

// AMUHandler serves manual record notarization.
type AMUHandler struct {
	svc    *amu.Service
	logger *zap.Logger
}

// NewAMUHandler constructs the HTTP handler adapter.
func NewAMUHandler(svc *amu.Service, logger *zap.Logger) *AMUHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMUHandler{svc: svc, logger: logger}
}

// Add stores a record and appends it to the ledger.
func (h *AMUHandler) Add(c *gin.Context) {
	var in amu.RecordInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	rec, err := h.svc.Record(c.Request.Context(), identity(c).UserID, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Record stored.",
		"record":       rec,
		"txHash":       rec.Ledger.TxHash,
		"ledgerStatus": rec.Ledger.Status,
	})
}
