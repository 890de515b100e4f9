package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/meditrack/internal/domain/models"
	"github.com/mamadbah2/meditrack/internal/service/animals"
)

// AnimalHandler serves the farmer, registrar and manager animal routes.
type AnimalHandler struct {
	svc    *animals.Service
	logger *zap.Logger
}

// NewAnimalHandler constructs the HTTP handler adapter.
func NewAnimalHandler(svc *animals.Service, logger *zap.Logger) *AnimalHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnimalHandler{svc: svc, logger: logger}
}

// Add registers an animal for the calling farmer.
func (h *AnimalHandler) Add(c *gin.Context) {
	var in animals.AddInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	animal, err := h.svc.Add(c.Request.Context(), identity(c).UserID, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Animal added successfully!", "animal": animal})
}

// ListForOwner answers 200 with an empty list when the caller may not see
// the herd or the lookup fails.
func (h *AnimalHandler) ListForOwner(c *gin.Context) {
	empty := []models.Animal{}

	ownerID, err := parseHex(c.Param("farmerId"))
	if err != nil {
		h.logger.Warn("animal list with malformed owner id", zap.String("farmer_id", c.Param("farmerId")))
		c.JSON(http.StatusOK, empty)
		return
	}

	list, err := h.svc.ListForOwner(c.Request.Context(), identity(c), ownerID)
	if err != nil {
		h.logger.Warn("animal list denied or failed", zap.String("farmer_id", ownerID.Hex()), zap.Error(err))
		c.JSON(http.StatusOK, empty)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CheckByTag runs the MRL safety check for a market manager.
func (h *AnimalHandler) CheckByTag(c *gin.Context) {
	res, err := h.svc.CheckByTag(c.Request.Context(), c.Param("tagId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListFarmers returns every farmer for the registrar dashboard.
func (h *AnimalHandler) ListFarmers(c *gin.Context) {
	farmers, err := h.svc.ListFarmers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, farmers)
}

// FarmerAnimals lists one farmer's herd for the registrar.
func (h *AnimalHandler) FarmerAnimals(c *gin.Context) {
	ownerID, ok := objectIDParam(c, "farmerId")
	if !ok {
		return
	}
	list, err := h.svc.ListForOwner(c.Request.Context(), identity(c), ownerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Provision registers an animal on behalf of a farmer.
func (h *AnimalHandler) Provision(c *gin.Context) {
	var in animals.AddInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	animal, err := h.svc.Provision(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Animal added successfully!", "animal": animal})
}

// Remove deletes an animal from the registry.
func (h *AnimalHandler) Remove(c *gin.Context) {
	animalID, ok := objectIDParam(c, "animalId")
	if !ok {
		return
	}
	if err := h.svc.Remove(c.Request.Context(), animalID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Animal removed successfully!"})
}
