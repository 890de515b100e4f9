package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/meditrack/internal/domain/models"
	"github.com/mamadbah2/meditrack/internal/server/middleware"
)

const serverErrorMessage = "Server error."

type errorMapping struct {
	sentinel error
	status   int
}

var errorMappings = []errorMapping{
	{models.ErrValidation, http.StatusBadRequest},
	{models.ErrDuplicate, http.StatusBadRequest},
	{models.ErrAreaNotFound, http.StatusNotFound},
	{models.ErrNotFound, http.StatusNotFound},
	{models.ErrConflict, http.StatusConflict},
	{models.ErrUnauthorized, http.StatusUnauthorized},
	{models.ErrForbidden, http.StatusForbidden},
}

// respondError maps a service error to its status and writes the standard
// failure body. Unknown errors are logged and hidden behind a 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, message := classify(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

func classify(err error) (int, string) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Message
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			return m.status, strings.TrimSuffix(err.Error(), ": "+m.sentinel.Error())
		}
	}
	return http.StatusInternalServerError, serverErrorMessage
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": message})
}

// identity returns the authenticated caller. Routes using it are always
// mounted behind middleware.Authenticate.
func identity(c *gin.Context) models.Identity {
	id, _ := middleware.GetIdentity(c)
	return id
}

func parseHex(raw string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(strings.TrimSpace(raw))
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := parseHex(c.Param(name))
	if err != nil {
		badRequest(c, name+" is invalid")
		return primitive.NilObjectID, false
	}
	return id, true
}

func limitQuery(c *gin.Context) int64 {
	raw := c.Query("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
