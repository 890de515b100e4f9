package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/meditrack/internal/service/requests"
	"github.com/mamadbah2/meditrack/internal/storage/uploads"
)

// RequestHandler serves the treatment-request routes.
type RequestHandler struct {
	svc    *requests.Service
	logger *zap.Logger
}

// NewRequestHandler constructs the HTTP handler adapter.
func NewRequestHandler(svc *requests.Service, logger *zap.Logger) *RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestHandler{svc: svc, logger: logger}
}

type createRequestBody struct {
	AnimalID           string `json:"animalId" form:"animalId"`
	ProblemDescription string `json:"problemDescription" form:"problemDescription"`
}

// Create opens a request from JSON or a multipart form with a photo field.
func (h *RequestHandler) Create(c *gin.Context) {
	var body createRequestBody
	if err := c.ShouldBind(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	in := requests.CreateInput{AnimalID: body.AnimalID, ProblemDescription: body.ProblemDescription}
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		fh, err := c.FormFile("photo")
		switch {
		case err == nil:
			in.Photo = &uploads.File{
				Filename: fh.Filename,
				Size:     fh.Size,
				Open:     func() (io.ReadCloser, error) { return fh.Open() },
			}
		case errors.Is(err, http.ErrMissingFile):
		default:
			badRequest(c, "invalid photo upload")
			return
		}
	}

	req, err := h.svc.Create(c.Request.Context(), identity(c).UserID, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// Pending lists open requests for vets, oldest first.
func (h *RequestHandler) Pending(c *gin.Context) {
	list, err := h.svc.Pending(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// AcceptedByVet lists a vet's accepted cases.
func (h *RequestHandler) AcceptedByVet(c *gin.Context) {
	vetID, ok := objectIDParam(c, "vetId")
	if !ok {
		return
	}
	list, err := h.svc.AcceptedByVet(c.Request.Context(), identity(c), vetID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ForFarmer lists a farmer's requests, newest first.
func (h *RequestHandler) ForFarmer(c *gin.Context) {
	farmerID, ok := objectIDParam(c, "farmerId")
	if !ok {
		return
	}
	list, err := h.svc.ForFarmer(c.Request.Context(), identity(c), farmerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type transitionBody struct {
	RequestID string `json:"requestId"`
	Reason    string `json:"reason"`
}

// Accept assigns a pending request to the calling vet.
func (h *RequestHandler) Accept(c *gin.Context) {
	var body transitionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	requestID, err := parseHex(body.RequestID)
	if err != nil {
		badRequest(c, "requestId is required")
		return
	}

	req, err := h.svc.Accept(c.Request.Context(), identity(c).UserID, requestID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Request accepted.", "request": req})
}

// Decline closes a request with a reason.
func (h *RequestHandler) Decline(c *gin.Context) {
	var body transitionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	requestID, err := parseHex(body.RequestID)
	if err != nil {
		badRequest(c, "requestId is required")
		return
	}

	req, err := h.svc.Decline(c.Request.Context(), identity(c).UserID, requestID, body.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Request declined.", "request": req})
}

// Delete withdraws a farmer's pending request.
func (h *RequestHandler) Delete(c *gin.Context) {
	requestID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), identity(c).UserID, requestID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed"})
}
