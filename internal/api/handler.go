// Package api exposes the outbound application operations over HTTP.
package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"uniapply/internal/canonical"
	"uniapply/internal/common/errors"
	"uniapply/internal/common/logger"
	"uniapply/internal/orchestrator"
)

// maxDocumentSize caps uploaded supporting documents at 10 MiB.
const maxDocumentSize = 10 << 20

type Handler struct {
	orchestrator *orchestrator.Orchestrator
	logger       logger.Logger
}

func NewHandler(orch *orchestrator.Orchestrator, log logger.Logger) *Handler {
	return &Handler{orchestrator: orch, logger: log}
}

// Register mounts the application routes.
func (h *Handler) Register(router gin.IRouter) {
	apps := router.Group("/api/applications")
	apps.POST("/submit", h.submitApplication)
	apps.GET("/:partner/:id/status", h.getStatus)
	apps.POST("/:partner/:id/documents", h.uploadDocument)
	apps.POST("/:partner/validate", h.validateApplication)

	router.GET("/api/partners", h.listPartners)
	router.GET("/api/partners/:partner/courses/:course/requirements", h.getRequirements)
}

type submitRequest struct {
	PartnerCode string                 `json:"partnerCode" binding:"required"`
	Application *canonical.Application `json:"application" binding:"required"`
}

func (h *Handler) submitApplication(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	if req.Application.ApplicationID == "" {
		req.Application.ApplicationID = fmt.Sprintf("app_%s", uuid.NewString())
	}

	result := h.orchestrator.SubmitApplication(c.Request.Context(), req.PartnerCode, req.Application)
	if !result.Success {
		status := http.StatusBadGateway
		if result.FallbackRequired {
			// Nothing handled the submission; the caller must retry later
			// or route the applicant elsewhere.
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) getStatus(c *gin.Context) {
	report, err := h.orchestrator.GetApplicationStatus(c.Request.Context(), c.Param("partner"), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) uploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}
	documentType := c.PostForm("documentType")
	if documentType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing documentType"})
		return
	}
	if fileHeader.Size > maxDocumentSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Document too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file"})
		return
	}

	documentID, err := h.orchestrator.UploadDocument(c.Request.Context(),
		c.Param("partner"), c.Param("id"), content, documentType)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "documentId": documentID})
}

func (h *Handler) validateApplication(c *gin.Context) {
	var app canonical.Application
	if err := c.ShouldBindJSON(&app); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application payload"})
		return
	}

	outcome, err := h.orchestrator.ValidateApplication(c.Request.Context(), c.Param("partner"), &app)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (h *Handler) getRequirements(c *gin.Context) {
	requirements, err := h.orchestrator.GetRequirements(c.Request.Context(),
		c.Param("partner"), c.Param("course"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requirements": requirements})
}

func (h *Handler) listPartners(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"partners": h.orchestrator.SupportedPartners()})
}

// writeError maps internal error codes to response statuses without leaking
// details. Configuration problems read as "not available" to callers.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch errors.CodeOf(err) {
	case errors.ErrCodeConfiguration, errors.ErrCodeUnsupportedPartner:
		c.JSON(http.StatusNotFound, gin.H{"error": "Not available for this partner"})
	case errors.ErrCodeValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).Error("partner operation failed", map[string]interface{}{
			"partner": c.Param("partner"),
		})
		c.JSON(http.StatusBadGateway, gin.H{"error": "Partner operation failed"})
	}
}
