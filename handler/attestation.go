package handler

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/randolphmevaa/ecologyb-sub009/service"
)

type AttestationHandler struct {
	attestations *service.AttestationService
}

func NewAttestationHandler(svc *service.AttestationService) *AttestationHandler {
	return &AttestationHandler{attestations: svc}
}

type saveAttestationRequest struct {
	AttestationData any    `json:"attestationData"`
	PDF             string `json:"pdf"` // base64-encoded document
}

// Get returns the persisted attestation metadata for a calendar event
func (h *AttestationHandler) Get(c *gin.Context) {
	attestation := h.attestations.Get(c.Param("eventId"))
	if attestation == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Attestation not found"})
		return
	}

	c.JSON(http.StatusOK, attestation)
}

// Delete removes the stored attestation for an event
func (h *AttestationHandler) Delete(c *gin.Context) {
	eventID := c.Param("eventId")
	if h.attestations.Get(eventID) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Attestation not found"})
		return
	}

	if err := h.attestations.Delete(c.Request.Context(), eventID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete attestation: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Attestation deleted"})
}

// Save stores a generated attestation PDF and its metadata for an event
func (h *AttestationHandler) Save(c *gin.Context) {
	var req saveAttestationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if req.PDF == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No PDF provided"})
		return
	}

	pdfBytes, err := base64.StdEncoding.DecodeString(req.PDF)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid PDF encoding"})
		return
	}

	attestation, err := h.attestations.Save(c.Request.Context(), c.Param("eventId"), req.AttestationData, pdfBytes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save attestation: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, attestation)
}
