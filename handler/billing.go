package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/randolphmevaa/ecologyb-sub009/config"
	"github.com/randolphmevaa/ecologyb-sub009/model"
	"github.com/randolphmevaa/ecologyb-sub009/pkg/logger"
	"github.com/randolphmevaa/ecologyb-sub009/service"
)

// BillingHandler owns the billing tab operations: reading the expanded
// line-item view and submitting mutations through the dual-write reconciler.
type BillingHandler struct {
	store         *service.DossierStore
	reconciler    *service.Reconciler
	fallbackTypes []string
}

func NewBillingHandler(reconciler *service.Reconciler, cfg *config.CRMConfig) *BillingHandler {
	return &BillingHandler{
		store:         service.GetDossierStore(),
		reconciler:    reconciler,
		fallbackTypes: cfg.ProjectTypes,
	}
}

type billingUpdateRequest struct {
	Items         []model.ProjectLineItem `json:"items"`
	AssignedRegie string                  `json:"assignedRegie"`
}

type regieAssignRequest struct {
	AssignedRegie string `json:"assignedRegie"`
}

// GetBilling returns the line-item view for a dossier plus the known
// project-type labels for the form dropdown
func (h *BillingHandler) GetBilling(c *gin.Context) {
	dossier := h.store.Get(c.Param("id"))
	if dossier == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dossier not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":         service.ExpandLineItems(dossier),
		"assignedRegie": dossier.AssignedRegie,
		"projectTypes":  h.projectTypes(),
	})
}

// UpdateBilling handles the full-replace submission of a dossier's line-item
// list. Validation failures never reach the network; the optimistic local
// copy rolls back when the reconcile fails.
func (h *BillingHandler) UpdateBilling(c *gin.Context) {
	var req billingUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	dossier := h.store.Get(c.Param("id"))
	if dossier == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dossier not found"})
		return
	}

	allowed := make(map[string]struct{})
	for _, t := range h.projectTypes() {
		allowed[t] = struct{}{}
	}
	if fieldErrs := service.ValidateLineItems(req.Items, allowed); len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fieldErrs})
		return
	}

	h.submit(c, dossier, req.Items, req.AssignedRegie)
}

// AssignRegie reassigns the regie for a dossier, re-submitting the current
// line-item list unchanged
func (h *BillingHandler) AssignRegie(c *gin.Context) {
	var req regieAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	dossier := h.store.Get(c.Param("id"))
	if dossier == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dossier not found"})
		return
	}

	h.submit(c, dossier, service.ExpandLineItems(dossier), req.AssignedRegie)
}

// submit runs the optimistic-update / reconcile / confirm-or-rollback cycle
// shared by every billing mutation
func (h *BillingHandler) submit(c *gin.Context, dossier *model.Dossier, items []model.ProjectLineItem, regieID string) {
	if dossier.ContactID == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Dossier has no linked contact"})
		return
	}

	ctx := context.WithValue(c.Request.Context(), logger.DossierIDKey, dossier.ID)

	// Optimistic copy so the UI reflects the edit before the round trip
	payload := service.BuildBillingPayload(items, regieID)
	optimistic := *dossier
	optimistic.Projet = payload.Projet
	optimistic.Prix = payload.Prix
	optimistic.Statut = payload.Statut
	optimistic.Description = payload.Description
	optimistic.AssignedRegie = payload.AssignedRegie
	h.store.SetPending(&optimistic)

	updated, err := h.reconciler.Reconcile(ctx, dossier.ContactID, items, regieID)
	if err != nil {
		var partial *service.PartialWriteError
		if errors.As(err, &partial) {
			// The dossiers resource already committed: adopt its record as
			// confirmed and tell the caller the stores are divergent.
			merged := dossier
			if partial.Committed != nil {
				merged = mergeServerRecord(dossier, partial.Committed)
			}
			h.store.Confirm(merged)

			c.JSON(http.StatusBadGateway, gin.H{
				"error":         "Dossier saved but contact record may be out of date",
				"partial_write": true,
				"dossier":       merged,
			})
			return
		}

		h.store.Rollback(dossier.ID)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to update dossier: " + err.Error(), "retry": true})
		return
	}

	merged := mergeServerRecord(dossier, updated)
	h.store.Confirm(merged)

	c.JSON(http.StatusOK, gin.H{
		"dossier": merged,
		"items":   service.ExpandLineItems(merged),
	})
}

func (h *BillingHandler) projectTypes() []string {
	if types := h.store.KnownProjectTypes(); len(types) > 0 {
		return types
	}
	return h.fallbackTypes
}

// mergeServerRecord overlays the record returned by the upstream onto the
// local one, keeping identity fields the PATCH response may omit
func mergeServerRecord(base, server *model.Dossier) *model.Dossier {
	merged := *server
	if merged.ID == "" {
		merged.ID = base.ID
	}
	if merged.Numero == "" {
		merged.Numero = base.Numero
	}
	if merged.ContactID == "" {
		merged.ContactID = base.ContactID
	}
	if merged.Client == "" {
		merged.Client = base.Client
	}
	if merged.Etape == "" {
		merged.Etape = base.Etape
	}
	return &merged
}
