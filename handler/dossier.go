package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/randolphmevaa/ecologyb-sub009/model"
	"github.com/randolphmevaa/ecologyb-sub009/pkg/logger"
	"github.com/randolphmevaa/ecologyb-sub009/service"
)

type DossierHandler struct {
	crm   *service.CRMService
	store *service.DossierStore
}

func NewDossierHandler(crm *service.CRMService) *DossierHandler {
	return &DossierHandler{
		crm:   crm,
		store: service.GetDossierStore(),
	}
}

// List returns the projected dossier list joined with contacts and regies
func (h *DossierHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.ensureLoaded(ctx, c.Query("refresh") == "true"); err != nil {
		// Serve last-known state when we have any; only fail on a cold cache
		if h.store.Count() == 0 {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load dossiers: " + err.Error(), "retry": true})
			return
		}
		logger.Warn(ctx, "serving cached dossiers after fetch failure", "error", err)
	}

	contacts, regies := h.loadJoins(ctx)

	dossiers := h.store.All()
	views := make([]service.DossierView, 0, len(dossiers))
	for _, d := range dossiers {
		views = append(views, service.Project(d, contacts[d.ContactID], regies))
	}

	c.JSON(http.StatusOK, gin.H{"dossiers": views})
}

// Stats returns the aggregate statistics for the dashboard header
func (h *DossierHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.ensureLoaded(ctx, false); err != nil && h.store.Count() == 0 {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load dossiers: " + err.Error(), "retry": true})
		return
	}

	cached := h.store.All()
	dossiers := make([]model.Dossier, 0, len(cached))
	for _, d := range cached {
		dossiers = append(dossiers, *d)
	}

	c.JSON(http.StatusOK, service.Aggregate(dossiers))
}

// Get returns a single projected dossier
func (h *DossierHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	dossier := h.store.Get(id)
	if dossier == nil {
		if err := h.ensureLoaded(ctx, true); err == nil {
			dossier = h.store.Get(id)
		}
	}
	if dossier == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dossier not found"})
		return
	}

	contacts, regies := h.loadJoins(ctx)

	c.JSON(http.StatusOK, service.Project(dossier, contacts[dossier.ContactID], regies))
}

// ListRegies returns the regie users for the assignment dropdown
func (h *DossierHandler) ListRegies(c *gin.Context) {
	regies, err := h.crm.ListRegies(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load regies: " + err.Error(), "retry": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{"regies": regies})
}

// ensureLoaded fills the store from the upstream CRM when it is empty or a
// refresh is forced. A fetch failure leaves cached state untouched.
func (h *DossierHandler) ensureLoaded(ctx context.Context, force bool) error {
	if !force && h.store.Count() > 0 {
		return nil
	}

	dossiers, err := h.crm.ListDossiers(ctx)
	if err != nil {
		return err
	}

	for i := range dossiers {
		h.store.Confirm(&dossiers[i])
	}
	return nil
}

// loadJoins fetches the contact and regie directories for display joins.
// Both are best effort: a failed join falls through to the projection's
// fallback chains instead of failing the whole page.
func (h *DossierHandler) loadJoins(ctx context.Context) (map[string]*model.Contact, []model.RegieUser) {
	contactsByID := make(map[string]*model.Contact)
	contacts, err := h.crm.ListContacts(ctx)
	if err != nil {
		logger.Warn(ctx, "failed to load contacts for display join", "error", err)
	}
	for i := range contacts {
		contactsByID[contacts[i].ID] = &contacts[i]
	}

	regies, err := h.crm.ListRegies(ctx)
	if err != nil {
		logger.Warn(ctx, "failed to load regie directory", "error", err)
	}

	return contactsByID, regies
}
