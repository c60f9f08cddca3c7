package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/randolphmevaa/ecologyb-sub009/model"
	"github.com/randolphmevaa/ecologyb-sub009/pkg/logger"
	"github.com/randolphmevaa/ecologyb-sub009/pkg/metrics"
)

// BillingPayload is the collapsed dossier-level projection submitted to both
// backing resources on every mutation. The upstream holds no concept of
// individual line items: the whole list is always re-submitted, collapsed to
// these fields, so replaying an unchanged submission is a no-op overwrite.
type BillingPayload struct {
	AssignedRegie string   `json:"assignedRegie"`
	Projet        []string `json:"projet"`
	Prix          string   `json:"prix"`
	Statut        string   `json:"statut"`
	Description   string   `json:"description"`
}

// PartialWriteError reports the most severe reconciliation failure: the
// dossiers resource committed the payload but the contacts resource did not,
// leaving the two stores divergent. Committed carries the record the
// upstream already accepted so callers can re-sync local state.
type PartialWriteError struct {
	ContactID string
	Committed *model.Dossier
	Err       error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("dossier updated but contact record update failed for contact %s: %v", e.ContactID, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

// FieldError reports a line-item validation failure with enough detail for
// the form to highlight the offending field.
type FieldError struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Reconciler issues every billing mutation as one normalized payload to the
// two independent backing resources. Mutations for the same contact are
// serialized so rapid edit/delete pairs cannot race.
type Reconciler struct {
	crm   *CRMService
	locks sync.Map // contactID -> *sync.Mutex
}

func NewReconciler(crm *CRMService) *Reconciler {
	return &Reconciler{crm: crm}
}

// BuildBillingPayload collapses a line-item list into the dossier-level
// payload. Projet always carries at least one element (an empty-string
// placeholder when the list is empty); prix and statut come from the first
// item, defaulting to "0" and the to-invoice status.
func BuildBillingPayload(items []model.ProjectLineItem, regieID string) BillingPayload {
	projet := make([]string, 0, len(items))
	for _, item := range items {
		if t := strings.TrimSpace(item.Type); t != "" {
			projet = append(projet, t)
		}
	}
	if len(projet) == 0 {
		projet = []string{""}
	}

	payload := BillingPayload{
		AssignedRegie: regieID,
		Projet:        projet,
		Prix:          "0",
		Statut:        model.StatutToInvoice,
	}

	if len(items) > 0 {
		if prix := sanitizePrice(items[0].Prix); prix != "" {
			payload.Prix = prix
		}
		if items[0].Statut != "" {
			payload.Statut = items[0].Statut
		}
		payload.Description = items[0].Description
	}

	return payload
}

// Reconcile submits the current line-item list and regie assignment for a
// contact's dossier. The dossiers resource is written first; if it fails the
// contacts resource is left untouched. A failure on the second leg returns a
// PartialWriteError carrying the authoritative record after a re-fetch.
func (r *Reconciler) Reconcile(ctx context.Context, contactID string, items []model.ProjectLineItem, regieID string) (*model.Dossier, error) {
	mu := r.lockFor(contactID)
	mu.Lock()
	defer mu.Unlock()

	payload := BuildBillingPayload(items, regieID)

	updated, err := r.crm.UpdateDossier(ctx, contactID, payload)
	if err != nil {
		metrics.RecordReconcile(metrics.OutcomeWriteFailed)
		return nil, fmt.Errorf("dossier update failed: %w", err)
	}

	if err := r.crm.UpdateContact(ctx, contactID, payload); err != nil {
		metrics.RecordReconcile(metrics.OutcomePartialFailure)
		logger.Error(ctx, "contact update failed after dossier commit",
			"contact_id", contactID,
			"error", err,
		)

		// Re-fetch so the caller re-syncs with whichever state the
		// upstream actually holds.
		committed := updated
		if refetched, rerr := r.crm.FetchDossier(ctx, contactID); rerr == nil {
			committed = refetched
		}

		return nil, &PartialWriteError{ContactID: contactID, Committed: committed, Err: err}
	}

	metrics.RecordReconcile(metrics.OutcomeSuccess)
	logger.Info(ctx, "dossier reconciled",
		"contact_id", contactID,
		"projet_count", len(payload.Projet),
		"statut", payload.Statut,
	)

	return updated, nil
}

func (r *Reconciler) lockFor(contactID string) *sync.Mutex {
	mu, _ := r.locks.LoadOrStore(contactID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// ValidateLineItems checks a submitted line-item list before any network
// call is made. allowedTypes is the set of known project-type labels; an
// empty set disables the membership check.
func ValidateLineItems(items []model.ProjectLineItem, allowedTypes map[string]struct{}) []FieldError {
	var errs []FieldError

	for i, item := range items {
		itemType := strings.TrimSpace(item.Type)
		if itemType == "" {
			errs = append(errs, FieldError{Index: i, Field: "type", Message: "Le type de projet est requis"})
		} else if len(allowedTypes) > 0 {
			if _, ok := allowedTypes[itemType]; !ok {
				errs = append(errs, FieldError{Index: i, Field: "type", Message: "Type de projet inconnu: " + itemType})
			}
		}

		prix := sanitizePrice(item.Prix)
		if strings.TrimSpace(item.Prix) == "" {
			errs = append(errs, FieldError{Index: i, Field: "prix", Message: "Le prix est requis"})
		} else if _, err := strconv.ParseFloat(prix, 64); err != nil {
			errs = append(errs, FieldError{Index: i, Field: "prix", Message: "Le prix doit être numérique"})
		}

		if item.Statut != "" && !model.IsValidStatut(item.Statut) {
			errs = append(errs, FieldError{Index: i, Field: "statut", Message: "Statut de facturation invalide"})
		}
	}

	return errs
}

// ExpandLineItems rebuilds the per-item billing view from a stored dossier
// record: one item per projet entry, all sharing the collapsed prix and
// statut. New item ids get a random suffix so edits stay addressable.
func ExpandLineItems(d *model.Dossier) []model.ProjectLineItem {
	statut := d.Statut
	if statut == "" {
		statut = model.StatutToInvoice
	}

	items := make([]model.ProjectLineItem, 0, len(d.Projet))
	for _, projectType := range d.Projet {
		if strings.TrimSpace(projectType) == "" {
			continue
		}
		items = append(items, model.ProjectLineItem{
			ID:          d.ID + "-" + uuid.New().String()[:8],
			Type:        projectType,
			Description: d.Description,
			Prix:        d.Prix,
			Statut:      statut,
		})
	}
	return items
}

// sanitizePrice strips currency glyphs and spacing, keeping only digits and
// the decimal separator (commas normalize to dots)
func sanitizePrice(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.':
			b.WriteRune(r)
		case r == ',':
			b.WriteRune('.')
		}
	}
	return b.String()
}
