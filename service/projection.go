package service

import (
	"strings"

	"github.com/randolphmevaa/ecologyb-sub009/model"
)

// StatusBadge is the display styling for a billing status
type StatusBadge struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

var statusBadges = map[string]StatusBadge{
	model.StatutToInvoice:  {Label: "À facturer", Color: "orange"},
	model.StatutInProgress: {Label: "En cours", Color: "blue"},
	model.StatutDone:       {Label: "Facturé", Color: "green"},
}

// BadgeForStatut resolves the badge for a billing status. Unknown or missing
// values fall back to the to-invoice styling so the row always renders.
func BadgeForStatut(statut string) StatusBadge {
	if badge, ok := statusBadges[statut]; ok {
		return badge
	}
	return statusBadges[model.StatutToInvoice]
}

// DossierView is the display-ready projection of a dossier joined with its
// contact and the regie directory
type DossierView struct {
	ID            string      `json:"id"`
	Numero        string      `json:"numero"`
	Name          string      `json:"name"`
	Initials      string      `json:"initials"`
	StageStep     int         `json:"stageStep"`
	StageLabel    string      `json:"stageLabel"`
	Stage         string      `json:"stage"`
	Statut        string      `json:"statut"`
	Badge         StatusBadge `json:"badge"`
	Projet        []string    `json:"projet"`
	Prix          string      `json:"prix"`
	AssignedRegie string      `json:"assignedRegie,omitempty"`
	RegieName     string      `json:"regieName,omitempty"`
	Address       string      `json:"address,omitempty"`
	Phone         string      `json:"phone,omitempty"`
	Email         string      `json:"email,omitempty"`
}

// Project builds the view model for one dossier. Missing joins never blank
// out the row: the name falls back from the contact to the stored client
// label to a numbered placeholder, and an unknown regie id renders as-is.
func Project(d *model.Dossier, contact *model.Contact, regies []model.RegieUser) DossierView {
	step, label := model.ParseStage(d.Etape)

	view := DossierView{
		ID:            d.ID,
		Numero:        d.Numero,
		StageStep:     step,
		StageLabel:    label,
		Stage:         model.FormatStage(step, label),
		Statut:        d.Statut,
		Badge:         BadgeForStatut(d.Statut),
		Projet:        d.Projet,
		Prix:          d.Prix,
		AssignedRegie: d.AssignedRegie,
		RegieName:     resolveRegieName(d.AssignedRegie, regies),
	}

	view.Name, view.Initials = resolveName(d, contact)

	if contact != nil {
		view.Address = contact.Address
		view.Phone = contact.Phone
		view.Email = contact.Email
	}

	return view
}

// resolveName applies the fallback chain: joined contact name, then the
// dossier's own stored client label, then a numbered placeholder. Initials
// come from the name parts, or from the dossier number when no name exists.
func resolveName(d *model.Dossier, contact *model.Contact) (string, string) {
	var parts []string
	if contact != nil {
		for _, p := range []string{contact.FirstName, contact.LastName} {
			if strings.TrimSpace(p) != "" {
				parts = append(parts, strings.TrimSpace(p))
			}
		}
	}
	if len(parts) == 0 && strings.TrimSpace(d.Client) != "" {
		parts = strings.Fields(d.Client)
	}

	if len(parts) > 0 {
		return strings.Join(parts, " "), initialsFromParts(parts)
	}

	numero := d.Numero
	if numero == "" {
		numero = d.ID
	}
	return "Dossier #" + numero, initialsFromNumero(numero)
}

func initialsFromParts(parts []string) string {
	var b strings.Builder
	for i, p := range parts {
		if i >= 2 {
			break
		}
		b.WriteString(strings.ToUpper(p[:1]))
	}
	return b.String()
}

func initialsFromNumero(numero string) string {
	if numero == "" {
		return "--"
	}
	if len(numero) < 2 {
		return strings.ToUpper(numero)
	}
	return strings.ToUpper(numero[:2])
}

func resolveRegieName(regieID string, regies []model.RegieUser) string {
	if regieID == "" {
		return ""
	}
	for _, r := range regies {
		if r.ID == regieID {
			return strings.TrimSpace(r.FirstName + " " + r.LastName)
		}
	}
	// Unknown id: show it rather than a blank label
	return regieID
}
