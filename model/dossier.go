package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// Dossier represents a project/case record as stored by the upstream CRM.
// The upstream only keeps collapsed dossier-level billing fields; the
// per-line-item view is expanded from Projet/Prix/Statut on read.
type Dossier struct {
	ID            string     `json:"id"`
	Numero        string     `json:"numero"`
	ContactID     string     `json:"contactId,omitempty"`
	Client        string     `json:"client,omitempty"`
	Etape         string     `json:"etape"` // compound stage code, e.g. "5 Installation"
	Projet        StringList `json:"projet"`
	Prix          string     `json:"prix"`
	Statut        string     `json:"statut"`
	AssignedRegie string     `json:"assignedRegie"`
	Description   string     `json:"description,omitempty"`
	Solution      string     `json:"solution,omitempty"`
	CreatedAt     time.Time  `json:"createdAt,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt,omitempty"`
}

// ProjectLineItem is one "Projet" row of a dossier's billing view. Items are
// not independently persisted: every mutation re-submits the whole list and
// the upstream stores only the collapsed dossier-level projection.
type ProjectLineItem struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Prix        string `json:"prix"`
	Statut      string `json:"statut"`
}

// Contact is a read-only reference record joined for display
type Contact struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
}

// RegieUser is a manager/user record used for the assignment dropdown
type RegieUser struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Attestation holds persisted PDF-generation metadata for a calendar event
type Attestation struct {
	EventID   string    `json:"eventId"`
	PDFURL    string    `json:"pdfUrl"`
	Data      any       `json:"attestationData,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Billing status constants. Statut tracks invoicing, not physical progress;
// physical progress lives in Etape.
const (
	StatutToInvoice  = "a_facturer"
	StatutInProgress = "en_cours"
	StatutDone       = "termine"
)

var validStatuts = map[string]struct{}{
	StatutToInvoice:  {},
	StatutInProgress: {},
	StatutDone:       {},
}

func IsValidStatut(value string) bool {
	_, ok := validStatuts[value]
	return ok
}

// StringList decodes a JSON value that is either a single string or an array
// of strings. The upstream API returns both shapes for the projet field.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*l = list
	return nil
}
