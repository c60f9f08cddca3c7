package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/randolphmevaa/ecologyb-sub009/config"
	"github.com/randolphmevaa/ecologyb-sub009/model"
	"github.com/randolphmevaa/ecologyb-sub009/pkg/metrics"
)

// ErrDossierNotFound is returned when the upstream has no dossier for the
// requested contact.
var ErrDossierNotFound = errors.New("dossier not found")

// CRMService is the HTTP client for the upstream CRM REST API that owns the
// dossiers, contacts and users resources.
type CRMService struct {
	config     *config.CRMConfig
	httpClient *http.Client
}

func NewCRMService(cfg *config.CRMConfig) *CRMService {
	return &CRMService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// FetchDossier fetches the dossier for a contact
func (s *CRMService) FetchDossier(ctx context.Context, contactID string) (*model.Dossier, error) {
	query := url.Values{"contactId": {contactID}}
	body, err := s.doRequest(ctx, http.MethodGet, "/api/dossiers", query, nil)
	if err != nil {
		return nil, err
	}
	return decodeDossierBody(body)
}

// ListDossiers fetches all dossiers for the dashboard list view
func (s *CRMService) ListDossiers(ctx context.Context) ([]model.Dossier, error) {
	body, err := s.doRequest(ctx, http.MethodGet, "/api/dossiers", nil, nil)
	if err != nil {
		return nil, err
	}

	var dossiers []model.Dossier
	if err := json.Unmarshal(bytes.TrimSpace(body), &dossiers); err != nil {
		// Some deployments return a bare object when only one dossier exists
		d, derr := decodeDossierBody(body)
		if derr != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		dossiers = []model.Dossier{*d}
	}
	return dossiers, nil
}

// UpdateDossier submits the collapsed billing payload to the dossiers
// resource, scoped by contact. This is the first leg of the dual write.
func (s *CRMService) UpdateDossier(ctx context.Context, contactID string, payload BillingPayload) (*model.Dossier, error) {
	query := url.Values{"contactId": {contactID}}
	body, err := s.doRequest(ctx, http.MethodPatch, "/api/dossiers", query, payload)
	if err != nil {
		return nil, err
	}
	return decodeDossierBody(body)
}

// UpdateContact submits the identical payload to the contacts resource.
// Must only be called after UpdateDossier succeeded.
func (s *CRMService) UpdateContact(ctx context.Context, contactID string, payload BillingPayload) error {
	query := url.Values{"id": {contactID}}
	_, err := s.doRequest(ctx, http.MethodPatch, "/api/contacts", query, payload)
	return err
}

// ListContacts fetches all contact records for joined display
func (s *CRMService) ListContacts(ctx context.Context) ([]model.Contact, error) {
	body, err := s.doRequest(ctx, http.MethodGet, "/api/contacts", nil, nil)
	if err != nil {
		return nil, err
	}

	var contacts []model.Contact
	if err := json.Unmarshal(body, &contacts); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return contacts, nil
}

// ListRegies fetches the users holding the regie role for the assignment
// dropdown
func (s *CRMService) ListRegies(ctx context.Context) ([]model.RegieUser, error) {
	query := url.Values{"role": {s.config.RegieRole}}
	body, err := s.doRequest(ctx, http.MethodGet, "/api/users", query, nil)
	if err != nil {
		return nil, err
	}

	var regies []model.RegieUser
	if err := json.Unmarshal(body, &regies); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return regies, nil
}

func (s *CRMService) doRequest(ctx context.Context, method, endpoint string, query url.Values, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	reqURL := s.config.BaseURL + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstreamCall(endpoint, "error", time.Since(start))
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	metrics.RecordUpstreamCall(endpoint, resp.Status, time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrDossierNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("CRM API error: %s: %s", resp.Status, bytes.TrimSpace(body))
	}

	return body, nil
}

// decodeDossierBody normalizes the inconsistent upstream response shape:
// the dossiers resource sometimes wraps a single record in a one-element
// array. Internal code only ever sees the bare record.
func decodeDossierBody(data []byte) (*model.Dossier, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	if trimmed[0] == '[' {
		var list []model.Dossier
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if len(list) == 0 {
			return nil, ErrDossierNotFound
		}
		return &list[0], nil
	}

	var dossier model.Dossier
	if err := json.Unmarshal(trimmed, &dossier); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &dossier, nil
}
