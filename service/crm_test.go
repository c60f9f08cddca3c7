package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/randolphmevaa/ecologyb-sub009/model"
)

func TestDecodeDossierBody(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		expectErr  bool
		expectedID string
	}{
		{
			name:       "bare object",
			body:       `{"id":"d-1","projet":["Isolation"],"prix":"100","statut":"a_facturer","assignedRegie":""}`,
			expectedID: "d-1",
		},
		{
			name:       "array-wrapped single record",
			body:       `[{"id":"d-2","projet":["Isolation"],"prix":"100","statut":"a_facturer","assignedRegie":""}]`,
			expectedID: "d-2",
		},
		{
			name:      "empty array",
			body:      `[]`,
			expectErr: true,
		},
		{
			name:      "empty body",
			body:      ``,
			expectErr: true,
		},
		{
			name:      "malformed json",
			body:      `{"id":`,
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dossier, err := decodeDossierBody([]byte(tt.body))
			if tt.expectErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if dossier.ID != tt.expectedID {
				t.Errorf("Expected id '%s', got '%s'", tt.expectedID, dossier.ID)
			}
		})
	}
}

func TestStringListDecoding(t *testing.T) {
	// The upstream returns projet as either a bare string or an array
	tests := []struct {
		name     string
		body     string
		expected []string
	}{
		{
			name:     "array value",
			body:     `{"id":"d-1","projet":["Isolation","Pompes a chaleur"]}`,
			expected: []string{"Isolation", "Pompes a chaleur"},
		},
		{
			name:     "bare string value",
			body:     `{"id":"d-1","projet":"Isolation"}`,
			expected: []string{"Isolation"},
		},
		{
			name:     "null value",
			body:     `{"id":"d-1","projet":null}`,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dossier model.Dossier
			if err := json.Unmarshal([]byte(tt.body), &dossier); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !reflect.DeepEqual([]string(dossier.Projet), tt.expected) {
				t.Errorf("Expected projet %v, got %v", tt.expected, dossier.Projet)
			}
		})
	}
}

func TestCRMServiceFetchDossier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/api/dossiers" {
			t.Errorf("Expected /api/dossiers, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("contactId") != "contact-1" {
			t.Errorf("Expected contactId 'contact-1', got '%s'", r.URL.Query().Get("contactId"))
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Error("Expected Authorization header")
		}

		// Array-wrapped, as some deployments respond
		json.NewEncoder(w).Encode([]model.Dossier{{ID: "d-1", ContactID: "contact-1"}})
	}))
	defer server.Close()

	svc := newTestCRMService(server.URL)

	dossier, err := svc.FetchDossier(context.Background(), "contact-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if dossier.ID != "d-1" {
		t.Errorf("Expected dossier 'd-1', got '%s'", dossier.ID)
	}
}

func TestCRMServiceFetchDossierNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	svc := newTestCRMService(server.URL)

	_, err := svc.FetchDossier(context.Background(), "missing")
	if !errors.Is(err, ErrDossierNotFound) {
		t.Errorf("Expected ErrDossierNotFound, got %v", err)
	}
}

func TestCRMServiceListDossiers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]model.Dossier{
			{ID: "d-1"},
			{ID: "d-2"},
		})
	}))
	defer server.Close()

	svc := newTestCRMService(server.URL)

	dossiers, err := svc.ListDossiers(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(dossiers) != 2 {
		t.Errorf("Expected 2 dossiers, got %d", len(dossiers))
	}
}

func TestCRMServiceListDossiersBareObject(t *testing.T) {
	// Single-dossier deployments answer with a bare object
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(model.Dossier{ID: "d-1"})
	}))
	defer server.Close()

	svc := newTestCRMService(server.URL)

	dossiers, err := svc.ListDossiers(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(dossiers) != 1 || dossiers[0].ID != "d-1" {
		t.Errorf("Expected normalized single-element list, got %v", dossiers)
	}
}

func TestCRMServiceListRegies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users" {
			t.Errorf("Expected /api/users, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("role") != "Régie" {
			t.Errorf("Expected role 'Régie', got '%s'", r.URL.Query().Get("role"))
		}

		json.NewEncoder(w).Encode([]model.RegieUser{
			{ID: "regie-1", FirstName: "Paul", LastName: "Martin"},
		})
	}))
	defer server.Close()

	svc := newTestCRMService(server.URL)

	regies, err := svc.ListRegies(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(regies) != 1 || regies[0].FirstName != "Paul" {
		t.Errorf("Expected regie Paul Martin, got %v", regies)
	}
}

func TestCRMServiceUpdateContactError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := newTestCRMService(server.URL)

	err := svc.UpdateContact(context.Background(), "contact-1", BillingPayload{})
	if err == nil {
		t.Fatal("Expected error on upstream failure")
	}
}
