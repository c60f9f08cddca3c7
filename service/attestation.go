package service

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/randolphmevaa/ecologyb-sub009/model"
)

// AttestationService persists attestation PDFs to object storage and keeps
// their metadata in memory, keyed by the calendar event that produced them.
type AttestationService struct {
	storage      *MinioService
	attestations map[string]*model.Attestation
	mu           sync.RWMutex
}

func NewAttestationService(storage *MinioService) *AttestationService {
	return &AttestationService{
		storage:      storage,
		attestations: make(map[string]*model.Attestation),
	}
}

// Save uploads the PDF for an event and records its metadata. Saving again
// for the same event overwrites the previous document.
func (s *AttestationService) Save(ctx context.Context, eventID string, data any, pdf []byte) (*model.Attestation, error) {
	objectName := fmt.Sprintf("attestations/%s.pdf", eventID)

	if err := s.storage.UploadPDF(ctx, objectName, bytes.NewReader(pdf), int64(len(pdf))); err != nil {
		return nil, fmt.Errorf("failed to store attestation PDF: %w", err)
	}

	pdfURL, err := s.storage.GetPresignedURL(ctx, objectName)
	if err != nil {
		return nil, fmt.Errorf("failed to generate attestation URL: %w", err)
	}

	attestation := &model.Attestation{
		EventID:   eventID,
		PDFURL:    pdfURL,
		Data:      data,
		UpdatedAt: time.Now(),
	}

	s.mu.Lock()
	s.attestations[eventID] = attestation
	s.mu.Unlock()

	return attestation, nil
}

// Get returns the attestation metadata for an event, or nil
func (s *AttestationService) Get(eventID string) *model.Attestation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attestations[eventID]
}

// Delete removes the stored PDF and metadata for an event
func (s *AttestationService) Delete(ctx context.Context, eventID string) error {
	s.mu.RLock()
	_, exists := s.attestations[eventID]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("no attestation for event %s", eventID)
	}

	objectName := fmt.Sprintf("attestations/%s.pdf", eventID)
	if err := s.storage.DeleteFile(ctx, objectName); err != nil {
		return fmt.Errorf("failed to delete attestation PDF: %w", err)
	}

	s.mu.Lock()
	delete(s.attestations, eventID)
	s.mu.Unlock()

	return nil
}
