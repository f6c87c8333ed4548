package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cyberpaste/cyberpaste/internal/id"
	"github.com/cyberpaste/cyberpaste/metrics"
	"github.com/cyberpaste/cyberpaste/models"
	"github.com/cyberpaste/cyberpaste/storage"
)

// ErrInvalidInput marks user-correctable validation failures. It is checked
// with errors.Is and rejected before any storage I/O.
var ErrInvalidInput = errors.New("invalid input")

// PasteService owns the paste lifecycle: creation, retrieval with lazy
// expiry, view accounting, and expired-record sweeps. It is stateless apart
// from the store and safe for any number of concurrent callers.
type PasteService struct {
	store storage.PasteStore

	// GenerateID produces paste ids. Overridable in tests.
	GenerateID func() (string, error)

	notify func()
}

// NewPasteService creates a new paste service.
func NewPasteService(store storage.PasteStore, gen *id.Generator) *PasteService {
	return &PasteService{
		store:      store,
		GenerateID: gen.Generate,
		notify:     func() {},
	}
}

// OnChange registers a hook fired whenever the set of live pastes changes
// (create, view increment, expiry). Consumers use it to invalidate cached
// aggregates; the service does not care what they do with it.
func (s *PasteService) OnChange(fn func()) {
	if fn != nil {
		s.notify = fn
	}
}

func validateCreate(tabs []models.Tab, ttlSeconds int64) error {
	if len(tabs) == 0 {
		return fmt.Errorf("%w: at least one tab is required", ErrInvalidInput)
	}
	if ttlSeconds < 0 {
		return fmt.Errorf("%w: ttl must not be negative", ErrInvalidInput)
	}
	for i, tab := range tabs {
		if strings.TrimSpace(tab.Content) == "" {
			return fmt.Errorf("%w: tab %d has empty content", ErrInvalidInput, i+1)
		}
	}
	return nil
}

// CreatePaste validates the input, persists a new paste with all its tabs
// and returns its id. An expired-record sweep runs first on a best-effort
// basis; sweep failures never block creation.
func (s *PasteService) CreatePaste(ctx context.Context, tabs []models.Tab, ttlSeconds int64, encrypted bool) (string, error) {
	if err := validateCreate(tabs, ttlSeconds); err != nil {
		return "", err
	}

	if _, err := s.Sweep(ctx); err != nil {
		log.Printf("[WARN] sweep before create failed: %v", err)
	}

	pasteID, err := s.GenerateID()
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}

	now := time.Now()
	paste := &models.Paste{
		ID:         pasteID,
		CreatedAt:  now,
		TTLSeconds: ttlSeconds,
		ExpiresAt:  models.ExpiryTime(now, ttlSeconds),
		Encrypted:  encrypted,
		Views:      0,
		Tabs:       tabs,
	}

	if err := s.store.Insert(ctx, paste); err != nil {
		if errors.Is(err, storage.ErrDuplicateID) {
			// One regenerate covers an astronomically unlikely collision; a
			// second hit means the generator is broken and must surface.
			pasteID, err = s.GenerateID()
			if err != nil {
				return "", fmt.Errorf("failed to generate id: %w", err)
			}
			paste.ID = pasteID
			if err := s.store.Insert(ctx, paste); err != nil {
				return "", fmt.Errorf("id generator collision resistance violated: %w", err)
			}
		} else {
			return "", fmt.Errorf("failed to store paste: %w", err)
		}
	}

	metrics.PastesCreated.Inc()
	s.notify()
	return paste.ID, nil
}

// GetPaste retrieves a paste by id. Absent and expired pastes both come back
// as (nil, nil); an expired record found here is purged on the spot (lazy
// expiry). The returned snapshot carries the view count as it was before
// this fetch; the stored counter is incremented so the next fetch sees it.
func (s *PasteService) GetPaste(ctx context.Context, pasteID string) (*models.Paste, error) {
	paste, err := s.store.Get(ctx, pasteID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve paste: %w", err)
	}
	if paste == nil {
		return nil, nil
	}

	if !paste.IsLive(time.Now()) {
		// Semantically dead even if the physical delete fails; the janitor
		// or the next access retries the purge.
		if err := s.store.Delete(ctx, pasteID); err != nil {
			log.Printf("[WARN] failed to purge expired paste %s: %v", pasteID, err)
		} else {
			metrics.PastesExpired.Inc()
		}
		s.notify()
		return nil, nil
	}

	if _, err := s.store.IncrementViews(ctx, pasteID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Vanished between the liveness check and the increment.
			return nil, nil
		}
		log.Printf("[WARN] failed to increment views for %s: %v", pasteID, err)
	}

	metrics.PastesViewed.Inc()
	s.notify()
	return paste, nil
}

// ActivePasteCount sweeps expired records and returns the count of the
// remainder. Callers are expected to degrade the error to a shown zero
// rather than failing whatever page asked for it.
func (s *PasteService) ActivePasteCount(ctx context.Context) (int64, error) {
	if _, err := s.Sweep(ctx); err != nil {
		log.Printf("[WARN] sweep before count failed: %v", err)
	}

	n, err := s.store.CountAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count pastes: %w", err)
	}
	metrics.ActivePastes.Set(float64(n))
	return n, nil
}

// Sweep scans for expired records and deletes them. Deletes are idempotent,
// so concurrent sweeps racing over the same ids are harmless. Returns how
// many records were removed.
func (s *PasteService) Sweep(ctx context.Context) (int, error) {
	ids, err := s.store.ScanExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to scan for expired pastes: %w", err)
	}

	deleted := 0
	var lastErr error
	for _, pasteID := range ids {
		if err := s.store.Delete(ctx, pasteID); err != nil {
			lastErr = err
			continue
		}
		deleted++
		metrics.PastesExpired.Inc()
	}
	if deleted > 0 {
		s.notify()
	}
	return deleted, lastErr
}
