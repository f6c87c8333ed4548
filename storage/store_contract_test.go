package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cyberpaste/cyberpaste/models"
)

// storeFactory creates a PasteStore for testing and returns a cleanup func.
// The same contract suite runs against every backend that needs no external
// service; MongoDB, DynamoDB and Redis satisfy it through the same tests in
// environments that provide them.
type storeFactory struct {
	name string
	make func(t *testing.T) (PasteStore, func())
}

func testFactories() []storeFactory {
	return []storeFactory{
		{
			name: "memory",
			make: func(t *testing.T) (PasteStore, func()) {
				return NewMemoryStore(), func() {}
			},
		},
		{
			name: "sqlite",
			make: func(t *testing.T) (PasteStore, func()) {
				store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "pastes.db"))
				if err != nil {
					t.Fatalf("failed to create sqlite store: %v", err)
				}
				return store, func() { _ = store.Close() }
			},
		},
		{
			name: "bolt",
			make: func(t *testing.T) (PasteStore, func()) {
				store, err := NewBoltStore(filepath.Join(t.TempDir(), "pastes.bolt"))
				if err != nil {
					t.Fatalf("failed to create bolt store: %v", err)
				}
				return store, func() { _ = store.Close() }
			},
		},
	}
}

func testPaste(id string, ttlSeconds int64) *models.Paste {
	now := time.Now().Truncate(time.Millisecond)
	return &models.Paste{
		ID:         id,
		CreatedAt:  now,
		TTLSeconds: ttlSeconds,
		ExpiresAt:  models.ExpiryTime(now, ttlSeconds),
		Views:      0,
		Tabs: []models.Tab{
			{Name: "main.go", Lang: "go", Content: "package main"},
			{Name: "", Lang: "plaintext", Content: "notes"},
		},
	}
}

func TestStoreContract_InsertGetRoundtrip(t *testing.T) {
	for _, f := range testFactories() {
		t.Run(f.name, func(t *testing.T) {
			store, cleanup := f.make(t)
			defer cleanup()
			ctx := context.Background()

			want := testPaste("roundtrip1", 3600)
			if err := store.Insert(ctx, want); err != nil {
				t.Fatalf("insert failed: %v", err)
			}

			got, err := store.Get(ctx, "roundtrip1")
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if got == nil {
				t.Fatal("expected paste, got nil")
			}
			if got.ID != want.ID || got.TTLSeconds != want.TTLSeconds || got.Views != 0 {
				t.Fatalf("roundtrip mismatch: got %+v", got)
			}
			if len(got.Tabs) != 2 {
				t.Fatalf("expected 2 tabs, got %d", len(got.Tabs))
			}
			if got.Tabs[0].Name != "main.go" || got.Tabs[0].Lang != "go" || got.Tabs[0].Content != "package main" {
				t.Fatalf("tab 0 mismatch: %+v", got.Tabs[0])
			}
			if got.Tabs[1].Name != "" || got.Tabs[1].Content != "notes" {
				t.Fatalf("tab 1 mismatch: %+v", got.Tabs[1])
			}
			if got.ExpiresAt == nil {
				t.Fatal("expected derived expiry to survive the roundtrip")
			}
		})
	}
}

func TestStoreContract_DuplicateIDRejected(t *testing.T) {
	for _, f := range testFactories() {
		t.Run(f.name, func(t *testing.T) {
			store, cleanup := f.make(t)
			defer cleanup()
			ctx := context.Background()

			first := testPaste("dup1", 0)
			if err := store.Insert(ctx, first); err != nil {
				t.Fatalf("insert failed: %v", err)
			}

			second := testPaste("dup1", 60)
			second.Tabs = []models.Tab{{Name: "other", Lang: "go", Content: "clobber"}}
			if err := store.Insert(ctx, second); !errors.Is(err, ErrDuplicateID) {
				t.Fatalf("expected ErrDuplicateID, got %v", err)
			}

			// The original record must survive untouched.
			got, err := store.Get(ctx, "dup1")
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if got.TTLSeconds != 0 || got.Tabs[0].Content != "package main" {
				t.Fatalf("duplicate insert overwrote the record: %+v", got)
			}
		})
	}
}

func TestStoreContract_GetAbsent(t *testing.T) {
	for _, f := range testFactories() {
		t.Run(f.name, func(t *testing.T) {
			store, cleanup := f.make(t)
			defer cleanup()

			got, err := store.Get(context.Background(), "nope")
			if err != nil {
				t.Fatalf("expected nil error for absent id, got %v", err)
			}
			if got != nil {
				t.Fatalf("expected nil paste for absent id, got %+v", got)
			}
		})
	}
}

func TestStoreContract_DeleteIdempotent(t *testing.T) {
	for _, f := range testFactories() {
		t.Run(f.name, func(t *testing.T) {
			store, cleanup := f.make(t)
			defer cleanup()
			ctx := context.Background()

			if err := store.Insert(ctx, testPaste("del1", 0)); err != nil {
				t.Fatalf("insert failed: %v", err)
			}
			if err := store.Delete(ctx, "del1"); err != nil {
				t.Fatalf("delete failed: %v", err)
			}
			// Deleting an already-absent id twice must be a no-op.
			if err := store.Delete(ctx, "del1"); err != nil {
				t.Fatalf("second delete errored: %v", err)
			}
			if err := store.Delete(ctx, "never-existed"); err != nil {
				t.Fatalf("delete of unknown id errored: %v", err)
			}

			n, err := store.CountAll(ctx)
			if err != nil {
				t.Fatalf("count failed: %v", err)
			}
			if n != 0 {
				t.Fatalf("expected empty store, got %d records", n)
			}
		})
	}
}

func TestStoreContract_IncrementViews(t *testing.T) {
	for _, f := range testFactories() {
		t.Run(f.name, func(t *testing.T) {
			store, cleanup := f.make(t)
			defer cleanup()
			ctx := context.Background()

			if err := store.Insert(ctx, testPaste("views1", 0)); err != nil {
				t.Fatalf("insert failed: %v", err)
			}

			n, err := store.IncrementViews(ctx, "views1")
			if err != nil {
				t.Fatalf("increment failed: %v", err)
			}
			if n != 1 {
				t.Fatalf("expected new count 1, got %d", n)
			}

			got, err := store.Get(ctx, "views1")
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if got.Views != 1 {
				t.Fatalf("expected stored views 1, got %d", got.Views)
			}

			if _, err := store.IncrementViews(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound for absent id, got %v", err)
			}
		})
	}
}

func TestStoreContract_ConcurrentIncrements(t *testing.T) {
	for _, f := range testFactories() {
		t.Run(f.name, func(t *testing.T) {
			store, cleanup := f.make(t)
			defer cleanup()
			ctx := context.Background()

			if err := store.Insert(ctx, testPaste("race1", 0)); err != nil {
				t.Fatalf("insert failed: %v", err)
			}

			const n = 50
			var wg sync.WaitGroup
			wg.Add(n)
			for i := 0; i < n; i++ {
				go func() {
					defer wg.Done()
					if _, err := store.IncrementViews(ctx, "race1"); err != nil {
						t.Errorf("increment failed: %v", err)
					}
				}()
			}
			wg.Wait()

			got, err := store.Get(ctx, "race1")
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if got.Views != n {
				t.Fatalf("lost updates: expected %d views, got %d", n, got.Views)
			}
		})
	}
}

func TestStoreContract_ScanExpired(t *testing.T) {
	for _, f := range testFactories() {
		t.Run(f.name, func(t *testing.T) {
			store, cleanup := f.make(t)
			defer cleanup()
			ctx := context.Background()

			dead := testPaste("dead1", 60)
			dead.CreatedAt = time.Now().Add(-2 * time.Minute)
			dead.ExpiresAt = models.ExpiryTime(dead.CreatedAt, dead.TTLSeconds)

			alive := testPaste("alive1", 3600)
			forever := testPaste("forever1", 0)

			for _, p := range []*models.Paste{dead, alive, forever} {
				if err := store.Insert(ctx, p); err != nil {
					t.Fatalf("insert %s failed: %v", p.ID, err)
				}
			}

			ids, err := store.ScanExpired(ctx, time.Now())
			if err != nil {
				t.Fatalf("scan failed: %v", err)
			}
			if len(ids) != 1 || ids[0] != "dead1" {
				t.Fatalf("expected exactly [dead1], got %v", ids)
			}
		})
	}
}
