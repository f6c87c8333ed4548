package models

import (
	"testing"
	"time"
)

func TestIsLiveWithTTL(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ttl := int64(3600)

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"just created", created, true},
		{"one second before expiry", created.Add(3599 * time.Second), true},
		{"exactly at expiry", created.Add(3600 * time.Second), false},
		{"after expiry", created.Add(2 * time.Hour), false},
	}

	for _, tc := range cases {
		if got := IsLive(created, ttl, tc.now); got != tc.want {
			t.Errorf("%s: IsLive = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsLiveNeverExpires(t *testing.T) {
	created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if !IsLive(created, 0, created.Add(100*365*24*time.Hour)) {
		t.Fatal("paste with ttl=0 should never expire")
	}
}

func TestExpiryTime(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if got := ExpiryTime(created, 0); got != nil {
		t.Fatalf("expected nil expiry for ttl=0, got %v", got)
	}

	got := ExpiryTime(created, 86400)
	if got == nil {
		t.Fatal("expected non-nil expiry for positive ttl")
	}
	want := created.Add(24 * time.Hour)
	if !got.Equal(want) {
		t.Fatalf("expiry = %v, want %v", got, want)
	}
}

func TestCloneIsDeep(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	p := &Paste{
		ID:         "abc123",
		CreatedAt:  time.Now(),
		TTLSeconds: 3600,
		ExpiresAt:  &exp,
		Views:      2,
		Tabs: []Tab{
			{Name: "a.txt", Lang: "plaintext", Content: "hello"},
		},
	}

	cp := p.Clone()
	cp.Tabs[0].Content = "mutated"
	cp.Views = 99
	*cp.ExpiresAt = exp.Add(time.Hour)

	if p.Tabs[0].Content != "hello" {
		t.Fatal("clone shares tab slice with original")
	}
	if p.Views != 2 {
		t.Fatal("clone shares views with original")
	}
	if !p.ExpiresAt.Equal(exp) {
		t.Fatal("clone shares expiry pointer with original")
	}
}
