package app

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestStore_CreateAndLookup(t *testing.T) {
	s := NewStore(nil, nil)

	g, err := s.Create("p1", "p2", "p2")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if g.ID() == "" {
		t.Fatal("Create returned a game without id")
	}

	for _, p := range []string{"p1", "p2"} {
		got, ok := s.Get(p)
		if !ok || got != g {
			t.Fatalf("Get(%s) = %v, %v; want the created game", p, got, ok)
		}
	}
	if got, ok := s.GetPair("p2", "p1"); !ok || got != g {
		t.Fatal("GetPair must ignore argument order")
	}
	if snap := g.Snapshot(); snap.Turn != "p2" {
		t.Fatalf("Turn = %q, want p2", snap.Turn)
	}
}

func TestStore_CreateConflicts(t *testing.T) {
	tests := []struct {
		name    string
		p1, p2  string
		wantErr error
	}{
		{name: "same pair", p1: "p1", p2: "p2", wantErr: ErrAlreadyInSession},
		{name: "same pair reversed", p1: "p2", p2: "p1", wantErr: ErrAlreadyInSession},
		{name: "first player busy", p1: "p1", p2: "p3", wantErr: ErrAlreadyInSession},
		{name: "second player busy", p1: "p3", p2: "p2", wantErr: ErrAlreadyInSession},
		{name: "self match", p1: "p3", p2: "p3", wantErr: ErrInvalidPlayers},
		{name: "missing player", p1: "", p2: "p3", wantErr: ErrInvalidPlayers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(nil, nil)
			if _, err := s.Create("p1", "p2", "p1"); err != nil {
				t.Fatalf("seed Create error: %v", err)
			}
			if _, err := s.Create(tt.p1, tt.p2, tt.p1); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Create(%s, %s) error = %v, want %v", tt.p1, tt.p2, err, tt.wantErr)
			}
			if s.Len() != 1 {
				t.Fatalf("Len() = %d, want 1", s.Len())
			}
		})
	}
}

func TestStore_RemoveIsIdempotent(t *testing.T) {
	s := NewStore(nil, nil)
	g, _ := s.Create("p1", "p2", "p1")

	if !s.Remove(g.ID()) {
		t.Fatal("first Remove = false, want true")
	}
	if s.Remove(g.ID()) {
		t.Fatal("second Remove = true, want false")
	}
	if _, ok := s.Get("p1"); ok {
		t.Fatal("p1 still mapped after Remove")
	}
	if _, ok := s.GetPair("p1", "p2"); ok {
		t.Fatal("pair still mapped after Remove")
	}
	if _, err := s.Create("p1", "p2", "p1"); err != nil {
		t.Fatalf("Create after Remove error: %v", err)
	}
}

func TestStore_ConcurrentCreateOnePerPlayer(t *testing.T) {
	s := NewStore(nil, nil)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.Create("hub", fmt.Sprintf("p%d", i), "hub"); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("created %d games for one player, want 1", created)
	}
}
