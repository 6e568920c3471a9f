package domain

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDictionary(t *testing.T) {
	input := "# header\nМосква\n  Астрахань \n\nОрёл\nмосква\n  # indented comment\n"
	d, err := LoadDictionary(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadDictionary error: %v", err)
	}
	if d.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", d.Len())
	}
	for _, city := range []string{"москва", "астрахань", "орел"} {
		if !d.Contains(city) {
			t.Fatalf("Contains(%q) = false, want true", city)
		}
	}
	if d.Contains("Москва") {
		t.Fatal("Contains expects normalized input")
	}
}

func TestLoadDictionary_EmptyIsError(t *testing.T) {
	_, err := LoadDictionary(strings.NewReader("\n  \n"))
	if !errors.Is(err, ErrEmptyDictionary) {
		t.Fatalf("err = %v, want %v", err, ErrEmptyDictionary)
	}
}

func TestLoadDictionaryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.txt")
	if err := os.WriteFile(path, []byte("Тверь\nРязань\n"), 0o644); err != nil {
		t.Fatalf("write cities: %v", err)
	}
	d, err := LoadDictionaryFile(path)
	if err != nil {
		t.Fatalf("LoadDictionaryFile error: %v", err)
	}
	if d.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", d.Len())
	}

	if _, err := LoadDictionaryFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDictionaryHasUnused(t *testing.T) {
	d := NewDictionary([]string{"Абакан", "Анапа", "Москва"})
	used := map[string]struct{}{"абакан": {}}
	if !d.HasUnused('а', used) {
		t.Fatal("HasUnused('а') = false, want true")
	}
	used["анапа"] = struct{}{}
	if d.HasUnused('а', used) {
		t.Fatal("HasUnused('а') = true after all used, want false")
	}
	if d.HasUnused('я', used) {
		t.Fatal("HasUnused('я') = true with no cities, want false")
	}
}

func TestDictionarySuggest(t *testing.T) {
	d := NewDictionary([]string{"Москва", "Мосальск", "Тверь", "Тула", "Тара"})

	tests := []struct {
		name   string
		word   string
		max    int
		want   string
		wantOK bool
	}{
		{name: "one typo", word: "моская", max: 2, want: "москва", wantOK: true},
		{name: "missing letter", word: "твер", max: 2, want: "тверь", wantOK: true},
		{name: "tie resolves alphabetically", word: "тура", max: 1, want: "тара", wantOK: true},
		{name: "too far", word: "владивосток", max: 2, wantOK: false},
		{name: "disabled", word: "моская", max: 0, wantOK: false},
		{name: "empty", word: "", max: 2, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := d.Suggest(tt.word, tt.max)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("Suggest(%q, %d) = (%q, %v), want (%q, %v)", tt.word, tt.max, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
