package normalize

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalizeCity(t *testing.T) {
	table := Default()

	tests := []struct {
		raw  string
		want string
	}{
		{"Almaty", "Алматы"},
		{"Almata", "Алматы"},
		{"алма-ата", "Алматы"},
		{"АЛМА АТА", "Алматы"},
		{"Алматы", "Алматы"},
		{"nursultan", "Астана"},
		{"Нур-Султан", "Астана"},
		{"shymkent", "Шымкент"},
		{"чимкент", "Шымкент"},
	}
	for _, tt := range tests {
		got := table.Canonicalize(tt.raw, City)
		if !got.Canonical {
			t.Errorf("Canonicalize(%q) not canonical", tt.raw)
			continue
		}
		if got.Value != tt.want {
			t.Errorf("Canonicalize(%q) = %q, want %q", tt.raw, got.Value, tt.want)
		}
	}
}

func TestCanonicalizeColor(t *testing.T) {
	table := Default()

	tests := []struct {
		raw  string
		want string
	}{
		{"silver", "silver"},
		{"серебристый", "silver"},
		{"Серебристый металлик", "silver"},
		{"чёрный", "black"},
		{"черный", "black"},
		{"GRAY", "gray"},
		{"grey", "gray"},
		// Containment both ways.
		{"тёмно-бордовый", "red"},
	}
	for _, tt := range tests {
		got := table.Canonicalize(tt.raw, Color)
		if !got.Canonical || got.Value != tt.want {
			t.Errorf("Canonicalize(%q) = %+v, want canonical %q", tt.raw, got, tt.want)
		}
	}
}

func TestCanonicalizeUnknownPassesThrough(t *testing.T) {
	table := Default()

	got := table.Canonicalize("Zhanaozen", City)
	if got.Canonical {
		t.Error("unknown city should not be canonical")
	}
	if got.Value != "Zhanaozen" {
		t.Errorf("unknown input should pass through unchanged, got %q", got.Value)
	}

	if got := table.Canonicalize("", Color); !got.IsZero() {
		t.Errorf("empty input should yield zero token, got %+v", got)
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	table := Default()

	for _, raw := range []string{"Almata", "алма ата", "shymkent", "Кустанай"} {
		once := table.Canonicalize(raw, City)
		twice := table.Canonicalize(once.Value, City)
		if once.Value != twice.Value || !twice.Canonical {
			t.Errorf("city %q: canonicalize not idempotent: %+v then %+v", raw, once, twice)
		}
	}
	for _, raw := range []string{"серый металлик", "grey", "бордовый"} {
		once := table.Canonicalize(raw, Color)
		twice := table.Canonicalize(once.Value, Color)
		if once.Value != twice.Value || !twice.Canonical {
			t.Errorf("color %q: canonicalize not idempotent: %+v then %+v", raw, once, twice)
		}
	}
}

func TestLoadExternalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "synonyms.yaml")
	doc := `
colors:
  mauve: [mauve, лиловый]
cities:
  Тестоград: [тестоград, testograd]
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := table.Canonicalize("Testograd", City); got.Value != "Тестоград" || !got.Canonical {
		t.Errorf("external table lookup failed: %+v", got)
	}
	if got := table.Canonicalize("лиловый", Color); got.Value != "mauve" {
		t.Errorf("external color lookup failed: %+v", got)
	}
}

func TestLoadRejectsEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for empty table document")
	}
}

func TestFold(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Алма-Ата ", "алма ата"},
		{"GRAY", "gray"},
		{"чёрный", "черныи"}, // ё and й decompose to base letters
		{"Nur--Sultan", "nur sultan"},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
