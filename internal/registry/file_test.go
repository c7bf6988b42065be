package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileSourceCompanies(t *testing.T) {
	path := writeRegistry(t, `[
		{"ats": "greenhouse", "slug": "acme", "name": "Acme"},
		{"ats": "lever", "slug": "globex", "name": "Globex"}
	]`)

	companies, err := (&FileSource{Path: path}).Companies(context.Background())
	if err != nil {
		t.Fatalf("Companies: %v", err)
	}
	if len(companies) != 2 {
		t.Fatalf("len = %d, want 2", len(companies))
	}
	if companies[0].ATS != "greenhouse" || companies[0].Slug != "acme" || companies[0].DisplayName != "Acme" {
		t.Fatalf("companies[0] = %+v", companies[0])
	}
}

func TestFileSourceUnknownATS(t *testing.T) {
	path := writeRegistry(t, `[{"ats": "workday", "slug": "acme"}]`)
	if _, err := (&FileSource{Path: path}).Companies(context.Background()); err == nil {
		t.Fatal("expected error for unknown ats")
	}
}

func TestFileSourceMissingSlug(t *testing.T) {
	path := writeRegistry(t, `[{"ats": "lever", "slug": ""}]`)
	if _, err := (&FileSource{Path: path}).Companies(context.Background()); err == nil {
		t.Fatal("expected error for missing slug")
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	src := &FileSource{Path: filepath.Join(t.TempDir(), "nope.json")}
	if _, err := src.Companies(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}
