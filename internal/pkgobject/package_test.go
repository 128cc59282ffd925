package pkgobject

import (
	"testing"
	"time"

	"github.com/ralt/pkgrelay/internal/models"
)

func TestNewPackageStartsInStateNone(t *testing.T) {
	p := New("foo.deb", "https://example.com/foo.deb", "v1.0.0", time.Now(), models.TypeDeb, nil, models.ArchAmd64, "foo")

	state, bytes, text := p.State()
	if state != StateNone {
		t.Fatalf("expected StateNone, got %v", state)
	}
	if bytes != nil || text != "" {
		t.Fatalf("expected empty cell, got bytes=%v text=%q", bytes, text)
	}
	if p.IsMetadataAvailable() {
		t.Fatalf("fresh package should not report metadata available")
	}
}

func TestCloneSharesCell(t *testing.T) {
	p := New("foo.deb", "https://example.com/foo.deb", "v1.0.0", time.Now(), models.TypeDeb, nil, models.ArchAmd64, "foo")
	clone := p

	p.SetPackageData([]byte("raw bytes"))

	state, data, _ := clone.State()
	if state != StatePackage {
		t.Fatalf("expected clone to observe StatePackage, got %v", state)
	}
	if string(data) != "raw bytes" {
		t.Fatalf("expected clone to see the same bytes, got %q", data)
	}
}

func TestSetMetadataIsTerminal(t *testing.T) {
	p := New("foo.deb", "https://example.com/foo.deb", "v1.0.0", time.Now(), models.TypeDeb, nil, models.ArchAmd64, "foo")
	p.SetPackageData([]byte("raw"))
	p.SetMetadata(`{"ok":true}`)

	state, data, text := p.State()
	if state != StateMetadata {
		t.Fatalf("expected StateMetadata, got %v", state)
	}
	if data != nil {
		t.Fatalf("expected raw bytes to be discarded, got %v", data)
	}
	if text != `{"ok":true}` {
		t.Fatalf("unexpected metadata text: %q", text)
	}
	if !p.IsMetadataAvailable() {
		t.Fatalf("expected IsMetadataAvailable to be true")
	}
}

func TestSortByFilename(t *testing.T) {
	mk := func(name string) Package {
		return New(name, "", "v1", time.Now(), models.TypeDeb, nil, models.ArchAmd64, name)
	}
	pkgs := []Package{mk("c.deb"), mk("a.deb"), mk("b.deb")}

	sorted := SortByFilename(pkgs)
	if sorted[0].FileName() != "a.deb" || sorted[1].FileName() != "b.deb" || sorted[2].FileName() != "c.deb" {
		t.Fatalf("unexpected order: %v, %v, %v", sorted[0].FileName(), sorted[1].FileName(), sorted[2].FileName())
	}
	if pkgs[0].FileName() != "c.deb" {
		t.Fatalf("SortByFilename must not mutate its input slice")
	}
}
