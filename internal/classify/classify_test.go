package classify

import (
	"testing"

	"github.com/ralt/pkgrelay/internal/models"
)

func TestClassifyDebWithUbuntuCodename(t *testing.T) {
	id, err := Classify("mytool-1.0.0-ubuntu-jammy-amd64.deb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Type != models.TypeDeb {
		t.Fatalf("expected TypeDeb, got %v", id.Type)
	}
	if id.Arch != models.ArchAmd64 {
		t.Fatalf("expected amd64, got %v", id.Arch)
	}
	if id.Dist == nil || id.Dist.Family != models.FamilyUbuntu {
		t.Fatalf("expected ubuntu family, got %v", id.Dist)
	}
	if id.Dist.Version == nil || id.Dist.Version.Original() != "22.04" {
		t.Fatalf("expected jammy to resolve to 22.04, got %v", id.Dist.Version)
	}
}

func TestClassifyRpmFedoraVersion(t *testing.T) {
	id, err := Classify("mytool-1.2.3-1.fc40.x86_64.rpm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Type != models.TypeRpm {
		t.Fatalf("expected TypeRpm, got %v", id.Type)
	}
	if id.Arch != models.ArchAmd64 {
		t.Fatalf("expected amd64 from x86_64 alias, got %v", id.Arch)
	}
	if id.Dist == nil || id.Dist.Family != models.FamilyFedora || id.Dist.Version.Original() != "40" {
		t.Fatalf("expected fedora 40, got %v", id.Dist)
	}
}

func TestClassifyRejectsUnsupportedExtension(t *testing.T) {
	_, err := Classify("mytool-1.0.tar.gz")
	if err == nil {
		t.Fatalf("expected an error for a non-deb/rpm filename")
	}
}

func TestClassifyDistroAgnosticHasNilDist(t *testing.T) {
	id, err := Classify("mytool-linux-amd64.deb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Dist != nil {
		t.Fatalf("expected no distribution match, got %v", id.Dist)
	}
}
