package apt

import (
	"strings"
	"testing"
	"time"

	"github.com/ralt/pkgrelay/internal/models"
	"github.com/ralt/pkgrelay/internal/pkgobject"
)

func fakeDebPackage(t *testing.T, name, version, arch, filename string) pkgobject.Package {
	t.Helper()
	control := "Package: " + name + "\nVersion: " + version + "\nArchitecture: " + arch + "\nMaintainer: acme\n"
	data := buildFakeDeb(t, control)
	p := pkgobject.New(filename, "", "v"+version, time.Now(), models.TypeDeb, nil, models.ArchAmd64, name)
	p.SetPackageData(data)
	return p
}

func TestNewIndicesGroupsByArchitecture(t *testing.T) {
	packages := []pkgobject.Package{
		fakeDebPackage(t, "widget", "1.0.0", "amd64", "widget_1.0.0_amd64.deb"),
		fakeDebPackage(t, "widget", "1.0.0", "arm64", "widget_1.0.0_arm64.deb"),
	}

	idx, errs := NewIndices(packages, models.ChannelStable)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if len(idx.Architectures()) != 2 {
		t.Fatalf("expected 2 architectures, got %d", len(idx.Architectures()))
	}

	pkgIndex := idx.PackageIndex(models.ArchAmd64)
	if !strings.Contains(pkgIndex, "Package: widget") {
		t.Fatalf("expected the amd64 stanza to be present, got:\n%s", pkgIndex)
	}
	if !strings.Contains(pkgIndex, "Filename: pool/stable/v1.0.0/widget_1.0.0_amd64.deb") {
		t.Fatalf("expected a pool Filename field, got:\n%s", pkgIndex)
	}
}

func TestReleaseIndexHasChecksumSections(t *testing.T) {
	packages := []pkgobject.Package{
		fakeDebPackage(t, "widget", "1.0.0", "amd64", "widget_1.0.0_amd64.deb"),
	}

	idx, errs := NewIndices(packages, models.ChannelStable)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}

	release := idx.ReleaseIndex()
	for _, field := range []string{"Origin: . stable", "Label: . stable", "Suite: stable", "MD5Sum:", "SHA1:", "SHA256:", "SHA512:"} {
		if !strings.Contains(release, field) {
			t.Fatalf("expected Release file to contain %q, got:\n%s", field, release)
		}
	}
	if !strings.Contains(release, "main/binary-amd64/Packages.gz") {
		t.Fatalf("expected a Packages.gz checksum entry, got:\n%s", release)
	}
}
