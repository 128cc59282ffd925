package selector

import (
	"testing"
	"time"

	"github.com/ralt/pkgrelay/internal/models"
	"github.com/ralt/pkgrelay/internal/pkgobject"
)

func mkPackage(name, version, filename string, typ models.Type, family models.DistFamily, distVer string, arch models.Arch) pkgobject.Package {
	var dist *models.Dist
	if family != models.FamilyUnknown {
		d := models.NewDist(family, distVer)
		dist = &d
	}
	return pkgobject.New(filename, "", version, time.Now(), typ, dist, arch, name)
}

func TestSelectPicksClosestLowerOrEqualVersion(t *testing.T) {
	candidates := []pkgobject.Package{
		mkPackage("foo", "1.0", "foo_1.0_ubuntu18.04_amd64.deb", models.TypeDeb, models.FamilyUbuntu, "18.04", models.ArchAmd64),
		mkPackage("foo", "1.0", "foo_1.0_ubuntu20.04_amd64.deb", models.TypeDeb, models.FamilyUbuntu, "20.04", models.ArchAmd64),
		mkPackage("foo", "1.0", "foo_1.0_ubuntu24.04_amd64.deb", models.TypeDeb, models.FamilyUbuntu, "24.04", models.ArchAmd64),
	}

	target := models.NewDist(models.FamilyUbuntu, "22.04")
	selected := Select(candidates, target)

	if len(selected) != 1 {
		t.Fatalf("expected exactly one selected package, got %d", len(selected))
	}
	if selected[0].FileName() != "foo_1.0_ubuntu20.04_amd64.deb" {
		t.Fatalf("expected the 20.04 build (closest lower-or-equal to 22.04), got %s", selected[0].FileName())
	}
}

func TestSelectFallsBackToDistroAgnosticWhenNoFamilyMatch(t *testing.T) {
	candidates := []pkgobject.Package{
		mkPackage("foo", "1.0", "foo_1.0_amd64.deb", models.TypeDeb, models.FamilyUnknown, "", models.ArchAmd64),
	}

	target := models.NewDist(models.FamilyDebian, "12")
	selected := Select(candidates, target)

	if len(selected) != 1 {
		t.Fatalf("expected the distro-agnostic package to be selected, got %d results", len(selected))
	}
}

func TestSelectDropsIncompatibleTypes(t *testing.T) {
	candidates := []pkgobject.Package{
		mkPackage("foo", "1.0", "foo-1.0.fc40.x86_64.rpm", models.TypeRpm, models.FamilyFedora, "40", models.ArchAmd64),
	}

	target := models.NewDist(models.FamilyUbuntu, "22.04")
	selected := Select(candidates, target)

	if len(selected) != 0 {
		t.Fatalf("expected no rpm packages selected for an ubuntu target, got %d", len(selected))
	}
}

func TestSelectPicksHighestPerNameAndArch(t *testing.T) {
	candidates := []pkgobject.Package{
		mkPackage("foo", "1.0", "foo_1.0_ubuntu18.04_amd64.deb", models.TypeDeb, models.FamilyUbuntu, "18.04", models.ArchAmd64),
		mkPackage("foo", "1.0", "foo_1.0_ubuntu20.04_amd64.deb", models.TypeDeb, models.FamilyUbuntu, "20.04", models.ArchAmd64),
		mkPackage("foo", "1.0", "foo_1.0_ubuntu18.04_arm64.deb", models.TypeDeb, models.FamilyUbuntu, "18.04", models.ArchArm64),
	}

	target := models.NewDist(models.FamilyUbuntu, "24.04")
	selected := Select(candidates, target)

	if len(selected) != 2 {
		t.Fatalf("expected one result per architecture, got %d", len(selected))
	}
}
