package models

import "testing"

func TestDistCompareOrdersByVersionWithinFamily(t *testing.T) {
	older := NewDist(FamilyUbuntu, "18.04")
	newer := NewDist(FamilyUbuntu, "22.04")

	if older.Compare(newer) >= 0 {
		t.Fatalf("expected 18.04 to compare less than 22.04")
	}
	if newer.Compare(older) <= 0 {
		t.Fatalf("expected 22.04 to compare greater than 18.04")
	}
	if older.Compare(older) != 0 {
		t.Fatalf("expected equal versions to compare equal")
	}
}

func TestDistCompareNoneIsLessThanSome(t *testing.T) {
	unversioned := Dist{Family: FamilyTumbleweed}
	versioned := NewDist(FamilyTumbleweed, "1.0")

	if unversioned.Compare(versioned) >= 0 {
		t.Fatalf("expected an unversioned dist to compare less than a versioned one")
	}
}

func TestTypeCompatibleWith(t *testing.T) {
	if !TypeDeb.CompatibleWith(FamilyUbuntu) {
		t.Fatalf("expected deb to be compatible with ubuntu")
	}
	if TypeDeb.CompatibleWith(FamilyFedora) {
		t.Fatalf("expected deb to be incompatible with fedora")
	}
	if !TypeRpm.CompatibleWith(FamilyTumbleweed) {
		t.Fatalf("expected rpm to be compatible with tumbleweed")
	}
}

func TestParseArchAcceptsUnameAliases(t *testing.T) {
	arch, ok := ParseArch("x86_64")
	if !ok || arch != ArchAmd64 {
		t.Fatalf("expected x86_64 to alias to amd64, got %v ok=%v", arch, ok)
	}
	if _, ok := ParseArch("nonsense"); ok {
		t.Fatalf("expected an unrecognized architecture to fail")
	}
}

func TestParseReleaseChannel(t *testing.T) {
	if c, ok := ParseReleaseChannel("unstable"); !ok || c != ChannelUnstable {
		t.Fatalf("expected unstable to parse, got %v ok=%v", c, ok)
	}
	if _, ok := ParseReleaseChannel("nightly"); ok {
		t.Fatalf("expected an unrecognized channel to fail")
	}
}
