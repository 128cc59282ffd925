package platform

import (
	"testing"

	"github.com/Masterminds/semver/v3"
)

func TestDetectFedoraFromUserAgent(t *testing.T) {
	dist, ok := DetectFedora("libdnf (Fedora Linux 40; generic; linux-gnu)")
	if !ok {
		t.Fatalf("expected a fedora match")
	}
	if dist.Family.String() != "fedora" {
		t.Fatalf("expected fedora family, got %v", dist.Family)
	}
	if dist.Version == nil || dist.Version.Original() != "40" {
		t.Fatalf("expected version 40, got %v", dist.Version)
	}
}

func TestDetectRPMFallsBackToTumbleweed(t *testing.T) {
	dist, ok := DetectRPM("ZYpp 17.31.8 (curl 8.4.0) openSUSE-Tumbleweed-DVD-x86_64")
	if !ok {
		t.Fatalf("expected a tumbleweed match")
	}
	if dist.Family.String() != "tumbleweed" {
		t.Fatalf("expected tumbleweed family, got %v", dist.Family)
	}
}

func TestDetectRPMNoMatch(t *testing.T) {
	_, ok := DetectRPM("curl/8.4.0")
	if ok {
		t.Fatalf("expected no match for an unrelated user agent")
	}
}

func TestDetectUbuntuWithEmptyDetectorReturnsBareFamily(t *testing.T) {
	d := &Detector{}

	dist := d.DetectUbuntu("Debian APT-HTTP/1.3 (2.4.13)")
	if dist.Family.String() != "ubuntu" {
		t.Fatalf("expected ubuntu family, got %v", dist.Family)
	}
	if dist.Version != nil {
		t.Fatalf("expected no version match against an empty catalog, got %v", dist.Version)
	}
}

func TestNormalizeAptVersionHandlesNonNumericSuffix(t *testing.T) {
	cases := map[string]string{
		"2.4.13":          "2.4.13",
		"2.7.14build2":    "2.7.0-14build2",
		"1.0.1ubuntu2.24": "1.0.0-1ubuntu2.24",
		"2.6.1":           "2.6.1",
		"2":               "2.0.0",
	}
	for in, want := range cases {
		if got := normalizeAptVersion(in); got != want {
			t.Errorf("normalizeAptVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetectUbuntuMatchesBuildSuffixedAptVersion(t *testing.T) {
	constraint, err := semver.NewConstraint("=2.7.14")
	if err != nil {
		t.Fatalf("building constraint: %v", err)
	}
	d := &Detector{
		ubuntu:    map[string]*semver.Constraints{"=2.7.14": constraint},
		ubuntuVer: map[string]string{"=2.7.14": "24.04"},
	}

	dist := d.DetectUbuntu("Debian APT-HTTP/1.3 (2.7.14build2)")
	if dist.Version == nil || dist.Version.Original() != "24.04" {
		t.Fatalf("expected ubuntu 24.04, got %v", dist.Version)
	}
}

func TestDetectDebianMatchesUbuntuStyleSuffixedAptVersion(t *testing.T) {
	constraint, err := semver.NewConstraint("=1.0.1")
	if err != nil {
		t.Fatalf("building constraint: %v", err)
	}
	d := &Detector{
		debian:    map[string]*semver.Constraints{"=1.0.1": constraint},
		debianVer: map[string]string{"=1.0.1": "12"},
	}

	dist := d.DetectDebian("Debian APT-HTTP/1.3 (1.0.1ubuntu2.24)")
	if dist.Version == nil || dist.Version.Original() != "12" {
		t.Fatalf("expected debian 12, got %v", dist.Version)
	}
}
