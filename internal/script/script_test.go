package script

import (
	"strings"
	"testing"

	"github.com/ralt/pkgrelay/internal/models"
)

func TestAptScriptContainsSourcesEntry(t *testing.T) {
	out, err := AptScript("pkgrelay.example.com", "ubuntu", "acme", "widget", models.ChannelStable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "/v2/apt/ubuntu/github/acme/widget stable main") {
		t.Fatalf("expected a stable main sources entry, got:\n%s", out)
	}
	if !strings.Contains(out, "packhub-acme-widget.gpg") {
		t.Fatalf("expected the keyring path to be scoped to the repo, got:\n%s", out)
	}
}

func TestRPMScriptV1IgnoresChannel(t *testing.T) {
	out, err := RPMScript("pkgrelay.example.com", "acme", "widget", "yum.repos.d", V1, models.ChannelUnstable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "/v1/rpm/github/acme/widget") {
		t.Fatalf("expected the v1 repo URL regardless of channel, got:\n%s", out)
	}
	if strings.Contains(out, "/v2/") {
		t.Fatalf("v1 script must not reference the v2 URL surface, got:\n%s", out)
	}
}

func TestRPMScriptV2UnstableRenamesRepo(t *testing.T) {
	out, err := RPMScript("pkgrelay.example.com", "acme", "widget", "zypp/repos.d", V2, models.ChannelUnstable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "[widget-unstable]") {
		t.Fatalf("expected the unstable repo id, got:\n%s", out)
	}
	if !strings.Contains(out, "/v2/rpm/github/acme/widget/unstable") {
		t.Fatalf("expected the channel-aware v2 base URL, got:\n%s", out)
	}
}

func TestGenerateRejectsUnsupportedDistro(t *testing.T) {
	_, err := Generate("pkgrelay.example.com", "arch", "acme", "widget", V2, models.ChannelStable)
	if err == nil {
		t.Fatalf("expected an error for an unsupported distro")
	}
}

func TestParseVersionDefaultsToV2(t *testing.T) {
	if ParseVersion("") != V2 {
		t.Fatalf("expected empty string to default to V2")
	}
	if ParseVersion("v1") != V1 {
		t.Fatalf("expected \"v1\" to parse as V1")
	}
}
