// Package script renders the small shell scripts served at
// GET /sh/{ubuntu|debian|yum|zypp}/github/{owner}/{repo}, which point an
// apt/yum/zypper client at this gateway's own repository routes
// (spec.md §4, "SUPPLEMENTED FEATURES").
package script

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/ralt/pkgrelay/internal/models"
)

// Version selects which generation of the RPM script syntax to render.
// V1 predates the channel-aware v2 URL surface and always targets stable.
type Version int

const (
	V2 Version = iota
	V1
)

// ParseVersion accepts "v1"/"v2", defaulting to V2 for anything else.
func ParseVersion(s string) Version {
	if s == "v1" {
		return V1
	}
	return V2
}

var aptScriptTemplate = template.Must(template.New("apt").Parse(`#!/bin/sh
set -e

curl -fsSL https://{{.Host}}/v1/keys/packhub.asc | sudo gpg --dearmor -o /usr/share/keyrings/packhub-{{.Owner}}-{{.Repo}}.gpg

echo "deb [signed-by=/usr/share/keyrings/packhub-{{.Owner}}-{{.Repo}}.gpg] https://{{.Host}}/v2/apt/{{.Distro}}/github/{{.Owner}}/{{.Repo}} {{.Channel}} main" | sudo tee /etc/apt/sources.list.d/{{.Owner}}-{{.Repo}}.list

sudo apt-get update
`))

// AptScript renders the apt/debian onboarding script for distro (ubuntu or
// debian), the exact concern original_source/src/script/apt.rs covers.
func AptScript(host, distro, owner, repo string, channel models.ReleaseChannel) (string, error) {
	var buf bytes.Buffer
	err := aptScriptTemplate.Execute(&buf, struct {
		Host, Distro, Owner, Repo, Channel string
	}{host, distro, owner, repo, channel.String()})
	if err != nil {
		return "", models.Wrap(models.ErrRenderFailed, "apt script", err)
	}
	return buf.String(), nil
}

var rpmScriptTemplate = template.Must(template.New("rpm").Parse(`#!/bin/sh
set -e

sudo rpm --import https://{{.Host}}/v1/keys/packhub.asc
sudo tee /etc/{{.Mgr}}/{{.RepoName}}.repo > /dev/null <<EOF
[{{.RepoName}}]
name={{.Name}}
baseurl={{.BaseURL}}
enabled=1
gpgcheck=1
gpgkey=https://{{.Host}}/v1/keys/packhub.asc
EOF
`))

// RPMScript renders the yum/zypper onboarding script. mgr is the config
// directory name ("yum.repos.d" or "zypp/repos.d"); ver V1 always targets
// the v1 URL surface, whose base URL carries no channel. The channel still
// picks the repo id and name ("-unstable" suffix) for both versions.
func RPMScript(host, owner, repo, mgr string, ver Version, channel models.ReleaseChannel) (string, error) {
	repoName := repo
	name := repo
	if channel == models.ChannelUnstable {
		repoName = repo + "-unstable"
		name = repo + " (unstable)"
	}

	var baseURL string
	if ver == V1 {
		baseURL = fmt.Sprintf("https://%s/v1/rpm/github/%s/%s", host, owner, repo)
	} else {
		baseURL = fmt.Sprintf("https://%s/v2/rpm/github/%s/%s/%s", host, owner, repo, channel)
	}

	var buf bytes.Buffer
	err := rpmScriptTemplate.Execute(&buf, struct {
		Host, Mgr, RepoName, Name, BaseURL string
	}{host, mgr, repoName, name, baseURL})
	if err != nil {
		return "", models.Wrap(models.ErrRenderFailed, "rpm script", err)
	}
	return buf.String(), nil
}

// Generate dispatches on distro, mirroring original_source/src/script/mod.rs's
// script_handler match arms.
func Generate(host, distro, owner, repo string, ver Version, channel models.ReleaseChannel) (string, error) {
	switch distro {
	case "ubuntu", "debian":
		return AptScript(host, distro, owner, repo, channel)
	case "yum":
		return RPMScript(host, owner, repo, "yum.repos.d", ver, channel)
	case "zypp":
		return RPMScript(host, owner, repo, "zypp/repos.d", ver, channel)
	default:
		return "", models.Wrap(models.ErrRouteInput, distro, fmt.Errorf("unsupported distro for script generation"))
	}
}
