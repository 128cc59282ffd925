// Package platform maps apt/dnf/zypper user-agent strings to concrete
// distribution identities (spec.md §4.2). The apt↔distro table is built
// once at startup from an external version catalog and never mutated
// afterward.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/ralt/pkgrelay/internal/models"
)

var (
	preReleaseStripper = regexp.MustCompile(`(\d+)\D`)
	aptVersionPattern  = regexp.MustCompile(`Debian APT.+\((.+)\)`)
	fedoraPattern      = regexp.MustCompile(`libdnf \(Fedora Linux (\d+);`)
	tumbleweedPattern  = regexp.MustCompile(`ZYpp.+openSUSE-Tumbleweed`)
)

// Detector holds the apt-version-to-distribution tables built at startup.
type Detector struct {
	ubuntu map[string]*semver.Constraints // requirement string -> constraint
	ubuntuVer map[string]string           // requirement string -> distro version
	debian    map[string]*semver.Constraints
	debianVer map[string]string
}

// catalogEntry mirrors the shape of the repology apt-project catalog this
// gateway consumes to learn which apt client version ships with which
// Ubuntu/Debian release.
type catalogEntry struct {
	Repo    string `json:"repo"`
	Version string `json:"version"`
}

// Initialize fetches the external apt-version catalog and builds the
// closed-interval version requirements per release, exactly as spec.md
// §4.2 describes. The HTTP client is injected so tests can serve a fixture
// instead of hitting the network.
func Initialize(ctx context.Context, client *http.Client, catalogURL string) (*Detector, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, catalogURL, nil)
	if err != nil {
		return nil, models.Wrap(models.ErrUnknownDistribution, "apt catalog", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, models.Wrap(models.ErrUnknownDistribution, "apt catalog", err)
	}
	defer resp.Body.Close()

	var entries []catalogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, models.Wrap(models.ErrUnknownDistribution, "apt catalog", err)
	}

	versionsByRelease := make(map[string]map[string]*semver.Version)
	for _, e := range entries {
		if !strings.HasPrefix(e.Repo, "ubuntu") && !strings.HasPrefix(e.Repo, "debian") {
			continue
		}
		repo := strings.TrimSuffix(e.Repo, "_proposed")
		v, err := semver.NewVersion(normalizeAptVersion(e.Version))
		if err != nil {
			continue
		}
		v = freshVersion(v)
		if versionsByRelease[repo] == nil {
			versionsByRelease[repo] = make(map[string]*semver.Version)
		}
		versionsByRelease[repo][v.Original()] = v
	}

	d := &Detector{
		ubuntu:    make(map[string]*semver.Constraints),
		ubuntuVer: make(map[string]string),
		debian:    make(map[string]*semver.Constraints),
		debianVer: make(map[string]string),
	}

	for repo, set := range versionsByRelease {
		vs := make([]*semver.Version, 0, len(set))
		for _, v := range set {
			vs = append(vs, v)
		}
		sortVersions(vs)

		var requirement string
		if len(vs) > 1 {
			requirement = fmt.Sprintf(">=%s, <=%s", vs[0].Original(), vs[len(vs)-1].Original())
		} else {
			requirement = fmt.Sprintf("=%s", vs[0].Original())
		}
		constraint, err := semver.NewConstraint(requirement)
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(repo, "ubuntu_"):
			ver := strings.ReplaceAll(strings.TrimPrefix(repo, "ubuntu_"), "_", ".")
			d.ubuntu[requirement] = constraint
			d.ubuntuVer[requirement] = ver
		case strings.HasPrefix(repo, "debian_"):
			ver := strings.TrimPrefix(repo, "debian_")
			d.debian[requirement] = constraint
			d.debianVer[requirement] = ver
		}
	}

	return d, nil
}

func sortVersions(vs []*semver.Version) {
	for i := 1; i < len(vs); i++ {
		for j := i; j > 0 && vs[j-1].Compare(vs[j]) > 0; j-- {
			vs[j-1], vs[j] = vs[j], vs[j-1]
		}
	}
}

// normalizeAptVersion turns a raw apt/dnf version string into something
// strict semver can parse. Real apt versions routinely carry a non-numeric
// patch suffix (e.g. "2.7.14build2", "1.0.1ubuntu2.24") that semver.NewVersion
// rejects outright. Mirroring lenient_semver's behavior, anything after the
// second dot that isn't purely numeric becomes the patch's prerelease field
// instead, leaving freshVersion to recover the real patch number from it.
func normalizeAptVersion(raw string) string {
	parts := strings.SplitN(raw, ".", 3)
	major := parts[0]
	minor := "0"
	if len(parts) > 1 {
		minor = parts[1]
	}
	if len(parts) < 3 || parts[2] == "" {
		return fmt.Sprintf("%s.%s.0", major, minor)
	}
	patchRest := parts[2]
	if isDigits(patchRest) {
		return fmt.Sprintf("%s.%s.%s", major, minor, patchRest)
	}
	return fmt.Sprintf("%s.%s.0-%s", major, minor, patchRest)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// freshVersion moves erroneously-parsed pre-release noise (e.g.
// "1.0.1ubuntu2.24" parses with semver's patch mangled) into the patch
// component.
func freshVersion(v *semver.Version) *semver.Version {
	pre := v.Prerelease()
	if pre == "" {
		return v
	}
	m := preReleaseStripper.FindStringSubmatch(pre)
	if m == nil {
		return v
	}
	fixed, err := semver.NewVersion(fmt.Sprintf("%d.%d.%s", v.Major(), v.Minor(), m[1]))
	if err != nil {
		return v
	}
	return fixed
}

func getAptVersion(agent string) (string, bool) {
	m := aptVersionPattern.FindStringSubmatch(agent)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// DetectUbuntu implements detect_apt for the Ubuntu family.
func (d *Detector) DetectUbuntu(agent string) models.Dist {
	ver, ok := getAptVersion(agent)
	if !ok {
		return models.Dist{Family: models.FamilyUbuntu}
	}
	apt, err := semver.NewVersion(normalizeAptVersion(ver))
	if err != nil {
		return models.Dist{Family: models.FamilyUbuntu}
	}
	apt = freshVersion(apt)

	for req, constraint := range d.ubuntu {
		if constraint.Check(apt) {
			return models.NewDist(models.FamilyUbuntu, d.ubuntuVer[req])
		}
	}
	return models.Dist{Family: models.FamilyUbuntu}
}

// DetectDebian implements detect_apt for the Debian family.
func (d *Detector) DetectDebian(agent string) models.Dist {
	ver, ok := getAptVersion(agent)
	if !ok {
		return models.Dist{Family: models.FamilyDebian}
	}
	apt, err := semver.NewVersion(normalizeAptVersion(ver))
	if err != nil {
		return models.Dist{Family: models.FamilyDebian}
	}
	apt = freshVersion(apt)

	for req, constraint := range d.debian {
		if constraint.Check(apt) {
			return models.NewDist(models.FamilyDebian, d.debianVer[req])
		}
	}
	return models.Dist{Family: models.FamilyDebian}
}

// DetectFedora implements detect_fedora.
func DetectFedora(agent string) (models.Dist, bool) {
	m := fedoraPattern.FindStringSubmatch(agent)
	if m == nil {
		return models.Dist{}, false
	}
	return models.NewDist(models.FamilyFedora, m[1]), true
}

// DetectRPM implements detect_rpm: Fedora match wins, else Tumbleweed, else unknown.
func DetectRPM(agent string) (models.Dist, bool) {
	if d, ok := DetectFedora(agent); ok {
		return d, true
	}
	if tumbleweedPattern.MatchString(agent) {
		return models.Dist{Family: models.FamilyTumbleweed}, true
	}
	return models.Dist{}, false
}
