package models

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// DistFamily is the distribution tag independent of version.
type DistFamily int

const (
	FamilyUnknown DistFamily = iota
	FamilyUbuntu
	FamilyDebian
	FamilyFedora
	FamilyLeap
	FamilyTumbleweed
)

func (f DistFamily) String() string {
	switch f {
	case FamilyUbuntu:
		return "ubuntu"
	case FamilyDebian:
		return "debian"
	case FamilyFedora:
		return "fedora"
	case FamilyLeap:
		return "leap"
	case FamilyTumbleweed:
		return "tumbleweed"
	default:
		return "unknown"
	}
}

// Dist is a distribution identity: a family plus an optional version.
// Tumbleweed has no version dimension.
type Dist struct {
	Family  DistFamily
	Version *semver.Version // nil means unknown/unset
}

func NewDist(family DistFamily, version string) Dist {
	d := Dist{Family: family}
	if version != "" {
		if v, err := semver.NewVersion(version); err == nil {
			d.Version = v
		}
	}
	return d
}

// SameFamily reports whether two distributions share a family, ignoring version.
func (d Dist) SameFamily(o Dist) bool {
	return d.Family == o.Family
}

// Compare provides the total order described in spec.md §3: compare by tag
// then by version, with None < Some(v).
func (d Dist) Compare(o Dist) int {
	if d.Family != o.Family {
		if d.Family < o.Family {
			return -1
		}
		return 1
	}
	switch {
	case d.Version == nil && o.Version == nil:
		return 0
	case d.Version == nil:
		return -1
	case o.Version == nil:
		return 1
	default:
		return d.Version.Compare(o.Version)
	}
}

func (d Dist) String() string {
	if d.Version == nil {
		return d.Family.String()
	}
	return fmt.Sprintf("%s-%s", d.Family, d.Version.Original())
}

// Type is the package container format.
type Type int

const (
	TypeUnknown Type = iota
	TypeDeb
	TypeRpm
)

func (t Type) String() string {
	switch t {
	case TypeDeb:
		return "deb"
	case TypeRpm:
		return "rpm"
	default:
		return "unknown"
	}
}

// CompatibleWith reports whether a package type can be served to a given distribution.
// Deb matches {Ubuntu, Debian}; Rpm matches {Fedora, Leap, Tumbleweed}.
func (t Type) CompatibleWith(family DistFamily) bool {
	switch t {
	case TypeDeb:
		return family == FamilyUbuntu || family == FamilyDebian
	case TypeRpm:
		return family == FamilyFedora || family == FamilyLeap || family == FamilyTumbleweed
	default:
		return false
	}
}

// Arch is a CPU architecture, with Debian wire-naming as its canonical string form.
type Arch int

const (
	ArchAmd64 Arch = iota
	ArchArm64
	ArchArmhf
	ArchArmv7
	ArchAarch64
	ArchPPC64le
	ArchRiscV64
	ArchS390x
)

func (a Arch) String() string {
	switch a {
	case ArchAmd64:
		return "amd64"
	case ArchArm64:
		return "arm64"
	case ArchArmhf:
		return "armhf"
	case ArchArmv7:
		return "armv7"
	case ArchAarch64:
		return "aarch64"
	case ArchPPC64le:
		return "ppc64el"
	case ArchRiscV64:
		return "riscv64"
	case ArchS390x:
		return "s390x"
	default:
		return "unknown"
	}
}

// ParseArch accepts both the Debian wire form and the common uname-style
// aliases seen in release-asset filenames.
func ParseArch(s string) (Arch, bool) {
	switch strings.ToLower(s) {
	case "amd64", "x86_64":
		return ArchAmd64, true
	case "arm64":
		return ArchArm64, true
	case "aarch64":
		return ArchAarch64, true
	case "armhf", "armv6l":
		return ArchArmhf, true
	case "armv7", "armv7l":
		return ArchArmv7, true
	case "ppc64le", "ppc64el":
		return ArchPPC64le, true
	case "riscv64":
		return ArchRiscV64, true
	case "s390x":
		return ArchS390x, true
	default:
		return ArchAmd64, false
	}
}

// ReleaseChannel selects which upstream GitHub release is considered.
type ReleaseChannel int

const (
	ChannelStable ReleaseChannel = iota
	ChannelUnstable
)

func (c ReleaseChannel) String() string {
	if c == ChannelUnstable {
		return "unstable"
	}
	return "stable"
}

func ParseReleaseChannel(s string) (ReleaseChannel, bool) {
	switch strings.ToLower(s) {
	case "stable":
		return ChannelStable, true
	case "unstable":
		return ChannelUnstable, true
	default:
		return ChannelStable, false
	}
}
