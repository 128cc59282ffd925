// Package classify implements the filename-driven package identity
// classifier: given an asset filename it infers package type, distribution
// family/version, architecture and display name without touching the
// package bytes.
package classify

import (
	"regexp"
	"strings"

	"github.com/ralt/pkgrelay/internal/models"
)

var archPattern = regexp.MustCompile(`(?i)x86_64|amd64|aarch64|arm64|armhf|armv6l|armv7l|armv7|ppc64le|riscv64|s390x`)

var ubuntuCodenames = map[string]string{
	"precise": "12.04",
	"trusty":  "14.04",
	"xenial":  "16.04",
	"bionic":  "18.04",
	"focal":   "20.04",
	"jammy":   "22.04",
	"lunar":   "23.04",
	"mantic":  "23.10",
	"noble":   "24.04",
}

var (
	fcPattern        = regexp.MustCompile(`(?i)fc(\d+)`)
	fedoraPattern    = regexp.MustCompile(`(?i)fedora(?:-?(\d+))?`)
	lpPattern        = regexp.MustCompile(`(?i)lp(\d+\.\d+)`)
	leapPattern      = regexp.MustCompile(`(?i)opensuse-leap(?:-(\d+\.\d+))?`)
	debianPattern    = regexp.MustCompile(`(?i)debian(?:-?(\d+))?`)
	ubuntuVerPattern = regexp.MustCompile(`(?i)ubuntu-?(\d+\.\d+)`)
	ubuntuCdPattern  = regexp.MustCompile(`(?i)ubuntu-?(precise|trusty|xenial|bionic|focal|jammy|lunar|mantic|noble)`)
	tumbleweedPat    = regexp.MustCompile(`(?i)tw|tumbleweed|suse`)
)

// Identity is the result of classifying a filename.
type Identity struct {
	Type Type
	Dist *models.Dist
	Arch models.Arch
	Name string
}

// Type mirrors models.Type but keeps the classifier self-contained for the
// Unsupported case (a filename that is neither .deb nor .rpm).
type Type = models.Type

// ErrUnsupported is a subject-less example of the error kind used for
// filenames that aren't .deb or .rpm. Classify itself returns a new
// GatewayError of the same kind (ErrUnknownFilename) carrying the filename,
// not this value.
var ErrUnsupported = models.Wrap(models.ErrUnknownFilename, "", errUnsupported{})

type errUnsupported struct{}

func (errUnsupported) Error() string { return "unsupported package filename" }

// Classify implements spec.md §4.1.
func Classify(filename string) (Identity, error) {
	var ext string
	var tipe Type
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".deb"):
		ext = ".deb"
		tipe = models.TypeDeb
	case strings.HasSuffix(strings.ToLower(filename), ".rpm"):
		ext = ".rpm"
		tipe = models.TypeRpm
	default:
		return Identity{}, models.Wrap(models.ErrUnknownFilename, filename, errUnsupported{})
	}

	stem := filename[:len(filename)-len(ext)]

	name := extractName(stem)
	arch := extractArch(stem)
	dist := extractDist(strings.TrimPrefix(stem, name))

	return Identity{Type: tipe, Dist: dist, Arch: arch, Name: name}, nil
}

// extractName takes the greedy prefix up to the first hyphen-or-underscore
// separated version token (leading "v" optional).
func extractName(stem string) string {
	tokens := splitKeepSeps(stem)
	var b strings.Builder
	for i := 0; i < len(tokens); i += 2 {
		tok := tokens[i]
		if isVersionToken(tok) {
			break
		}
		if i > 0 {
			b.WriteString(tokens[i-1])
		}
		b.WriteString(tok)
	}
	out := b.String()
	if out == "" {
		return stem
	}
	return out
}

// splitKeepSeps splits s on '-'/'_' while keeping the separators so the
// caller can reassemble the original prefix exactly.
func splitKeepSeps(s string) []string {
	var parts []string
	start := 0
	for i, r := range s {
		if r == '-' || r == '_' {
			parts = append(parts, s[start:i], string(r))
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func isVersionToken(tok string) bool {
	t := strings.TrimPrefix(tok, "v")
	if t == "" {
		return false
	}
	return t[0] >= '0' && t[0] <= '9'
}

func extractArch(stem string) models.Arch {
	m := archPattern.FindString(stem)
	if m == "" {
		return models.ArchAmd64
	}
	a, ok := models.ParseArch(m)
	if !ok {
		return models.ArchAmd64
	}
	return a
}

// extractDist runs the ordered pattern table from spec.md §4.1 against the
// filename with the name prefix stripped, to reduce false positives.
func extractDist(rest string) *models.Dist {
	if m := fcPattern.FindStringSubmatch(rest); m != nil {
		d := models.NewDist(models.FamilyFedora, m[1])
		return &d
	}
	if m := fedoraPattern.FindStringSubmatch(rest); m != nil {
		d := models.NewDist(models.FamilyFedora, m[1])
		return &d
	}
	if m := lpPattern.FindStringSubmatch(rest); m != nil {
		d := models.NewDist(models.FamilyLeap, m[1])
		return &d
	}
	if m := leapPattern.FindStringSubmatch(rest); m != nil {
		d := models.NewDist(models.FamilyLeap, m[1])
		return &d
	}
	if m := debianPattern.FindStringSubmatch(rest); m != nil {
		d := models.NewDist(models.FamilyDebian, m[1])
		return &d
	}
	if m := ubuntuVerPattern.FindStringSubmatch(rest); m != nil {
		d := models.NewDist(models.FamilyUbuntu, m[1])
		return &d
	}
	if m := ubuntuCdPattern.FindStringSubmatch(rest); m != nil {
		ver := ubuntuCodenames[strings.ToLower(m[1])]
		d := models.NewDist(models.FamilyUbuntu, ver)
		return &d
	}
	if tumbleweedPat.MatchString(rest) {
		d := models.NewDist(models.FamilyTumbleweed, "")
		return &d
	}
	return nil
}
