package apt

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ralt/pkgrelay/internal/models"
	"github.com/ralt/pkgrelay/internal/pkgobject"
	"github.com/ralt/pkgrelay/internal/utils"
)

// Indices buckets parsed Debian packages by architecture and tracks the
// newest creation date seen, the two pieces of state the Release index
// needs (spec.md §4.7).
type Indices struct {
	byArch  map[models.Arch][]*DebianPackage
	arches  []models.Arch
	date    time.Time
	channel models.ReleaseChannel
}

// NewIndices parses every package and groups the results by architecture.
// Packages whose control file can't be parsed, or whose Architecture field
// is missing, are logged by the caller and skipped here.
func NewIndices(packages []pkgobject.Package, channel models.ReleaseChannel) (*Indices, []error) {
	idx := &Indices{byArch: make(map[models.Arch][]*DebianPackage), channel: channel}
	var errs []error

	for _, p := range packages {
		if p.CreationDate().After(idx.date) {
			idx.date = p.CreationDate()
		}

		deb, err := FromPackage(p, channel)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		arch, ok := deb.Arch()
		if !ok {
			errs = append(errs, models.Wrap(models.ErrParseFailed, p.FileName(), fmt.Errorf("architecture field missing from control")))
			continue
		}
		if _, seen := idx.byArch[arch]; !seen {
			idx.arches = append(idx.arches, arch)
		}
		idx.byArch[arch] = append(idx.byArch[arch], deb)
	}

	sort.Slice(idx.arches, func(i, j int) bool { return idx.arches[i].String() < idx.arches[j].String() })
	return idx, errs
}

// Architectures lists the architectures this set of packages covers.
func (idx *Indices) Architectures() []models.Arch { return idx.arches }

// PackageIndex renders the Packages file for one architecture: each
// package's control stanza followed by the Filename/Size/checksum fields
// APT clients expect, stanzas separated by a blank line.
func (idx *Indices) PackageIndex(arch models.Arch) string {
	debs := idx.byArch[arch]
	stanzas := make([]string, 0, len(debs))
	for _, deb := range debs {
		var b strings.Builder
		b.WriteString(deb.Control)
		b.WriteString("\n")
		fmt.Fprintf(&b, "Filename: %s\n", deb.Filename)
		fmt.Fprintf(&b, "Size: %d\n", deb.Size)
		fmt.Fprintf(&b, "MD5sum: %s\n", deb.MD5)
		fmt.Fprintf(&b, "SHA1: %s\n", deb.SHA1)
		fmt.Fprintf(&b, "SHA256: %s\n", deb.SHA256)
		fmt.Fprintf(&b, "SHA512: %s\n", deb.SHA512)
		stanzas = append(stanzas, b.String())
	}
	return strings.TrimSpace(strings.Join(stanzas, "\n"))
}

type releaseFile struct {
	md5, sha1, sha256, sha512 string
	size                      int
	path                      string
}

// ReleaseIndex renders the top-level Release file: a fixed Origin/Label,
// the newest package creation date in RFC 2822, and the checksum table
// over every per-architecture Packages and Packages.gz file.
func (idx *Indices) ReleaseIndex() string {
	const name = ". stable"

	var files []releaseFile
	for _, arch := range idx.arches {
		plain := []byte(idx.PackageIndex(arch))
		gz, err := utils.GzipCompress(plain)
		if err != nil {
			continue
		}

		plainDigests := utils.CalculateDigests(plain)
		gzDigests := utils.CalculateDigests(gz)

		files = append(files,
			releaseFile{
				md5: plainDigests.MD5, sha1: plainDigests.SHA1, sha256: plainDigests.SHA256, sha512: plainDigests.SHA512,
				size: plainDigests.Size, path: fmt.Sprintf("main/binary-%s/Packages", arch),
			},
			releaseFile{
				md5: gzDigests.MD5, sha1: gzDigests.SHA1, sha256: gzDigests.SHA256, sha512: gzDigests.SHA512,
				size: gzDigests.Size, path: fmt.Sprintf("main/binary-%s/Packages.gz", arch),
			},
		)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })

	var b strings.Builder
	fmt.Fprintf(&b, "Origin: %s\n", name)
	fmt.Fprintf(&b, "Label: %s\n", name)
	fmt.Fprintf(&b, "Suite: %s\n", idx.channel)
	fmt.Fprintf(&b, "Date: %s\n", idx.date.UTC().Format(time.RFC1123Z))

	b.WriteString("MD5Sum:\n")
	for _, f := range files {
		fmt.Fprintf(&b, " %s %d %s\n", f.md5, f.size, f.path)
	}
	b.WriteString("SHA1:\n")
	for _, f := range files {
		fmt.Fprintf(&b, " %s %d %s\n", f.sha1, f.size, f.path)
	}
	b.WriteString("SHA256:\n")
	for _, f := range files {
		fmt.Fprintf(&b, " %s %d %s\n", f.sha256, f.size, f.path)
	}
	b.WriteString("SHA512:\n")
	for _, f := range files {
		fmt.Fprintf(&b, " %s %d %s\n", f.sha512, f.size, f.path)
	}

	return b.String()
}
