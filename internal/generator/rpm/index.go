package rpm

import (
	"encoding/xml"
	"fmt"
	"sort"

	"github.com/ralt/pkgrelay/internal/models"
	"github.com/ralt/pkgrelay/internal/pkgobject"
	"github.com/ralt/pkgrelay/internal/utils"
)

// Indices holds every parsed RPM for one version/arch bucket, the unit the
// RPM repository metadata (primary/filelists/other/repomd) is rendered
// over (spec.md §4.8).
type Indices struct {
	packages []*Package
	channel  models.ReleaseChannel

	primary, filelists, other Metadata
	repomd                    []byte
	rendered                  bool
}

// NewIndices parses every package in the bucket, skipping (and returning)
// any that fail to parse.
func NewIndices(packages []pkgobject.Package, channel models.ReleaseChannel) (*Indices, []error) {
	idx := &Indices{channel: channel}
	var errs []error
	for _, p := range packages {
		pkg, err := FromPackage(p, channel)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		idx.packages = append(idx.packages, pkg)
	}
	sort.Slice(idx.packages, func(i, j int) bool { return idx.packages[i].Location < idx.packages[j].Location })
	return idx, errs
}

// Metadata is a rendered document plus the checksums/sizes repomd.xml needs
// for both its zstd-compressed form and the uncompressed form underneath.
type Metadata struct {
	Compressed   []byte
	SHA256       string
	OpenSHA256   string
	Size         int
	OpenSize     int
}

func newMetadata(data []byte) (Metadata, error) {
	compressed, err := utils.ZstdCompress(data)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		Compressed: compressed,
		SHA256:     utils.SHA256Hex(compressed),
		OpenSHA256: utils.SHA256Hex(data),
		Size:       len(compressed),
		OpenSize:   len(data),
	}, nil
}

type primaryDoc struct {
	XMLName       xml.Name       `xml:"http://linux.duke.edu/metadata/common metadata"`
	XmlnsRpm      string         `xml:"xmlns:rpm,attr"`
	PackagesCount int            `xml:"packages,attr"`
	Packages      []primaryEntry `xml:"package"`
}

type primaryEntry struct {
	Type     string          `xml:"type,attr"`
	Name     string          `xml:"name"`
	Arch     string          `xml:"arch"`
	Version  primaryVersion  `xml:"version"`
	Checksum primaryChecksum `xml:"checksum"`
	Summary  string          `xml:"summary"`
	Desc     string          `xml:"description,omitempty"`
	Packager string          `xml:"packager,omitempty"`
	URL      string          `xml:"url,omitempty"`
	Time     primaryTime     `xml:"time"`
	Size     primarySize     `xml:"size"`
	Location primaryLocation `xml:"location"`
	Format   primaryFormat   `xml:"format"`
}

type primaryVersion struct {
	Epoch string `xml:"epoch,attr"`
	Ver   string `xml:"ver,attr"`
	Rel   string `xml:"rel,attr"`
}

type primaryChecksum struct {
	Type  string `xml:"type,attr"`
	Pkgid string `xml:"pkgid,attr"`
	Value string `xml:",chardata"`
}

type primaryTime struct {
	File  int64 `xml:"file,attr"`
	Build int64 `xml:"build,attr"`
}

type primarySize struct {
	Package   int   `xml:"package,attr"`
	Installed int64 `xml:"installed,attr"`
	Archive   int64 `xml:"archive,attr"`
}

type primaryLocation struct {
	Href string `xml:"href,attr"`
}

type primaryFormat struct {
	License  string            `xml:"rpm:license,omitempty"`
	Vendor   string            `xml:"rpm:vendor,omitempty"`
	Group    string            `xml:"rpm:group,omitempty"`
	Provides entryRequirements `xml:"rpm:provides"`
	Requires entryRequirements `xml:"rpm:requires"`
}

type entryRequirements struct {
	Entries []entryEntry `xml:"rpm:entry"`
}

type entryEntry struct {
	Name  string `xml:"name,attr"`
	Flags string `xml:"flags,attr,omitempty"`
	Ver   string `xml:"ver,attr,omitempty"`
}

func toEntries(reqs []Requirement) entryRequirements {
	entries := make([]entryEntry, 0, len(reqs))
	for _, r := range reqs {
		entries = append(entries, entryEntry{Name: r.Name, Flags: r.Condition, Ver: r.Version})
	}
	return entryRequirements{Entries: entries}
}

// PrimaryXML renders primary.xml (uncompressed) for the current bucket.
func (idx *Indices) PrimaryXML() ([]byte, error) {
	doc := primaryDoc{XmlnsRpm: "http://linux.duke.edu/metadata/rpm", PackagesCount: len(idx.packages)}
	for _, p := range idx.packages {
		doc.Packages = append(doc.Packages, primaryEntry{
			Type:     "rpm",
			Name:     p.Name,
			Arch:     p.Arch,
			Version:  primaryVersion{Epoch: fmt.Sprintf("%d", p.Epoch), Ver: p.Version, Rel: p.Release},
			Checksum: primaryChecksum{Type: "sha256", Pkgid: "YES", Value: p.SHA256},
			Summary:  p.Summary,
			Desc:     p.Description,
			Packager: p.Vendor,
			URL:      p.URL,
			Time:     primaryTime{File: p.PkgTime, Build: p.BuildTime},
			Size:     primarySize{Package: p.PkgSize, Installed: p.InstalledSize, Archive: p.ArchiveSize},
			Location: primaryLocation{Href: p.Location},
			Format: primaryFormat{
				License:  p.License,
				Vendor:   p.Vendor,
				Group:    p.Group,
				Provides: toEntries(p.Provides),
				Requires: toEntries(p.Requires),
			},
		})
	}
	return marshal(doc)
}

type filelistsDoc struct {
	XMLName       xml.Name         `xml:"http://linux.duke.edu/metadata/filelists filelists"`
	PackagesCount int              `xml:"packages,attr"`
	Packages      []filelistsEntry `xml:"package"`
}

type filelistsEntry struct {
	PkgID   string              `xml:"pkgid,attr"`
	Name    string              `xml:"name,attr"`
	Arch    string              `xml:"arch,attr"`
	Version primaryVersion      `xml:"version"`
	Files   []filelistsFileNode `xml:"file"`
}

type filelistsFileNode struct {
	Type string `xml:"type,attr,omitempty"`
	Path string `xml:",chardata"`
}

// FilelistsXML renders filelists.xml (uncompressed) for the current bucket.
func (idx *Indices) FilelistsXML() ([]byte, error) {
	doc := filelistsDoc{PackagesCount: len(idx.packages)}
	for _, p := range idx.packages {
		entry := filelistsEntry{
			PkgID:   p.SHA256,
			Name:    p.Name,
			Arch:    p.Arch,
			Version: primaryVersion{Epoch: fmt.Sprintf("%d", p.Epoch), Ver: p.Version, Rel: p.Release},
		}
		for _, f := range p.Files {
			node := filelistsFileNode{Path: f.Path}
			if f.IsDir {
				node.Type = "dir"
			}
			entry.Files = append(entry.Files, node)
		}
		doc.Packages = append(doc.Packages, entry)
	}
	return marshal(doc)
}

type otherDoc struct {
	XMLName       xml.Name    `xml:"http://linux.duke.edu/metadata/other otherdata"`
	PackagesCount int         `xml:"packages,attr"`
	Packages      []otherEntry `xml:"package"`
}

type otherEntry struct {
	PkgID   string         `xml:"pkgid,attr"`
	Name    string         `xml:"name,attr"`
	Arch    string         `xml:"arch,attr"`
	Version primaryVersion `xml:"version"`
}

// OtherXML renders other.xml (uncompressed) for the current bucket. The
// gateway never ingests changelog data from upstream releases, so the
// changelog list this format normally carries stays empty.
func (idx *Indices) OtherXML() ([]byte, error) {
	doc := otherDoc{PackagesCount: len(idx.packages)}
	for _, p := range idx.packages {
		doc.Packages = append(doc.Packages, otherEntry{
			PkgID:   p.SHA256,
			Name:    p.Name,
			Arch:    p.Arch,
			Version: primaryVersion{Epoch: fmt.Sprintf("%d", p.Epoch), Ver: p.Version, Rel: p.Release},
		})
	}
	return marshal(doc)
}

type repomdDoc struct {
	XMLName  xml.Name        `xml:"http://linux.duke.edu/metadata/repo repomd"`
	Revision int64           `xml:"revision"`
	Data     []repomdDataTag `xml:"data"`
}

type repomdDataTag struct {
	Type         string         `xml:"type,attr"`
	Checksum     repomdChecksum `xml:"checksum"`
	OpenChecksum repomdChecksum `xml:"open-checksum"`
	Location     repomdLocation `xml:"location"`
	Timestamp    int64          `xml:"timestamp"`
	Size         int            `xml:"size"`
	OpenSize     int            `xml:"open-size"`
}

type repomdChecksum struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type repomdLocation struct {
	Href string `xml:"href,attr"`
}

// render computes and caches the three compressed documents and repomd.xml,
// so callers can fetch any one of the four without redoing the others.
func (idx *Indices) render() error {
	if idx.rendered {
		return nil
	}

	primary, err := idx.PrimaryXML()
	if err != nil {
		return err
	}
	filelists, err := idx.FilelistsXML()
	if err != nil {
		return err
	}
	other, err := idx.OtherXML()
	if err != nil {
		return err
	}

	idx.primary, err = newMetadata(primary)
	if err != nil {
		return err
	}
	idx.filelists, err = newMetadata(filelists)
	if err != nil {
		return err
	}
	idx.other, err = newMetadata(other)
	if err != nil {
		return err
	}

	var revision int64
	for _, p := range idx.packages {
		if p.PkgTime > revision {
			revision = p.PkgTime
		}
	}

	doc := repomdDoc{
		Revision: revision,
		Data: []repomdDataTag{
			repomdEntry("primary", "repodata/primary.xml.zst", idx.primary, revision),
			repomdEntry("filelists", "repodata/filelists.xml.zst", idx.filelists, revision),
			repomdEntry("other", "repodata/other.xml.zst", idx.other, revision),
		},
	}
	repomd, err := marshal(doc)
	if err != nil {
		return err
	}
	idx.repomd = repomd
	idx.rendered = true
	return nil
}

// RepoMDXML renders repomd.xml, the index of the three zstd-compressed
// documents, timestamped with the newest pkg_time across the bucket.
func (idx *Indices) RepoMDXML() ([]byte, error) {
	if err := idx.render(); err != nil {
		return nil, err
	}
	return idx.repomd, nil
}

// PrimaryCompressed returns the zstd-compressed primary.xml.zst payload.
func (idx *Indices) PrimaryCompressed() ([]byte, error) {
	if err := idx.render(); err != nil {
		return nil, err
	}
	return idx.primary.Compressed, nil
}

// FilelistsCompressed returns the zstd-compressed filelists.xml.zst payload.
func (idx *Indices) FilelistsCompressed() ([]byte, error) {
	if err := idx.render(); err != nil {
		return nil, err
	}
	return idx.filelists.Compressed, nil
}

// OtherCompressed returns the zstd-compressed other.xml.zst payload.
func (idx *Indices) OtherCompressed() ([]byte, error) {
	if err := idx.render(); err != nil {
		return nil, err
	}
	return idx.other.Compressed, nil
}

func repomdEntry(kind, href string, meta Metadata, timestamp int64) repomdDataTag {
	return repomdDataTag{
		Type:         kind,
		Checksum:     repomdChecksum{Type: "sha256", Value: meta.SHA256},
		OpenChecksum: repomdChecksum{Type: "sha256", Value: meta.OpenSHA256},
		Location:     repomdLocation{Href: href},
		Timestamp:    timestamp,
		Size:         meta.Size,
		OpenSize:     meta.OpenSize,
	}
}

func marshal(v interface{}) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
