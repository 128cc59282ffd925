package rpm

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ralt/pkgrelay/internal/models"
	"github.com/ralt/pkgrelay/internal/pkgobject"
	"github.com/ralt/pkgrelay/internal/utils"
	"github.com/sassoftware/go-rpmutils"
)

// RPM tag numbers not already named by go-rpmutils' exported constants.
const (
	tagEpoch           = 1003
	tagPackager        = 1015
	tagOldFileModes    = 1030
	tagFileModes       = 1030
	tagOldFileSizes    = 1028
	tagFileSizes       = 1028
	tagProvideVersion  = 1113
	tagProvideFlags    = 1112
	tagRequireVersion  = 1050
	tagRequireFlags    = 1048
	tagBaseNames       = 1117
	tagDirNames        = 1118
	tagDirIndexes      = 1116
	tagSigLongArchive  = 271 // SIGTAG_LONGARCHIVESIZE, signature header namespace
	tagSigPayloadSize  = 1007
	flagClassGreater   = 0x04
	flagClassLess      = 0x02
	flagClassEqual     = 0x08
	rpmConfigFlag      = 1 << 4
	rpmLibFlag         = 1 << 24
)

// Requirement is one entry of a Provides or Requires list, with the
// version comparison the depsolver needs to apply.
type Requirement struct {
	Name      string `json:"name"`
	Condition string `json:"condition"`
	Version   string `json:"version,omitempty"`
}

// FileEntry is one payload member, enough to emit filelists.xml.
type FileEntry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
}

// Package is the parsed form of an .rpm archive, persisted as the Package
// object's metadata text.
type Package struct {
	Name          string        `json:"name"`
	Epoch         int           `json:"epoch"`
	Version       string        `json:"version"`
	Release       string        `json:"release"`
	Arch          string        `json:"arch"`
	Vendor        string        `json:"vendor,omitempty"`
	URL           string        `json:"url,omitempty"`
	License       string        `json:"license,omitempty"`
	Summary       string        `json:"summary,omitempty"`
	Description   string        `json:"description,omitempty"`
	Group         string        `json:"group,omitempty"`
	BuildTime     int64         `json:"build_time"`
	BuildHost     string        `json:"build_host,omitempty"`
	Source        string        `json:"source,omitempty"`
	Provides      []Requirement `json:"provides"`
	Requires      []Requirement `json:"requires"`
	SHA256        string        `json:"sha256"`
	HeaderStart   int64         `json:"header_start"`
	HeaderEnd     int64         `json:"header_end"`
	Files         []FileEntry   `json:"files"`
	PkgSize       int           `json:"pkg_size"`
	InstalledSize int64         `json:"installed_size"`
	ArchiveSize   int64         `json:"archive_size"`
	Location      string        `json:"location"`
	PkgTime       int64         `json:"pkg_time"`
}

// FromPackage parses an .rpm archive, or deserializes previously persisted
// metadata when the cell has already reached the terminal state.
func FromPackage(p pkgobject.Package, channel models.ReleaseChannel) (*Package, error) {
	state, raw, text := p.State()
	if state == pkgobject.StateMetadata {
		var pkg Package
		if err := json.Unmarshal([]byte(text), &pkg); err != nil {
			return nil, models.Wrap(models.ErrParseFailed, p.FileName(), err)
		}
		return &pkg, nil
	}
	if state != pkgobject.StatePackage {
		return nil, models.Wrap(models.ErrParseFailed, p.FileName(), fmt.Errorf("package data is not available"))
	}

	rpm, err := rpmutils.ReadRpm(bytes.NewReader(raw))
	if err != nil {
		return nil, models.Wrap(models.ErrParseFailed, p.FileName(), err)
	}

	headerStart, headerEnd, err := headerSegmentOffsets(raw)
	if err != nil {
		return nil, models.Wrap(models.ErrParseFailed, p.FileName(), err)
	}

	pkg := &Package{
		Name:        getString(rpm, rpmutils.NAME),
		Epoch:       int(getInt(rpm, tagEpoch)),
		Version:     getString(rpm, rpmutils.VERSION),
		Release:     getString(rpm, rpmutils.RELEASE),
		Arch:        getString(rpm, rpmutils.ARCH),
		Vendor:      getString(rpm, rpmutils.VENDOR),
		URL:         getString(rpm, rpmutils.URL),
		License:     getString(rpm, rpmutils.LICENSE),
		Summary:     getString(rpm, rpmutils.SUMMARY),
		Description: getString(rpm, rpmutils.DESCRIPTION),
		Group:       getString(rpm, rpmutils.GROUP),
		BuildTime:   getInt(rpm, rpmutils.BUILDTIME),
		BuildHost:   getString(rpm, rpmutils.BUILDHOST),
		Source:      getString(rpm, rpmutils.SOURCERPM),
		Provides:    requirements(rpm, rpmutils.PROVIDENAME, tagProvideVersion, tagProvideFlags, false),
		Requires:    requirements(rpm, rpmutils.REQUIRENAME, tagRequireVersion, tagRequireFlags, true),
		SHA256:      utils.SHA256Hex(raw),
		HeaderStart: headerStart,
		HeaderEnd:   headerEnd,
		Files:       files(rpm),
		PkgSize:     len(raw),
		ArchiveSize: archiveSize(rpm),
		PkgTime:     getInt(rpm, rpmutils.BUILDTIME),
	}
	pkg.InstalledSize = sumFileSizes(rpm)
	pkg.Location = fmt.Sprintf("package/%s/%s", pkg.Version, p.FileName())

	serialized, err := json.Marshal(pkg)
	if err != nil {
		return nil, models.Wrap(models.ErrParseFailed, p.FileName(), err)
	}
	p.SetMetadata(string(serialized))

	return pkg, nil
}

func getString(rpm *rpmutils.Rpm, tag int) string {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case []byte:
		return string(v)
	}
	return ""
}

func getInt(rpm *rpmutils.Rpm, tag int) int64 {
	val, err := rpm.Header.Get(tag)
	if err != nil {
		return 0
	}
	switch v := val.(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case []int:
		if len(v) > 0 {
			return int64(v[0])
		}
	case []int32:
		if len(v) > 0 {
			return int64(v[0])
		}
	}
	return 0
}

// archiveSize mirrors the original's LONGARCHIVESIZE-falling-back-to-
// PAYLOADSIZE lookup in the RPM signature header.
func archiveSize(rpm *rpmutils.Rpm) int64 {
	if rpm.SignatureHeader != nil {
		if v, err := rpm.SignatureHeader.Get(tagSigLongArchive); err == nil {
			if n, ok := toInt64(v); ok {
				return n
			}
		}
		if v, err := rpm.SignatureHeader.Get(tagSigPayloadSize); err == nil {
			if n, ok := toInt64(v); ok {
				return n
			}
		}
	}
	return 0
}

func toInt64(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case []int:
		if len(t) > 0 {
			return int64(t[0]), true
		}
	case []int64:
		if len(t) > 0 {
			return t[0], true
		}
	}
	return 0, false
}

// flagToCondition encodes an RPM sense flag into the two-letter comparator
// the primary.xml dependency table uses. Flags with neither class bit set
// (e.g. no version pinned) yield the empty condition.
func flagToCondition(flag int64) string {
	hasGreater := flag&flagClassGreater != 0
	hasLess := flag&flagClassLess != 0
	hasEqual := flag&flagClassEqual != 0

	switch {
	case hasGreater && hasEqual:
		return "GE"
	case hasLess && hasEqual:
		return "LE"
	case hasEqual:
		return "EQ"
	default:
		return ""
	}
}

func requirements(rpm *rpmutils.Rpm, nameTag, versionTag, flagTag int, filterRPMLib bool) []Requirement {
	names, _ := rpm.Header.GetStrings(nameTag)
	versions, _ := rpm.Header.GetStrings(versionTag)
	var flags []int
	if raw, err := rpm.Header.Get(flagTag); err == nil {
		if ints, ok := raw.([]int); ok {
			flags = ints
		}
	}

	var out []Requirement
	for i, name := range names {
		if filterRPMLib && (strings.HasPrefix(name, "rpmlib(") || strings.HasPrefix(name, "config(")) {
			continue
		}
		var flag int64
		if i < len(flags) {
			flag = int64(flags[i])
		}
		var version string
		if i < len(versions) {
			version = versions[i]
		}
		out = append(out, Requirement{
			Name:      name,
			Condition: flagToCondition(flag),
			Version:   version,
		})
	}
	return out
}

func files(rpm *rpmutils.Rpm) []FileEntry {
	baseNames, _ := rpm.Header.GetStrings(tagBaseNames)
	dirNames, _ := rpm.Header.GetStrings(tagDirNames)
	var dirIndexes []int
	if raw, err := rpm.Header.Get(tagDirIndexes); err == nil {
		if ints, ok := raw.([]int); ok {
			dirIndexes = ints
		}
	}
	var modes []int
	if raw, err := rpm.Header.Get(tagFileModes); err == nil {
		if ints, ok := raw.([]int); ok {
			modes = ints
		}
	}

	var out []FileEntry
	for i, base := range baseNames {
		var dir string
		if i < len(dirIndexes) && dirIndexes[i] < len(dirNames) {
			dir = dirNames[dirIndexes[i]]
		}
		isDir := false
		if i < len(modes) {
			isDir = modes[i]&0o170000 == 0o040000
		}
		out = append(out, FileEntry{Path: dir + base, IsDir: isDir})
	}
	return out
}

func sumFileSizes(rpm *rpmutils.Rpm) int64 {
	raw, err := rpm.Header.Get(tagFileSizes)
	if err != nil {
		return 0
	}
	sizes, ok := raw.([]int)
	if !ok {
		return 0
	}
	var total int64
	for _, s := range sizes {
		total += int64(s)
	}
	return total
}

// headerSegmentOffsets walks the RPM lead, signature header and main header
// to find the byte range of the main header (createrepo's rpm:header-range
// start/end), following the RPM binary layout: a 96-byte lead, an
// 8-byte-aligned signature header, then the main header. The range is
// stored on Package only; PrimaryXML does not render it.
func headerSegmentOffsets(data []byte) (start, end int64, err error) {
	const leadSize = 96
	if len(data) < leadSize+16 {
		return 0, 0, fmt.Errorf("file too small to be an rpm")
	}

	sigStart := int64(leadSize)
	sigHeaderSize, sigDataSize, err := readSectionCounts(data, sigStart)
	if err != nil {
		return 0, 0, err
	}
	sigEnd := sigStart + 16 + int64(sigHeaderSize)*16 + int64(sigDataSize)
	headerStart := align8(sigEnd)

	hdrHeaderSize, hdrDataSize, err := readSectionCounts(data, headerStart)
	if err != nil {
		return 0, 0, err
	}
	headerEnd := headerStart + 16 + int64(hdrHeaderSize)*16 + int64(hdrDataSize)

	return headerStart, headerEnd, nil
}

func readSectionCounts(data []byte, offset int64) (indexCount, dataSize uint32, err error) {
	if offset+16 > int64(len(data)) {
		return 0, 0, fmt.Errorf("truncated rpm header section at offset %d", offset)
	}
	magic := data[offset : offset+3]
	if magic[0] != 0x8e || magic[1] != 0xad || magic[2] != 0xe8 {
		return 0, 0, fmt.Errorf("bad header magic at offset %d", offset)
	}
	indexCount = binary.BigEndian.Uint32(data[offset+8 : offset+12])
	dataSize = binary.BigEndian.Uint32(data[offset+12 : offset+16])
	return indexCount, dataSize, nil
}

func align8(n int64) int64 {
	if rem := n % 8; rem != 0 {
		return n + (8 - rem)
	}
	return n
}
