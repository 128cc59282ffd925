// Package apt implements the Debian package parser and the APT Release/
// Packages index renderer (spec.md §4.4, §4.7).
package apt

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/ralt/pkgrelay/internal/models"
	"github.com/ralt/pkgrelay/internal/pkgobject"
	"github.com/ralt/pkgrelay/internal/utils"
)

var (
	archFieldPattern    = regexp.MustCompile(`Architecture: (\w+)`)
	packageFieldPattern = regexp.MustCompile(`Package: (.+)`)
)

// DebianPackage is the parsed form of a .deb archive, persisted verbatim
// as the Package object's metadata text.
type DebianPackage struct {
	Control  string `json:"control"`
	MD5      string `json:"md5"`
	SHA1     string `json:"sha1"`
	SHA256   string `json:"sha256"`
	SHA512   string `json:"sha512"`
	Size     int    `json:"size"`
	Filename string `json:"filename"`
}

// FromPackage extracts the control file and digests from a Package whose
// cell holds StatePackage, or deserializes the cached form when the cell
// already holds StateMetadata (spec.md §4.4 re-entry rule).
func FromPackage(p pkgobject.Package, channel models.ReleaseChannel) (*DebianPackage, error) {
	state, raw, text := p.State()
	if state == pkgobject.StateMetadata {
		var deb DebianPackage
		if err := json.Unmarshal([]byte(text), &deb); err != nil {
			return nil, models.Wrap(models.ErrParseFailed, p.FileName(), err)
		}
		return &deb, nil
	}
	if state != pkgobject.StatePackage {
		return nil, models.Wrap(models.ErrParseFailed, p.FileName(), fmt.Errorf("package data is not available"))
	}

	control, err := readControlFile(raw)
	if err != nil {
		return nil, models.Wrap(models.ErrParseFailed, p.FileName(), err)
	}
	control = strings.TrimRight(control, " \t\r\n")

	digests := utils.CalculateDigests(raw)
	deb := &DebianPackage{
		Control:  control,
		MD5:      digests.MD5,
		SHA1:     digests.SHA1,
		SHA256:   digests.SHA256,
		SHA512:   digests.SHA512,
		Size:     digests.Size,
		Filename: fmt.Sprintf("pool/%s/%s/%s", channel, p.Version(), p.FileName()),
	}

	serialized, err := json.Marshal(deb)
	if err != nil {
		return nil, models.Wrap(models.ErrParseFailed, p.FileName(), err)
	}
	p.SetMetadata(string(serialized))

	return deb, nil
}

// Arch extracts the Architecture field from the control stanza.
func (d *DebianPackage) Arch() (models.Arch, bool) {
	m := archFieldPattern.FindStringSubmatch(d.Control)
	if m == nil {
		return models.ArchAmd64, false
	}
	return models.ParseArch(m[1])
}

// PackageName extracts the Package field from the control stanza.
func (d *DebianPackage) PackageName() string {
	m := packageFieldPattern.FindStringSubmatch(d.Control)
	if m == nil {
		return ""
	}
	return m[1]
}

// readControlFile iterates the ar archive for control.tar(.gz|.xz|.zst),
// decompresses it, and reads the "./control" tar member.
func readControlFile(data []byte) (string, error) {
	r := bytes.NewReader(data)

	magic := make([]byte, 8)
	if _, err := io.ReadFull(r, magic); err != nil {
		return "", fmt.Errorf("reading ar magic: %w", err)
	}
	if string(magic) != "!<arch>\n" {
		return "", fmt.Errorf("not an ar archive")
	}

	for {
		hdr := make([]byte, 60)
		n, err := io.ReadFull(r, hdr)
		if err == io.EOF || (err == io.ErrUnexpectedEOF && n == 0) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading ar header: %w", err)
		}

		name := strings.TrimRight(strings.TrimSpace(string(hdr[0:16])), "/")
		sizeStr := strings.TrimSpace(string(hdr[48:58]))
		size, err := strconv.ParseInt(sizeStr, 10, 64)
		if err != nil {
			return "", fmt.Errorf("parsing ar entry size: %w", err)
		}

		body := make([]byte, size)
		if _, err := io.ReadFull(r, body); err != nil {
			return "", fmt.Errorf("reading ar entry %q: %w", name, err)
		}
		if size%2 != 0 {
			if _, err := r.Seek(1, io.SeekCurrent); err != nil {
				return "", err
			}
		}

		if strings.HasPrefix(name, "control.tar") {
			return extractControlMember(body, name)
		}
	}

	return "", fmt.Errorf("control file not found")
}

func extractControlMember(data []byte, archiveName string) (string, error) {
	var tr *tar.Reader

	switch {
	case strings.HasSuffix(archiveName, ".gz"):
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return "", err
		}
		defer gr.Close()
		tr = tar.NewReader(gr)
	case strings.HasSuffix(archiveName, ".xz"):
		xr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return "", err
		}
		tr = tar.NewReader(xr)
	case strings.HasSuffix(archiveName, ".zst"):
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return "", err
		}
		defer zr.Close()
		tr = tar.NewReader(zr)
	default:
		tr = tar.NewReader(bytes.NewReader(data))
	}

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if hdr.Name == "./control" || hdr.Name == "control" {
			body, err := io.ReadAll(tr)
			if err != nil {
				return "", err
			}
			return string(body), nil
		}
	}

	return "", fmt.Errorf("control member not found in %s", archiveName)
}
