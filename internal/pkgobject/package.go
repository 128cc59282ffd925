// Package pkgobject implements the Package object described in spec.md
// §4.3: a small immutable identity header plus one mutable, interior
// synchronized data cell. Clones are cheap and share the same cell, so
// state transitions observed through one clone are visible through all.
package pkgobject

import (
	"sort"
	"sync"
	"time"

	"github.com/ralt/pkgrelay/internal/models"
)

// State tags the three mutually exclusive states the data cell can hold.
// It must stay a single tagged variant, never three parallel optional
// fields, so the at-most-one invariant is structural rather than enforced
// by convention.
type State int

const (
	StateNone State = iota
	StatePackage
	StateMetadata
)

// cell is the synchronized mutable half of a Package.
type cell struct {
	mu    sync.Mutex
	state State
	bytes []byte // raw downloaded file when state == StatePackage
	text  string // serialized parsed metadata when state == StateMetadata
}

// header is the immutable identity half of a Package.
type header struct {
	filename string
	url      string
	version  string
	created  time.Time
	typ      models.Type
	dist     *models.Dist
	arch     models.Arch
	name     string
}

// Package is a cheap-clone handle: cloning copies the pointer, not the
// cell, so every clone observes the same transitions.
type Package struct {
	h *header
	c *cell
}

// New constructs a Package in state None.
func New(filename, url, version string, created time.Time, typ models.Type, dist *models.Dist, arch models.Arch, name string) Package {
	return Package{
		h: &header{
			filename: filename,
			url:      url,
			version:  version,
			created:  created,
			typ:      typ,
			dist:     dist,
			arch:     arch,
			name:     name,
		},
		c: &cell{state: StateNone},
	}
}

func (p Package) FileName() string       { return p.h.filename }
func (p Package) DownloadURL() string    { return p.h.url }
func (p Package) Version() string        { return p.h.version }
func (p Package) CreationDate() time.Time { return p.h.created }
func (p Package) Type() models.Type      { return p.h.typ }
func (p Package) Distribution() *models.Dist { return p.h.dist }
func (p Package) Arch() models.Arch      { return p.h.arch }
func (p Package) Name() string           { return p.h.name }

// State returns the current tag and, for StatePackage, the raw bytes, or
// for StateMetadata, the serialized metadata text.
func (p Package) State() (State, []byte, string) {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	return p.c.state, p.c.bytes, p.c.text
}

// IsMetadataAvailable reports whether the cell has reached the terminal
// Metadata state.
func (p Package) IsMetadataAvailable() bool {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	return p.c.state == StateMetadata
}

// SetPackageData transitions the cell to StatePackage. Used both by the
// real downloader and by tests that want to skip the network.
func (p Package) SetPackageData(data []byte) {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	p.c.state = StatePackage
	p.c.bytes = data
	p.c.text = ""
}

// SetMetadata transitions the cell to StateMetadata, discarding the raw
// bytes; this is the terminal state for the pipeline.
func (p Package) SetMetadata(text string) {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	p.c.state = StateMetadata
	p.c.bytes = nil
	p.c.text = text
}

// WithCachedMetadata attaches previously persisted metadata via SetMetadata
// and returns the same handle, used by the orchestrator when hydrating
// Packages from the metadata store.
func (p Package) WithCachedMetadata(text string) Package {
	p.SetMetadata(text)
	return p
}

// SortByFilename returns packages ordered by filename, the ordering key
// spec.md §3 requires for deterministic rendering.
func SortByFilename(pkgs []Package) []Package {
	out := make([]Package, len(pkgs))
	copy(out, pkgs)
	sort.Slice(out, func(i, j int) bool { return out[i].FileName() < out[j].FileName() })
	return out
}
