// Package repository implements the orchestrator of spec.md §4.10: it
// fetches releases, builds Package objects, runs the selector, downloads
// whatever wasn't already cached, and persists freshly parsed metadata.
package repository

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ralt/pkgrelay/internal/models"
	"github.com/ralt/pkgrelay/internal/pkgobject"
	"github.com/ralt/pkgrelay/internal/platform"
	"github.com/ralt/pkgrelay/internal/selector"
	"github.com/ralt/pkgrelay/internal/store"
	"github.com/ralt/pkgrelay/internal/upstream"

	"github.com/ralt/pkgrelay/internal/classify"
	"github.com/sirupsen/logrus"
)

// Repository is the per-request-capable orchestrator bound to one upstream
// GitHub client, one metadata store and one apt-platform detector.
type Repository struct {
	upstream  *upstream.Client
	store     *store.Store
	detector  *platform.Detector
	maxParallel int
}

// New builds a Repository. detector may be nil until Initialize populates it.
func New(up *upstream.Client, st *store.Store, detector *platform.Detector) *Repository {
	return &Repository{upstream: up, store: st, detector: detector, maxParallel: 8}
}

// Detector returns the apt-platform detector, once Initialize has run.
func (r *Repository) Detector() *platform.Detector { return r.detector }

// Upstream exposes the GitHub client for routes that stream an asset body
// straight through without going via the Package pipeline.
func (r *Repository) Upstream() *upstream.Client { return r.upstream }

// SetDetector installs the detector built by Initialize.
func (r *Repository) SetDetector(d *platform.Detector) { r.detector = d }

// FromUpstream implements step 1-3 of spec.md §4.10: fetch the release for
// the requested channel and build one Package per classifiable asset,
// hydrating any cached metadata found in the store.
func (r *Repository) FromUpstream(ctx context.Context, owner, repo string, channel models.ReleaseChannel) ([]pkgobject.Package, error) {
	var rel *upstream.Release
	var err error
	switch channel {
	case models.ChannelUnstable:
		rel, err = r.upstream.NewestRelease(ctx, owner, repo)
	default:
		rel, err = r.upstream.LatestRelease(ctx, owner, repo)
	}
	if err != nil {
		return nil, err
	}

	coll := r.store.Project(owner, repo)

	packages := make([]pkgobject.Package, 0, len(rel.Assets))
	for _, asset := range rel.Assets {
		identity, err := classify.Classify(asset.Name)
		if err != nil {
			logrus.WithField("filename", asset.Name).Debug("skipping unclassifiable asset")
			continue
		}

		pkg := pkgobject.New(asset.Name, asset.DownloadURL, rel.Tag, asset.UpdatedAt, identity.Type, identity.Dist, identity.Arch, identity.Name)

		if rec, err := coll.Get(ctx, asset.Name); err != nil {
			logrus.WithError(err).WithField("filename", asset.Name).Warn("metadata lookup failed")
		} else if rec != nil {
			pkg = pkg.WithCachedMetadata(rec.Metadata)
		}

		packages = append(packages, pkg)
	}

	return packages, nil
}

// Initialize fetches the external apt-version catalog once at startup.
func Initialize(ctx context.Context, httpClient *http.Client, catalogURL string) (*platform.Detector, error) {
	return platform.Initialize(ctx, httpClient, catalogURL)
}

// SelectAPT implements select_package_apt: detect the caller's apt
// distribution from its user agent, run the selector, then download.
func (r *Repository) SelectAPT(ctx context.Context, packages []pkgobject.Package, distroTag, userAgent string) ([]pkgobject.Package, error) {
	var dist models.Dist
	switch distroTag {
	case "ubuntu":
		dist = r.detector.DetectUbuntu(userAgent)
	case "debian":
		dist = r.detector.DetectDebian(userAgent)
	default:
		return nil, models.Wrap(models.ErrUnknownDistribution, distroTag, errUnknownDistro{distroTag})
	}

	selected := selector.Select(packages, dist)
	return r.DownloadPackages(ctx, selected)
}

// SelectRPM implements select_package_rpm: same shape, RPM detection.
func (r *Repository) SelectRPM(ctx context.Context, packages []pkgobject.Package, userAgent string) ([]pkgobject.Package, error) {
	dist, ok := platform.DetectRPM(userAgent)
	if !ok {
		return nil, models.Wrap(models.ErrUnknownAgent, userAgent, errUnknownAgent{})
	}
	selected := selector.Select(packages, dist)
	return r.DownloadPackages(ctx, selected)
}

type errUnknownDistro struct{ tag string }

func (e errUnknownDistro) Error() string { return "unknown distro tag: " + e.tag }

type errUnknownAgent struct{}

func (errUnknownAgent) Error() string { return "user agent did not match a known rpm platform" }

// DownloadPackages implements spec.md §4.10's download_packages: packages
// already carrying cached Metadata are skipped; everything else is fetched
// concurrently, bounded, with any single failure aborting the whole batch.
func (r *Repository) DownloadPackages(ctx context.Context, selected []pkgobject.Package) ([]pkgobject.Package, error) {
	var alreadyMetadata, needDownload []pkgobject.Package
	for _, p := range selected {
		if p.IsMetadataAvailable() {
			alreadyMetadata = append(alreadyMetadata, p)
		} else {
			needDownload = append(needDownload, p)
		}
	}

	if len(needDownload) == 0 {
		return pkgobject.SortByFilename(alreadyMetadata), nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxParallel)

	var mu sync.Mutex
	downloaded := make([]pkgobject.Package, 0, len(needDownload))

	for _, p := range needDownload {
		p := p
		g.Go(func() error {
			data, err := r.upstream.Download(gctx, p.DownloadURL())
			if err != nil {
				return err
			}
			p.SetPackageData(data)
			mu.Lock()
			downloaded = append(downloaded, p)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := append(alreadyMetadata, downloaded...)
	return pkgobject.SortByFilename(result), nil
}

// SaveMetadata implements save_metadata: upsert a record for every package
// that reached the terminal Metadata state. Persistence errors are logged,
// never surfaced, per spec.md §7.
func (r *Repository) SaveMetadata(ctx context.Context, owner, repo string, packages []pkgobject.Package) {
	coll := r.store.Project(owner, repo)
	for _, p := range packages {
		state, _, text := p.State()
		if state != pkgobject.StateMetadata {
			continue
		}
		if err := coll.Upsert(ctx, p.FileName(), text); err != nil {
			logrus.WithError(err).WithField("filename", p.FileName()).Warn("failed to persist package metadata")
		}
	}
}
