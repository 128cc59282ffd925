package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ralt/pkgrelay/internal/appstate"
	"github.com/ralt/pkgrelay/internal/generator/apt"
	"github.com/ralt/pkgrelay/internal/generator/rpm"
	"github.com/ralt/pkgrelay/internal/models"
	"github.com/ralt/pkgrelay/internal/pkgobject"
	"github.com/ralt/pkgrelay/internal/script"
	"github.com/ralt/pkgrelay/internal/utils"
)

// New builds the full route tree: APT, RPM, key export and install-script
// endpoints, wrapped in the metrics middleware.
func New(state *appstate.State) http.Handler {
	h := &handler{state: state}

	r := chi.NewRouter()
	r.Use(metricsMiddleware)

	r.Route("/v2/apt/{distro}/github/{owner}/{repo}/dists/{channel}", func(r chi.Router) {
		r.Get("/{file}", h.aptRelease)
		r.Get("/main/binary-{arch}/{file}", h.aptPackages)
		r.Get("/binary-all/{file}", h.aptBinaryAll)
	})
	r.Get("/v2/apt/{distro}/github/{owner}/{repo}/pool/{channel}/{ver}/{file}", h.aptPool)

	r.Route("/v2/rpm/github/{owner}/{repo}/{channel}", func(r chi.Router) {
		r.Get("/repodata/{file}", h.rpmRepodata)
		r.Get("/package/{ver}/{file}", h.rpmPackage)
	})

	r.Get("/v1/keys/packhub.asc", h.keyArmored)
	r.Get("/v1/keys/packhub.gpg", h.keyDearmored)

	r.Get("/sh/{distro}/github/{owner}/{repo}", h.installScript)

	return r
}

type handler struct {
	state *appstate.State
}

func writeRouteError(w http.ResponseWriter, err error) {
	var ge *models.GatewayError
	status := http.StatusInternalServerError
	if e, ok := err.(*models.GatewayError); ok {
		ge = e
		switch ge.Type {
		case models.ErrRouteInput, models.ErrUnknownDistribution, models.ErrUnknownAgent, models.ErrUnknownFilename:
			status = http.StatusBadRequest
		}
	}
	logrus.WithError(err).Warn("request failed")
	http.Error(w, err.Error(), status)
}

func parseChannel(s string) (models.ReleaseChannel, error) {
	c, ok := models.ParseReleaseChannel(s)
	if !ok {
		return 0, models.Wrap(models.ErrRouteInput, s, errBadChannel{s})
	}
	return c, nil
}

type errBadChannel struct{ value string }

func (e errBadChannel) Error() string { return "unrecognized channel: " + e.value }

// selectAPT runs the selection half of the orchestration pipeline for one
// APT request: fetch release, select by distro+UA, download. Persistence
// happens after the caller parses the selected packages (apt.NewIndices),
// since only that step transitions a package's cell to StateMetadata.
func (h *handler) selectAPT(r *http.Request, distro, owner, repo string, channel models.ReleaseChannel) ([]pkgobject.Package, error) {
	ctx := r.Context()
	repo_ := h.state.Repository

	packages, err := repo_.FromUpstream(ctx, owner, repo, channel)
	if err != nil {
		return nil, err
	}
	return repo_.SelectAPT(ctx, packages, distro, r.Header.Get("User-Agent"))
}

func (h *handler) selectRPM(r *http.Request, owner, repo string, channel models.ReleaseChannel) ([]pkgobject.Package, error) {
	ctx := r.Context()
	repo_ := h.state.Repository

	packages, err := repo_.FromUpstream(ctx, owner, repo, channel)
	if err != nil {
		return nil, err
	}
	return repo_.SelectRPM(ctx, packages, r.Header.Get("User-Agent"))
}

// aptRelease serves Release, Release.gpg and InRelease.
func (h *handler) aptRelease(w http.ResponseWriter, r *http.Request) {
	distro := chi.URLParam(r, "distro")
	owner := chi.URLParam(r, "owner")
	repo := chi.URLParam(r, "repo")
	file := chi.URLParam(r, "file")
	channel, err := parseChannel(chi.URLParam(r, "channel"))
	if err != nil {
		writeRouteError(w, err)
		return
	}

	selected, err := h.selectAPT(r, distro, owner, repo, channel)
	if err != nil {
		writeRouteError(w, err)
		return
	}

	idx, errs := apt.NewIndices(selected, channel)
	for _, e := range errs {
		logrus.WithError(e).Debug("dropping package from apt index")
	}
	h.state.Repository.SaveMetadata(r.Context(), owner, repo, selected)
	release := idx.ReleaseIndex()

	switch file {
	case "Release":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(release))
	case "InRelease":
		signed, err := h.state.Signer.SignCleartext([]byte(release))
		if err != nil {
			writeRouteError(w, models.Wrap(models.ErrSignFailed, "InRelease", err))
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write(signed)
	case "Release.gpg":
		sig, err := h.state.Signer.SignDetached([]byte(release))
		if err != nil {
			writeRouteError(w, models.Wrap(models.ErrSignFailed, "Release.gpg", err))
			return
		}
		w.Header().Set("Content-Type", "application/pgp-signature")
		w.Write(sig)
	default:
		writeRouteError(w, models.Wrap(models.ErrRouteInput, file, errUnknownFile{file}))
	}
}

type errUnknownFile struct{ name string }

func (e errUnknownFile) Error() string { return "unrecognized file parameter: " + e.name }

// aptPackages serves main/binary-{arch}/{Packages|Packages.gz}.
func (h *handler) aptPackages(w http.ResponseWriter, r *http.Request) {
	distro := chi.URLParam(r, "distro")
	owner := chi.URLParam(r, "owner")
	repo := chi.URLParam(r, "repo")
	file := chi.URLParam(r, "file")
	archParam := chi.URLParam(r, "arch")
	channel, err := parseChannel(chi.URLParam(r, "channel"))
	if err != nil {
		writeRouteError(w, err)
		return
	}
	arch, ok := models.ParseArch(archParam)
	if !ok {
		writeRouteError(w, models.Wrap(models.ErrRouteInput, archParam, errUnknownFile{archParam}))
		return
	}

	selected, err := h.selectAPT(r, distro, owner, repo, channel)
	if err != nil {
		writeRouteError(w, err)
		return
	}

	idx, errs := apt.NewIndices(selected, channel)
	for _, e := range errs {
		logrus.WithError(e).Debug("dropping package from apt index")
	}
	h.state.Repository.SaveMetadata(r.Context(), owner, repo, selected)
	writePackagesFile(w, file, idx.PackageIndex(arch))
}

// aptBinaryAll always serves an empty Packages/Packages.gz, spec.md §6.
func (h *handler) aptBinaryAll(w http.ResponseWriter, r *http.Request) {
	writePackagesFile(w, chi.URLParam(r, "file"), "")
}

// writePackagesFile serves the plain or gzipped Packages body. The gzip
// variant must come from utils.GzipCompress, the same encoder ReleaseIndex
// hashes to build the Release file's checksum table — any other encoder
// produces different bytes for the same input and breaks apt's hash
// verification of the fetched file against Release.
func writePackagesFile(w http.ResponseWriter, file, plain string) {
	switch file {
	case "Packages":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(plain))
	case "Packages.gz":
		gz, err := utils.GzipCompress([]byte(plain))
		if err != nil {
			writeRouteError(w, models.Wrap(models.ErrRenderFailed, file, err))
			return
		}
		w.Header().Set("Content-Type", "application/gzip")
		w.Write(gz)
	default:
		writeRouteError(w, models.Wrap(models.ErrRouteInput, file, errUnknownFile{file}))
	}
}

// aptPool transparently streams a pool asset through to the client.
func (h *handler) aptPool(w http.ResponseWriter, r *http.Request) {
	distro := chi.URLParam(r, "distro")
	owner := chi.URLParam(r, "owner")
	repo := chi.URLParam(r, "repo")
	file := chi.URLParam(r, "file")
	channel, err := parseChannel(chi.URLParam(r, "channel"))
	if err != nil {
		writeRouteError(w, err)
		return
	}
	_ = distro

	packages, err := h.state.Repository.FromUpstream(r.Context(), owner, repo, channel)
	if err != nil {
		writeRouteError(w, err)
		return
	}

	for _, p := range packages {
		if p.FileName() == file {
			w.Header().Set("Content-Type", "application/octet-stream")
			if err := h.state.Repository.Upstream().Stream(r.Context(), p.DownloadURL(), w); err != nil {
				writeRouteError(w, err)
			}
			return
		}
	}
	writeRouteError(w, models.Wrap(models.ErrRouteInput, file, errUnknownFile{file}))
}

// rpmRepodata serves repomd.xml, its signatures, and the three
// zstd-compressed metadata documents.
func (h *handler) rpmRepodata(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	repo := chi.URLParam(r, "repo")
	file := chi.URLParam(r, "file")
	channel, err := parseChannel(chi.URLParam(r, "channel"))
	if err != nil {
		writeRouteError(w, err)
		return
	}

	if file == "repomd.xml.key" {
		key, err := h.state.Signer.ArmoredPublicKey()
		if err != nil {
			writeRouteError(w, models.Wrap(models.ErrSignFailed, "repomd.xml.key", err))
			return
		}
		w.Header().Set("Content-Type", "application/pgp-keys")
		w.Write(key)
		return
	}

	selected, err := h.selectRPM(r, owner, repo, channel)
	if err != nil {
		writeRouteError(w, err)
		return
	}

	idx, errs := rpm.NewIndices(selected, channel)
	for _, e := range errs {
		logrus.WithError(e).Debug("dropping package from rpm index")
	}
	h.state.Repository.SaveMetadata(r.Context(), owner, repo, selected)

	switch file {
	case "repomd.xml":
		body, err := idx.RepoMDXML()
		if err != nil {
			writeRouteError(w, models.Wrap(models.ErrRenderFailed, "repomd.xml", err))
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.Write(body)
	case "repomd.xml.asc":
		body, err := idx.RepoMDXML()
		if err != nil {
			writeRouteError(w, models.Wrap(models.ErrRenderFailed, "repomd.xml.asc", err))
			return
		}
		sig, err := h.state.Signer.SignDetached(body)
		if err != nil {
			writeRouteError(w, models.Wrap(models.ErrSignFailed, "repomd.xml.asc", err))
			return
		}
		w.Header().Set("Content-Type", "application/pgp-signature")
		w.Write(sig)
	case "primary.xml.zst":
		serveZst(w, idx.PrimaryCompressed())
	case "filelists.xml.zst":
		serveZst(w, idx.FilelistsCompressed())
	case "other.xml.zst":
		serveZst(w, idx.OtherCompressed())
	default:
		writeRouteError(w, models.Wrap(models.ErrRouteInput, file, errUnknownFile{file}))
	}
}

func serveZst(w http.ResponseWriter, data []byte, err error) {
	if err != nil {
		writeRouteError(w, models.Wrap(models.ErrRenderFailed, "rpm metadata", err))
		return
	}
	w.Header().Set("Content-Type", "application/zstd")
	w.Write(data)
}

// rpmPackage transparently streams an RPM package through to the client.
func (h *handler) rpmPackage(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	repo := chi.URLParam(r, "repo")
	file := chi.URLParam(r, "file")
	channel, err := parseChannel(chi.URLParam(r, "channel"))
	if err != nil {
		writeRouteError(w, err)
		return
	}

	packages, err := h.state.Repository.FromUpstream(r.Context(), owner, repo, channel)
	if err != nil {
		writeRouteError(w, err)
		return
	}

	for _, p := range packages {
		if p.FileName() == file {
			w.Header().Set("Content-Type", "application/x-rpm")
			if err := h.state.Repository.Upstream().Stream(r.Context(), p.DownloadURL(), w); err != nil {
				writeRouteError(w, err)
			}
			return
		}
	}
	writeRouteError(w, models.Wrap(models.ErrRouteInput, file, errUnknownFile{file}))
}

func (h *handler) keyArmored(w http.ResponseWriter, r *http.Request) {
	key, err := h.state.Signer.ArmoredPublicKey()
	if err != nil {
		writeRouteError(w, models.Wrap(models.ErrSignFailed, "packhub.asc", err))
		return
	}
	w.Header().Set("Content-Type", "application/pgp-keys")
	w.Write(key)
}

func (h *handler) keyDearmored(w http.ResponseWriter, r *http.Request) {
	key, err := h.state.Signer.DearmoredPublicKey()
	if err != nil {
		writeRouteError(w, models.Wrap(models.ErrSignFailed, "packhub.gpg", err))
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(key)
}

func (h *handler) installScript(w http.ResponseWriter, r *http.Request) {
	distro := chi.URLParam(r, "distro")
	owner := chi.URLParam(r, "owner")
	repo := chi.URLParam(r, "repo")

	channel := models.ChannelStable
	if strings.EqualFold(r.URL.Query().Get("prerelease"), "true") {
		channel = models.ChannelUnstable
	}
	ver := script.ParseVersion(r.URL.Query().Get("ver"))

	body, err := script.Generate(h.state.Config.Domain, distro, owner, repo, ver, channel)
	if err != nil {
		writeRouteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/x-shellscript")
	w.Write([]byte(body))
}
