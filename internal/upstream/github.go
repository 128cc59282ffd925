// Package upstream wraps the GitHub Releases API, the sole source of
// packages this gateway ever serves (spec.md §1: it never builds or hosts
// packages itself).
package upstream

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/go-github/v80/github"

	"github.com/ralt/pkgrelay/internal/models"
)

// Asset is the subset of a GitHub release asset the rest of the pipeline
// needs: enough to construct a Package identity header.
type Asset struct {
	Name        string
	DownloadURL string
	UpdatedAt   time.Time
}

// Release is a fetched GitHub release: its tag and the assets attached to it.
type Release struct {
	Tag    string
	Assets []Asset
}

// Client fetches releases from GitHub, authenticating with a personal
// access token when one is configured and falling back to anonymous,
// rate-limited access otherwise (spec.md §6: "empty ⇒ anonymous upstream").
type Client struct {
	gh         *github.Client
	httpClient *http.Client
}

// New builds a Client. An empty pat means anonymous requests.
func New(pat string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	gh := github.NewClient(httpClient)
	if pat != "" {
		gh = gh.WithAuthToken(pat)
	}
	return &Client{gh: gh, httpClient: httpClient}
}

// LatestRelease fetches the newest non-prerelease, non-draft release
// (the Stable channel).
func (c *Client) LatestRelease(ctx context.Context, owner, repo string) (*Release, error) {
	rel, _, err := c.gh.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return nil, models.Wrap(models.ErrDownloadFailed, owner+"/"+repo, err)
	}
	return toRelease(rel), nil
}

// NewestRelease scans releases newest-first and returns the first
// non-draft one, which may be a prerelease (the Unstable channel).
func (c *Client) NewestRelease(ctx context.Context, owner, repo string) (*Release, error) {
	opts := &github.ListOptions{PerPage: 30}
	for {
		releases, resp, err := c.gh.Repositories.ListReleases(ctx, owner, repo, opts)
		if err != nil {
			return nil, models.Wrap(models.ErrDownloadFailed, owner+"/"+repo, err)
		}
		for _, rel := range releases {
			if rel.GetDraft() {
				continue
			}
			return toRelease(rel), nil
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return nil, models.Wrap(models.ErrDownloadFailed, owner+"/"+repo, errNoReleases{})
}

type errNoReleases struct{}

func (errNoReleases) Error() string { return "no non-draft releases found" }

func toRelease(rel *github.RepositoryRelease) *Release {
	r := &Release{Tag: rel.GetTagName()}
	for _, a := range rel.Assets {
		r.Assets = append(r.Assets, Asset{
			Name:        a.GetName(),
			DownloadURL: a.GetBrowserDownloadURL(),
			UpdatedAt:   a.GetUpdatedAt().Time,
		})
	}
	return r
}

// Stream copies one asset's body directly to w without buffering it in
// memory, the "true streaming pass-through" spec.md §6 requires for the
// APT/RPM pool routes.
func (c *Client) Stream(ctx context.Context, url string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Wrap(models.ErrDownloadFailed, url, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Wrap(models.ErrDownloadFailed, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.Wrap(models.ErrDownloadFailed, url, statusError(resp.StatusCode))
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return models.Wrap(models.ErrDownloadFailed, url, err)
	}
	return nil
}

// Download streams one asset's body into memory. Called once per package
// that isn't already covered by cached metadata (spec.md §4.10).
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, models.Wrap(models.ErrDownloadFailed, url, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.Wrap(models.ErrDownloadFailed, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, models.Wrap(models.ErrDownloadFailed, url, statusError(resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.Wrap(models.ErrDownloadFailed, url, err)
	}
	return data, nil
}

type statusError int

func (s statusError) Error() string { return http.StatusText(int(s)) }
