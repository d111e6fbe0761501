package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/pharm/internal/version"
)

const (
	defaultGitHubAPI = "https://api.github.com"

	// defaultPerPage is the number of releases fetched per API page.
	defaultPerPage = 30

	// maxPages is the upper bound on pagination.
	maxPages = 3

	maxJSONResponseBytes = 10 << 20
)

// RateLimitError is returned when the GitHub API rate limit is exceeded.
type RateLimitError struct {
	Limit   int
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded (limit %d, resets at %s)",
		e.Limit, e.ResetAt.UTC().Format("15:04 UTC"))
}

type githubRelease struct {
	TagName    string        `json:"tag_name"`
	Prerelease bool          `json:"prerelease"`
	Draft      bool          `json:"draft"`
	Assets     []githubAsset `json:"assets"`
}

type githubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// GitHubSource lists phar releases attached to GitHub releases. A release
// counts when it carries a *.phar asset; the signature is the asset of the
// same name with ".asc" appended, the Sigstore bundle ".sigstore.json".
type GitHubSource struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userAgent  string
}

// GitHubOption configures a GitHubSource.
type GitHubOption func(*GitHubSource)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxies.
func WithHTTPClient(c *http.Client) GitHubOption {
	return func(g *GitHubSource) {
		g.httpClient = c
	}
}

// WithBaseURL overrides the GitHub API base URL, primarily for test servers.
func WithBaseURL(base string) GitHubOption {
	return func(g *GitHubSource) {
		g.baseURL = strings.TrimRight(base, "/")
	}
}

// WithToken sets a token for authenticated requests (higher rate limit).
func WithToken(token string) GitHubOption {
	return func(g *GitHubSource) {
		g.token = token
	}
}

// NewGitHubSource creates a GitHub release source.
func NewGitHubSource(opts ...GitHubOption) *GitHubSource {
	g := &GitHubSource{
		httpClient: http.DefaultClient,
		baseURL:    defaultGitHubAPI,
		userAgent:  "pharm/1.0",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Releases implements Source for names of the form owner/repo. Release
// names are the repository name.
func (g *GitHubSource) Releases(ctx context.Context, ownerRepo string) ([]Release, error) {
	owner, repo, ok := strings.Cut(ownerRepo, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid github repository %q: want owner/repo", ownerRepo)
	}

	pageURL := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d",
		g.baseURL, url.PathEscape(owner), url.PathEscape(repo), defaultPerPage)

	var all []Release
	for page := 0; page < maxPages && pageURL != ""; page++ {
		raw, next, err := g.fetchPage(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("list releases of %s: %w", ownerRepo, err)
		}
		for _, gr := range raw {
			if rel, ok := toRelease(repo, gr); ok {
				all = append(all, rel)
			}
		}
		pageURL = next
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("%w: no phar assets in %s", ErrReleaseNotFound, ownerRepo)
	}
	return all, nil
}

func (g *GitHubSource) fetchPage(ctx context.Context, pageURL string) ([]githubRelease, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", g.userAgent)
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkRateLimit(resp); err != nil {
		return nil, "", err
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, "", ErrUnknownPhar
	default:
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var raw []githubRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&raw); err != nil {
		return nil, "", fmt.Errorf("decoding releases: %w", err)
	}
	return raw, parseLinkHeader(resp.Header.Get("Link")), nil
}

// toRelease maps a GitHub release to a phar release. Drafts, untagged
// releases and releases without a phar asset are skipped.
func toRelease(name string, gr githubRelease) (Release, bool) {
	if gr.Draft {
		return Release{}, false
	}
	v, err := version.Parse(gr.TagName)
	if err != nil {
		return Release{}, false
	}
	if gr.Prerelease && !v.IsPreRelease() {
		return Release{}, false
	}

	assets := make(map[string]string, len(gr.Assets))
	var pharAsset string
	for _, a := range gr.Assets {
		assets[a.Name] = a.BrowserDownloadURL
		if path.Ext(a.Name) == ".phar" && pharAsset == "" {
			pharAsset = a.Name
		}
	}
	if pharAsset == "" {
		return Release{}, false
	}

	return Release{
		Name:         name,
		Version:      v,
		URL:          assets[pharAsset],
		SignatureURL: assets[pharAsset+".asc"],
		BundleURL:    assets[pharAsset+".sigstore.json"],
	}, true
}

// checkRateLimit reports exhausted quota from the X-RateLimit-* headers.
func checkRateLimit(resp *http.Response) error {
	remaining, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	if err != nil || remaining > 0 {
		return nil //nolint:nilerr // missing or malformed header is non-fatal
	}

	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))                 //nolint:errcheck
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64) //nolint:errcheck
	return &RateLimitError{Limit: limit, ResetAt: time.Unix(resetUnix, 0)}
}

// parseLinkHeader extracts the "next" page URL from a GitHub Link header.
func parseLinkHeader(header string) string {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}
	return ""
}
