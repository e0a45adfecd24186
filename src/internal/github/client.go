package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/enderiumcraft/rbclauncher/src/internal/errs"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

const (
	// DefaultAPIURL is the public GitHub REST endpoint
	DefaultAPIURL = "https://api.github.com"

	// maxBufferedDownload caps whole-buffer downloads such as the version
	// descriptor and checksum list. Larger assets must be streamed.
	maxBufferedDownload = 16 << 20
)

// Options configures a Client
type Options struct {
	APIURL          string
	Repository      string
	Token           string
	DescriptorAsset string
	Timeout         time.Duration
	DownloadTimeout time.Duration
	StallTimeout    time.Duration
}

// ProgressFunc receives the bytes downloaded so far and the expected total
// (or -1 when the server did not announce a length).
type ProgressFunc func(downloaded, total int64)

// Client handles GitHub API interactions for one release repository
type Client struct {
	apiURL          string
	repo            string
	token           string
	descriptorAsset string
	httpClient      *http.Client
	downloadClient  *http.Client
	downloadTimeout time.Duration
	stallTimeout    time.Duration
}

// NewClient creates a new GitHub client
func NewClient(opts Options) *Client {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.DescriptorAsset == "" {
		opts.DescriptorAsset = "version.json"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = 10 * time.Minute
	}
	if opts.StallTimeout <= 0 {
		opts.StallTimeout = 30 * time.Second
	}

	return &Client{
		apiURL:          strings.TrimRight(opts.APIURL, "/"),
		repo:            opts.Repository,
		token:           opts.Token,
		descriptorAsset: opts.DescriptorAsset,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		// Downloads are bounded by DownloadTimeout and the stall watchdog
		// instead of a fixed client timeout.
		downloadClient:  &http.Client{},
		downloadTimeout: opts.DownloadTimeout,
		stallTimeout:    opts.StallTimeout,
	}
}

// githubRelease represents a GitHub release response
type githubRelease struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
		Size               int64  `json:"size"`
	} `json:"assets"`
}

// githubContent represents one item of the contents API response
type githubContent struct {
	Type        string `json:"type"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
}

// FetchLatestManifest fetches the latest release and its version descriptor
func (c *Client) FetchLatestManifest(ctx context.Context) (*models.ReleaseManifest, error) {
	const op = "fetch latest release"

	endpoint := fmt.Sprintf("%s/repos/%s/releases/latest", c.apiURL, c.repo)
	body, err := c.getJSON(ctx, op, endpoint)
	if err != nil {
		return nil, err
	}

	var release githubRelease
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, errs.Protocol(op, fmt.Errorf("failed to decode response: %w", err))
	}
	if release.TagName == "" {
		return nil, errs.Protocol(op, fmt.Errorf("release has no tag"))
	}

	manifest := c.convertRelease(&release)

	descriptor, ok := manifest.Asset(c.descriptorAsset)
	if !ok {
		return nil, errs.Protocol(op, fmt.Errorf("release %s has no %s asset", manifest.Tag, c.descriptorAsset))
	}

	data, err := c.Download(ctx, descriptor.DownloadURL)
	if err != nil {
		return nil, err
	}

	var versions models.VersionState
	if err := json.Unmarshal(data, &versions); err != nil {
		return nil, errs.Protocol(op, fmt.Errorf("failed to decode %s: %w", c.descriptorAsset, err))
	}
	if versions.BinaryVersion == "" || versions.ContentVersion == "" {
		return nil, errs.Protocol(op, fmt.Errorf("%s must name both launcher and modpack versions", c.descriptorAsset))
	}
	manifest.Versions = versions

	return manifest, nil
}

// ListContents lists the files below dir at ref, descending into
// subdirectories. Only entries of type "file" are returned.
func (c *Client) ListContents(ctx context.Context, dir, ref string) ([]models.ContentEntry, error) {
	var files []models.ContentEntry
	if err := c.walkContents(ctx, dir, ref, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (c *Client) walkContents(ctx context.Context, dir, ref string, out *[]models.ContentEntry) error {
	const op = "list content tree"

	endpoint := fmt.Sprintf("%s/repos/%s/contents/%s?ref=%s",
		c.apiURL, c.repo, escapePath(dir), url.QueryEscape(ref))
	body, err := c.getJSON(ctx, op, endpoint)
	if err != nil {
		return err
	}

	var items []githubContent
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var single githubContent
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return errs.Protocol(op, fmt.Errorf("failed to decode response: %w", err))
		}
		items = append(items, single)
	} else if err := json.Unmarshal(trimmed, &items); err != nil {
		return errs.Protocol(op, fmt.Errorf("failed to decode response: %w", err))
	}

	for _, item := range items {
		switch item.Type {
		case "file":
			if item.DownloadURL == "" {
				return errs.Protocol(op, fmt.Errorf("%s has no download URL", item.Path))
			}
			*out = append(*out, models.ContentEntry{
				Type:        item.Type,
				Path:        item.Path,
				DownloadURL: item.DownloadURL,
				Size:        item.Size,
			})
		case "dir":
			if err := c.walkContents(ctx, item.Path, ref, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// Download retrieves a small asset into memory
func (c *Client) Download(ctx context.Context, assetURL string) ([]byte, error) {
	var buf bytes.Buffer
	w := &limitedWriter{w: &buf, remaining: maxBufferedDownload}
	if _, err := c.DownloadTo(ctx, assetURL, w, nil); err != nil {
		if w.exceeded {
			return nil, errs.Protocol("download asset", fmt.Errorf("%s is larger than %d bytes", assetURL, maxBufferedDownload))
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

// DownloadTo streams an asset into w with a fixed-size buffer, so memory
// use does not grow with the asset size. It returns the number of bytes
// written.
func (c *Client) DownloadTo(ctx context.Context, assetURL string, w io.Writer, progress ProgressFunc) (int64, error) {
	const op = "download asset"

	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	watch := newStallWatch(ctx, c.stallTimeout)
	defer watch.stop()

	req, err := http.NewRequestWithContext(watch.ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return 0, errs.Network(op, fmt.Errorf("failed to create request: %w", err))
	}
	c.authorize(req)
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return 0, errs.Network(op, watch.explain(fmt.Errorf("failed to download %s: %w", assetURL, err)))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, errs.Network(op, fmt.Errorf("download failed: %s", resp.Status))
	}

	total := resp.ContentLength
	downloaded := int64(0)

	buffer := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buffer)
		if n > 0 {
			watch.touch()
			if _, writeErr := w.Write(buffer[:n]); writeErr != nil {
				return downloaded, errs.Filesystem(op, fmt.Errorf("failed to write: %w", writeErr))
			}
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return downloaded, errs.Network(op, watch.explain(fmt.Errorf("failed to read response: %w", err)))
		}
	}

	if total > 0 && downloaded != total {
		return downloaded, errs.Network(op, fmt.Errorf("short download: got %d of %d bytes", downloaded, total))
	}
	return downloaded, nil
}

func (c *Client) getJSON(ctx context.Context, op, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errs.Network(op, fmt.Errorf("failed to create request: %w", err))
	}
	c.authorize(req)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Network(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBufferedDownload))
	if err != nil {
		return nil, errs.Network(op, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.Network(op, fmt.Errorf("github API error: %s - %s", resp.Status, strings.TrimSpace(string(body))))
	}
	return body, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("token %s", c.token))
	}
}

// convertRelease converts a GitHub release to our manifest model
func (c *Client) convertRelease(release *githubRelease) *models.ReleaseManifest {
	manifest := &models.ReleaseManifest{
		Tag:         release.TagName,
		PublishedAt: release.PublishedAt,
		Assets:      make([]models.Asset, 0, len(release.Assets)),
	}
	for _, asset := range release.Assets {
		manifest.Assets = append(manifest.Assets, models.Asset{
			Name:        asset.Name,
			DownloadURL: asset.BrowserDownloadURL,
			Size:        asset.Size,
		})
	}
	return manifest
}

func escapePath(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

type limitedWriter struct {
	w         io.Writer
	remaining int64
	exceeded  bool
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if int64(len(p)) > l.remaining {
		l.exceeded = true
		return 0, fmt.Errorf("download exceeds buffer limit")
	}
	l.remaining -= int64(len(p))
	return l.w.Write(p)
}
