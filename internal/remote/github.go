package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/2beens/gymlog/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultGitHubAPIURL = "https://api.github.com"

const (
	mediaTypeJSON = "application/vnd.github+json"
	mediaTypeRaw  = "application/vnd.github.raw"
)

var _ BlobHost = (*GitHubHost)(nil)

// GitHubHost stores resources as files of a repository through the contents API. The file
// sha is the version token.
type GitHubHost struct {
	account    Account
	apiURL     string
	httpClient *http.Client
	now        func() time.Time

	// read-only resources may be served from cache
	cache        *freecache.Cache
	cacheTTLSecs int
	cachedPaths  map[string]bool
}

type GitHubOption func(*GitHubHost)

func WithAPIURL(url string) GitHubOption {
	return func(h *GitHubHost) {
		h.apiURL = strings.TrimSuffix(url, "/")
	}
}

// WithReadCache caches fetches of the given paths. Only resources never written through
// this host belong here: a cached version token would make every later Put conflict.
func WithReadCache(cache *freecache.Cache, ttl time.Duration, paths ...string) GitHubOption {
	return func(h *GitHubHost) {
		h.cache = cache
		h.cacheTTLSecs = int(ttl.Seconds())
		for _, p := range paths {
			h.cachedPaths[p] = true
		}
	}
}

func NewGitHubHost(account Account, httpClient *http.Client, opts ...GitHubOption) *GitHubHost {
	h := &GitHubHost{
		account:     account,
		apiURL:      DefaultGitHubAPIURL,
		httpClient:  httpClient,
		now:         time.Now,
		cachedPaths: make(map[string]bool),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

type contentsFile struct {
	Sha      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type contentsPut struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Sha     string `json:"sha,omitempty"`
}

type contentsPutResponse struct {
	Content struct {
		Sha string `json:"sha"`
	} `json:"content"`
}

func (h *GitHubHost) url(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", h.apiURL, h.account.Owner, h.account.Repo, path)
}

func (h *GitHubHost) cacheKey(path string) []byte {
	return []byte(h.account.String() + "::" + path)
}

func (h *GitHubHost) do(ctx context.Context, method, path, accept string, body io.Reader) (*http.Response, error) {
	if !h.account.Connected() {
		return nil, ErrNotConnected
	}
	req, err := http.NewRequestWithContext(ctx, method, h.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "token "+h.account.Token)
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, err)
	}
	return resp, nil
}

func statusError(resp *http.Response, onConflict bool) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case onConflict && (resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity):
		return fmt.Errorf("%w: status %d: %s", ErrConflict, resp.StatusCode, bytes.TrimSpace(msg))
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
}

func (h *GitHubHost) Fetch(ctx context.Context, path string) (_ Blob, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "remote.github.fetch")
	span.SetAttributes(attribute.String("path", path))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	cached := h.cache != nil && h.cachedPaths[path]
	if cached {
		if data, err := h.cache.Get(h.cacheKey(path)); err == nil {
			log.Tracef("github host: %s served from cache", path)
			return decodeFile(data)
		}
	}

	data, err := h.get(ctx, path, mediaTypeJSON)
	if err != nil {
		return Blob{}, err
	}

	file, err := parseFile(data)
	if err != nil {
		return Blob{}, err
	}
	// files over 1 MB come without content; their bytes need the raw media type
	if file.Encoding == "none" {
		content, err := h.get(ctx, path, mediaTypeRaw)
		if err != nil {
			return Blob{}, err
		}
		return Blob{Content: content, Version: file.Sha}, nil
	}

	blob, err := file.blob()
	if err != nil {
		return Blob{}, err
	}
	if cached {
		if err := h.cache.Set(h.cacheKey(path), data, h.cacheTTLSecs); err != nil {
			log.Errorf("github host: cache %s: %s", path, err)
		}
	}
	return blob, nil
}

func (h *GitHubHost) get(ctx context.Context, path, accept string) ([]byte, error) {
	resp, err := h.do(ctx, http.MethodGet, path, accept, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, false)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %s", ErrUnreachable, err)
	}
	return data, nil
}

func parseFile(data []byte) (contentsFile, error) {
	var file contentsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return contentsFile{}, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	return file, nil
}

func decodeFile(data []byte) (Blob, error) {
	file, err := parseFile(data)
	if err != nil {
		return Blob{}, err
	}
	return file.blob()
}

func (file contentsFile) blob() (Blob, error) {
	if file.Encoding != "" && file.Encoding != "base64" {
		return Blob{}, fmt.Errorf("%w: unsupported encoding %q", ErrMalformed, file.Encoding)
	}
	// the API wraps base64 content at 60 columns
	content, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
	if err != nil {
		return Blob{}, fmt.Errorf("%w: content: %s", ErrMalformed, err)
	}
	return Blob{Content: content, Version: file.Sha}, nil
}

func (h *GitHubHost) Put(ctx context.Context, path string, content []byte, version string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "remote.github.put")
	span.SetAttributes(attribute.String("path", path), attribute.Bool("create", version == ""))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	body, err := json.Marshal(contentsPut{
		Message: fmt.Sprintf("Update %s %s", path, h.now().UTC().Format(time.RFC3339)),
		Content: base64.StdEncoding.EncodeToString(content),
		Sha:     version,
	})
	if err != nil {
		return "", fmt.Errorf("marshal put body: %w", err)
	}

	resp, err := h.do(ctx, http.MethodPut, path, mediaTypeJSON, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", statusError(resp, true)
	}

	var putResp contentsPutResponse
	if err := json.NewDecoder(resp.Body).Decode(&putResp); err != nil {
		return "", fmt.Errorf("%w: put response: %s", ErrMalformed, err)
	}
	if h.cache != nil {
		h.cache.Del(h.cacheKey(path))
	}
	return putResp.Content.Sha, nil
}

// HostFactory builds the host of a connected account.
type HostFactory func(account Account) BlobHost

func GitHubFactory(httpClient *http.Client, opts ...GitHubOption) HostFactory {
	return func(account Account) BlobHost {
		return NewGitHubHost(account, httpClient, opts...)
	}
}
