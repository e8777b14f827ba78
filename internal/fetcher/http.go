package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
)

const (
	// DefaultBaseURL is the global CDN endpoint.
	DefaultBaseURL = "https://cdn-global.configcat.com"

	// MaxDocumentSize caps the response body read for one document.
	MaxDocumentSize = 16 << 20

	userAgentHeader = "X-ConfigCat-UserAgent"
)

// Config holds HTTP fetcher configuration
type Config struct {
	BaseURL string
	SDKKey  string

	// Timeout bounds a single request. Zero disables the client timeout.
	Timeout time.Duration

	// Proxy is an optional proxy URL.
	Proxy string

	// ClientVersion is sent in the user agent header, e.g. "a-1.0.0".
	ClientVersion string
}

// HTTPFetcher implements Fetcher with conditional GET requests.
type HTTPFetcher struct {
	url           string
	clientVersion string
	httpClient    *http.Client
	maxBodySize   int64
	now           func() time.Time
}

// NewHTTPFetcher creates a new HTTP fetcher
func NewHTTPFetcher(config Config) (*HTTPFetcher, error) {
	base := config.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	base = strings.TrimRight(base, "/")

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if config.Proxy != "" {
		proxyURL, err := url.Parse(config.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &HTTPFetcher{
		url:           URL(base, config.SDKKey),
		clientVersion: config.ClientVersion,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		maxBodySize: MaxDocumentSize,
		now:         time.Now,
	}, nil
}

// URL builds the document location for an SDK key.
func URL(baseURL, sdkKey string) string {
	return fmt.Sprintf("%s/configuration-files/%s/config_v5.json", baseURL, sdkKey)
}

// Fetch performs one conditional request for the configuration document.
func (f *HTTPFetcher) Fetch(ctx context.Context, previous domain.Snapshot) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return failed("failed to create request", err)
	}

	req.Header.Set(userAgentHeader, f.clientVersion)
	if tag := previous.VersionTag(); tag != "" {
		req.Header.Set("If-None-Match", tag)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return failed("request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return Result{Status: NotModified}

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
		if err != nil {
			return failed("failed to read response body", err)
		}
		if int64(len(body)) > f.maxBodySize {
			return failed(fmt.Sprintf("config JSON exceeds %d bytes", f.maxBodySize), nil)
		}

		var settings domain.Settings
		if err := json.Unmarshal(body, &settings); err != nil {
			return failed("malformed config JSON", err)
		}

		return Result{
			Status:   Fetched,
			Snapshot: domain.NewSnapshot(resp.Header.Get("ETag"), string(body), f.now()),
		}

	default:
		return failed(fmt.Sprintf("unexpected HTTP %d", resp.StatusCode), nil)
	}
}

func failed(reason string, err error) Result {
	return Result{
		Status: Failed,
		Err:    domain.NewFetchFailedError(reason, err),
	}
}
