// Package remote checks a published dataset mirror so already-uploaded
// partitions can be skipped without touching the browser. The check is
// advisory: any mirror failure reads as "not present" and the run
// proceeds normally.
package remote

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kmacleod/hoopsweep/internal/config"
	"github.com/kmacleod/hoopsweep/internal/types"
)

// Mirror queries the dataset mirror's file index over HTTP. Lookups are
// cached: within one run a partition's remote presence cannot change in
// a way the run cares about.
type Mirror struct {
	baseURL string
	client  *http.Client
	cache   *lru.Cache[string, bool]
	logger  *slog.Logger
}

// NewMirror builds a Mirror from config.
func NewMirror(cfg config.RemoteConfig, logger *slog.Logger) (*Mirror, error) {
	cache, err := lru.New[string, bool](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create mirror cache: %w", err)
	}

	return &Mirror{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        8,
				IdleConnTimeout:     30 * time.Second,
				DisableCompression:  true, // decompression handled here, including brotli
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		cache:   cache,
		logger:  logger.With("component", "remote_mirror"),
	}, nil
}

// Exists reports whether the mirror already holds the partition file
// for a work item.
func (m *Mirror) Exists(ctx context.Context, item types.WorkItem) (bool, error) {
	year, month, day := item.DateParts()
	name := fmt.Sprintf("basketball_%s_%s_%s_%s_%s.csv",
		item.Gender, item.Division, year, month, day)
	remotePath := strings.Join([]string{year, month, string(item.Gender), string(item.Division), name}, "/")

	if present, ok := m.cache.Get(remotePath); ok {
		return present, nil
	}

	present, err := m.lookup(ctx, remotePath, name)
	if err != nil {
		return false, err
	}
	m.cache.Add(remotePath, present)
	return present, nil
}

// lookup asks the mirror's index endpoint whether the file exists. The
// index answers a directory query with a listing body; the file is
// present when its name appears in it.
func (m *Mirror) lookup(ctx context.Context, remotePath, name string) (bool, error) {
	dir := remotePath[:strings.LastIndex(remotePath, "/")]
	target := m.baseURL + "/index/" + dir + "?q=" + url.QueryEscape(name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, fmt.Errorf("build mirror request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := m.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("query mirror: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("mirror returned %s for %s", resp.Status, dir)
	}

	reader, err := decompressReader(resp, resp.Body)
	if err != nil {
		return false, fmt.Errorf("decompress mirror response: %w", err)
	}
	body, err := io.ReadAll(io.LimitReader(reader, 1<<20))
	if err != nil {
		return false, fmt.Errorf("read mirror response: %w", err)
	}

	present := strings.Contains(string(body), name)
	m.logger.Debug("mirror lookup", "path", remotePath, "present", present)
	return present, nil
}

// decompressReader wraps a reader with the decompressor matching the
// response's Content-Encoding. Handles gzip, deflate, and brotli.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}
