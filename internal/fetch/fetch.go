// Package fetch downloads remote media for the video download endpoint,
// either with a plain traced HTTP GET or through yt-dlp for page URLs.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"mediavault/internal/config"
)

var (
	ErrInvalidURL = errors.New("url must be an absolute http or https URL")
	ErrTooLarge   = errors.New("remote media exceeds the size limit")
)

// Download is a fetched media body. Close releases any temporary files.
type Download struct {
	io.ReadCloser
	Size        int64 // -1 when unknown
	ContentType string
}

// Fetcher retrieves remote media.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Download, error)
}

// New picks yt-dlp when a binary is configured, plain HTTP otherwise.
func New(cfg config.FetchConfig, log *zap.Logger) Fetcher {
	if cfg.YtDlpPath != "" {
		return &ytdlpFetcher{bin: cfg.YtDlpPath, timeout: cfg.Timeout, maxBytes: cfg.MaxBytes, log: log}
	}
	return NewHTTP(cfg)
}

func checkURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}
	return u, nil
}

type httpFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTP returns a Fetcher doing a single traced GET.
func NewHTTP(cfg config.FetchConfig) Fetcher {
	return &httpFetcher{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.Timeout,
		},
		maxBytes: cfg.MaxBytes,
	}
}

func (f *httpFetcher) Fetch(ctx context.Context, rawURL string) (*Download, error) {
	u, err := checkURL(rawURL)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u.Host, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %d", u.Host, resp.StatusCode)
	}
	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		resp.Body.Close()
		return nil, ErrTooLarge
	}

	body := resp.Body
	if f.maxBytes > 0 {
		body = &capReader{rc: resp.Body, left: f.maxBytes}
	}
	return &Download{
		ReadCloser:  body,
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// capReader fails with ErrTooLarge once more than left bytes have been read.
type capReader struct {
	rc   io.ReadCloser
	left int64
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.left < 0 {
		return 0, ErrTooLarge
	}
	if int64(len(p)) > c.left+1 {
		p = p[:c.left+1]
	}
	n, err := c.rc.Read(p)
	c.left -= int64(n)
	if c.left < 0 {
		return n, ErrTooLarge
	}
	return n, err
}

func (c *capReader) Close() error { return c.rc.Close() }

type ytdlpFetcher struct {
	bin      string
	timeout  time.Duration
	maxBytes int64
	log      *zap.Logger
}

func ytdlpArgs(rawURL, out string) []string {
	return []string{
		"-f", "bestvideo+bestaudio",
		"--merge-output-format", "mp4",
		"--no-playlist",
		"-o", out,
		rawURL,
	}
}

func (f *ytdlpFetcher) Fetch(ctx context.Context, rawURL string) (*Download, error) {
	u, err := checkURL(rawURL)
	if err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp("", "mediavault-fetch-*")
	if err != nil {
		return nil, err
	}
	out := filepath.Join(dir, "download.mp4")

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	args := ytdlpArgs(u.String(), out)
	if f.maxBytes > 0 {
		args = append([]string{"--max-filesize", fmt.Sprintf("%d", f.maxBytes)}, args...)
	}
	cmd := exec.CommandContext(ctx, f.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.RemoveAll(dir)
		f.log.Error("ytdlp_failed", zap.String("host", u.Host), zap.String("stderr", strings.TrimSpace(stderr.String())), zap.Error(err))
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}

	file, err := os.Open(out)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("yt-dlp produced no file: %w", err)
	}
	st, err := file.Stat()
	if err != nil {
		file.Close()
		os.RemoveAll(dir)
		return nil, err
	}
	return &Download{
		ReadCloser:  &tempFile{File: file, dir: dir},
		Size:        st.Size(),
		ContentType: "video/mp4",
	}, nil
}

// tempFile deletes its directory on Close.
type tempFile struct {
	*os.File
	dir string
}

func (t *tempFile) Close() error {
	err := t.File.Close()
	os.RemoveAll(t.dir)
	return err
}
