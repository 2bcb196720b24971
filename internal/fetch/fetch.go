// Package fetch is the thin HTTP collaborator the container pipeline
// drives for video bodies and XML sidecars: it knows how to fetch,
// resume, and retry, and nothing about URLs, playlists, or feeds.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// ErrResumeMismatch is returned by VerifyOverlap when the server's tail
// bytes for the resumed range don't match the caller's existing local
// bytes, meaning the two copies have diverged and the resume must be
// aborted.
var ErrResumeMismatch = errors.New("fetch: resume overlap mismatch")

// OverlapLen is the number of trailing bytes re-requested and compared
// on a resumed fetch before the caller is allowed to append (spec.md §5).
const OverlapLen = 128

// Fetcher issues the handful of HTTP requests the pipeline needs:
// whole-body GETs, ranged resumes, and small text payloads. Retries use
// a capped exponential backoff around transport-level failures and
// non-2xx responses; it never interprets response bodies as anything
// but opaque bytes.
type Fetcher struct {
	Client     *http.Client
	MaxRetries int
	Logger     *zerolog.Logger
}

// New builds a Fetcher with the given timeout and retry budget. A nil
// logger is replaced with zerolog's disabled logger so callers never
// need a nil check.
func New(timeout time.Duration, maxRetries int, logger *zerolog.Logger) *Fetcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Fetcher{
		Client:     &http.Client{Timeout: timeout},
		MaxRetries: maxRetries,
		Logger:     logger,
	}
}

// Body fetches url in full, returning the response body, its
// Content-Type, and its Content-Length (-1 if the server didn't send
// one). The caller must close the returned ReadCloser.
func (f *Fetcher) Body(ctx context.Context, url string) (io.ReadCloser, string, int64, error) {
	resp, err := f.doWithRetry(ctx, url, "")
	if err != nil {
		return nil, "", 0, err
	}
	return resp.Body, resp.Header.Get("Content-Type"), resp.ContentLength, nil
}

// ResumeBody resumes a partial download of url whose locally-held
// length is existingLength. It issues a Range request for
// bytes=existingLength-OverlapLen onward (clamped to 0 for short
// files) and returns the response body unread: the caller reads the
// overlap off its front, compares it against its own trailing bytes
// (VerifyOverlap) and then appends the remainder to its file. It does
// not perform the comparison itself — the caller holds the existing bytes.
func (f *Fetcher) ResumeBody(ctx context.Context, url string, existingLength int64) (io.ReadCloser, error) {
	start := existingLength - OverlapLen
	if start < 0 {
		start = 0
	}
	resp, err := f.doWithRetry(ctx, url, fmt.Sprintf("bytes=%d-", start))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch: resume %s: server returned %d, want 206", url, resp.StatusCode)
	}
	return resp.Body, nil
}

// VerifyOverlap reports whether the OverlapLen bytes the server sent at
// the front of a resumed response match the caller's own trailing
// bytes from the same offset, per spec.md §5's resume-mismatch rule.
func VerifyOverlap(serverOverlap, localTail []byte) error {
	if len(serverOverlap) != len(localTail) {
		return fmt.Errorf("%w: overlap length %d != %d", ErrResumeMismatch, len(serverOverlap), len(localTail))
	}
	for i := range serverOverlap {
		if serverOverlap[i] != localTail[i] {
			return ErrResumeMismatch
		}
	}
	return nil
}

// Text fetches url and returns its body in full, for the small XML
// payloads (annotations, timed text) the subtitle producer consumes.
func (f *Fetcher) Text(ctx context.Context, url string) ([]byte, error) {
	body, _, _, err := f.Body(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("fetch: read %s: %w", url, err)
	}
	return data, nil
}

func (f *Fetcher) doWithRetry(ctx context.Context, url, rangeHeader string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= f.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoff(attempt)
			f.Logger.Warn().Str("url", url).Int("attempt", attempt).Dur("delay", delay).Err(lastErr).Msg("retrying fetch")
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		resp, err := f.do(ctx, url, rangeHeader)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("fetch: %s: %w", url, lastErr)
}

func (f *Fetcher) do(ctx context.Context, url, rangeHeader string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return resp, nil
}

// backoff returns a capped exponential delay for the given 1-based
// retry attempt: 250ms, 500ms, 1s, 2s, ... capped at 8s.
func backoff(attempt int) time.Duration {
	d := 250 * time.Millisecond
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= 8*time.Second {
			return 8 * time.Second
		}
	}
	return d
}

// parseContentRangeTotal extracts the declared total length from a
// "Content-Range: bytes start-end/total" header, or -1 if absent or
// malformed. Unused by the resume path itself (the caller already
// knows its local length) but kept for callers that want to log the
// server's view of the remote size.
func parseContentRangeTotal(header string) int64 {
	if header == "" {
		return -1
	}
	i := len(header) - 1
	for i >= 0 && header[i] != '/' {
		i--
	}
	if i < 0 || i == len(header)-1 {
		return -1
	}
	total, err := strconv.ParseInt(header[i+1:], 10, 64)
	if err != nil {
		return -1
	}
	return total
}
