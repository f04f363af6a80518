package player

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-resty/resty/v2"
)

// streamBackend plays progressively over HTTP range requests. It only
// supports servers that advertise byte-range support, which lets Seek
// translate into a fresh Range request instead of a re-download.
type streamBackend struct {
	rc *resty.Client
}

// NewStreamBackend creates a Backend that streams over HTTP range requests.
func NewStreamBackend() Backend {
	return &streamBackend{
		rc: resty.New().SetDoNotParseResponse(true),
	}
}

func (b *streamBackend) Name() string { return "stream" }

// Supported probes the URL with a HEAD request and requires byte-range
// support plus a known length.
func (b *streamBackend) Supported(ctx context.Context, url string) bool {
	resp, err := b.rc.R().SetContext(ctx).Head(url)
	if err != nil {
		return false
	}
	if body := resp.RawBody(); body != nil {
		_ = body.Close()
	}
	if resp.IsError() {
		return false
	}
	if resp.Header().Get("Accept-Ranges") != "bytes" {
		return false
	}
	length, err := strconv.ParseInt(resp.Header().Get("Content-Length"), 10, 64)
	return err == nil && length > 0
}

func (b *streamBackend) Open(ctx context.Context, url string) (Source, error) {
	resp, err := b.rc.R().SetContext(ctx).Head(url)
	if err != nil {
		return nil, err
	}
	if body := resp.RawBody(); body != nil {
		_ = body.Close()
	}
	if resp.IsError() {
		return nil, fmt.Errorf("server returned %d", resp.StatusCode())
	}
	size, err := strconv.ParseInt(resp.Header().Get("Content-Length"), 10, 64)
	if err != nil || size <= 0 {
		return nil, fmt.Errorf("missing content length for %q", url)
	}
	return &rangeSource{rc: b.rc, url: url, size: size}, nil
}

// rangeSource reads a URL lazily: the first Read after open or Seek issues a
// Range request from the current offset and subsequent Reads drain its body.
type rangeSource struct {
	rc   *resty.Client
	url  string
	size int64

	mu     sync.Mutex
	offset int64
	body   io.ReadCloser
}

func (s *rangeSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.offset >= s.size {
		return 0, io.EOF
	}
	if s.body == nil {
		resp, err := s.rc.R().
			SetHeader("Range", fmt.Sprintf("bytes=%d-", s.offset)).
			Get(s.url)
		if err != nil {
			return 0, err
		}
		if resp.StatusCode() != http.StatusPartialContent && resp.StatusCode() != http.StatusOK {
			if body := resp.RawBody(); body != nil {
				_ = body.Close()
			}
			return 0, fmt.Errorf("range request returned %d", resp.StatusCode())
		}
		s.body = resp.RawBody()
	}

	n, err := s.body.Read(p)
	s.offset += int64(n)
	return n, err
}

func (s *rangeSource) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = s.offset + offset
	case io.SeekEnd:
		abs = s.size + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("negative offset %d", abs)
	}
	if abs != s.offset && s.body != nil {
		_ = s.body.Close()
		s.body = nil
	}
	s.offset = abs
	return abs, nil
}

func (s *rangeSource) Size() int64 { return s.size }

func (s *rangeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.body == nil {
		return nil
	}
	err := s.body.Close()
	s.body = nil
	return err
}
