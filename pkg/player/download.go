package player

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// downloadBackend buffers the whole file in memory before playback starts.
// It works against any server, so it serves as the fallback behind the
// streaming backend.
type downloadBackend struct {
	rc *resty.Client
}

// NewDownloadBackend creates a Backend that downloads the file up front.
func NewDownloadBackend() Backend {
	return &downloadBackend{rc: resty.New()}
}

func (b *downloadBackend) Name() string { return "download" }

func (b *downloadBackend) Supported(ctx context.Context, url string) bool {
	return true
}

func (b *downloadBackend) Open(ctx context.Context, url string) (Source, error) {
	resp, err := b.rc.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("server returned %d", resp.StatusCode())
	}
	return &bufferSource{Reader: bytes.NewReader(resp.Body())}, nil
}

// bufferSource adapts a bytes.Reader to the Source interface. The embedded
// reader already provides Read, Seek and Size.
type bufferSource struct {
	*bytes.Reader
}

func (s *bufferSource) Close() error { return nil }
