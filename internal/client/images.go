package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"

	"gallarr/internal/domain"
	"gallarr/internal/sharedhttp"
)

// imageFetcher pulls raw media bytes off the CDN mirrors. Both protocol
// variants share it, the media endpoints are not protocol-specific.
type imageFetcher struct {
	cfg     *domain.Config
	client  *http.Client
	domains *Rotator
}

func newImageFetcher(cfg *domain.Config, httpClient *http.Client) *imageFetcher {
	return &imageFetcher{
		cfg:     cfg,
		client:  httpClient,
		domains: NewRotator(cfg.ImageDomains),
	}
}

func (f *imageFetcher) Image(ctx context.Context, img domain.Image) ([]byte, error) {
	return f.fetch(ctx, fmt.Sprintf("/media/photos/%d/%s", img.ChapterID, img.Name))
}

func (f *imageFetcher) Cover(ctx context.Context, albumID int64) ([]byte, error) {
	return f.fetch(ctx, fmt.Sprintf("/media/albums/%d.jpg", albumID))
}

func (f *imageFetcher) fetch(ctx context.Context, path string) ([]byte, error) {
	var body []byte

	err := failover(ctx, f.domains, f.cfg.RetryAttempts, func(host string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL(host, path, nil), nil)
		if err != nil {
			return err
		}

		req.Header.Set("User-Agent", apiUserAgent)

		resp, err := sharedhttp.ExecRequest(*f.client, req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(bufio.NewReader(resp.Body))
		if err != nil {
			return &domain.TransportError{Host: host, Temporary: true, Err: err}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return body, nil
}
