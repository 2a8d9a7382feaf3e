package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gallarr/internal/domain"
	"gallarr/internal/logger"
	"gallarr/internal/parse"
	"gallarr/internal/scramble"
	"gallarr/internal/sharedhttp"
)

const apiUserAgent = "okhttp/3.12.1"

type apiClient struct {
	cfg     *domain.Config
	log     logger.Logger
	client  *http.Client
	domains *Rotator
	images  *imageFetcher
}

func newAPIClient(cfg *domain.Config, log logger.Logger) *apiClient {
	httpClient := &http.Client{
		Timeout:   60 * time.Second,
		Transport: sharedhttp.NewTransport(cfg.Proxy),
	}

	return &apiClient{
		cfg:     cfg,
		log:     log,
		client:  httpClient,
		domains: NewRotator(cfg.APIDomains),
		images:  newImageFetcher(cfg, httpClient),
	}
}

func (c *apiClient) String() string {
	return "api"
}

// signedRequest builds one attempt against host. The returned timestamp is
// the one the token was derived from; the response can only be decrypted
// with it.
func (c *apiClient) signedRequest(ctx context.Context, host, path string, params url.Values, secret string) (*http.Request, int64, error) {
	ts := time.Now().Unix()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL(host, path, params), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", apiUserAgent)
	req.Header.Set("token", requestToken(ts, secret))
	req.Header.Set("tokenparam", fmt.Sprintf("%d,%s", ts, c.cfg.AppVersion))

	return req, ts, nil
}

// fetchData runs one enveloped endpoint across the domain rotation and
// returns the decrypted payload.
func (c *apiClient) fetchData(ctx context.Context, path string, params url.Values, secret string) ([]byte, error) {
	var payload []byte

	err := failover(ctx, c.domains, c.cfg.RetryAttempts, func(host string) error {
		req, ts, err := c.signedRequest(ctx, host, path, params, secret)
		if err != nil {
			return err
		}

		resp, err := sharedhttp.ExecRequest(*c.client, req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(bufio.NewReader(resp.Body))
		if err != nil {
			return &domain.TransportError{Host: host, Temporary: true, Err: err}
		}

		var envelope struct {
			Code     int             `json:"code"`
			Data     json.RawMessage `json:"data"`
			ErrorMsg string          `json:"errorMsg"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return &domain.DecodeError{Reason: "envelope", Err: err}
		}

		if envelope.Code != http.StatusOK {
			return &domain.NotFoundError{Msg: envelope.ErrorMsg}
		}

		var data string
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return &domain.DecodeError{Reason: "envelope data", Err: err}
		}

		payload, err = decodePayload(data, ts, c.cfg.Secrets.Data)
		return err
	})
	if err != nil {
		return nil, err
	}

	return payload, nil
}

// fetchTemplate runs an endpoint that answers with a plain page instead of
// the encrypted envelope.
func (c *apiClient) fetchTemplate(ctx context.Context, path string, params url.Values, secret string) ([]byte, error) {
	var body []byte

	err := failover(ctx, c.domains, c.cfg.RetryAttempts, func(host string) error {
		req, _, err := c.signedRequest(ctx, host, path, params, secret)
		if err != nil {
			return err
		}

		resp, err := sharedhttp.ExecRequest(*c.client, req)
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

func (c *apiClient) GetAlbumDetail(ctx context.Context, id int64) (*domain.Album, error) {
	params := url.Values{
		"id": {strconv.FormatInt(id, 10)},
	}

	data, err := c.fetchData(ctx, "/album", params, c.cfg.Secrets.Token)
	if err != nil {
		return nil, notFound(err, "album", id)
	}

	return parse.AlbumPayload(data)
}

func (c *apiClient) GetChapterDetail(ctx context.Context, id int64) (*domain.Chapter, error) {
	params := url.Values{
		"id": {strconv.FormatInt(id, 10)},
	}

	data, err := c.fetchData(ctx, "/chapter", params, c.cfg.Secrets.Token)
	if err != nil {
		return nil, notFound(err, "chapter", id)
	}

	ch, err := parse.ChapterPayload(data)
	if err != nil {
		return nil, err
	}

	seed, err := c.scrambleSeed(ctx, ch.ID)
	if err != nil {
		return nil, err
	}

	ch.ScrambleID = seed
	for i := range ch.Images {
		ch.Images[i].ScrambleID = seed
	}

	return ch, nil
}

// scrambleSeed reads the descramble seed off the chapter view page. Old
// chapters predate the variable; they fall back to the table epoch, which
// descrambles them as a single band.
func (c *apiClient) scrambleSeed(ctx context.Context, chapterID int64) (int64, error) {
	params := url.Values{
		"id":            {strconv.FormatInt(chapterID, 10)},
		"mode":          {"vertical"},
		"page":          {"0"},
		"app_img_shunt": {"1"},
		"express":       {"off"},
	}

	body, err := c.fetchTemplate(ctx, "/chapter_view_template", params, c.cfg.Secrets.ContentToken)
	if err != nil {
		return 0, err
	}

	if seed, ok := parse.ScrambleID(body); ok {
		return seed, nil
	}

	c.log.Debug().Msgf("chapter %d view page carries no scramble seed, assuming epoch", chapterID)

	if c.cfg.Scramble.Epoch > 0 {
		return c.cfg.Scramble.Epoch, nil
	}

	return scramble.DefaultTable().Epoch, nil
}

func (c *apiClient) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}

	params := url.Values{
		"search_query": {q.Query},
		"o":            {domain.OrderParam(q.Order, q.Time)},
		"page":         {strconv.Itoa(page)},
		"main_tag":     {strconv.Itoa(q.MainTag)},
	}

	data, err := c.fetchData(ctx, "/search", params, c.cfg.Secrets.Token)
	if err != nil {
		return nil, notFound(err, "search", 0)
	}

	sp, err := parse.SearchPayload(data, page)
	if err != nil {
		return nil, err
	}

	sp.Query = q.Query
	return sp, nil
}

func (c *apiClient) CategoriesFilter(ctx context.Context, q domain.CategoryQuery) (*domain.SearchPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}

	params := url.Values{
		"o":    {domain.OrderParam(q.Order, q.Time)},
		"c":    {domain.CategoryParam(q.Category, q.SubCategory)},
		"page": {strconv.Itoa(page)},
	}

	data, err := c.fetchData(ctx, "/categories/filter", params, c.cfg.Secrets.Token)
	if err != nil {
		return nil, notFound(err, "categories", 0)
	}

	return parse.SearchPayload(data, page)
}

func (c *apiClient) FetchImage(ctx context.Context, img domain.Image) ([]byte, error) {
	return c.images.Image(ctx, img)
}

func (c *apiClient) FetchCover(ctx context.Context, albumID int64) ([]byte, error) {
	return c.images.Cover(ctx, albumID)
}

// notFound stamps the resource identity onto a service refusal, leaving
// every other error untouched.
func notFound(err error, kind string, id int64) error {
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		return &domain.NotFoundError{Kind: kind, ID: id, Msg: nf.Msg}
	}
	return err
}
