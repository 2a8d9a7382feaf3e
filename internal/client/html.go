package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gallarr/internal/domain"
	"gallarr/internal/logger"
	"gallarr/internal/parse"
	"gallarr/internal/scramble"
	"gallarr/internal/sharedhttp"

	"github.com/gocolly/colly"
	"github.com/gocolly/colly/extensions"
)

type htmlClient struct {
	cfg       *domain.Config
	log       logger.Logger
	collector *colly.Collector
	domains   *Rotator
	images    *imageFetcher
}

func newHTMLClient(cfg *domain.Config, log logger.Logger) *htmlClient {
	collector := colly.NewCollector(
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(60 * time.Second)

	if cfg.Proxy != "" {
		if err := collector.SetProxy(cfg.Proxy); err != nil {
			log.Error().Err(err).Msgf("invalid proxy %q", cfg.Proxy)
		}
	}

	httpClient := &http.Client{
		Timeout:   60 * time.Second,
		Transport: sharedhttp.NewTransport(cfg.Proxy),
	}

	return &htmlClient{
		cfg:       cfg,
		log:       log,
		collector: collector,
		domains:   NewRotator(cfg.HTMLDomains),
		images:    newImageFetcher(cfg, httpClient),
	}
}

func (c *htmlClient) String() string {
	return "html"
}

// fetchPage visits one page across the domain rotation and returns its raw
// body. Clones share the parent collector's cookie jar, so the session
// survives rotation while callbacks stay private to the attempt.
func (c *htmlClient) fetchPage(ctx context.Context, path string, params url.Values) ([]byte, error) {
	var body []byte

	err := failover(ctx, c.domains, c.cfg.RetryAttempts, func(host string) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		cl := c.collector.Clone()
		extensions.RandomUserAgent(cl)

		var page []byte
		cl.OnResponse(func(r *colly.Response) {
			page = r.Body
		})

		var visitErr error
		cl.OnError(func(r *colly.Response, err error) {
			if r != nil && r.StatusCode != 0 {
				if serr := sharedhttp.CheckStatusCode(host, r.StatusCode); serr != nil {
					visitErr = serr
					return
				}
			}
			visitErr = &domain.TransportError{Host: host, Temporary: true, Err: err}
		})

		if err := cl.Visit(endpointURL(host, path, params)); err != nil {
			if visitErr != nil {
				return visitErr
			}
			return &domain.TransportError{Host: host, Temporary: true, Err: err}
		}

		if len(page) == 0 {
			return &domain.TransportError{Host: host, Temporary: true, Err: errors.New("empty response")}
		}

		body = page
		return nil
	})
	if err != nil {
		return nil, err
	}

	return body, nil
}

func (c *htmlClient) GetAlbumDetail(ctx context.Context, id int64) (*domain.Album, error) {
	body, err := c.fetchPage(ctx, fmt.Sprintf("/album/%d", id), nil)
	if err != nil {
		return nil, missingPage(err, "album", id)
	}

	return parse.AlbumHTML(body)
}

func (c *htmlClient) GetChapterDetail(ctx context.Context, id int64) (*domain.Chapter, error) {
	body, err := c.fetchPage(ctx, fmt.Sprintf("/photo/%d", id), nil)
	if err != nil {
		return nil, missingPage(err, "chapter", id)
	}

	ch, err := parse.ChapterHTML(body, id)
	if err != nil {
		return nil, err
	}

	if ch.ScrambleID == 0 {
		seed := c.cfg.Scramble.Epoch
		if seed <= 0 {
			seed = scramble.DefaultTable().Epoch
		}

		c.log.Debug().Msgf("chapter %d page carries no scramble seed, assuming epoch", id)

		ch.ScrambleID = seed
		for i := range ch.Images {
			ch.Images[i].ScrambleID = seed
		}
	}

	return ch, nil
}

func (c *htmlClient) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchPage, error) {
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

	body, err := c.fetchPage(ctx, "/search/photos", params)
	if err != nil {
		return nil, err
	}

	sp, err := parse.SearchHTML(body, page)
	if err != nil {
		return nil, err
	}

	sp.Query = q.Query
	return sp, nil
}

func (c *htmlClient) CategoriesFilter(ctx context.Context, q domain.CategoryQuery) (*domain.SearchPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}

	path := "/albums"
	if q.Category != "" && q.Category != domain.CategoryAll {
		path += "/" + q.Category
	}

	params := url.Values{
		"o":    {domain.OrderParam(q.Order, q.Time)},
		"page": {strconv.Itoa(page)},
	}

	body, err := c.fetchPage(ctx, path, params)
	if err != nil {
		return nil, err
	}

	return parse.SearchHTML(body, page)
}

func (c *htmlClient) FetchImage(ctx context.Context, img domain.Image) ([]byte, error) {
	return c.images.Image(ctx, img)
}

func (c *htmlClient) FetchCover(ctx context.Context, albumID int64) ([]byte, error) {
	return c.images.Cover(ctx, albumID)
}

// missingPage maps a page-level 404 onto the resource identity, leaving
// every other error untouched.
func missingPage(err error, kind string, id int64) error {
	var terr *domain.TransportError
	if errors.As(err, &terr) && terr.Status == http.StatusNotFound {
		return &domain.NotFoundError{Kind: kind, ID: id}
	}
	return err
}
