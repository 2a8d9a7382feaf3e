package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"gallarr/internal/domain"
	"gallarr/internal/logger"
)

func testConfig(serverURL string) *domain.Config {
	return &domain.Config{
		ClientType:    domain.ClientTypeAPI,
		APIDomains:    []string{serverURL},
		ImageDomains:  []string{serverURL},
		RetryAttempts: 1,
		AppVersion:    "1.8.0",
		Secrets: domain.SecretConfig{
			Token:        "18comicAPP",
			ContentToken: "18comicAPPContent",
			Data:         "185Hcomic3PAPP7R",
		},
	}
}

// serveEnveloped answers the way the live service does: it verifies the
// signature headers, then encrypts the payload under the request's own
// timestamp.
func serveEnveloped(t *testing.T, w http.ResponseWriter, r *http.Request, secret string, payload []byte) {
	t.Helper()

	parts := strings.SplitN(r.Header.Get("tokenparam"), ",", 2)
	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		t.Errorf("bad tokenparam %q", r.Header.Get("tokenparam"))
		http.Error(w, "bad tokenparam", http.StatusBadRequest)
		return
	}

	if got := r.Header.Get("token"); got != requestToken(ts, secret) {
		t.Errorf("bad token %q for ts %d", got, ts)
		http.Error(w, "bad token", http.StatusUnauthorized)
		return
	}

	data := encodePayload(t, payload, ts, "185Hcomic3PAPP7R")
	if err := json.NewEncoder(w).Encode(map[string]any{"code": 200, "data": data}); err != nil {
		t.Errorf("encode envelope: %v", err)
	}
}

func TestAPIClientAlbumDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/album", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id"); got != "438516" {
			t.Errorf("id param = %q", got)
		}
		serveEnveloped(t, w, r, "18comicAPP", []byte(`{
			"id": "438516",
			"name": "Sample Album",
			"likes": "3.2K",
			"series": [{"id": "438516", "name": "前編", "sort": "1"}]
		}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newAPIClient(testConfig(server.URL), logger.Noop())

	album, err := c.GetAlbumDetail(context.Background(), 438516)
	if err != nil {
		t.Fatalf("GetAlbumDetail failed: %v", err)
	}
	if album.ID != 438516 || album.Title != "Sample Album" || album.Likes != 3200 {
		t.Errorf("album = %+v", album)
	}
	if len(album.Chapters) != 1 || album.Chapters[0].Title != "前編" {
		t.Errorf("chapters = %+v", album.Chapters)
	}
}

func TestAPIClientChapterDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/chapter", func(w http.ResponseWriter, r *http.Request) {
		// the chapter payload rides the optional zlib layer
		serveEnveloped(t, w, r, "18comicAPP", deflate(t, []byte(`{
			"id": "438517",
			"series_id": "438516",
			"name": "後編",
			"sort": "2",
			"images": ["00001.webp", "00002.webp"]
		}`)))
	})
	mux.HandleFunc("/chapter_view_template", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(r.Header.Get("tokenparam"), ",", 2)
		ts, _ := strconv.ParseInt(parts[0], 10, 64)
		if got := r.Header.Get("token"); got != requestToken(ts, "18comicAPPContent") {
			t.Errorf("view template signed with the wrong secret: %q", got)
		}
		if got := r.URL.Query().Get("id"); got != "438517" {
			t.Errorf("id param = %q", got)
		}
		fmt.Fprint(w, `<script>var scramble_id = 268851;</script>`)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newAPIClient(testConfig(server.URL), logger.Noop())

	ch, err := c.GetChapterDetail(context.Background(), 438517)
	if err != nil {
		t.Fatalf("GetChapterDetail failed: %v", err)
	}
	if ch.ID != 438517 || ch.AlbumID != 438516 || ch.Title != "後編" {
		t.Errorf("chapter = %+v", ch)
	}
	if ch.ScrambleID != 268851 {
		t.Errorf("ScrambleID = %d, want 268851", ch.ScrambleID)
	}
	for i, img := range ch.Images {
		if img.ScrambleID != 268851 {
			t.Errorf("images[%d].ScrambleID = %d", i, img.ScrambleID)
		}
	}
}

func TestAPIClientScrambleSeedFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/chapter", func(w http.ResponseWriter, r *http.Request) {
		serveEnveloped(t, w, r, "18comicAPP", []byte(`{"id": 100, "images": ["00001.webp"]}`))
	})
	mux.HandleFunc("/chapter_view_template", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>no seed here</html>`)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newAPIClient(testConfig(server.URL), logger.Noop())

	ch, err := c.GetChapterDetail(context.Background(), 100)
	if err != nil {
		t.Fatalf("GetChapterDetail failed: %v", err)
	}
	if ch.ScrambleID != 220980 {
		t.Errorf("ScrambleID = %d, want the table epoch", ch.ScrambleID)
	}
}

func TestAPIClientNotFound(t *testing.T) {
	var requests atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/album", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if err := json.NewEncoder(w).Encode(map[string]any{"code": 404, "errorMsg": "不存在"}); err != nil {
			t.Errorf("encode envelope: %v", err)
		}
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.RetryAttempts = 3
	c := newAPIClient(cfg, logger.Noop())

	_, err := c.GetAlbumDetail(context.Background(), 999999)
	if err == nil {
		t.Fatal("expected an error")
	}

	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error is %T, want NotFoundError", err)
	}
	if nf.Kind != "album" || nf.ID != 999999 {
		t.Errorf("not found = %+v", nf)
	}

	if n := requests.Load(); n != 1 {
		t.Errorf("service refusal was retried: %d requests", n)
	}
}

func TestAPIClientFailover(t *testing.T) {
	fastBackoff(t)

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close() // keep the address, refuse the connection

	mux := http.NewServeMux()
	mux.HandleFunc("/album", func(w http.ResponseWriter, r *http.Request) {
		serveEnveloped(t, w, r, "18comicAPP", []byte(`{"id": 1000, "name": "A"}`))
	})
	live := httptest.NewServer(mux)
	defer live.Close()

	cfg := testConfig(live.URL)
	cfg.APIDomains = []string{dead.URL, live.URL}
	c := newAPIClient(cfg, logger.Noop())

	album, err := c.GetAlbumDetail(context.Background(), 1000)
	if err != nil {
		t.Fatalf("GetAlbumDetail failed: %v", err)
	}
	if album.ID != 1000 {
		t.Errorf("album = %+v", album)
	}
}

func TestAPIClientSearch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("o"); got != "mv_w" {
			t.Errorf("o param = %q, want mv_w", got)
		}
		if got := q.Get("main_tag"); got != "2" {
			t.Errorf("main_tag param = %q, want 2", got)
		}
		if got := q.Get("search_query"); got != "touhou" {
			t.Errorf("search_query param = %q", got)
		}
		serveEnveloped(t, w, r, "18comicAPP", []byte(`{
			"search_query": "touhou",
			"total": "81",
			"content": [{"id": "100", "name": "First"}]
		}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newAPIClient(testConfig(server.URL), logger.Noop())

	sp, err := c.Search(context.Background(), domain.SearchQuery{
		Query:   "touhou",
		MainTag: domain.MainTagAuthor,
		Order:   domain.OrderViews,
		Time:    domain.TimeWeek,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if sp.Total != 81 || sp.Pages != 2 || len(sp.Results) != 1 {
		t.Errorf("page = %+v", sp)
	}
	if sp.Query != "touhou" {
		t.Errorf("Query = %q", sp.Query)
	}
}

func TestAPIClientCategoriesFilter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/categories/filter", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("c"); got != "doujin_cos" {
			t.Errorf("c param = %q, want doujin_cos", got)
		}
		if got := q.Get("o"); got != "mr" {
			t.Errorf("o param = %q, want mr", got)
		}
		serveEnveloped(t, w, r, "18comicAPP", []byte(`{"total": 1, "content": [{"id": "7", "name": "Only"}]}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newAPIClient(testConfig(server.URL), logger.Noop())

	sp, err := c.CategoriesFilter(context.Background(), domain.CategoryQuery{
		Category:    domain.CategoryDoujin,
		SubCategory: "cos",
	})
	if err != nil {
		t.Fatalf("CategoriesFilter failed: %v", err)
	}
	if len(sp.Results) != 1 || sp.Results[0].ID != 7 {
		t.Errorf("results = %+v", sp.Results)
	}
}

func TestAPIClientFetchImage(t *testing.T) {
	raw := []byte("not really a webp")

	mux := http.NewServeMux()
	mux.HandleFunc("/media/photos/438517/00001.webp", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write(raw); err != nil {
			t.Errorf("write image: %v", err)
		}
	})
	mux.HandleFunc("/media/albums/438516.jpg", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("cover bytes")); err != nil {
			t.Errorf("write cover: %v", err)
		}
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newAPIClient(testConfig(server.URL), logger.Noop())

	img, err := c.FetchImage(context.Background(), domain.Image{
		AlbumID:   438516,
		ChapterID: 438517,
		Index:     1,
		Name:      "00001.webp",
	})
	if err != nil {
		t.Fatalf("FetchImage failed: %v", err)
	}
	if string(img) != string(raw) {
		t.Errorf("image bytes = %q", img)
	}

	cover, err := c.FetchCover(context.Background(), 438516)
	if err != nil {
		t.Fatalf("FetchCover failed: %v", err)
	}
	if string(cover) != "cover bytes" {
		t.Errorf("cover bytes = %q", cover)
	}
}
