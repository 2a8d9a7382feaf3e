package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gallarr/internal/domain"
)

// flexInt tolerates the service's habit of sending numbers as strings,
// occasionally with a textual prefix.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		id, idErr := NormalizeID(s)
		if idErr != nil {
			return err
		}
		n = id
	}

	*f = flexInt(n)
	return nil
}

type apiAlbum struct {
	ID           flexInt      `json:"id"`
	Name         string       `json:"name"`
	Author       []string     `json:"author"`
	Tags         []string     `json:"tags"`
	Works        []string     `json:"works"`
	Actors       []string     `json:"actor"`
	Description  string       `json:"description"`
	Likes        string       `json:"likes"`
	TotalViews   string       `json:"total_views"`
	CommentTotal string       `json:"comment_total"`
	AddTime      string       `json:"addtime"`
	UpdateAt     string       `json:"update_at"`
	SeriesID     flexInt      `json:"series_id"`
	Series       []apiEpisode `json:"series"`
	Images       []string     `json:"images"`
}

type apiEpisode struct {
	ID      flexInt `json:"id"`
	Name    string  `json:"name"`
	Title   string  `json:"title"`
	Sort    string  `json:"sort"`
	AddTime string  `json:"addtime"`
}

type apiChapter struct {
	ID       flexInt  `json:"id"`
	SeriesID flexInt  `json:"series_id"`
	Name     string   `json:"name"`
	Sort     string   `json:"sort"`
	Tags     []string `json:"tags"`
	AddTime  string   `json:"addtime"`
	Images   []string `json:"images"`
}

type apiCategory struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type apiSearchItem struct {
	ID       flexInt     `json:"id"`
	Name     string      `json:"name"`
	Author   string      `json:"author"`
	Image    string      `json:"image"`
	Category apiCategory `json:"category"`
}

type apiSearchPage struct {
	SearchQuery string          `json:"search_query"`
	Total       flexInt         `json:"total"`
	Content     []apiSearchItem `json:"content"`
	RedirectAID flexInt         `json:"redirect_aid"`
	Name        string          `json:"name"`
	Author      []string        `json:"author"`
}

// AlbumPayload maps a decoded album response onto the domain entity. An
// album the service stores without an episode list becomes a single
// pseudo-chapter carrying the album's own id.
func AlbumPayload(data []byte) (*domain.Album, error) {
	var payload apiAlbum
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &domain.ParseError{Entity: "album", Err: err}
	}

	if payload.ID == 0 || payload.Name == "" {
		return nil, &domain.ParseError{Entity: "album", Err: errors.New("missing id or name")}
	}

	album := &domain.Album{
		ID:           int64(payload.ID),
		Title:        payload.Name,
		Description:  payload.Description,
		Tags:         payload.Tags,
		Authors:      payload.Author,
		Actors:       payload.Actors,
		Works:        payload.Works,
		Likes:        LenientCount(payload.Likes),
		Views:        LenientCount(payload.TotalViews),
		CommentCount: LenientCount(payload.CommentTotal),
		PageCount:    len(payload.Images),
		PubDate:      payload.AddTime,
		UpdateDate:   payload.UpdateAt,
	}

	for i, ep := range payload.Series {
		album.Chapters = append(album.Chapters, episodeChapter(album.ID, i, ep))
	}

	if len(album.Chapters) == 0 {
		album.Chapters = []domain.Chapter{{
			ID:      album.ID,
			AlbumID: album.ID,
			Order:   1,
			Title:   album.Title,
		}}
	}

	return album, nil
}

func episodeChapter(albumID int64, position int, ep apiEpisode) domain.Chapter {
	order := position + 1
	if n, err := strconv.Atoi(strings.TrimSpace(ep.Sort)); err == nil && n > 0 {
		order = n
	}

	title := ep.Name
	if title == "" {
		title = ep.Title
	}
	if title == "" {
		title = fmt.Sprintf("Chapter %d", order)
	}

	return domain.Chapter{
		ID:      int64(ep.ID),
		AlbumID: albumID,
		Order:   order,
		Title:   title,
		PubDate: ep.AddTime,
	}
}

// ChapterPayload maps a decoded chapter response onto the domain entity.
// The image list arrives as remote filenames in page order.
func ChapterPayload(data []byte) (*domain.Chapter, error) {
	var payload apiChapter
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &domain.ParseError{Entity: "chapter", Err: err}
	}

	if payload.ID == 0 {
		return nil, &domain.ParseError{Entity: "chapter", Err: errors.New("missing id")}
	}

	albumID := int64(payload.SeriesID)
	if albumID == 0 {
		albumID = int64(payload.ID)
	}

	order := 1
	if n, err := strconv.Atoi(strings.TrimSpace(payload.Sort)); err == nil && n > 0 {
		order = n
	}

	title := payload.Name
	if title == "" {
		title = fmt.Sprintf("Chapter %d", order)
	}

	ch := &domain.Chapter{
		ID:      int64(payload.ID),
		AlbumID: albumID,
		Order:   order,
		Title:   title,
		Tags:    payload.Tags,
		PubDate: payload.AddTime,
	}

	for i, name := range payload.Images {
		ch.Images = append(ch.Images, domain.Image{
			AlbumID:   albumID,
			ChapterID: ch.ID,
			Index:     i + 1,
			Name:      name,
		})
	}

	return ch, nil
}

// SearchPayload maps a decoded search or category response. Searching for
// a bare album id makes the service answer with the album itself plus a
// redirect marker instead of a result list.
func SearchPayload(data []byte, page int) (*domain.SearchPage, error) {
	var payload apiSearchPage
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &domain.ParseError{Entity: "search", Err: err}
	}

	if payload.RedirectAID != 0 {
		var author string
		if len(payload.Author) > 0 {
			author = payload.Author[0]
		}
		return &domain.SearchPage{
			Query:    payload.SearchQuery,
			Page:     page,
			PageSize: domain.SearchPageSize,
			Pages:    1,
			Total:    1,
			Results: []domain.SearchResult{{
				ID:     int64(payload.RedirectAID),
				Title:  payload.Name,
				Author: author,
			}},
		}, nil
	}

	sp := &domain.SearchPage{
		Query:    payload.SearchQuery,
		Page:     page,
		PageSize: domain.SearchPageSize,
		Pages:    domain.PageCount(int(payload.Total)),
		Total:    int(payload.Total),
	}

	for _, item := range payload.Content {
		sp.Results = append(sp.Results, domain.SearchResult{
			ID:       int64(item.ID),
			Title:    item.Name,
			Author:   item.Author,
			Category: item.Category.Title,
			CoverURL: item.Image,
		})
	}

	return sp, nil
}
