package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gallarr/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

var (
	albumHrefPattern    = regexp.MustCompile(`/album/(\d+)`)
	albumIDPattern      = regexp.MustCompile(`var\s+aid\s*=\s*(\d+)`)
	pageListPattern     = regexp.MustCompile(`var\s+page_arr\s*=\s*(\[[^\]]*\])`)
	episodeOrderPattern = regexp.MustCompile(`第\s*(\d+)\s*[話话]`)
	viewsPattern        = regexp.MustCompile(`([0-9][0-9.,]*[KkMm万萬]?)\s*次觀看`)
	searchTotalPattern  = regexp.MustCompile(`共\s*([\d,]+)\s*[筆笔]`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

// AlbumHTML parses an album detail page.
func AlbumHTML(body []byte) (*domain.Album, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &domain.ParseError{Entity: "album", Err: err}
	}

	title := strings.TrimSpace(doc.Find("h1#book-name").First().Text())
	if title == "" {
		return nil, &domain.ParseError{Entity: "album", Err: errors.New("missing book name")}
	}

	id, err := NormalizeID(strings.TrimSpace(doc.Find("span.number").First().Text()))
	if err != nil {
		return nil, &domain.ParseError{Entity: "album", Err: err}
	}

	album := &domain.Album{
		ID:        id,
		Title:     title,
		Tags:      attrGroup(doc, "tags"),
		Authors:   attrGroup(doc, "author"),
		Actors:    attrGroup(doc, "actor"),
		Works:     attrGroup(doc, "works"),
		PageCount: LenientCount(doc.Find("span.pagecount").First().Text()),
		Likes:     LenientCount(doc.Find("span[id^='albim_likes_']").First().Text()),
	}

	if m := viewsPattern.FindStringSubmatch(doc.Text()); m != nil {
		album.Views = LenientCount(m[1])
	}

	doc.Find("#intro-block .p-t-5").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		for _, prefix := range []string{"敘述：", "敘述:", "叙述：", "叙述:"} {
			if strings.HasPrefix(text, prefix) {
				album.Description = strings.TrimSpace(strings.TrimPrefix(text, prefix))
				return false
			}
		}
		return true
	})

	dates := doc.Find("span[itemprop='datePublished']")
	album.PubDate = strings.TrimSpace(dates.First().AttrOr("content", ""))
	if dates.Length() > 1 {
		album.UpdateDate = strings.TrimSpace(dates.Eq(1).AttrOr("content", ""))
	}

	doc.Find("div.episode ul a[data-album]").Each(func(i int, s *goquery.Selection) {
		chID, err := NormalizeID(s.AttrOr("data-album", ""))
		if err != nil {
			return
		}

		li := s.Find("li").First()
		pub := strings.TrimSpace(li.Find(".hidden-xs").First().Text())

		text := strings.TrimSpace(li.Text())
		if pub != "" {
			text = strings.Replace(text, pub, "", 1)
		}

		order := i + 1
		if m := episodeOrderPattern.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				order = n
			}
			text = strings.Replace(text, m[0], "", 1)
		}

		chTitle := strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
		if chTitle == "" {
			chTitle = fmt.Sprintf("Chapter %d", order)
		}

		album.Chapters = append(album.Chapters, domain.Chapter{
			ID:      chID,
			AlbumID: id,
			Order:   order,
			Title:   chTitle,
			PubDate: pub,
		})
	})

	if len(album.Chapters) == 0 {
		album.Chapters = []domain.Chapter{{
			ID:      id,
			AlbumID: id,
			Order:   1,
			Title:   title,
		}}
	}

	return album, nil
}

func attrGroup(doc *goquery.Document, dataType string) []string {
	var out []string
	doc.Find(fmt.Sprintf("span[data-type=%q] a", dataType)).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

// ChapterHTML parses a reader page for the chapter requested as id. The
// page carries the scramble seed and the remote filename list as script
// variables rather than markup.
func ChapterHTML(body []byte, id int64) (*domain.Chapter, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &domain.ParseError{Entity: "chapter", Err: err}
	}

	albumID := id
	if m := albumIDPattern.FindSubmatch(body); m != nil {
		if n, err := strconv.ParseInt(string(m[1]), 10, 64); err == nil {
			albumID = n
		}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if i := strings.Index(title, "|"); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	if title == "" {
		title = "Chapter 1"
	}

	ch := &domain.Chapter{
		ID:      id,
		AlbumID: albumID,
		Order:   1,
		Title:   title,
	}

	if sid, ok := ScrambleID(body); ok {
		ch.ScrambleID = sid
	}

	m := pageListPattern.FindSubmatch(body)
	if m == nil {
		return nil, &domain.ParseError{Entity: "chapter", Err: errors.New("missing page list")}
	}

	var names []string
	if err := json.Unmarshal(m[1], &names); err != nil {
		return nil, &domain.ParseError{Entity: "chapter", Err: err}
	}

	for i, name := range names {
		ch.Images = append(ch.Images, domain.Image{
			AlbumID:    albumID,
			ChapterID:  id,
			Index:      i + 1,
			Name:       name,
			ScrambleID: ch.ScrambleID,
		})
	}

	return ch, nil
}

// SearchHTML parses a search result listing. Searching for a bare album
// id redirects to the album page itself, which parses as a single result.
func SearchHTML(body []byte, page int) (*domain.SearchPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &domain.ParseError{Entity: "search", Err: err}
	}

	if doc.Find("h1#book-name").Length() > 0 {
		album, err := AlbumHTML(body)
		if err != nil {
			return nil, err
		}
		var author string
		if len(album.Authors) > 0 {
			author = album.Authors[0]
		}
		return &domain.SearchPage{
			Page:     page,
			PageSize: domain.SearchPageSize,
			Pages:    1,
			Total:    1,
			Results: []domain.SearchResult{{
				ID:     album.ID,
				Title:  album.Title,
				Author: author,
			}},
		}, nil
	}

	sp := &domain.SearchPage{
		Page:     page,
		PageSize: domain.SearchPageSize,
		Pages:    1,
	}

	doc.Find("span.video-title").Each(func(_ int, title *goquery.Selection) {
		card := title.Parent()

		href := card.Find("a[href*='/album/']").First().AttrOr("href", "")
		m := albumHrefPattern.FindStringSubmatch(href)
		if m == nil {
			return
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return
		}

		img := card.Find("img").First()
		cover := img.AttrOr("data-original", "")
		if cover == "" {
			cover = img.AttrOr("src", "")
		}

		sp.Results = append(sp.Results, domain.SearchResult{
			ID:       id,
			Title:    strings.TrimSpace(title.Text()),
			Author:   strings.TrimSpace(card.Find(".title-truncate a").First().Text()),
			Category: strings.TrimSpace(card.Find(".category-icon div").First().Text()),
			CoverURL: cover,
		})
	})

	if m := searchTotalPattern.FindStringSubmatch(doc.Text()); m != nil {
		sp.Total = LenientCount(m[1])
		sp.Pages = domain.PageCount(sp.Total)
	} else {
		sp.Total = len(sp.Results)
	}

	return sp, nil
}
