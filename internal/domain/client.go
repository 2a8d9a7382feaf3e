package domain

import "context"

// Client is the capability surface of the remote gallery service. Two
// implementations exist, one per protocol variant, chosen by configuration
// at construction time; callers never branch on the variant.
type Client interface {
	String() string
	GetAlbumDetail(ctx context.Context, id int64) (*Album, error)
	GetChapterDetail(ctx context.Context, id int64) (*Chapter, error)
	Search(ctx context.Context, q SearchQuery) (*SearchPage, error)
	CategoriesFilter(ctx context.Context, q CategoryQuery) (*SearchPage, error)
	FetchImage(ctx context.Context, img Image) ([]byte, error)
	FetchCover(ctx context.Context, albumID int64) ([]byte, error)
}

type Album struct {
	ID           int64
	Title        string
	Description  string
	Tags         []string
	Authors      []string
	Actors       []string
	Works        []string
	Likes        int
	Views        int
	CommentCount int
	PageCount    int
	PubDate      string
	UpdateDate   string
	Chapters     []Chapter
}

type Chapter struct {
	ID         int64
	AlbumID    int64
	Order      int
	Title      string
	PubDate    string
	Tags       []string
	ScrambleID int64
	Images     []Image
}

// Image describes one remote page. Name is the remote filename; the on-disk
// name is derived from Index and the configured suffix only, so cache hits
// survive URL and domain rotation.
type Image struct {
	AlbumID    int64
	ChapterID  int64
	Index      int
	Name       string
	ScrambleID int64
}
