package domain

// Sort orders accepted by the remote service.
const (
	OrderLatest   = "mr"
	OrderViews    = "mv"
	OrderPictures = "mp"
	OrderLikes    = "tf"
)

// Time windows combined with a sort order.
const (
	TimeToday = "t"
	TimeWeek  = "w"
	TimeMonth = "m"
	TimeAll   = "a"
)

// Search scopes. The service addresses them by ordinal.
const (
	MainTagSite = iota
	MainTagWork
	MainTagAuthor
	MainTagTag
	MainTagActor
)

const (
	CategoryAll           = "0"
	CategoryDoujin        = "doujin"
	CategorySingle        = "single"
	CategoryShort         = "short"
	CategoryAnother       = "another"
	CategoryHanman        = "hanman"
	CategoryMeiman        = "meiman"
	CategoryDoujinCosplay = "doujin_cosplay"
	CategoryThreeD        = "3D"
	CategoryEnglishSite   = "english_site"
)

// SearchPageSize is the fixed result count per page served by the remote
// service; page math derives from it.
const SearchPageSize = 80

type SearchQuery struct {
	Query       string
	Page        int
	MainTag     int
	Order       string
	Time        string
	Category    string
	SubCategory string
}

type CategoryQuery struct {
	Page        int
	Order       string
	Time        string
	Category    string
	SubCategory string
}

type SearchPage struct {
	Query    string
	Page     int
	PageSize int
	Pages    int
	Total    int
	Results  []SearchResult
}

type SearchResult struct {
	ID       int64
	Title    string
	Author   string
	Category string
	CoverURL string
}

// OrderParam composes the wire value of the "o" parameter from a sort order
// and a time window. A window other than all-time rides along as a suffix.
func OrderParam(order, time string) string {
	if order == "" {
		order = OrderLatest
	}
	if time == "" || time == TimeAll {
		return order
	}
	return order + "_" + time
}

// CategoryParam composes the wire value of the "c" parameter.
func CategoryParam(category, sub string) string {
	if category == "" {
		category = CategoryAll
	}
	if sub == "" {
		return category
	}
	return category + "_" + sub
}

// PageCount derives the page total the way the service's own pager does.
func PageCount(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + SearchPageSize - 1) / SearchPageSize
}
