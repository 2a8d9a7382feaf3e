package domain

// TaskKind identifies the granularity of a download task.
type TaskKind string

const (
	TaskImage     TaskKind = "image"
	TaskChapter   TaskKind = "chapter"
	TaskAlbum     TaskKind = "album"
	TaskCover     TaskKind = "cover"
	TaskThumbnail TaskKind = "thumbnail"
)

// TaskEvent is handed to observers at task lifecycle points.
type TaskEvent struct {
	ID        string
	Kind      TaskKind
	AlbumID   int64
	ChapterID int64
	Index     int
	Path      string
	Cached    bool
}

// Hook observes download task lifecycles. Hooks run in registration order
// on the goroutine executing the task; the downloader is correct with none
// registered.
type Hook interface {
	OnTaskStart(ev TaskEvent)
	OnTaskSuccess(ev TaskEvent)
	OnTaskFailure(ev TaskEvent, err error)
}

// ChapterResult aggregates per-image outcomes of one chapter download.
type ChapterResult struct {
	Chapter  *Chapter
	Paths    []string
	Skipped  int
	Failures []ImageFailure
}

type ImageFailure struct {
	Image Image
	Err   error
}

// Total counts images the chapter attempted, cache hits included.
func (r *ChapterResult) Total() int {
	return len(r.Paths) + len(r.Failures)
}

// Complete reports whether every image succeeded or was already cached.
func (r *ChapterResult) Complete() bool {
	return len(r.Failures) == 0
}

// AlbumResult aggregates per-chapter outcomes of one album download.
type AlbumResult struct {
	Album    *Album
	Chapters []*ChapterResult
}

// Complete reports whether every chapter completed.
func (r *AlbumResult) Complete() bool {
	for _, cr := range r.Chapters {
		if !cr.Complete() {
			return false
		}
	}
	return true
}

// Paths flattens all written or cached image paths across chapters.
func (r *AlbumResult) Paths() []string {
	var paths []string
	for _, cr := range r.Chapters {
		paths = append(paths, cr.Paths...)
	}
	return paths
}
