// Package download schedules image, chapter and album downloads with
// bounded fan-out, cache skipping and atomic writes.
package download

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // needed to decode gif
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gallarr/internal/domain"
	"gallarr/internal/files"
	"gallarr/internal/logger"
	"gallarr/internal/scramble"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	_ "golang.org/x/image/webp" // needed to decode webp
	"golang.org/x/sync/semaphore"
)

// Options customizes a Downloader beyond the config surface. The zero value
// selects the OS filesystem, the configured scramble table and no observers.
type Options struct {
	// Fs is the filesystem downloads are written to.
	Fs afero.Fs

	// Decider maps images to their descramble band count.
	Decider scramble.Decider

	// Hooks observe task lifecycles in registration order.
	Hooks []domain.Hook
}

type Downloader struct {
	cfg     *domain.Config
	client  domain.Client
	log     logger.Logger
	fs      afero.Fs
	decider scramble.Decider
	hooks   []domain.Hook

	suffix     string
	imageSem   *semaphore.Weighted
	chapterSem *semaphore.Weighted
}

func New(cfg *domain.Config, client domain.Client, log logger.Logger, opts Options) *Downloader {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	decider := opts.Decider
	if decider == nil {
		decider = scramble.NewTable(cfg.Scramble)
	}

	suffix := cfg.ImageSuffix
	if suffix == "" {
		suffix = ".jpg"
	}

	imageThreads := cfg.ImageThreads
	if imageThreads < 1 {
		imageThreads = 30
	}

	chapterThreads := cfg.ChapterThreads
	if chapterThreads < 1 {
		chapterThreads = 16
	}

	return &Downloader{
		cfg:        cfg,
		client:     client,
		log:        log,
		fs:         fs,
		decider:    decider,
		hooks:      opts.Hooks,
		suffix:     suffix,
		imageSem:   semaphore.NewWeighted(int64(imageThreads)),
		chapterSem: semaphore.NewWeighted(int64(chapterThreads)),
	}
}

// AlbumDir is the directory an album's chapters land under.
func (d *Downloader) AlbumDir(albumID int64) string {
	return filepath.Join(d.cfg.DownloadLocation, "photos", strconv.FormatInt(albumID, 10))
}

// ChapterDir is the directory a chapter's images land in.
func (d *Downloader) ChapterDir(albumID, chapterID int64) string {
	return filepath.Join(d.AlbumDir(albumID), strconv.FormatInt(chapterID, 10))
}

// CoverPath is the album cover location.
func (d *Downloader) CoverPath(albumID int64) string {
	return filepath.Join(d.AlbumDir(albumID), "cover"+d.suffix)
}

// ThumbnailPath is the list-thumbnail location.
func (d *Downloader) ThumbnailPath(albumID int64) string {
	return filepath.Join(d.cfg.DownloadLocation, "thumbnails",
		strconv.FormatInt(albumID, 10)+d.suffix)
}

func (d *Downloader) imagePath(destDir string, index int) string {
	return filepath.Join(destDir, fmt.Sprintf("%05d%s", index, d.suffix))
}

// Image downloads one page into destDir, processes it per configuration and
// moves it into place atomically. An empty destDir selects the canonical
// chapter directory. With caching enabled an existing file short-circuits
// without network I/O.
func (d *Downloader) Image(ctx context.Context, img domain.Image, destDir string) (string, error) {
	p, _, err := d.image(ctx, img, destDir)
	return p, err
}

func (d *Downloader) image(ctx context.Context, img domain.Image, destDir string) (string, bool, error) {
	if destDir == "" {
		destDir = d.ChapterDir(img.AlbumID, img.ChapterID)
	}
	target := d.imagePath(destDir, img.Index)

	ev := domain.TaskEvent{
		ID:        uuid.New().String(),
		Kind:      domain.TaskImage,
		AlbumID:   img.AlbumID,
		ChapterID: img.ChapterID,
		Index:     img.Index,
		Path:      target,
	}

	if d.cfg.CacheEnabled {
		if ok, _ := afero.Exists(d.fs, target); ok {
			ev.Cached = true
			d.emitStart(ev)
			d.emitSuccess(ev)
			return target, true, nil
		}
	}

	d.emitStart(ev)

	data, err := d.client.FetchImage(ctx, img)
	if err != nil {
		d.emitFailure(ev, err)
		return "", false, &domain.ImageError{Image: img, Err: err}
	}

	out, err := d.processImage(img, data)
	if err != nil {
		d.emitFailure(ev, err)
		return "", false, &domain.ImageError{Image: img, Err: err}
	}

	if err := d.writeAtomic(target, out); err != nil {
		d.emitFailure(ev, err)
		return "", false, &domain.ImageError{Image: img, Err: err}
	}

	d.log.Debug().Int64("album", img.AlbumID).Int64("chapter", img.ChapterID).
		Int("index", img.Index).Msg("image saved")

	d.emitSuccess(ev)
	return target, false, nil
}

// processImage turns fetched bytes into the bytes to store: descrambled and
// re-encoded when the transform applies, converted to the target format
// otherwise, untouched when the source already is the target format.
func (d *Downloader) processImage(img domain.Image, data []byte) ([]byte, error) {
	segments := 1
	if d.cfg.DecodeImages && scramble.Transformable(img.Name) {
		segments = d.decider.Segments(img.ScrambleID, img.ChapterID, scramble.Stem(img.Name))
	}

	if segments <= 1 {
		if strings.EqualFold(path.Ext(img.Name), d.suffix) {
			return data, nil
		}
		return d.reencode(img.Name, data)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &domain.DescrambleError{Name: img.Name, Segments: segments, Err: err}
	}

	restored := scramble.Reassemble(src, segments)

	var buf bytes.Buffer
	if err := files.EncodeImage(&buf, restored, d.suffix); err != nil {
		return nil, &domain.DescrambleError{Name: img.Name, Segments: segments, Err: err}
	}

	return buf.Bytes(), nil
}

func (d *Downloader) reencode(name string, data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &domain.DecodeError{Reason: fmt.Sprintf("image %s", name), Err: err}
	}

	var buf bytes.Buffer
	if err := files.EncodeImage(&buf, src, d.suffix); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// writeAtomic stages data next to target and renames it into place, so a
// concurrent reader never observes a partial file under the final name.
func (d *Downloader) writeAtomic(target string, data []byte) error {
	if err := d.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	tmp := target + ".dl"
	if err := afero.WriteFile(d.fs, tmp, data, 0o644); err != nil {
		d.fs.Remove(tmp)
		return err
	}

	if err := d.fs.Rename(tmp, target); err != nil {
		d.fs.Remove(tmp)
		return err
	}

	return nil
}

// Chapter fans the chapter's images out across the image pool, resolving the
// descriptors first when the caller holds only a listing stub. One failed
// image never cancels its siblings; the aggregate error carries the partial
// result.
func (d *Downloader) Chapter(ctx context.Context, ch *domain.Chapter) (*domain.ChapterResult, error) {
	if len(ch.Images) == 0 {
		resolved, err := d.client.GetChapterDetail(ctx, ch.ID)
		if err != nil {
			return nil, err
		}
		ch = resolved
	}

	dir := d.ChapterDir(ch.AlbumID, ch.ID)

	ev := domain.TaskEvent{
		ID:        uuid.New().String(),
		Kind:      domain.TaskChapter,
		AlbumID:   ch.AlbumID,
		ChapterID: ch.ID,
		Path:      dir,
	}
	d.emitStart(ev)

	type outcome struct {
		path   string
		cached bool
		err    error
	}

	outcomes := make([]outcome, len(ch.Images))
	var wg sync.WaitGroup

	for i := range ch.Images {
		if err := d.imageSem.Acquire(ctx, 1); err != nil {
			outcomes[i] = outcome{err: err}
			continue
		}

		wg.Add(1)
		go func(i int, img domain.Image) {
			defer wg.Done()
			defer d.imageSem.Release(1)

			p, cached, err := d.image(ctx, img, dir)
			outcomes[i] = outcome{path: p, cached: cached, err: err}
		}(i, ch.Images[i])
	}
	wg.Wait()

	res := &domain.ChapterResult{Chapter: ch}
	var errs []error

	for i, o := range outcomes {
		if o.err != nil {
			res.Failures = append(res.Failures, domain.ImageFailure{Image: ch.Images[i], Err: o.err})
			errs = append(errs, o.err)
			continue
		}

		res.Paths = append(res.Paths, o.path)
		if o.cached {
			res.Skipped++
		}
	}

	if len(errs) > 0 {
		err := &domain.ChapterError{ChapterID: ch.ID, Result: res, Errs: errs}
		d.emitFailure(ev, err)
		return res, err
	}

	d.log.Info().Int64("album", ch.AlbumID).Int64("chapter", ch.ID).
		Int("images", len(res.Paths)).Int("cached", res.Skipped).Msg("chapter complete")

	d.emitSuccess(ev)
	return res, nil
}

// Album fans chapters out across the chapter pool, each chapter in turn
// across the shared image pool. The cover is not implied, callers ask for it
// separately.
func (d *Downloader) Album(ctx context.Context, album *domain.Album) (*domain.AlbumResult, error) {
	if len(album.Chapters) == 0 {
		resolved, err := d.client.GetAlbumDetail(ctx, album.ID)
		if err != nil {
			return nil, err
		}
		album = resolved
	}

	ev := domain.TaskEvent{
		ID:      uuid.New().String(),
		Kind:    domain.TaskAlbum,
		AlbumID: album.ID,
	}
	d.emitStart(ev)

	results := make([]*domain.ChapterResult, len(album.Chapters))
	chErrs := make([]error, len(album.Chapters))
	var wg sync.WaitGroup

	for i := range album.Chapters {
		if err := d.chapterSem.Acquire(ctx, 1); err != nil {
			chErrs[i] = err
			continue
		}

		wg.Add(1)
		go func(i int, ch domain.Chapter) {
			defer wg.Done()
			defer d.chapterSem.Release(1)

			results[i], chErrs[i] = d.Chapter(ctx, &ch)
		}(i, album.Chapters[i])
	}
	wg.Wait()

	res := &domain.AlbumResult{Album: album}
	var errs []error

	for i := range album.Chapters {
		if results[i] != nil {
			res.Chapters = append(res.Chapters, results[i])
		}
		if chErrs[i] != nil {
			errs = append(errs, chErrs[i])
		}
	}

	if len(errs) > 0 {
		err := &domain.AlbumError{AlbumID: album.ID, Result: res, Errs: errs}
		d.emitFailure(ev, err)
		return res, err
	}

	d.log.Info().Int64("album", album.ID).Int("chapters", len(res.Chapters)).Msg("album complete")

	d.emitSuccess(ev)
	return res, nil
}

// Cover downloads the album cover to its canonical path.
func (d *Downloader) Cover(ctx context.Context, albumID int64) (string, error) {
	target := d.CoverPath(albumID)

	ev := domain.TaskEvent{
		ID:      uuid.New().String(),
		Kind:    domain.TaskCover,
		AlbumID: albumID,
		Path:    target,
	}

	if d.cfg.CacheEnabled {
		if ok, _ := afero.Exists(d.fs, target); ok {
			ev.Cached = true
			d.emitStart(ev)
			d.emitSuccess(ev)
			return target, nil
		}
	}

	d.emitStart(ev)

	data, err := d.client.FetchCover(ctx, albumID)
	if err != nil {
		d.emitFailure(ev, err)
		return "", err
	}

	// covers are served as jpeg
	out := data
	if !strings.EqualFold(d.suffix, ".jpg") {
		out, err = d.reencode("cover.jpg", data)
		if err != nil {
			d.emitFailure(ev, err)
			return "", err
		}
	}

	if err := d.writeAtomic(target, out); err != nil {
		d.emitFailure(ev, err)
		return "", err
	}

	d.emitSuccess(ev)
	return target, nil
}

// Thumbnail downloads the album cover and stores a downscaled copy under the
// thumbnail root.
func (d *Downloader) Thumbnail(ctx context.Context, albumID int64) (string, error) {
	target := d.ThumbnailPath(albumID)

	ev := domain.TaskEvent{
		ID:      uuid.New().String(),
		Kind:    domain.TaskThumbnail,
		AlbumID: albumID,
		Path:    target,
	}

	if d.cfg.CacheEnabled {
		if ok, _ := afero.Exists(d.fs, target); ok {
			ev.Cached = true
			d.emitStart(ev)
			d.emitSuccess(ev)
			return target, nil
		}
	}

	d.emitStart(ev)

	data, err := d.client.FetchCover(ctx, albumID)
	if err != nil {
		d.emitFailure(ev, err)
		return "", err
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		derr := &domain.DecodeError{Reason: "cover", Err: err}
		d.emitFailure(ev, derr)
		return "", derr
	}

	var buf bytes.Buffer
	if err := files.EncodeImage(&buf, files.Thumbnail(src), d.suffix); err != nil {
		d.emitFailure(ev, err)
		return "", err
	}

	if err := d.writeAtomic(target, buf.Bytes()); err != nil {
		d.emitFailure(ev, err)
		return "", err
	}

	d.emitSuccess(ev)
	return target, nil
}

// ClearChapter deletes a chapter's stored images, returning the deleted
// filenames.
func (d *Downloader) ClearChapter(albumID, chapterID int64) ([]string, error) {
	matches, err := afero.Glob(d.fs, filepath.Join(d.ChapterDir(albumID, chapterID), "*"+d.suffix))
	if err != nil {
		return nil, err
	}

	var deleted []string
	for _, m := range matches {
		if err := d.fs.Remove(m); err != nil {
			return deleted, err
		}
		deleted = append(deleted, filepath.Base(m))
	}

	return deleted, nil
}

// RemoveCover deletes a stored album cover, reporting whether one existed.
func (d *Downloader) RemoveCover(albumID int64) (bool, error) {
	return d.removeFile(d.CoverPath(albumID))
}

// RemoveThumbnail deletes a stored thumbnail, reporting whether one existed.
func (d *Downloader) RemoveThumbnail(albumID int64) (bool, error) {
	return d.removeFile(d.ThumbnailPath(albumID))
}

func (d *Downloader) removeFile(path string) (bool, error) {
	ok, err := afero.Exists(d.fs, path)
	if err != nil || !ok {
		return false, err
	}

	if err := d.fs.Remove(path); err != nil {
		return false, err
	}

	return true, nil
}

func (d *Downloader) emitStart(ev domain.TaskEvent) {
	for _, h := range d.hooks {
		h.OnTaskStart(ev)
	}
}

func (d *Downloader) emitSuccess(ev domain.TaskEvent) {
	for _, h := range d.hooks {
		h.OnTaskSuccess(ev)
	}
}

func (d *Downloader) emitFailure(ev domain.TaskEvent, err error) {
	for _, h := range d.hooks {
		h.OnTaskFailure(ev, err)
	}
}
