// Package scramble undoes the deterministic band permutation the remote
// service applies to chapter images before serving them.
package scramble

import (
	"crypto/md5"
	"encoding/hex"
	"image"
	"image/draw"
	"path"
	"strconv"
	"strings"

	"gallarr/internal/domain"
)

// Decider maps a chapter image to its band count. The production mapping is
// Table; deployments pin a replacement when the service rotates the scheme.
type Decider interface {
	Segments(scrambleID, chapterID int64, stem string) int
}

// Table is the published range-to-divisor mapping. Chapters before the
// scramble epoch are served unscrambled; a band of cutoffs after it selects
// either a fixed count or an md5-derived one.
type Table struct {
	Epoch         int64
	FixedCutoff   int64
	FixedSegments int
	DivisorCutoff int64
	EarlyDivisor  int
	LateDivisor   int
}

func DefaultTable() Table {
	return Table{
		Epoch:         220980,
		FixedCutoff:   268850,
		FixedSegments: 10,
		DivisorCutoff: 421925,
		EarlyDivisor:  10,
		LateDivisor:   8,
	}
}

// NewTable builds a Table from configuration, falling back to the published
// values for anything unset.
func NewTable(cfg domain.ScrambleConfig) Table {
	t := DefaultTable()
	if cfg.Epoch > 0 {
		t.Epoch = cfg.Epoch
	}
	if cfg.FixedCutoff > 0 {
		t.FixedCutoff = cfg.FixedCutoff
	}
	if cfg.FixedSegments > 0 {
		t.FixedSegments = cfg.FixedSegments
	}
	if cfg.DivisorCutoff > 0 {
		t.DivisorCutoff = cfg.DivisorCutoff
	}
	if cfg.EarlyDivisor > 0 {
		t.EarlyDivisor = cfg.EarlyDivisor
	}
	if cfg.LateDivisor > 0 {
		t.LateDivisor = cfg.LateDivisor
	}
	return t
}

// Segments returns the band count for one image. A count of 1 means the
// image is stored unscrambled. The md5 branch keys on the decimal chapter
// id concatenated with the filename stem; the byte value of the last hex
// character picks the count, so results are always even.
func (t Table) Segments(scrambleID, chapterID int64, stem string) int {
	switch {
	case scrambleID <= 0, chapterID < scrambleID:
		return 1
	case chapterID <= t.FixedCutoff:
		return t.FixedSegments
	}

	divisor := t.LateDivisor
	if chapterID <= t.DivisorCutoff {
		divisor = t.EarlyDivisor
	}

	sum := md5.Sum([]byte(strconv.FormatInt(chapterID, 10) + stem))
	hexsum := hex.EncodeToString(sum[:])
	last := int64(hexsum[len(hexsum)-1])

	return int(last%int64(divisor))*2 + 2
}

// Stem strips the filename extension, the form the segment hash expects.
func Stem(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

// Transformable reports whether a remote filename carries the scramble
// transform at all. Animated and vector formats bypass it.
func Transformable(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".gif", ".svg":
		return false
	}
	return true
}

// Reassemble reverses the band permutation: the source image is split into
// n horizontal bands of height h/n, the remainder rows stay pinned to the
// band that absorbs them, and bands are copied back in reverse order. The
// result always has the source's dimensions and is bit-reproducible.
func Reassemble(src image.Image, n int) *image.RGBA {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	out := image.NewRGBA(image.Rect(0, 0, w, h))

	if n <= 1 {
		draw.Draw(out, out.Bounds(), src, bounds.Min, draw.Src)
		return out
	}

	band := h / n
	rem := h % n

	for i := 0; i < n; i++ {
		height := band
		srcY := h - band*(i+1) - rem
		dstY := band * i

		if i == 0 {
			height += rem
		} else {
			dstY += rem
		}

		rect := image.Rect(0, dstY, w, dstY+height)
		draw.Draw(out, rect, src, image.Pt(bounds.Min.X, bounds.Min.Y+srcY), draw.Src)
	}

	return out
}
