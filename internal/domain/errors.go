package domain

import (
	"errors"
	"fmt"
	"strings"
)

// TransportError covers connectivity failures, timeouts and unexpected
// status codes. Temporary reports whether another attempt against a
// different mirror can reasonably succeed.
type TransportError struct {
	Host      string
	Status    int
	Temporary bool
	Err       error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport error: host %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("transport error: host %s: status code %d", e.Host, e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ExhaustedDomainsError reports that every candidate domain failed across
// every retry pass. It carries one error per attempt in order.
type ExhaustedDomainsError struct {
	Domains  []string
	Attempts int
	Errs     []error
}

func (e *ExhaustedDomainsError) Error() string {
	return fmt.Sprintf("all domains exhausted after %d attempts: [%s]: %v",
		e.Attempts, strings.Join(e.Domains, ", "), e.last())
}

func (e *ExhaustedDomainsError) Unwrap() []error {
	return e.Errs
}

func (e *ExhaustedDomainsError) last() error {
	if len(e.Errs) == 0 {
		return nil
	}
	return e.Errs[len(e.Errs)-1]
}

// DecodeError means a successfully transported payload could not be turned
// into plaintext. Decoding fails closed, it never degrades to empty data.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode error: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ParseError means a decoded payload is missing fields beyond what the
// parser fallbacks tolerate. Never retried, the payload will not change.
type ParseError struct {
	Entity string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("parse error: %s", e.Entity)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type NotFoundError struct {
	Kind string
	ID   int64
	Msg  string
}

func (e *NotFoundError) Error() string {
	name := e.Kind
	if name == "" {
		name = "resource"
	}
	if e.ID != 0 {
		name = fmt.Sprintf("%s %d", name, e.ID)
	}
	if e.Msg != "" {
		return fmt.Sprintf("%s not found: %s", name, e.Msg)
	}
	return name + " not found"
}

// DescrambleError means an image did not survive the inverse tile
// transform, usually an unexpected dimension or format combination.
type DescrambleError struct {
	Name     string
	Segments int
	Err      error
}

func (e *DescrambleError) Error() string {
	return fmt.Sprintf("descramble error: %s (segments %d): %v", e.Name, e.Segments, e.Err)
}

func (e *DescrambleError) Unwrap() error {
	return e.Err
}

// ImageError wraps a single image task failure.
type ImageError struct {
	Image Image
	Err   error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image %d/%d #%d: %v", e.Image.AlbumID, e.Image.ChapterID, e.Image.Index, e.Err)
}

func (e *ImageError) Unwrap() error {
	return e.Err
}

// ChapterError carries the partial result so callers can tell n/m succeeded
// apart from total failure.
type ChapterError struct {
	ChapterID int64
	Result    *ChapterResult
	Errs      []error
}

func (e *ChapterError) Error() string {
	return fmt.Sprintf("chapter %d: %d of %d images failed", e.ChapterID, len(e.Errs), e.Result.Total())
}

func (e *ChapterError) Unwrap() []error {
	return e.Errs
}

// AlbumError carries the partial result across all chapter downloads.
type AlbumError struct {
	AlbumID int64
	Result  *AlbumResult
	Errs    []error
}

func (e *AlbumError) Error() string {
	return fmt.Sprintf("album %d: %d chapters failed", e.AlbumID, len(e.Errs))
}

func (e *AlbumError) Unwrap() []error {
	return e.Errs
}

// Retryable reports whether another attempt can succeed. Transient
// transport failures qualify, and so do decode failures, which in practice
// mean a mirror served a block page instead of the payload. Parse and
// descramble failures are logic mismatches that no retry can fix.
func Retryable(err error) bool {
	var terr *TransportError
	if errors.As(err, &terr) {
		return terr.Temporary
	}

	var derr *DecodeError
	return errors.As(err, &derr)
}
