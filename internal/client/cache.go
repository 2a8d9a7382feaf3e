package client

import (
	"context"
	"fmt"

	"gallarr/internal/domain"
	"gallarr/internal/logger"

	"github.com/philippgille/gokv"
	"github.com/philippgille/gokv/syncmap"
)

// cached memoizes detail lookups so an album download never re-resolves a
// chapter it already holds. Search pages are never cached, they change
// under the caller.
type cached struct {
	domain.Client
	store gokv.Store
	log   logger.Logger
}

// NewCached wraps inner with a detail memo backed by store.
func NewCached(inner domain.Client, store gokv.Store, log logger.Logger) domain.Client {
	return &cached{Client: inner, store: store, log: log}
}

func newEntityStore() gokv.Store {
	return syncmap.NewStore(syncmap.DefaultOptions)
}

func (c *cached) GetAlbumDetail(ctx context.Context, id int64) (*domain.Album, error) {
	key := fmt.Sprintf("album/%d", id)

	var album domain.Album
	found, err := c.store.Get(key, &album)
	if err != nil {
		c.log.Warn().Err(err).Msgf("album memo read failed for %s", key)
	} else if found {
		return &album, nil
	}

	fresh, err := c.Client.GetAlbumDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(key, fresh); err != nil {
		c.log.Warn().Err(err).Msgf("album memo write failed for %s", key)
	}

	return fresh, nil
}

func (c *cached) GetChapterDetail(ctx context.Context, id int64) (*domain.Chapter, error) {
	key := fmt.Sprintf("chapter/%d", id)

	var ch domain.Chapter
	found, err := c.store.Get(key, &ch)
	if err != nil {
		c.log.Warn().Err(err).Msgf("chapter memo read failed for %s", key)
	} else if found {
		return &ch, nil
	}

	fresh, err := c.Client.GetChapterDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(key, fresh); err != nil {
		c.log.Warn().Err(err).Msgf("chapter memo write failed for %s", key)
	}

	return fresh, nil
}
