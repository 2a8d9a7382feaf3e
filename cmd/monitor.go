package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gallarr/internal/buildinfo"
	"gallarr/internal/client"
	"gallarr/internal/config"
	"gallarr/internal/domain"
	"gallarr/internal/download"
	"gallarr/internal/files"
	"gallarr/internal/logger"
	"gallarr/internal/parse"

	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor the configured albums for new chapters",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		// read config
		cfg := config.New(configPath, buildinfo.Version)

		// init new logger
		log := logger.New(cfg.Config)

		if err := cfg.UpdateConfig(); err != nil {
			log.Error().Err(err).Msgf("error updating config")
		}

		// init dynamic config
		cfg.DynamicReload(log)

		if err := files.IsValidLocation(cfg.Config.DownloadLocation); err != nil {
			log.Fatal().Err(err).Msgf("invalid download location")
		}

		c, err := client.New(cfg.Config, log)
		if err != nil {
			log.Fatal().Err(err).Msgf("invalid client configuration")
		}

		d := download.New(cfg.Config, c, log, download.Options{})

		type monitored struct {
			name     string
			id       int64
			chapters string
		}

		var albums []monitored

		for albumName, monitoredAlbum := range cfg.Config.MonitoredAlbums {
			id, err := parse.NormalizeID(monitoredAlbum.Album)
			if err != nil {
				log.Error().Err(err).Msgf("invalid monitored album id for %s: %s", albumName, monitoredAlbum.Album)
				continue
			}

			albums = append(albums, monitored{
				name:     albumName,
				id:       id,
				chapters: monitoredAlbum.Chapters,
			})
		}

		log.Info().Msg("starting to monitor configured albums")

		ticker := time.NewTicker(time.Duration(cfg.Config.CheckInterval)*time.Minute - 40*time.Second)
		defer ticker.Stop()

		wg := sync.WaitGroup{}
		quit := make(chan bool, 1)

		go func() {
			for {
				select {
				case <-quit:
					return
				case <-ticker.C:
					for _, m := range albums {
						wg.Add(1)

						go func() {
							defer wg.Done()

							album, err := c.GetAlbumDetail(ctx, m.id)
							if err != nil {
								log.Error().Err(err).Msgf("error getting album %d for %s", m.id, m.name)
								return
							}
							aLog := log.With().Str("album", album.Title).Int64("id", album.ID).Logger()

							selected, err := monitoredChapters(m.chapters, album.Chapters)
							if err != nil {
								aLog.Error().Err(err).Msg("error parsing chapter selection")
								return
							}

							for _, ch := range selected {
								res, err := d.Chapter(ctx, &ch)
								if err != nil {
									aLog.Error().Err(err).Msgf("error downloading chapter %d", ch.Order)
									continue
								}

								if res.Skipped < len(res.Paths) {
									aLog.Info().Msgf("downloaded chapter %d (%d images, %d cached)",
										ch.Order, len(res.Paths), res.Skipped)
								}

								if cfg.Config.ExportFormat != "" {
									if _, err := exportChapter(cfg.Config, album, ch, d.ChapterDir(album.ID, ch.ID)); err != nil {
										aLog.Error().Err(err).Msgf("error exporting chapter %d", ch.Order)
									}
								}
							}

							if _, err := d.Thumbnail(ctx, album.ID); err != nil {
								aLog.Error().Err(err).Msg("error downloading thumbnail")
							}
						}()
					}

					wg.Wait()
				}
			}
		}()

		// set up a channel to catch signals for graceful shutdown
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

		fmt.Printf("received signal: %s, stopping monitoring.\n", <-sigCh)
		quit <- true
		wg.Wait()
	},
}

// monitoredChapters resolves a monitored album's chapter directive,
// "all", "latest" or ranges like "1-3,7". Empty means all.
func monitoredChapters(directive string, chapters []domain.Chapter) ([]domain.Chapter, error) {
	switch directive {
	case "", "all":
		return chapters, nil
	case "latest":
		_, ch, err := parse.OrderBounds(chapters)
		if err != nil {
			return nil, err
		}
		return []domain.Chapter{ch}, nil
	default:
		return parse.ChapterSelection(directive, chapters)
	}
}
