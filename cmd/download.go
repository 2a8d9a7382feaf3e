package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gallarr/internal/buildinfo"
	"gallarr/internal/client"
	"gallarr/internal/config"
	"gallarr/internal/domain"
	"gallarr/internal/download"
	"gallarr/internal/files"
	"gallarr/internal/logger"
	"gallarr/internal/parse"
	"gallarr/internal/sanitize"
	"gallarr/internal/templater"

	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download an album or a selection of its chapters",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		// read config
		cfg := config.New(configPath, buildinfo.Version)

		// init new logger
		log := logger.New(cfg.Config)

		if downloadDirectory != "" {
			cfg.Config.DownloadLocation = downloadDirectory
		}
		if naming != "" {
			cfg.Config.NamingTemplate = naming
		}
		if exportFormat != "" {
			cfg.Config.ExportFormat = exportFormat
		}

		if err := files.IsValidLocation(cfg.Config.DownloadLocation); err != nil {
			fmt.Println("Invalid location:", err)
			return
		}

		id, err := parse.NormalizeID(albumInput)
		if err != nil {
			fmt.Println("Invalid album:", err)
			return
		}

		c, err := client.New(cfg.Config, log)
		if err != nil {
			fmt.Println("Invalid client configuration:", err)
			return
		}

		album, err := c.GetAlbumDetail(ctx, id)
		if err != nil {
			fmt.Printf("Failed to get album %d: %v\n", id, err)
			return
		}

		selected, err := selectChapters(album.Chapters)
		if err != nil {
			fmt.Printf("Failed to parse chapter selection for %q: %v\n", album.Title, err)
			return
		}
		if len(selected) == 0 {
			fmt.Printf("Failed to find matching chapters in range %s for %q\n", chapterNumbers, album.Title)
			return
		}

		d := download.New(cfg.Config, c, log, download.Options{})

		wg := sync.WaitGroup{}

		for _, ch := range selected {
			wg.Add(1)

			go func() {
				defer wg.Done()

				fmt.Printf("Downloading %q chapter %d...\n", album.Title, ch.Order)
				res, err := d.Chapter(ctx, &ch)
				if err != nil {
					fmt.Printf("Failed to download chapter %d of %q: %v\n", ch.Order, album.Title, err)
					return
				}

				if cfg.Config.ExportFormat != "" {
					dir := d.ChapterDir(album.ID, ch.ID)
					target, err := exportChapter(cfg.Config, album, ch, dir)
					if err != nil {
						fmt.Printf("Failed to export chapter %d of %q: %v\n", ch.Order, album.Title, err)
						return
					}
					fmt.Printf("Exported %q\n", filepath.Base(target))
				}

				fmt.Printf("Finished downloading chapter %d of %q (%d images, %d cached)\n",
					ch.Order, album.Title, len(res.Paths), res.Skipped)
			}()
		}

		wg.Wait()

		if withCover {
			if _, err := d.Cover(ctx, album.ID); err != nil {
				fmt.Printf("Failed to download cover for %q: %v\n", album.Title, err)
			}
			if _, err := d.Thumbnail(ctx, album.ID); err != nil {
				fmt.Printf("Failed to download thumbnail for %q: %v\n", album.Title, err)
			}
		}

		if openWhenDone {
			if err := open.Run(d.AlbumDir(album.ID)); err != nil {
				fmt.Println("Failed to open album directory:", err)
			}
		}
	},
}

// selectChapters applies the download command's selection flags to an
// album's chapter list. With no selection flag set the whole album is
// selected.
func selectChapters(chapters []domain.Chapter) ([]domain.Chapter, error) {
	switch {
	case first:
		ch, _, err := parse.OrderBounds(chapters)
		if err != nil {
			return nil, err
		}
		return []domain.Chapter{ch}, nil
	case latest:
		_, ch, err := parse.OrderBounds(chapters)
		if err != nil {
			return nil, err
		}
		return []domain.Chapter{ch}, nil
	case chapterNumbers != "":
		return parse.ChapterSelection(chapterNumbers, chapters)
	default:
		return chapters, nil
	}
}

// exportChapter packages a finished chapter directory into the configured
// archive format next to it. An existing archive is left untouched.
func exportChapter(cfg *domain.Config, album *domain.Album, ch domain.Chapter, dir string) (string, error) {
	name := sanitize.Filename(templater.New(*album, ch).ExecTemplate(cfg.NamingTemplate))
	target := filepath.Join(filepath.Dir(dir), name+"."+cfg.ExportFormat)

	if _, err := os.Stat(target); err == nil {
		return target, nil
	}

	switch cfg.ExportFormat {
	case "cbz":
		return target, files.CreateCbzArchive(dir, target)
	case "pdf":
		return target, files.CreatePDF(dir, target)
	default:
		return "", fmt.Errorf("unknown export format: %q", cfg.ExportFormat)
	}
}
