package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"gallarr/internal/buildinfo"
	"gallarr/internal/client"
	"gallarr/internal/config"
	"gallarr/internal/domain"
	"gallarr/internal/logger"
	"gallarr/internal/parse"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve an album, chapter or search query and print it as JSON",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		// read config
		cfg := config.New(configPath, buildinfo.Version)

		// init new logger
		log := logger.New(cfg.Config)

		c, err := client.New(cfg.Config, log)
		if err != nil {
			fmt.Println("Invalid client configuration:", err)
			return
		}

		var out any

		switch {
		case resolveAlbum != "":
			id, err := parse.NormalizeID(resolveAlbum)
			if err != nil {
				fmt.Println("Invalid album:", err)
				return
			}
			out, err = c.GetAlbumDetail(ctx, id)
			if err != nil {
				fmt.Printf("Failed to resolve album %d: %v\n", id, err)
				return
			}
		case resolveChapter != "":
			id, err := parse.NormalizeID(resolveChapter)
			if err != nil {
				fmt.Println("Invalid chapter:", err)
				return
			}
			out, err = c.GetChapterDetail(ctx, id)
			if err != nil {
				fmt.Printf("Failed to resolve chapter %d: %v\n", id, err)
				return
			}
		case searchQuery != "":
			out, err = c.Search(ctx, domain.SearchQuery{Query: searchQuery, Page: searchPage})
			if err != nil {
				fmt.Printf("Failed to resolve search %q: %v\n", searchQuery, err)
				return
			}
		default:
			fmt.Println("Nothing to resolve, provide --album, --chapter or --search")
			return
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Println("Failed to encode result:", err)
		}
	},
}
