package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koizuka/douban2letterboxd/douban"
	"github.com/koizuka/douban2letterboxd/scraper"
)

// newInspectCmd re-parses pages written with --save-pages, without network access.
func newInspectCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Show what would be extracted from pages saved with --save-pages.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := scraper.ConsoleLogger{Out: out}
			h := douban.NewHarvester(nil, douban.Site{}, log)
			for _, filename := range args {
				if err := inspect(h, filename, log); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func inspect(h *douban.Harvester, filename string, log scraper.Logger) error {
	resp, err := scraper.LoadSavedResponse(filename, log)
	if err != nil {
		return err
	}
	log.Printf("%s: %v", filename, resp.URL())

	if strings.Contains(resp.URL().Path, "/subject/") {
		imdbID, rating, err := h.ParseSubject(resp)
		if err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
		log.Printf("imdbID: %s, Rating: %s", imdbID, rating)
		return nil
	}

	page, err := resp.Page()
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	movies := h.ParseCollectionPage(page)
	for i, m := range movies {
		log.Printf("#%d %s [%s] %s %s", i+1, m.DoubanID, m.Title, m.WatchedDate, m.Review)
	}
	log.Printf("%d items, next page: %v", len(movies), strings.Contains(string(resp.Body), douban.NextPageMarker))
	return nil
}
