package douban

import (
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/koizuka/douban2letterboxd/scraper"
)

const watchedDateLayout = "2006-01-02"

// collectItem is one ".item" of the grid view of a collection page.
type collectItem struct {
	DoubanID string  `find:".pic a" attr:"href" re:"/subject/(\\d+)/" first:"true"`
	Title    *string `find:".title a" trim:"true" first:"true"`
	Date     *string `find:".date" trim:"true" first:"true"`
	Comment  *string `find:".comment" trim:"true" first:"true"`
}

func (item collectItem) movie() Movie {
	movie := Movie{
		DoubanID: item.DoubanID,
		Title:    UnknownTitle,
	}
	if item.Title != nil && *item.Title != "" {
		movie.Title = *item.Title
	}
	if item.Date != nil {
		movie.WatchedDate = normalizeDate(*item.Date)
	}
	if item.Comment != nil {
		movie.Review = *item.Comment
	}
	return movie
}

// normalizeDate reformats a YYYY-MM-DD date and keeps anything else as is.
func normalizeDate(s string) string {
	if s == "" {
		return ""
	}
	t, err := time.Parse(watchedDateLayout, s)
	if err != nil {
		return s
	}
	return t.Format(watchedDateLayout)
}

// ParseCollection extracts the entries of a collection page in document order.
// Entries without a subject link are logged and dropped.
func (h *Harvester) ParseCollection(markup string) []Movie {
	if markup == "" {
		return nil
	}
	page, err := scraper.NewPage(markup, nil, h.Log)
	if err != nil {
		h.printf("Error parsing collection page: %v", err)
		return nil
	}
	return h.ParseCollectionPage(page)
}

func (h *Harvester) ParseCollectionPage(page *scraper.Page) []Movie {
	var movies []Movie
	page.Find(".item").Each(func(i int, sel *goquery.Selection) {
		movie, err := parseItem(sel)
		if err != nil {
			h.printf("Error parsing movie item: %v", ItemError{Index: i, Err: err})
			return
		}
		movies = append(movies, movie)
	})
	return movies
}

func parseItem(sel *goquery.Selection) (Movie, error) {
	var item collectItem
	if err := scraper.Unmarshal(&item, sel, scraper.UnmarshalOption{}); err != nil {
		return Movie{}, err
	}
	if item.DoubanID == "" {
		return Movie{}, ErrNoMatch
	}
	return item.movie(), nil
}
