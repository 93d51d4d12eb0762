// Package douban harvests a user's watched-movie collection from Douban:
// listing pages are walked in order, each entry is parsed and enriched with
// its IMDb id and the user's rating taken from the movie's detail page.
package douban

// UnknownTitle is used when a listing entry carries no readable title.
const UnknownTitle = "Unknown"

// Movie is one watched entry of the collection.
type Movie struct {
	DoubanID    string // numeric subject id, never empty once harvested
	Title       string
	IMDbID      string // "tt" + digits, or "" when the detail page has none
	Rating      string // the user's star rating, "0" when unknown
	WatchedDate string // YYYY-MM-DD, the raw text if it did not parse, or ""
	Review      string
}
