package douban

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	DefaultBaseURL = "https://movie.douban.com"

	// PageSize is the number of entries on one collection page.
	PageSize = 15

	// NextPageMarker is the label of the "next page" link of a collection page.
	NextPageMarker = "后页"
)

// Site builds the URLs of one user's collection.
type Site struct {
	BaseURL string // defaults to DefaultBaseURL
	User    string
}

func (site Site) base() string {
	u := strings.TrimSpace(site.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

// CollectionURL returns the grid view of the "watched" list starting at offset.
func (site Site) CollectionURL(offset int) string {
	return fmt.Sprintf("%s/people/%s/collect?start=%d&sort=time&rating=all&filter=all&mode=grid",
		site.base(), url.PathEscape(site.User), offset)
}

func (site Site) SubjectURL(doubanID string) string {
	return fmt.Sprintf("%s/subject/%s/", site.base(), url.PathEscape(doubanID))
}

// ApplyHeaders sets the headers a browser sends when browsing the collection.
func (site Site) ApplyHeaders(header http.Header) {
	header.Set("Accept-Language", "zh-CN,zh;q=0.9,en-US;q=0.8,en;q=0.7")
	header.Set("Referer", fmt.Sprintf("%s/people/%s/collect", site.base(), url.PathEscape(site.User)))
}

// CookieSetter is implemented by scraper.Session and scraper.ChromeSession.
type CookieSetter interface {
	SetCookieMap(u *url.URL, values map[string]string)
}

// Authorize hands the login cookies to s for the site's host.
func (site Site) Authorize(s CookieSetter, cookies map[string]string) error {
	u, err := url.Parse(site.base() + "/")
	if err != nil {
		return fmt.Errorf("invalid base url %q: %w", site.base(), err)
	}
	s.SetCookieMap(u, cookies)
	return nil
}
