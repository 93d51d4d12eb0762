package douban

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/koizuka/douban2letterboxd/scraper"
)

const (
	// NoRating is reported when the user's rating cannot be read.
	NoRating = "0"

	ratingInputSelector = "input#n_rating"
	infoSelector        = "div#info"
	reviewPreviewRunes  = 50
)

var (
	imdbLabelRe = regexp.MustCompile(`IMDb:\s*(tt\d+)`)
	imdbLinkRe  = regexp.MustCompile(`imdb\.com/title/(tt\d+)`)

	// tried in order against the raw markup
	imdbMarkupPatterns = []*regexp.Regexp{
		imdbLabelRe,
		imdbLinkRe,
		regexp.MustCompile(`IMDb</span>: <a[^>]*>(tt\d+)</a>`),
		regexp.MustCompile(`IMDb</span>: <a[^>]*href="[^"]*?(tt\d+)[^"]*"`),
	}
)

// detailPage is a fetched subject page.
type detailPage struct {
	markup string
	page   *scraper.Page
}

// detailPages memoizes subject pages by Douban id, failures included.
type detailPages struct {
	h      *Harvester
	pages  map[string]*detailPage
	failed map[string]error
}

func newDetailPages(h *Harvester) *detailPages {
	return &detailPages{
		h:      h,
		pages:  map[string]*detailPage{},
		failed: map[string]error{},
	}
}

func (d *detailPages) get(ctx context.Context, doubanID string) (*detailPage, error) {
	if p, ok := d.pages[doubanID]; ok {
		return p, nil
	}
	if err, ok := d.failed[doubanID]; ok {
		return nil, err
	}

	p, err := d.fetch(ctx, doubanID)
	if err != nil {
		d.failed[doubanID] = err
		return nil, err
	}
	d.pages[doubanID] = p
	return p, nil
}

func (d *detailPages) fetch(ctx context.Context, doubanID string) (*detailPage, error) {
	resp, err := d.h.fetch(ctx, d.h.Site.SubjectURL(doubanID))
	if err != nil {
		return nil, err
	}
	return newDetailPage(resp)
}

func newDetailPage(resp *scraper.Response) (*detailPage, error) {
	page, err := resp.Page()
	if err != nil {
		return nil, err
	}
	return &detailPage{markup: string(resp.Body), page: page}, nil
}

// imdbStrategy extracts an IMDb id from a subject page, ErrNoMatch if it finds none.
type imdbStrategy struct {
	name    string
	extract func(p *detailPage) (string, error)
}

var imdbStrategies = []imdbStrategy{
	{"info text", imdbFromInfoText},
	{"info link", imdbFromInfoLink},
	{"markup scan", imdbFromMarkup},
}

func imdbFromInfoText(p *detailPage) (string, error) {
	info := p.page.Find(infoSelector).First()
	if info.Length() == 0 {
		return "", ErrNoMatch
	}
	if m := imdbLabelRe.FindStringSubmatch(info.Text()); m != nil {
		return m[1], nil
	}
	return "", ErrNoMatch
}

func imdbFromInfoLink(p *detailPage) (string, error) {
	link := p.page.Find(infoSelector).First().Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		return ok && strings.Contains(href, "imdb.com/title/")
	}).First()
	href, ok := link.Attr("href")
	if !ok {
		return "", ErrNoMatch
	}
	if m := imdbLinkRe.FindStringSubmatch(href); m != nil {
		return m[1], nil
	}
	return "", ErrNoMatch
}

func imdbFromMarkup(p *detailPage) (string, error) {
	for _, re := range imdbMarkupPatterns {
		if m := re.FindStringSubmatch(p.markup); m != nil {
			return m[1], nil
		}
	}
	return "", ErrNoMatch
}

// LookupIMDb returns the IMDb id listed on the subject page, or "".
func (h *Harvester) LookupIMDb(ctx context.Context, doubanID string) string {
	return h.lookupIMDb(ctx, newDetailPages(h), doubanID)
}

func (h *Harvester) lookupIMDb(ctx context.Context, details *detailPages, doubanID string) string {
	p, err := details.get(ctx, doubanID)
	if err != nil {
		h.printf("获取电影 %s 详情失败: %v", doubanID, err)
		return ""
	}
	if id := h.imdbFrom(p); id != "" {
		return id
	}
	h.printf("无法找到电影 %s 的IMDb ID", doubanID)
	return ""
}

func (h *Harvester) imdbFrom(p *detailPage) string {
	for _, s := range imdbStrategies {
		id, err := s.extract(p)
		if err == nil && id != "" {
			return id
		}
		if err != nil && !errors.Is(err, ErrNoMatch) {
			h.printf("IMDb %s: %v", s.name, err)
		}
	}
	return ""
}

// LookupRating returns the user's rating on the subject page, or NoRating.
func (h *Harvester) LookupRating(ctx context.Context, doubanID string) string {
	return h.lookupRating(ctx, newDetailPages(h), doubanID)
}

func (h *Harvester) lookupRating(ctx context.Context, details *detailPages, doubanID string) string {
	p, err := details.get(ctx, doubanID)
	if err != nil {
		h.printf("Error fetching rating for %s: %v", doubanID, err)
		return NoRating
	}
	return ratingFrom(p)
}

func ratingFrom(p *detailPage) string {
	value, ok := p.page.Find(ratingInputSelector).First().Attr("value")
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return NoRating
	}
	return value
}

// ParseSubject reads the IMDb id and rating from a subject page that was
// already fetched, such as one saved with --save-pages.
func (h *Harvester) ParseSubject(resp *scraper.Response) (imdbID string, rating string, err error) {
	p, err := newDetailPage(resp)
	if err != nil {
		return "", NoRating, err
	}
	return h.imdbFrom(p), ratingFrom(p), nil
}

// Enrich fills the IMDb id and rating of movie from its subject page,
// which is fetched once for both.
func (h *Harvester) Enrich(ctx context.Context, movie Movie) Movie {
	return h.enrich(ctx, newDetailPages(h), movie)
}

func (h *Harvester) enrich(ctx context.Context, details *detailPages, movie Movie) Movie {
	h.delay(ctx)
	h.printf("正在获取 [%s] 的IMDB ID...", movie.Title)
	movie.IMDbID = h.lookupIMDb(ctx, details, movie.DoubanID)

	h.delay(ctx)
	h.printf("正在获取 [%s] 的评分...", movie.Title)
	movie.Rating = h.lookupRating(ctx, details, movie.DoubanID)

	h.printf("处理: %s", movie.Title)
	h.printf("imdbID: %s, Rating: %s, WatchedDate: %s", movie.IMDbID, movie.Rating, movie.WatchedDate)
	h.printf("Review: %s", previewReview(movie.Review))
	h.printf("%s", strings.Repeat("-", 50))
	return movie
}

func previewReview(review string) string {
	if utf8.RuneCountInString(review) <= reviewPreviewRunes {
		return review
	}
	return string([]rune(review)[:reviewPreviewRunes]) + "..."
}
