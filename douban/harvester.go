package douban

import (
	"context"
	"strings"

	"github.com/koizuka/douban2letterboxd/scraper"
)

const DefaultMaxPages = 100

// Fetcher is satisfied by *scraper.Session and *scraper.ChromeSession.
type Fetcher interface {
	GetContext(ctx context.Context, url string) (*scraper.Response, error)
}

// Harvester walks one user's collection. It is not safe for concurrent use;
// requests are issued strictly one after another.
type Harvester struct {
	Fetcher  Fetcher
	Site     Site
	Log      scraper.Logger
	MaxPages int       // page ceiling, DefaultMaxPages when <= 0
	Delay    DelayFunc // politeness pause, RandomDelay(DefaultDelayMin, DefaultDelayMax) when nil
}

func NewHarvester(fetcher Fetcher, site Site, log scraper.Logger) *Harvester {
	return &Harvester{
		Fetcher:  fetcher,
		Site:     site,
		Log:      log,
		MaxPages: DefaultMaxPages,
		Delay:    RandomDelay(DefaultDelayMin, DefaultDelayMax),
	}
}

func (h *Harvester) printf(format string, a ...interface{}) {
	if h.Log != nil {
		h.Log.Printf(format, a...)
	}
}

func (h *Harvester) delay(ctx context.Context) {
	if h.Delay == nil {
		h.Delay = RandomDelay(DefaultDelayMin, DefaultDelayMax)
	}
	h.Delay(ctx)
}

func (h *Harvester) maxPages() int {
	if h.MaxPages <= 0 {
		return DefaultMaxPages
	}
	return h.MaxPages
}

// fetch returns the response of url, treating Douban's login and
// verification redirects as failures.
func (h *Harvester) fetch(ctx context.Context, url string) (*scraper.Response, error) {
	resp, err := h.Fetcher.GetContext(ctx, url)
	if err != nil {
		return nil, err
	}
	final := resp.URL()
	switch {
	case final == nil:
	case strings.HasPrefix(final.Host, "accounts.") || strings.Contains(final.Path, "/passport/login"):
		return nil, LoginError{final}
	case strings.HasPrefix(final.Host, "sec."):
		return nil, BlockedError{final}
	}
	return resp, nil
}

// FetchCollection returns the markup of the collection page at offset,
// converted to UTF-8 when the page declares its charset only in a meta tag.
func (h *Harvester) FetchCollection(ctx context.Context, offset int) (string, error) {
	resp, err := h.fetch(ctx, h.Site.CollectionURL(offset))
	if err != nil {
		return "", err
	}
	// Page converts resp.Body in place
	if _, err := resp.Page(); err != nil {
		return "", err
	}
	return string(resp.Body), nil
}

type harvestState int

const (
	stateFetching harvestState = iota
	stateExtracting
	stateEnriching
	stateDone
)

func (s harvestState) String() string {
	switch s {
	case stateFetching:
		return "fetching"
	case stateExtracting:
		return "extracting"
	case stateEnriching:
		return "enriching"
	case stateDone:
		return "done"
	}
	return "unknown"
}

// harvestRun is the state of one Harvest call.
type harvestRun struct {
	page   int
	markup string
	batch  []Movie
	movies []Movie
}

// Harvest walks the collection from the first page until a page fails to
// load, holds no entries, has no next-page link, or MaxPages is reached.
// Failures never abort the run; whatever was collected is returned.
func (h *Harvester) Harvest(ctx context.Context) []Movie {
	run := &harvestRun{}
	for state := stateFetching; state != stateDone; {
		state = h.step(ctx, run, state)
	}
	return run.movies
}

func (h *Harvester) step(ctx context.Context, run *harvestRun, state harvestState) harvestState {
	switch state {
	case stateFetching:
		if run.page >= h.maxPages() {
			h.printf("已达到最大页数 %d", h.maxPages())
			return stateDone
		}
		h.printf("正在处理第 %d 页...", run.page+1)
		markup, err := h.FetchCollection(ctx, run.page*PageSize)
		if err != nil {
			h.printf("Error fetching collections: %v", err)
			return stateDone
		}
		run.markup = markup
		return stateExtracting

	case stateExtracting:
		run.batch = h.ParseCollection(run.markup)
		if len(run.batch) == 0 {
			return stateDone
		}
		return stateEnriching

	case stateEnriching:
		details := newDetailPages(h)
		for _, movie := range run.batch {
			if ctx.Err() != nil {
				h.printf("中断: %v", ctx.Err())
				return stateDone
			}
			run.movies = append(run.movies, h.enrich(ctx, details, movie))
		}
		run.batch = nil

		h.delay(ctx)

		if !strings.Contains(run.markup, NextPageMarker) {
			return stateDone
		}
		run.page++
		return stateFetching
	}
	return stateDone
}
