package scraper

import (
	"bytes"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

type Page struct {
	*goquery.Document
	BaseUrl *url.URL
	Logger  Logger
}

// NewPage parses markup already held in memory. baseUrl may be nil.
func NewPage(markup string, baseUrl *url.URL, logger Logger) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(markup))
	if err != nil {
		return nil, err
	}
	if baseUrl == nil {
		baseUrl = &url.URL{}
	}
	doc.Url = baseUrl
	return &Page{doc, baseUrl, logger}, nil
}

func (page *Page) ResolveLink(relativeURL string) (string, error) {
	reqUrl, err := page.BaseUrl.Parse(relativeURL)
	if err != nil {
		return "", err
	}
	return reqUrl.String(), nil
}
