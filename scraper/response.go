package scraper

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dimchansky/utfbom"
	"golang.org/x/text/encoding"
)

type Response struct {
	Request     *http.Request
	ContentType string
	CharSet     string
	Body        []byte
	Encoding    encoding.Encoding
	Logger      Logger
}

// URL returns the final URL of the response, after redirects.
func (response *Response) URL() *url.URL {
	if response.Request == nil {
		return nil
	}
	return response.Request.URL
}

func (response *Response) CsvReader() *csv.Reader {
	return csv.NewReader(utfbom.SkipOnly(bytes.NewBuffer(response.Body)))
}

func (response *Response) printf(format string, a ...interface{}) {
	if response.Logger != nil {
		response.Logger.Printf(format, a...)
	}
}

var metaCharsetRe = regexp.MustCompile(`\bcharset=([\w-]*)`)

func (response *Response) Page() (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(response.Body))
	if err != nil {
		return nil, err
	}

	if response.Encoding == nil {
		charset, ok := doc.Find("head meta[charset]").Attr("charset")
		if !ok {
			if content, exists := doc.Find("meta[http-equiv=Content-Type]").Attr("content"); exists {
				if m := metaCharsetRe.FindStringSubmatch(strings.ToLower(content)); len(m) == 2 {
					charset, ok = m[1], true
				}
			}
		}
		if ok {
			if encoding := charsetEncoding(charset); encoding != nil {
				response.printf("converting from %v...", encoding)
				b, err := convertEncodingToUtf8(response.Body, encoding)
				if err != nil {
					return nil, err
				}
				response.Body = b
				response.Encoding = encoding

				// replace doc with converted body
				doc, err = goquery.NewDocumentFromReader(bytes.NewBuffer(response.Body))
				if err != nil {
					return nil, err
				}
			}
		}
	}

	// goquery.NewDocumentFromReader does not set Url, unlike NewDocumentFromResponse
	doc.Url = response.Request.URL
	baseUrl := doc.Url

	base := doc.Find("head base")
	if base.Length() == 1 {
		if href, exists := base.Attr("href"); exists {
			baseUrl, err = doc.Url.Parse(href)
			if err != nil {
				return nil, err
			}
		}
	}

	response.printf("* %v", strings.TrimSpace(doc.Find("title").Text()))

	return &Page{doc, baseUrl, response.Logger}, nil
}
