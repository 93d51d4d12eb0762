package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

type NewChromeOptions struct {
	Headless bool
	Timeout  time.Duration // overall lifetime of the browser context, 0 for none
}

// ChromeSession fetches pages through a real browser. It shares logging,
// User-Agent and page saving settings with the Session it was created from.
type ChromeSession struct {
	Ctx     context.Context
	session *Session
	cookies []*network.CookieParam
}

func (session *Session) NewChromeOpt(options NewChromeOptions) (*ChromeSession, context.CancelFunc, error) {
	chromeUserDataDir, err := os.MkdirTemp("", "chromeUserData")
	if err != nil {
		return nil, func() {}, err
	}

	allocOptions := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOptions = append(allocOptions,
		chromedp.UserDataDir(chromeUserDataDir),
		chromedp.UserAgent(session.UserAgent),
	)
	if !options.Headless {
		allocOptions = append(allocOptions, chromedp.Flag("headless", false))
	} else {
		allocOptions = append(allocOptions, chromedp.DisableGPU)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOptions...)

	ctxt, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(session.Printf))
	if options.Timeout != 0 {
		var timeoutCancel context.CancelFunc
		ctxt, timeoutCancel = context.WithTimeout(ctxt, options.Timeout)
		prev := cancel
		cancel = func() {
			timeoutCancel()
			prev()
		}
	}
	cancelFunc := func() {
		cancel()
		allocCancel()
		_ = os.RemoveAll(chromeUserDataDir)
	}

	// start the browser now so that a missing binary is reported here
	if err := chromedp.Run(ctxt); err != nil {
		return nil, cancelFunc, err
	}

	return &ChromeSession{Ctx: ctxt, session: session}, cancelFunc, nil
}

func (chromeSession *ChromeSession) Printf(format string, a ...interface{}) {
	chromeSession.session.Printf(format, a...)
}

// SetCookieMap registers cookies for u's host; they are sent from the next navigation on.
func (chromeSession *ChromeSession) SetCookieMap(u *url.URL, values map[string]string) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		chromeSession.cookies = append(chromeSession.cookies, &network.CookieParam{
			Name:   name,
			Value:  values[name],
			Domain: u.Hostname(),
			Path:   "/",
		})
	}
}

func (chromeSession *ChromeSession) applyCookies() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if len(chromeSession.cookies) == 0 {
			return nil
		}
		if err := network.SetCookies(chromeSession.cookies).Do(ctx); err != nil {
			return err
		}
		chromeSession.cookies = nil
		return nil
	})
}

func (chromeSession *ChromeSession) extraHeaders() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if len(chromeSession.session.Header) == 0 {
			return nil
		}
		headers := network.Headers{}
		for k, v := range chromeSession.session.Header {
			if len(v) > 0 {
				headers[k] = v[0]
			}
		}
		return network.SetExtraHTTPHeaders(headers).Do(ctx)
	})
}

// GetContext navigates to getUrl and returns the rendered document as a Response.
// ctx may carry a deadline; the browser itself is bound to chromeSession.Ctx.
func (chromeSession *ChromeSession) GetContext(ctx context.Context, getUrl string) (*Response, error) {
	session := chromeSession.session
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, getUrl, nil)
	if err != nil {
		return nil, err
	}

	runCtx := chromeSession.Ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(runCtx, deadline)
		defer cancel()
	}

	session.invokeCount++
	filename := session.getHtmlFilename()

	if err := chromedp.Run(runCtx, network.Enable(), chromeSession.applyCookies(), chromeSession.extraHeaders()); err != nil {
		return nil, RequestError{req.URL, err}
	}

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(getUrl))
	if err != nil {
		return nil, RequestError{req.URL, err}
	}

	var location string
	var html string
	if err := chromedp.Run(runCtx,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, RequestError{req.URL, err}
	}
	if u, err := url.Parse(location); err == nil && location != "" {
		req.URL = u
	}

	if resp != nil && resp.Status/100 != 2 {
		return nil, ResponseError{req.URL, int(resp.Status), fmt.Sprintf("%d %s", resp.Status, resp.StatusText)}
	}

	if session.SaveToFile {
		if err := os.MkdirAll(filepath.Dir(filename), os.FileMode(0744)); err != nil {
			return nil, err
		}
		session.Printf("**** SAVE to %v (%v bytes)", filename, len(html))
		if err := os.WriteFile(filename, []byte(html), os.FileMode(0644)); err != nil {
			return nil, err
		}
		if err := savePageMetadata(filename, PageMetadata{
			URL:         req.URL.String(),
			ContentType: "text/html; charset=utf-8",
			StatusCode:  200,
		}); err != nil {
			return nil, err
		}
	}

	// the browser has already decoded the document
	return &Response{
		Request:     req,
		ContentType: "text/html; charset=utf-8",
		CharSet:     "utf-8",
		Body:        []byte(html),
		Logger:      session,
	}, nil
}
