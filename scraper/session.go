package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	cookiejar "github.com/orirawlings/persistent-cookiejar"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

const (
	UserAgent_Chrome91 = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	UserAgent_default  = UserAgent_Chrome91
)

// Session holds communication and logging options
type Session struct {
	Name               string // directory name to store session files(downloaded pages)
	client             http.Client
	Encoding           encoding.Encoding // force charset over Content-Type response header
	UserAgent          string            // specify User-Agent
	Header             http.Header       // extra headers sent with every request
	FilePrefix         string            // prefix to directory of session files
	invokeCount        int
	SaveToFile         bool // save downloaded pages to session directory
	ShowRequestHeader  bool // print request headers with Logger
	ShowResponseHeader bool // print response headers with Logger
	Log                Logger
	jar                *cookiejar.Jar
}

type RequestError struct {
	RequestURL *url.URL
	Err        error
}

func (err RequestError) Error() string {
	return fmt.Sprintf("%v request error: %v", err.RequestURL.String(), err.Err)
}

func (err RequestError) Unwrap() error { return err.Err }

type ResponseError struct {
	RequestURL *url.URL
	StatusCode int
	Status     string
}

func (err ResponseError) Error() string {
	return fmt.Sprintf("%v response code: %v", err.RequestURL.String(), err.Status)
}

// NewSession creates a session whose cookies live in memory only.
func NewSession(name string, log Logger) *Session {
	jar, _ := cookiejar.New(&cookiejar.Options{NoPersist: true})
	return &Session{
		Name:      name,
		UserAgent: UserAgent_default,
		Header:    http.Header{},
		client: http.Client{
			Jar: jar,
		},
		Log: log,
		jar: jar,
	}
}

func (session *Session) Printf(format string, a ...interface{}) {
	if session.Log == nil {
		return
	}
	session.Log.Printf(format, a...)
}

func (session *Session) Cookies(u *url.URL) []*http.Cookie {
	return session.client.Jar.Cookies(u)
}

func (session *Session) SetCookies(u *url.URL, cookies []*http.Cookie) {
	session.client.Jar.SetCookies(u, cookies)
}

// SetCookieMap stores name/value pairs as session cookies valid for every path of u's host.
func (session *Session) SetCookieMap(u *url.URL, values map[string]string) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	cookies := make([]*http.Cookie, 0, len(names))
	for _, name := range names {
		cookies = append(cookies, &http.Cookie{Name: name, Value: values[name], Path: "/"})
	}
	session.SetCookies(u, cookies)
}

// charsetEncoding parses chatset string and returns encoding.Encoding.
func charsetEncoding(charset string) encoding.Encoding {
	var encode encoding.Encoding
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "shift_jis", "windows-31j", "x-sjis":
		encode = japanese.ShiftJIS
	case "euc-jp":
		encode = japanese.EUCJP
	case "iso-2022-jp":
		encode = japanese.ISO2022JP
	case "gbk", "gb2312", "x-gbk":
		encode = simplifiedchinese.GBK
	case "gb18030":
		encode = simplifiedchinese.GB18030
	case "big5":
		encode = traditionalchinese.Big5
	}
	return encode
}

// convertEncodingToUtf8 converts body(given encoding) to UTF-8.
func convertEncodingToUtf8(body []byte, encoding encoding.Encoding) ([]byte, error) {
	if encoding == nil {
		return body, nil
	}
	b, _, err := transform.Bytes(encoding.NewDecoder(), body)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (session *Session) getDirectory() string {
	return fmt.Sprintf("%v%v", session.FilePrefix, session.Name)
}

func (session *Session) getHtmlFilename() string {
	return path.Join(session.getDirectory(), fmt.Sprintf("%v.html", session.invokeCount))
}

var charsetRe = regexp.MustCompile(`(?i)charset=([^;\s]*)`)

func charsetFromContentType(contentType string) string {
	m := charsetRe.FindStringSubmatch(contentType)
	if len(m) != 2 {
		return ""
	}
	return strings.Trim(m[1], `"'`)
}

func (session *Session) invoke(req *http.Request) (*Response, error) {
	if session.SaveToFile {
		if err := os.MkdirAll(session.getDirectory(), os.FileMode(0744)); err != nil {
			return nil, err
		}
	}

	session.invokeCount++
	filename := session.getHtmlFilename()

	userAgent := session.UserAgent
	if userAgent == "" {
		userAgent = UserAgent_default
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	for k, v := range session.Header {
		for i, s := range v {
			if i == 0 {
				req.Header.Set(k, s)
			} else {
				req.Header.Add(k, s)
			}
		}
	}

	if session.ShowRequestHeader {
		session.Printf("REQUEST: %v %v:", req.Method, req.URL.String())
		session.Printf("Request header:{")
		for k, v := range req.Header {
			session.Printf("  %v: %v", k, v)
		}
		session.Printf("}")
	}

	response, err := session.client.Do(req)
	if err != nil {
		return nil, RequestError{req.URL, err}
	}
	defer response.Body.Close()

	req = response.Request // update req.Url after redirects

	if response.StatusCode/100 != 2 {
		return nil, ResponseError{req.URL, response.StatusCode, response.Status}
	}

	if session.ShowResponseHeader {
		session.Printf("Response Header:")
		for k, v := range response.Header {
			session.Printf("  %v: %v", k, v)
		}
	}

	contentType := response.Header.Get("Content-Type")

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, RequestError{req.URL, err}
	}

	if session.SaveToFile {
		session.Printf("**** SAVE to %v (%v bytes)", filename, len(body))
		if err := os.WriteFile(filename, body, os.FileMode(0644)); err != nil {
			return nil, err
		}
		err = savePageMetadata(filename, PageMetadata{
			URL:         req.URL.String(),
			ContentType: contentType,
			StatusCode:  response.StatusCode,
		})
		if err != nil {
			return nil, err
		}
	}

	return session.decode(req, contentType, body)
}

func (session *Session) decode(req *http.Request, contentType string, body []byte) (*Response, error) {
	if session.ShowResponseHeader {
		session.Printf("Content-type: %v", contentType)
	}

	charSet := charsetFromContentType(contentType)

	encode := session.Encoding
	if encode == nil {
		encode = charsetEncoding(charSet)
	}
	if encode != nil {
		if session.ShowResponseHeader {
			session.Printf("converting from %v...", encode)
		}
		b, err := convertEncodingToUtf8(body, encode)
		if err != nil {
			return nil, err
		}
		body = b
	}

	return &Response{
		Request:     req,
		ContentType: contentType,
		CharSet:     charSet,
		Body:        body,
		Encoding:    encode,
		Logger:      session,
	}, nil
}

// Get invokes HTTP GET request.
func (session *Session) Get(getUrl string) (*Response, error) {
	return session.GetContext(context.Background(), getUrl)
}

// GetContext invokes HTTP GET request bound to ctx.
func (session *Session) GetContext(ctx context.Context, getUrl string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, getUrl, nil)
	if err != nil {
		return nil, err
	}
	return session.invoke(req)
}

// GetPage gets the URL and returns a Page.
func (session *Session) GetPage(getUrl string) (*Page, error) {
	resp, err := session.Get(getUrl)
	if err != nil {
		return nil, err
	}
	return resp.Page()
}
