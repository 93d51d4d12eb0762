package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os/exec"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func requireChrome(t *testing.T) {
	t.Helper()
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("chrome is not installed")
}

func TestChromeSession_GetContext(t *testing.T) {
	requireChrome(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		c, err := r.Cookie("bid")
		value := ""
		if err == nil {
			value = c.Value
		}
		_, _ = fmt.Fprintf(w, "<html><head></head><body><p id=\"bid\">%s</p></body></html>", value)
	}))
	defer ts.Close()

	session := NewSession("chrome_test", &BufferedLogger{})
	chromeSession, cancel, err := session.NewChromeOpt(NewChromeOptions{Headless: true, Timeout: 30 * time.Second})
	defer cancel()
	if err != nil {
		t.Fatalf("NewChromeOpt() error: %v", err)
	}

	u, _ := url.Parse(ts.URL)
	chromeSession.SetCookieMap(u, map[string]string{"bid": "abc"})

	t.Run("got html", func(t *testing.T) {
		resp, err := chromeSession.GetContext(context.Background(), ts.URL+"/")
		if err != nil {
			t.Fatal(err)
		}
		page, err := resp.Page()
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff("abc", page.Find("#bid").Text()); diff != "" {
			t.Errorf("(-shouldBe +got)\n%v", diff)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := chromeSession.GetContext(context.Background(), ts.URL+"/missing")
		var respErr ResponseError
		if !errors.As(err, &respErr) {
			t.Fatalf("expected ResponseError, got %v", err)
		}
		if respErr.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %v", respErr.StatusCode)
		}
	})
}
