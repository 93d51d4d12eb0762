package scraper

import "strings"

// ParseCookieString splits a browser "Cookie:" header value ("a=1; b=2")
// into name/value pairs. Segments without '=' are ignored; only the first
// '=' separates name from value.
func ParseCookieString(s string) map[string]string {
	cookies := map[string]string{}
	for _, item := range strings.Split(s, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(item), "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cookies[name] = strings.TrimSpace(value)
	}
	return cookies
}
