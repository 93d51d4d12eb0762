package douban

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrNoMatch reports that a selector or pattern found nothing.
var ErrNoMatch = errors.New("no match")

// ItemError is a listing entry that could not be parsed; the entry is dropped.
type ItemError struct {
	Index int
	Err   error
}

func (err ItemError) Error() string {
	return fmt.Sprintf("item #%d: %v", err.Index, err.Err)
}

func (err ItemError) Unwrap() error { return err.Err }

// LoginError means Douban redirected to its login page, usually an expired cookie.
type LoginError struct {
	URL *url.URL
}

func (err LoginError) Error() string {
	return fmt.Sprintf("redirected to login page %v, please update the cookie", err.URL)
}

// BlockedError means Douban redirected to its anti-bot verification page.
type BlockedError struct {
	URL *url.URL
}

func (err BlockedError) Error() string {
	return fmt.Sprintf("blocked by verification page %v, open it in a browser and refresh the cookie", err.URL)
}
