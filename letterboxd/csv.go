// Package letterboxd writes the CSV accepted by Letterboxd's film importer.
package letterboxd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dimchansky/utfbom"

	"github.com/koizuka/douban2letterboxd/douban"
)

const DefaultFilename = "letterboxd_import.csv"

// Header is the column order of an import file.
var Header = []string{"imdbID", "Rating", "WatchedDate", "Review"}

// ErrNothingToExport is returned instead of writing a file with no rows.
var ErrNothingToExport = errors.New("没有数据可导出")

const utf8BOM = "\ufeff"

// Entry is one row of an import file.
type Entry struct {
	IMDbID      string
	Rating      string
	WatchedDate string
	Review      string
}

func (e Entry) record() []string {
	return []string{e.IMDbID, e.Rating, e.WatchedDate, e.Review}
}

// Entries converts harvested movies, keeping their order.
func Entries(movies []douban.Movie) []Entry {
	entries := make([]Entry, 0, len(movies))
	for _, m := range movies {
		entries = append(entries, Entry{
			IMDbID:      m.IMDbID,
			Rating:      m.Rating,
			WatchedDate: m.WatchedDate,
			Review:      m.Review,
		})
	}
	return entries
}

type WriteOption struct {
	BOM bool // prefix a UTF-8 byte order mark, for spreadsheet applications
}

// WriteCSV writes the header row followed by one row per entry.
func WriteCSV(w io.Writer, entries []Entry, opt WriteOption) error {
	if opt.BOM {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return err
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write(e.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export writes entries to filename. With no entries nothing is created and
// ErrNothingToExport is returned.
func Export(filename string, entries []Entry, opt WriteOption) error {
	if len(entries) == 0 {
		return ErrNothingToExport
	}
	if filename == "" {
		filename = DefaultFilename
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	if err := WriteCSV(f, entries, opt); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filename, err)
	}
	return nil
}

// HeaderError is returned by ReadCSV when the first row is not Header.
type HeaderError struct {
	Got []string
}

func (err HeaderError) Error() string {
	return fmt.Sprintf("unexpected header %q, want %q", err.Got, Header)
}

// ReadCSV parses an import file, with or without a byte order mark.
func ReadCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(utfbom.SkipOnly(r))
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if err == io.EOF {
		return nil, HeaderError{}
	}
	if err != nil {
		return nil, err
	}
	for i := range Header {
		if head[i] != Header[i] {
			return nil, HeaderError{head}
		}
	}

	var entries []Entry
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{rec[0], rec[1], rec[2], rec[3]})
	}
}
